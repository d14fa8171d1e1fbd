package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/scene"
	"github.com/rdyjun/lclip/pkg/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.json")
	s := NewProjectStore(zerolog.Nop())

	p := scene.NewProject("roundtrip")
	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{scene.NewVideoClip("a.mp4", 0, 5, 0, 5)}
	p.Layers = []*scene.Layer{l}

	if err := s.Save(path, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "roundtrip" || len(loaded.Layers) != 1 || len(loaded.Layers[0].Clips) != 1 {
		t.Errorf("loaded project shape wrong: %+v", loaded)
	}
}

func TestSaveBumpsUpdatedAt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.json")
	s := NewProjectStore(zerolog.Nop())
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return stamp }

	p := scene.NewProject("stamped")
	if err := s.Save(path, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.UpdatedAt.Equal(stamp) {
		t.Errorf("updatedAt %v, want %v", loaded.UpdatedAt, stamp)
	}
}

func TestSavePreservesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.json")
	s := NewProjectStore(zerolog.Nop())

	raw := `{"name":"future","outputWidth":1080,"outputHeight":1920,"fps":30,
		"layers":[],"experimentalFlag":{"nested":true}}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := s.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Save(path, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if string(out["experimentalFlag"]) != `{"nested":true}` {
		t.Errorf("unknown field lost: %s", out["experimentalFlag"])
	}
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.json")
	s := NewProjectStore(zerolog.Nop())

	if err := s.Save(path, scene.NewProject("clean")); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "project.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents %v", names)
	}
}

func TestStatusFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project.json")
	f := NewStatusFile(project)

	want := types.ExportStatus{State: types.ExportRunning, Percent: 42.5, Message: "extracting"}
	if err := f.WriteStatus(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := f.ReadStatus()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if *got != want {
		t.Errorf("status %+v, want %+v", *got, want)
	}
	if StatusPath(project) != filepath.Join(dir, "project.status.json") {
		t.Errorf("status path %s", StatusPath(project))
	}
}
