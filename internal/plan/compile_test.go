package plan

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/media"
	"github.com/rdyjun/lclip/internal/scene"
)

// fakeProber serves canned probe results keyed by source name.
type fakeProber struct {
	infos  map[string]*media.SourceInfo
	probed []string
}

func (f *fakeProber) Probe(_ context.Context, src string) (*media.SourceInfo, error) {
	f.probed = append(f.probed, src)
	if info, ok := f.infos[src]; ok {
		return info, nil
	}
	return nil, context.DeadlineExceeded
}

func landscapeSource(hasAudio bool) *media.SourceInfo {
	return &media.SourceInfo{Duration: 60, Width: 1920, Height: 1080, FPS: 30, HasAudio: hasAudio}
}

func newTestCompiler(infos map[string]*media.SourceInfo) (*Compiler, *fakeProber) {
	p := &fakeProber{infos: infos}
	return NewCompiler(p, zerolog.Nop()), p
}

func twoClipProject() *scene.Project {
	videoLayer := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	videoLayer.Clips = []scene.Clip{
		scene.NewVideoClip("a.mp4", 0, 5, 0, 5),
		scene.NewVideoClip("b.mp4", 5, 10, 0, 5),
	}
	subLayer := scene.NewLayer(scene.LayerTypeSubtitle, "subs", 1)
	subLayer.Clips = []scene.Clip{scene.NewSubtitleClip("hello", 2, 8)}

	p := scene.NewProject("test")
	p.Layers = []*scene.Layer{videoLayer, subLayer}
	return p
}

func TestCompileOrdersStagesAndComposite(t *testing.T) {
	c, prober := newTestCompiler(map[string]*media.SourceInfo{
		"a.mp4": landscapeSource(true),
		"b.mp4": landscapeSource(true),
	})

	p, err := c.Compile(context.Background(), twoClipProject())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if len(p.Clips) != 2 {
		t.Fatalf("expected 2 clip stages, got %d", len(p.Clips))
	}
	if p.Clips[0].Src != "a.mp4" || p.Clips[1].Src != "b.mp4" {
		t.Errorf("stages not sorted by start time: %s, %s", p.Clips[0].Src, p.Clips[1].Src)
	}
	if len(prober.probed) != 2 {
		t.Errorf("each distinct source must be probed exactly once, probed %v", prober.probed)
	}
	if p.Duration != 10 {
		t.Errorf("duration %.1f, want max end time 10", p.Duration)
	}

	// Subtitle on the higher-order layer draws after (above) both overlays.
	if len(p.Composite.Overlays) != 2 || len(p.Composite.Subtitles) != 1 {
		t.Fatalf("composite shape: %d overlays, %d subtitles",
			len(p.Composite.Overlays), len(p.Composite.Subtitles))
	}
	sub := p.Composite.Subtitles[0]
	if sub.Start != 2 || sub.End != 8 {
		t.Errorf("subtitle enable window [%.1f,%.1f), want [2,8)", sub.Start, sub.End)
	}

	// At t=6 the second overlay and the subtitle are both enabled; the
	// filter graph draws text after overlays, so video composites beneath it.
	filter := p.CompositeFilter(CompositeInputs{
		Base:      "0:v",
		ClipVideo: []string{"1:v", "2:v"},
		ClipAudio: map[int]string{0: "1:a", 1: "2:a"},
		Fonts:     []string{"/fonts/f.ttf"},
	})
	ovPos := strings.Index(filter, "overlay=")
	dtPos := strings.Index(filter, "drawtext=")
	if ovPos == -1 || dtPos == -1 || dtPos < ovPos {
		t.Errorf("subtitles must draw after overlays:\n%s", filter)
	}
}

func TestCompileRejectsProjectWithoutVideo(t *testing.T) {
	c, prober := newTestCompiler(nil)

	p := scene.NewProject("subtitles-only")
	subLayer := scene.NewLayer(scene.LayerTypeSubtitle, "subs", 0)
	subLayer.Clips = []scene.Clip{scene.NewSubtitleClip("hi", 0, 3)}
	p.Layers = []*scene.Layer{subLayer}

	if _, err := c.Compile(context.Background(), p); err != ErrNoVideoClips {
		t.Errorf("expected ErrNoVideoClips, got %v", err)
	}
	if len(prober.probed) != 0 {
		t.Error("validation failure must not start probe work")
	}
}

func TestWithFallbackDuration(t *testing.T) {
	c, _ := newTestCompiler(nil)

	c.WithFallbackDuration(42.5)
	if c.fallbackDuration != 42.5 {
		t.Errorf("fallback duration not applied, got %v", c.fallbackDuration)
	}
	c.WithFallbackDuration(0)
	if c.fallbackDuration != 42.5 {
		t.Errorf("non-positive override must keep the previous value, got %v", c.fallbackDuration)
	}
}

func TestCompileFailsOnUnreadableSource(t *testing.T) {
	c, _ := newTestCompiler(map[string]*media.SourceInfo{
		"a.mp4": landscapeSource(true),
	})

	p := scene.NewProject("broken")
	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{
		scene.NewVideoClip("a.mp4", 0, 5, 0, 5),
		scene.NewVideoClip("missing.mp4", 5, 10, 0, 5),
	}
	p.Layers = []*scene.Layer{l}

	if _, err := c.Compile(context.Background(), p); err == nil {
		t.Error("an unreadable source must fail the whole compile, not skip the clip")
	}
}

func TestSilentSourceNeverEntersMix(t *testing.T) {
	c, _ := newTestCompiler(map[string]*media.SourceInfo{
		"a.mp4":    landscapeSource(true),
		"mute.mp4": landscapeSource(false),
	})

	p := scene.NewProject("mixed")
	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{
		scene.NewVideoClip("a.mp4", 0, 5, 0, 5),
		scene.NewVideoClip("mute.mp4", 5, 10, 0, 5),
	}
	p.Layers = []*scene.Layer{l}

	compiled, err := c.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	for _, in := range compiled.Composite.Audio.Inputs {
		if in.ClipIndex >= 0 && !compiled.Clips[in.ClipIndex].HasAudio {
			t.Errorf("clip stage %d has no audio but is wired into the mix", in.ClipIndex)
		}
	}
	if got := len(compiled.Composite.Audio.Inputs); got != 1 {
		t.Errorf("expected 1 mix input (the audible clip), got %d", got)
	}
}

func TestBackgroundAudioMix(t *testing.T) {
	c, _ := newTestCompiler(map[string]*media.SourceInfo{
		"a.mp4": landscapeSource(true),
		"b.mp4": landscapeSource(true),
	})

	p := scene.NewProject("music")
	videoLayer := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	// Two simultaneous clips, both with audio.
	clipA := scene.NewVideoClip("a.mp4", 2, 8, 0, 6)
	clipB := scene.NewVideoClip("b.mp4", 2, 8, 0, 6)
	clipB.X, clipB.Y, clipB.Width, clipB.Height = 0, 960, 1080, 960
	videoLayer.Clips = []scene.Clip{clipA, clipB}

	audioLayer := scene.NewLayer(scene.LayerTypeAudio, "music", 1)
	bg := scene.NewAudioClip("bg.mp3", "music", 0, 8)
	bg.Volume = 0.5
	audioLayer.Clips = []scene.Clip{bg}

	p.Layers = []*scene.Layer{videoLayer, audioLayer}

	compiled, err := c.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	inputs := compiled.Composite.Audio.Inputs
	if len(inputs) != 3 {
		t.Fatalf("expected exactly 3 audio inputs, got %d", len(inputs))
	}

	volumeOps, delayOps := 0, 0
	for i := range inputs {
		for _, op := range inputs[i].ops() {
			if strings.HasPrefix(op, "volume=") {
				volumeOps++
			}
			if strings.HasPrefix(op, "adelay=") {
				delayOps++
			}
		}
	}
	if volumeOps != 1 {
		t.Errorf("expected one volume-scale operation, got %d", volumeOps)
	}
	if delayOps != 2 {
		t.Errorf("expected two delay operations, got %d", delayOps)
	}

	filter := compiled.CompositeFilter(CompositeInputs{
		Base:      "0:v",
		ClipVideo: []string{"1:v", "2:v"},
		ClipAudio: map[int]string{0: "1:a", 1: "2:a"},
		AudioSrc:  map[int]string{2: "3:a"},
	})
	if !strings.Contains(filter, "amix=inputs=3:duration=longest:normalize=1") {
		t.Errorf("expected a normalized 3-input mix:\n%s", filter)
	}
}

func TestSingleAudioStreamPassesThrough(t *testing.T) {
	c, _ := newTestCompiler(map[string]*media.SourceInfo{
		"a.mp4": landscapeSource(true),
	})

	p := scene.NewProject("single")
	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{scene.NewVideoClip("a.mp4", 0, 5, 0, 5)}
	p.Layers = []*scene.Layer{l}

	compiled, err := c.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	filter := compiled.CompositeFilter(CompositeInputs{
		Base:      "0:v",
		ClipVideo: []string{"1:v"},
		ClipAudio: map[int]string{0: "1:a"},
	})
	if strings.Contains(filter, "amix=") {
		t.Errorf("single stream must pass through, not mix:\n%s", filter)
	}
	if !strings.Contains(filter, "[aout]") {
		t.Errorf("audio chain must terminate in [aout]:\n%s", filter)
	}
}

func TestNoAudioProducesSilence(t *testing.T) {
	c, _ := newTestCompiler(map[string]*media.SourceInfo{
		"mute.mp4": landscapeSource(false),
	})

	p := scene.NewProject("silent")
	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{scene.NewVideoClip("mute.mp4", 0, 5, 0, 5)}
	p.Layers = []*scene.Layer{l}

	compiled, err := c.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !compiled.Composite.Audio.Silent() {
		t.Fatal("mix with zero inputs must be silent")
	}

	filter := compiled.CompositeFilter(CompositeInputs{
		Base:        "0:v",
		ClipVideo:   []string{"1:v"},
		SilentAudio: "2:a",
	})
	if !strings.Contains(filter, "[2:a]anull[aout]") {
		t.Errorf("silence must come from the provided anullsrc stream:\n%s", filter)
	}
}

func TestHiddenLayerExcluded(t *testing.T) {
	c, _ := newTestCompiler(map[string]*media.SourceInfo{
		"a.mp4": landscapeSource(true),
		"b.mp4": landscapeSource(true),
	})

	p := twoClipProject()
	p.Layers[1].Visible = false // hide subtitles

	compiled, err := c.Compile(context.Background(), p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(compiled.Composite.Subtitles) != 0 {
		t.Error("clips on hidden layers must not reach the composite")
	}
}
