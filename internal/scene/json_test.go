package scene

import (
	"encoding/json"
	"testing"
)

func TestProjectRoundTripPreservesUnknownFields(t *testing.T) {
	src := `{
		"id": "p1",
		"name": "demo",
		"outputWidth": 1080,
		"outputHeight": 1920,
		"fps": 30,
		"updatedAt": "2025-01-02T03:04:05Z",
		"futureProjectField": {"nested": true},
		"layers": [
			{
				"id": "l1",
				"type": "video",
				"name": "main",
				"order": 0,
				"visible": true,
				"locked": false,
				"futureLayerField": 7,
				"clips": [
					{
						"type": "video",
						"id": "c1",
						"startTime": 0,
						"endTime": 5,
						"src": "a.mp4",
						"srcStart": 0,
						"srcEnd": 5,
						"x": 0, "y": 0, "width": 1080, "height": 1920,
						"fit": "cover",
						"opacity": 1,
						"isFiltered": false,
						"filterStart": 0, "filterEnd": 0,
						"eventTypes": null,
						"futureClipField": "keep me"
					}
				]
			}
		]
	}`

	var p Project
	if err := json.Unmarshal([]byte(src), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	out, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if _, ok := m["futureProjectField"]; !ok {
		t.Error("unknown project field dropped")
	}
	layer := m["layers"].([]interface{})[0].(map[string]interface{})
	if layer["futureLayerField"] != float64(7) {
		t.Error("unknown layer field dropped")
	}
	clip := layer["clips"].([]interface{})[0].(map[string]interface{})
	if clip["futureClipField"] != "keep me" {
		t.Error("unknown clip field dropped")
	}
}

func TestClipDecodeAppliesDefaults(t *testing.T) {
	c, err := unmarshalClip([]byte(`{"type":"video","id":"c1","startTime":0,"endTime":5,"src":"a.mp4","srcStart":0,"srcEnd":5}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v := c.(*VideoClip)
	if v.Opacity != 1 {
		t.Errorf("opacity default 1, got %.2f", v.Opacity)
	}
	if v.Fit != "cover" {
		t.Errorf("fit default cover, got %q", v.Fit)
	}

	s, err := unmarshalClip([]byte(`{"type":"subtitle","id":"s1","startTime":0,"endTime":5,"text":"hi"}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	sub := s.(*SubtitleClip)
	if sub.Align != AlignCenter {
		t.Errorf("align default center, got %q", sub.Align)
	}
	if sub.FontSize != 48 {
		t.Errorf("font size default 48, got %.1f", sub.FontSize)
	}

	a, err := unmarshalClip([]byte(`{"type":"audio","id":"a1","startTime":0,"endTime":5,"src":"bg.mp3"}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.(*AudioClip).Volume != 1 {
		t.Errorf("volume default 1, got %.2f", a.(*AudioClip).Volume)
	}
}

func TestUnknownClipTypeIsAnError(t *testing.T) {
	if _, err := unmarshalClip([]byte(`{"type":"hologram","id":"x"}`)); err == nil {
		t.Error("unknown clip type must fail decode")
	}
}

func TestLayerVisibleDefaultsTrue(t *testing.T) {
	var l Layer
	if err := json.Unmarshal([]byte(`{"id":"l1","type":"video","clips":[]}`), &l); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !l.Visible {
		t.Error("visible must default to true when absent")
	}
}

func TestMarshalClipEmitsTypeTag(t *testing.T) {
	b, err := marshalClip(NewAudioClip("bg.mp3", "music", 0, 4))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if m["type"] != "audio" {
		t.Errorf("type tag missing or wrong: %v", m["type"])
	}
}
