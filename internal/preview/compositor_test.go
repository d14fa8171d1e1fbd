package preview

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/scene"
)

// solidFrames serves a solid-color frame per source.
type solidFrames struct {
	colors map[string]color.NRGBA
}

func (s *solidFrames) FrameAt(clip *scene.VideoClip, _ float64) image.Image {
	c, ok := s.colors[clip.Src]
	if !ok {
		return nil
	}
	return imaging.New(1920, 1080, c)
}

func compositorProject() *scene.Project {
	videoLayer := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	videoLayer.Clips = []scene.Clip{scene.NewVideoClip("a.mp4", 0, 5, 0, 5)}
	subLayer := scene.NewLayer(scene.LayerTypeSubtitle, "subs", 1)
	sub := scene.NewSubtitleClip("hey", 0, 5)
	sub.X, sub.Y = 540, 1600
	sub.BackgroundColor = "black@0.5"
	subLayer.Clips = []scene.Clip{sub}

	p := scene.NewProject("paint")
	p.Layers = []*scene.Layer{videoLayer, subLayer}
	return p
}

func TestRenderPaintsActiveClips(t *testing.T) {
	c := NewCompositor(nil, zerolog.Nop())
	proj := compositorProject()
	frames := &solidFrames{colors: map[string]color.NRGBA{"a.mp4": {200, 10, 10, 255}}}

	img, hits := c.Render(proj, 2, frames)

	b := img.Bounds()
	if b.Dx() != proj.OutputWidth || b.Dy() != proj.OutputHeight {
		t.Fatalf("canvas %dx%d", b.Dx(), b.Dy())
	}

	// Cover-fit video fills the canvas; the center pixel carries its color.
	r, _, _, _ := img.At(540, 900).RGBA()
	if r>>8 < 150 {
		t.Errorf("center pixel should be the clip color, got red %d", r>>8)
	}

	if len(hits) != 2 {
		t.Fatalf("got %d hit bounds, want video then subtitle", len(hits))
	}
	if hits[0].Kind != scene.ClipTypeVideo || hits[1].Kind != scene.ClipTypeSubtitle {
		t.Errorf("draw order wrong: %s then %s", hits[0].Kind, hits[1].Kind)
	}
	// Full-canvas video box.
	if hits[0].X != 0 || hits[0].Width != 1080 {
		t.Errorf("video bounds %+v", hits[0])
	}
}

func TestRenderSkipsInactiveAndHidden(t *testing.T) {
	c := NewCompositor(nil, zerolog.Nop())
	proj := compositorProject()
	frames := &solidFrames{colors: map[string]color.NRGBA{"a.mp4": {200, 10, 10, 255}}}

	// t=7 is outside both clip windows.
	_, hits := c.Render(proj, 7, frames)
	if len(hits) != 0 {
		t.Errorf("nothing is active at t=7, got %d bounds", len(hits))
	}

	proj.Layers[0].Visible = false
	_, hits = c.Render(proj, 2, frames)
	for _, h := range hits {
		if h.Kind == scene.ClipTypeVideo {
			t.Error("hidden layer must not be drawn")
		}
	}
}

func TestRenderWithoutFrameStillRecordsBounds(t *testing.T) {
	c := NewCompositor(nil, zerolog.Nop())
	proj := compositorProject()

	img, hits := c.Render(proj, 2, &solidFrames{})

	// No decoded frame: canvas stays black but the clip is hit-testable.
	r, g, bl, _ := img.At(540, 900).RGBA()
	if r != 0 || g != 0 || bl != 0 {
		t.Errorf("canvas should stay black without frames")
	}
	if len(hits) != 2 {
		t.Errorf("got %d hit bounds, want 2", len(hits))
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"white", color.NRGBA{255, 255, 255, 255}},
		{"#ff0000", color.NRGBA{255, 0, 0, 255}},
		{"#0f0", color.NRGBA{0, 255, 0, 255}},
		{"#11223344", color.NRGBA{0x11, 0x22, 0x33, 0x44}},
		{"black@0.5", color.NRGBA{0, 0, 0, 127}},
		{"bogus", color.NRGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		if got := parseColor(tt.in); got != tt.want {
			t.Errorf("parseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
