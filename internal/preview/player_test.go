package preview

import (
	"image"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/scene"
)

type fakeSurface struct {
	src     string
	pos     float64
	posOK   bool
	ready   bool
	playing bool
	loads   []string
}

func (f *fakeSurface) Load(src string) {
	f.src = src
	f.loads = append(f.loads, src)
	f.ready = false
	f.posOK = false
}
func (f *fakeSurface) Src() string               { return f.src }
func (f *fakeSurface) SeekTo(s float64)          { f.pos = s }
func (f *fakeSurface) Position() (float64, bool) { return f.pos, f.posOK }
func (f *fakeSurface) Ready() bool               { return f.ready }
func (f *fakeSurface) Play()                     { f.playing = true }
func (f *fakeSurface) Pause()                    { f.playing = false }
func (f *fakeSurface) Frame() image.Image        { return nil }

func playerFixture(t *testing.T) (*Player, *fakeSurface, *fakeSurface) {
	t.Helper()
	model := scene.NewModel(zerolog.Nop(), 10)

	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{
		scene.NewVideoClip("a.mp4", 0, 5, 0, 5),
		scene.NewVideoClip("b.mp4", 5, 10, 0, 5),
	}
	p := scene.NewProject("playback")
	p.Layers = []*scene.Layer{l}
	model.Load(p)

	a, b := &fakeSurface{}, &fakeSurface{}
	return NewPlayer(model, a, b, config.DefaultEditor(), zerolog.Nop()), a, b
}

func TestPausedSeekSyncsSurface(t *testing.T) {
	p, a, _ := playerFixture(t)

	p.SetTime(2)
	if p.State() != Paused {
		t.Fatalf("state %s", p.State())
	}
	if a.src != "a.mp4" || a.pos != 2 {
		t.Errorf("surface not synced: src=%s pos=%.1f", a.src, a.pos)
	}

	p.SetTime(7)
	if a.src != "b.mp4" || a.pos != 2 {
		t.Errorf("seek across clips: src=%s pos=%.1f, want b.mp4 at source 2", a.src, a.pos)
	}
}

func TestTickDerivesTimeFromSurface(t *testing.T) {
	p, a, _ := playerFixture(t)
	p.SetTime(2)
	p.Play()

	a.posOK = true
	a.pos = 2.1
	p.Tick(time.Unix(100, 0))

	if p.Time() != 2.1 {
		t.Errorf("time %.3f, want surface-derived 2.1", p.Time())
	}
}

func TestTickDerivesTimeThroughTrimMapping(t *testing.T) {
	// A clip playing 10 source seconds in 5 timeline seconds: source
	// position maps back through the clip's linear trim mapping, not a
	// 1:1 offset.
	model := scene.NewModel(zerolog.Nop(), 10)
	l := scene.NewLayer(scene.LayerTypeVideo, "video", 0)
	l.Clips = []scene.Clip{scene.NewVideoClip("a.mp4", 0, 5, 0, 10)}
	proj := scene.NewProject("fast")
	proj.Layers = []*scene.Layer{l}
	model.Load(proj)

	a := &fakeSurface{}
	p := NewPlayer(model, a, &fakeSurface{}, config.DefaultEditor(), zerolog.Nop())
	p.SetTime(2)
	p.Play()

	a.posOK = true
	a.pos = 4.4
	p.Tick(time.Unix(100, 0))

	if got := p.Time(); got < 2.199 || got > 2.201 {
		t.Errorf("time %.3f, want 2.2 (source 4.4 through the 2x trim window)", got)
	}
}

func TestTickFallsBackToWallClockOnDrift(t *testing.T) {
	p, a, _ := playerFixture(t)
	p.SetTime(2)
	p.Play()

	// Surface position is stale far beyond the drift threshold, as right
	// after a source switch.
	a.posOK = true
	a.pos = 4.5

	base := time.Unix(100, 0)
	p.Tick(base)
	p.Tick(base.Add(100 * time.Millisecond))

	if got := p.Time(); got < 2.09 || got > 2.11 {
		t.Errorf("time %.3f, want wall-clock advance to ~2.1", got)
	}
}

func TestTickWallClockWhenNoVideoActive(t *testing.T) {
	model := scene.NewModel(zerolog.Nop(), 10)
	l := scene.NewLayer(scene.LayerTypeSubtitle, "subs", 0)
	l.Clips = []scene.Clip{scene.NewSubtitleClip("only text", 0, 3)}
	proj := scene.NewProject("subs")
	proj.Layers = []*scene.Layer{l}
	model.Load(proj)

	p := NewPlayer(model, &fakeSurface{}, &fakeSurface{}, config.DefaultEditor(), zerolog.Nop())
	p.Play()

	base := time.Unix(100, 0)
	p.Tick(base)
	p.Tick(base.Add(200 * time.Millisecond))

	if got := p.Time(); got < 0.19 || got > 0.21 {
		t.Errorf("time %.3f, want ~0.2 from wall clock", got)
	}
}

func TestPreloadStartsNearBoundary(t *testing.T) {
	p, a, b := playerFixture(t)
	p.SetTime(3)
	p.Play()

	// Not yet inside the preload window.
	a.posOK = true
	a.pos = 3.2
	p.Tick(time.Unix(100, 0))
	if b.src != "" {
		t.Fatalf("preload too early: %s", b.src)
	}

	// 5.0 - 3.6 = 1.4, inside the 1.5s lead.
	a.pos = 3.4
	p.Tick(time.Unix(100, 1e8))
	a.pos = 3.6
	p.Tick(time.Unix(100, 2e8))
	if b.src != "b.mp4" || b.pos != 0 {
		t.Errorf("idle surface should hold the next source at its start: src=%s pos=%.1f", b.src, b.pos)
	}
}

func TestBoundarySwapWhenPreloaded(t *testing.T) {
	p, a, b := playerFixture(t)
	p.SetTime(4.9)
	p.Play()

	b.Load("b.mp4")
	b.SeekTo(0)
	b.ready = true

	a.posOK = true
	a.pos = 5.05
	p.Tick(time.Unix(100, 0))

	if p.ActiveSurface() != b {
		t.Fatal("surfaces should have swapped at the boundary")
	}
	if !b.playing || a.playing {
		t.Errorf("playback roles after swap: a=%v b=%v", a.playing, b.playing)
	}
	if b.pos < 0.04 || b.pos > 0.06 {
		t.Errorf("swapped surface should continue at source ~0.05, got %.3f", b.pos)
	}
}

func TestBoundaryDirectSeekWhenNotReady(t *testing.T) {
	p, a, b := playerFixture(t)
	p.SetTime(4.9)
	p.Play()

	// Idle surface holds the right source but has no decoded frame.
	b.Load("b.mp4")
	b.ready = false

	a.posOK = true
	a.pos = 5.05
	p.Tick(time.Unix(100, 0))

	if p.ActiveSurface() != a {
		t.Fatal("no swap without a decoded frame")
	}
	if a.src != "b.mp4" {
		t.Errorf("active surface should have switched sources directly, holds %s", a.src)
	}
}

func TestReachingEndStopsAndRewinds(t *testing.T) {
	p, a, _ := playerFixture(t)
	p.SetTime(9.9)
	p.Play()

	a.posOK = true
	a.pos = 5.05 // clip b source time past the project end
	p.Tick(time.Unix(100, 0))

	if p.State() != Paused {
		t.Errorf("state %s, want paused at end", p.State())
	}
	if p.Time() != 0 {
		t.Errorf("time %.3f, want rewind to 0", p.Time())
	}
	if a.playing {
		t.Error("surface should be paused at end")
	}
}

func TestPlayPauseEvents(t *testing.T) {
	p, _, _ := playerFixture(t)

	var events []scene.EventKind
	// The player publishes on the model bus; observers repaint off it.
	pm := p.model
	unsub := pm.Subscribe(func(e scene.Event) { events = append(events, e.Kind) })
	defer unsub()

	p.Play()
	p.Pause()

	var plays int
	for _, k := range events {
		if k == scene.EventPlayStateChanged {
			plays++
		}
	}
	if plays != 2 {
		t.Errorf("got %d play-state events, want 2", plays)
	}
}
