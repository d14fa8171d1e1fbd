package scene

import (
	"math"
	"testing"
)

func TestSplitPartitionsTimeAndSource(t *testing.T) {
	m := newTestModel(t)
	l := NewLayer(LayerTypeVideo, "v", 0)
	orig := NewVideoClip("a.mp4", 0, 10, 0, 10)
	l.Clips = []Clip{orig}
	p := NewProject("split")
	p.Layers = []*Layer{l}
	m.Load(p)

	first, second, err := m.SplitClip(l.ID, orig.ID, 4)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}

	a := first.(*VideoClip)
	b := second.(*VideoClip)
	if a.StartTime != 0 || a.EndTime != 4 || a.SrcStart != 0 || a.SrcEnd != 4 {
		t.Errorf("first half mismatch: [%.1f,%.1f) src [%.1f,%.1f)",
			a.StartTime, a.EndTime, a.SrcStart, a.SrcEnd)
	}
	if b.StartTime != 4 || b.EndTime != 10 || b.SrcStart != 4 || b.SrcEnd != 10 {
		t.Errorf("second half mismatch: [%.1f,%.1f) src [%.1f,%.1f)",
			b.StartTime, b.EndTime, b.SrcStart, b.SrcEnd)
	}
	if len(l.Clips) != 2 {
		t.Fatalf("expected 2 clips after split, got %d", len(l.Clips))
	}
	if a.ID == b.ID {
		t.Error("split halves share an id")
	}
}

func TestSplitPreservesLinearMapping(t *testing.T) {
	m := newTestModel(t)
	l := NewLayer(LayerTypeVideo, "v", 0)
	// Non-unity rate: 6 timeline seconds over 3 source seconds.
	orig := NewVideoClip("a.mp4", 2, 8, 10, 13)
	l.Clips = []Clip{orig}
	p := NewProject("split")
	p.Layers = []*Layer{l}
	m.Load(p)

	splitAt := 4.7
	wantSrc := orig.SourceTimeAt(splitAt)

	first, second, err := m.SplitClip(l.ID, orig.ID, splitAt)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	a := first.(*VideoClip)
	b := second.(*VideoClip)

	if math.Abs(a.SrcEnd-wantSrc) > 1e-9 || math.Abs(b.SrcStart-wantSrc) > 1e-9 {
		t.Errorf("source windows do not meet at %.6f: %.6f / %.6f", wantSrc, a.SrcEnd, b.SrcStart)
	}

	// Round trip: both halves map any shared timeline instant to the same
	// source time the original did.
	for _, tt := range []float64{2.0, 3.3, 4.699, 4.701, 6.5, 7.999} {
		var got float64
		if tt < splitAt {
			got = a.SourceTimeAt(tt)
		} else {
			got = b.SourceTimeAt(tt)
		}
		want := 10 + (tt-2)/6*3
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("t=%.3f: source time %.9f, want %.9f", tt, got, want)
		}
	}
}

func TestSourceTimelineMappingRoundTrip(t *testing.T) {
	// Non-1:1 rate: 6 source seconds inside a 3 second timeline window.
	v := NewVideoClip("a.mp4", 2, 5, 10, 16)

	for _, tl := range []float64{2, 2.5, 3.7, 5} {
		src := v.SourceTimeAt(tl)
		back := v.TimelineTimeAt(src)
		if diff := back - tl; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("timeline %.3f -> source %.3f -> timeline %.3f", tl, src, back)
		}
	}

	if got := v.SourceTimeAt(3.5); got != 13 {
		t.Errorf("SourceTimeAt(3.5) = %.3f, want 13 (midpoint maps to midpoint)", got)
	}
	if got := v.TimelineTimeAt(13); got != 3.5 {
		t.Errorf("TimelineTimeAt(13) = %.3f, want 3.5", got)
	}
}

func TestSplitRejectsOutOfWindowPoint(t *testing.T) {
	m := newTestModel(t)
	l := NewLayer(LayerTypeVideo, "v", 0)
	c := NewVideoClip("a.mp4", 0, 10, 0, 10)
	l.Clips = []Clip{c}
	p := NewProject("split")
	p.Layers = []*Layer{l}
	m.Load(p)

	for _, bad := range []float64{-1, 0, 10, 11} {
		if _, _, err := m.SplitClip(l.ID, c.ID, bad); err == nil {
			t.Errorf("split at %.1f should fail", bad)
		}
	}
	if len(l.Clips) != 1 {
		t.Error("failed split mutated the layer")
	}
}

func TestSplitRejectsFilteredClip(t *testing.T) {
	m := newTestModel(t)
	l := NewLayer(LayerTypeVideo, "v", 0)
	c := NewVideoClip("a.mp4", 0, 10, 0, 10)
	c.IsFiltered = true
	l.Clips = []Clip{c}
	p := NewProject("split")
	p.Layers = []*Layer{l}
	m.Load(p)

	if _, _, err := m.SplitClip(l.ID, c.ID, 5); err == nil {
		t.Error("replay-derived clips must not be cut")
	}
}

func TestTrimRemapsSourceWindow(t *testing.T) {
	m := newTestModel(t)
	l := NewLayer(LayerTypeVideo, "v", 0)
	c := NewVideoClip("a.mp4", 0, 10, 0, 10)
	l.Clips = []Clip{c}
	p := NewProject("trim")
	p.Layers = []*Layer{l}
	m.Load(p)

	if err := m.TrimClip(l.ID, c.ID, 2, 8); err != nil {
		t.Fatalf("trim failed: %v", err)
	}
	if c.StartTime != 2 || c.EndTime != 8 {
		t.Errorf("timeline window not applied: [%.1f,%.1f)", c.StartTime, c.EndTime)
	}
	if c.SrcStart != 2 || c.SrcEnd != 8 {
		t.Errorf("source window not remapped: [%.1f,%.1f)", c.SrcStart, c.SrcEnd)
	}
}
