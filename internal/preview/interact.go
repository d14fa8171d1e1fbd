package preview

import (
	"math"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/scene"
)

// Handle names one of the eight compass resize handles.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleN  Handle = "n"
	HandleNE Handle = "ne"
	HandleE  Handle = "e"
	HandleSE Handle = "se"
	HandleS  Handle = "s"
	HandleSW Handle = "sw"
	HandleW  Handle = "w"
)

// handleHitRadius is the pick tolerance around a handle, in canvas units.
const handleHitRadius = 12.0

type dragKind int

const (
	dragNone dragKind = iota
	dragMove
	dragResize
)

// Interaction turns pointer events into scene mutations: a press on a
// selected clip's handle starts a resize, a press on a clip body selects it
// and starts a move. Both take one undo snapshot before their first
// mutation, so the whole drag undoes as a unit.
type Interaction struct {
	model *scene.Model

	kind      dragKind
	layerID   string
	clipID    string
	handle    Handle
	startX    float64
	startY    float64
	origX     float64
	origY     float64
	origW     float64
	origH     float64
	origFont  float64
	snapshots bool
}

// NewInteraction creates an idle interaction controller.
func NewInteraction(model *scene.Model) *Interaction {
	return &Interaction{model: model}
}

// Dragging reports whether a drag is in progress.
func (in *Interaction) Dragging() bool { return in.kind != dragNone }

// PointerDown hit-tests the recorded bounds and begins a drag. bounds must
// be in draw order (topmost last). Returns true when something was hit.
func (in *Interaction) PointerDown(x, y float64, bounds []HitBounds) bool {
	// Handles of the current selection win over everything.
	if _, selClip := in.model.Selection(); selClip != "" {
		for i := len(bounds) - 1; i >= 0; i-- {
			b := &bounds[i]
			if b.ClipID != selClip {
				continue
			}
			if h, ok := handleAt(x, y, b); ok {
				in.beginResize(b, h, x, y)
				return true
			}
		}
	}

	// Topmost-first body hit.
	for i := len(bounds) - 1; i >= 0; i-- {
		b := &bounds[i]
		if b.Contains(x, y) {
			in.model.Select(b.LayerID, b.ClipID)
			in.beginMove(b, x, y)
			return true
		}
	}

	in.model.Select("", "")
	return false
}

// PointerMove advances the in-progress drag. axisLock restricts a move to
// its dominant axis (the modifier-held behavior).
func (in *Interaction) PointerMove(x, y float64, axisLock bool) {
	switch in.kind {
	case dragMove:
		in.moveTo(x, y, axisLock)
	case dragResize:
		in.resizeTo(x, y)
	}
}

// PointerUp ends the drag.
func (in *Interaction) PointerUp() {
	in.kind = dragNone
	in.snapshots = false
}

func (in *Interaction) beginMove(b *HitBounds, x, y float64) {
	in.kind = dragMove
	in.layerID, in.clipID = b.LayerID, b.ClipID
	in.startX, in.startY = x, y
	in.captureOrig()
}

func (in *Interaction) beginResize(b *HitBounds, h Handle, x, y float64) {
	in.kind = dragResize
	in.layerID, in.clipID = b.LayerID, b.ClipID
	in.handle = h
	in.startX, in.startY = x, y
	in.captureOrig()
}

func (in *Interaction) captureOrig() {
	_, clip := in.model.Clip(in.clipID)
	switch v := clip.(type) {
	case *scene.VideoClip:
		in.origX, in.origY, in.origW, in.origH = v.X, v.Y, v.Width, v.Height
	case *scene.SubtitleClip:
		in.origX, in.origY = v.X, v.Y
		in.origFont = v.FontSize
		in.origW = approxTextWidth(v)
	}
}

// snapshotOnce takes the undo snapshot right before the drag's first
// mutation, not on pointer-down: a press without movement must not create
// an empty undo entry.
func (in *Interaction) snapshotOnce() {
	if in.snapshots {
		return
	}
	in.snapshots = true
	in.model.SaveSnapshot()
}

func (in *Interaction) moveTo(x, y float64, axisLock bool) {
	dx, dy := x-in.startX, y-in.startY
	if axisLock {
		if math.Abs(dx) >= math.Abs(dy) {
			dy = 0
		} else {
			dx = 0
		}
	}
	if dx == 0 && dy == 0 {
		return
	}
	in.snapshotOnce()
	nx, ny := in.origX+dx, in.origY+dy
	in.model.UpdateClip(in.layerID, in.clipID, scene.ClipPatch{X: &nx, Y: &ny})
}

func (in *Interaction) resizeTo(x, y float64) {
	_, clip := in.model.Clip(in.clipID)
	switch clip.(type) {
	case *scene.VideoClip:
		in.resizeVideo(x, y)
	case *scene.SubtitleClip:
		in.resizeSubtitle(x)
	}
}

func (in *Interaction) resizeVideo(x, y float64) {
	dx, dy := x-in.startX, y-in.startY
	nx, ny, nw, nh := in.origX, in.origY, in.origW, in.origH

	switch in.handle {
	case HandleE, HandleNE, HandleSE:
		nw = in.origW + dx
	case HandleW, HandleNW, HandleSW:
		nx = in.origX + dx
		nw = in.origW - dx
	}
	switch in.handle {
	case HandleS, HandleSE, HandleSW:
		nh = in.origH + dy
	case HandleN, HandleNE, HandleNW:
		ny = in.origY + dy
		nh = in.origH - dy
	}

	// Degenerate sizes are clamped; the anchored edge stays put.
	if nw < config.MinClipSize {
		if nx != in.origX {
			nx = in.origX + in.origW - config.MinClipSize
		}
		nw = config.MinClipSize
	}
	if nh < config.MinClipSize {
		if ny != in.origY {
			ny = in.origY + in.origH - config.MinClipSize
		}
		nh = config.MinClipSize
	}

	in.snapshotOnce()
	in.model.UpdateClip(in.layerID, in.clipID, scene.ClipPatch{
		X: &nx, Y: &ny, Width: &nw, Height: &nh,
	})
}

// resizeSubtitle scales the font with the width change and re-centers the
// anchor: subtitles have no independent height, only font scale.
func (in *Interaction) resizeSubtitle(x float64) {
	dx := x - in.startX
	switch in.handle {
	case HandleW, HandleNW, HandleSW:
		dx = -dx
	}

	newW := in.origW + dx
	if newW < config.MinClipSize {
		newW = config.MinClipSize
	}
	if in.origW <= 0 {
		return
	}
	ratio := newW / in.origW
	nf := in.origFont * ratio
	nx := in.origX

	in.snapshotOnce()
	in.model.UpdateClip(in.layerID, in.clipID, scene.ClipPatch{
		X: &nx, FontSize: &nf,
	})
}

// handleAt locates the compass handle under the pointer on a bounds
// rectangle, if any.
func handleAt(x, y float64, b *HitBounds) (Handle, bool) {
	cx := b.X + b.Width/2
	cy := b.Y + b.Height/2
	points := []struct {
		h    Handle
		x, y float64
	}{
		{HandleNW, b.X, b.Y},
		{HandleN, cx, b.Y},
		{HandleNE, b.X + b.Width, b.Y},
		{HandleE, b.X + b.Width, cy},
		{HandleSE, b.X + b.Width, b.Y + b.Height},
		{HandleS, cx, b.Y + b.Height},
		{HandleSW, b.X, b.Y + b.Height},
		{HandleW, b.X, cy},
	}
	for _, p := range points {
		if math.Abs(x-p.x) <= handleHitRadius && math.Abs(y-p.y) <= handleHitRadius {
			return p.h, true
		}
	}
	return "", false
}

// approxTextWidth estimates a subtitle's rendered width for resize ratio
// math when the drag starts from recorded bounds being unavailable.
func approxTextWidth(s *scene.SubtitleClip) float64 {
	longest := 0
	run := 0
	for _, r := range s.Text {
		if r == '\n' {
			if run > longest {
				longest = run
			}
			run = 0
			continue
		}
		run++
	}
	if run > longest {
		longest = run
	}
	return float64(longest) * s.FontSize * 0.6
}
