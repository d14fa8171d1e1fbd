package scene

import (
	"github.com/rs/zerolog"

	"github.com/rdyjun/lclip/internal/geometry"
)

// Model is the authoritative mutable state for one editing session: the
// project graph, the current selection, the undo/redo stacks and the change
// bus. Host applications create one Model per open project; nothing here is
// process-global.
//
// All methods are synchronous and must be called from the single editing
// goroutine; the export path only ever reads a deep snapshot taken at
// kickoff.
type Model struct {
	logger zerolog.Logger
	proj   *Project

	undo      [][]*Layer
	redo      [][]*Layer
	undoDepth int

	selLayerID string
	selClipID  string

	subs    map[int]func(Event)
	nextSub int
}

// NewModel creates a model holding an empty project.
func NewModel(logger zerolog.Logger, undoDepth int) *Model {
	if undoDepth <= 0 {
		undoDepth = 50
	}
	return &Model{
		logger:    logger,
		proj:      NewProject(""),
		undoDepth: undoDepth,
		subs:      map[int]func(Event){},
	}
}

// Load replaces the project and clears undo/redo history and selection.
func (m *Model) Load(p *Project) {
	m.proj = p
	m.undo = nil
	m.redo = nil
	m.selLayerID, m.selClipID = "", ""
	m.emit(Event{Kind: EventLayersChanged})
	m.emit(Event{Kind: EventSelectionChanged})
}

// Project returns the live project instance.
func (m *Model) Project() *Project { return m.proj }

// Layer returns the layer with the given id, or nil.
func (m *Model) Layer(id string) *Layer { return m.proj.Layer(id) }

// Clip returns the clip with the given id and its owning layer, or nils.
// A miss is not an error; callers treat absent ids as stale references.
func (m *Model) Clip(id string) (*Layer, Clip) {
	for _, l := range m.proj.Layers {
		if c := l.Clip(id); c != nil {
			return l, c
		}
	}
	return nil, nil
}

// Select sets the current layer and clip. Empty ids clear the selection.
func (m *Model) Select(layerID, clipID string) {
	if m.selLayerID == layerID && m.selClipID == clipID {
		return
	}
	m.selLayerID, m.selClipID = layerID, clipID
	m.emit(Event{Kind: EventSelectionChanged})
}

// Selection returns the selected layer and clip ids; empty when nothing is
// selected.
func (m *Model) Selection() (layerID, clipID string) {
	return m.selLayerID, m.selClipID
}

// AddLayer appends a layer. Callers snapshot first.
func (m *Model) AddLayer(l *Layer) {
	m.proj.Layers = append(m.proj.Layers, l)
	m.emit(Event{Kind: EventLayersChanged})
}

// RemoveLayer deletes a layer and implicitly its clips. Clears selection if
// it pointed into the layer.
func (m *Model) RemoveLayer(id string) {
	for i, l := range m.proj.Layers {
		if l.ID == id {
			m.proj.Layers = append(m.proj.Layers[:i], m.proj.Layers[i+1:]...)
			if m.selLayerID == id {
				m.Select("", "")
			}
			m.emit(Event{Kind: EventLayersChanged})
			return
		}
	}
}

// LayerPatch is a partial layer update; nil fields are left unchanged.
type LayerPatch struct {
	Name    *string
	Visible *bool
	Locked  *bool
}

// UpdateLayer applies a patch, silently no-oping when the layer is missing.
func (m *Model) UpdateLayer(id string, p LayerPatch) {
	l := m.proj.Layer(id)
	if l == nil {
		return
	}
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Visible != nil {
		l.Visible = *p.Visible
	}
	if p.Locked != nil {
		l.Locked = *p.Locked
	}
	m.emit(Event{Kind: EventLayersChanged})
}

// ReorderLayers remaps Order from a top-to-bottom display sequence: the
// first id gets the highest order (drawn last, on top). Ids not present in
// the project are skipped.
func (m *Model) ReorderLayers(topToBottom []string) {
	order := len(m.proj.Layers) - 1
	for _, id := range topToBottom {
		if l := m.proj.Layer(id); l != nil {
			l.Order = order
			order--
		}
	}
	m.emit(Event{Kind: EventLayersChanged})
}

// AddClip appends a clip to a layer. No-ops when the layer is missing.
func (m *Model) AddClip(layerID string, c Clip) {
	l := m.proj.Layer(layerID)
	if l == nil {
		return
	}
	l.Clips = append(l.Clips, c)
	m.emit(Event{Kind: EventClipChanged, LayerID: layerID})
}

// RemoveClip deletes a clip, clearing the selection if it was selected.
func (m *Model) RemoveClip(layerID, clipID string) {
	l := m.proj.Layer(layerID)
	if l == nil {
		return
	}
	for i, c := range l.Clips {
		if c.Base().ID == clipID {
			l.Clips = append(l.Clips[:i], l.Clips[i+1:]...)
			if m.selClipID == clipID {
				m.Select("", "")
			}
			m.emit(Event{Kind: EventClipChanged, LayerID: layerID})
			return
		}
	}
}

// ClipPatch is a partial clip update. Nil fields are left unchanged; fields
// that do not apply to the clip's variant are ignored.
type ClipPatch struct {
	StartTime *float64
	EndTime   *float64

	// video + subtitle placement
	X *float64
	Y *float64

	// video
	Width    *float64
	Height   *float64
	Fit      *geometry.Fit
	Opacity  *float64
	SrcStart *float64
	SrcEnd   *float64

	// subtitle
	Text              *string
	FontSize          *float64
	FontFamily        *string
	Color             *string
	BackgroundColor   *string
	Align             *Align
	Bold              *bool
	BackgroundPadding *float64
	BorderRadius      *float64
	// Shadow replaces the clip's shadow wholesale; a pointer to nil clears it.
	Shadow **Shadow

	// audio
	Volume *float64
	Name   *string
}

// UpdateClip shallow-merges a patch into a clip, silently no-oping when the
// layer or clip is missing.
func (m *Model) UpdateClip(layerID, clipID string, p ClipPatch) {
	l := m.proj.Layer(layerID)
	if l == nil {
		return
	}
	c := l.Clip(clipID)
	if c == nil {
		return
	}

	b := c.Base()
	if p.StartTime != nil {
		b.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		b.EndTime = *p.EndTime
	}

	switch v := c.(type) {
	case *VideoClip:
		if p.X != nil {
			v.X = *p.X
		}
		if p.Y != nil {
			v.Y = *p.Y
		}
		if p.Width != nil {
			v.Width = *p.Width
		}
		if p.Height != nil {
			v.Height = *p.Height
		}
		if p.Fit != nil {
			v.Fit = *p.Fit
		}
		if p.Opacity != nil {
			v.Opacity = *p.Opacity
		}
		if p.SrcStart != nil {
			v.SrcStart = *p.SrcStart
		}
		if p.SrcEnd != nil {
			v.SrcEnd = *p.SrcEnd
		}
	case *SubtitleClip:
		if p.X != nil {
			v.X = *p.X
		}
		if p.Y != nil {
			v.Y = *p.Y
		}
		if p.Text != nil {
			v.Text = *p.Text
		}
		if p.FontSize != nil {
			v.FontSize = *p.FontSize
		}
		if p.FontFamily != nil {
			v.FontFamily = *p.FontFamily
		}
		if p.Color != nil {
			v.Color = *p.Color
		}
		if p.BackgroundColor != nil {
			v.BackgroundColor = *p.BackgroundColor
		}
		if p.Align != nil {
			v.Align = *p.Align
		}
		if p.Bold != nil {
			v.Bold = *p.Bold
		}
		if p.BackgroundPadding != nil {
			v.BackgroundPadding = *p.BackgroundPadding
		}
		if p.BorderRadius != nil {
			v.BorderRadius = *p.BorderRadius
		}
		if p.Shadow != nil {
			v.Shadow = *p.Shadow
		}
	case *AudioClip:
		if p.Volume != nil {
			v.Volume = *p.Volume
		}
		if p.Name != nil {
			v.Name = *p.Name
		}
	}

	m.emit(Event{Kind: EventClipChanged, LayerID: layerID})
}
