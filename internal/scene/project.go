package scene

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/rdyjun/lclip/internal/config"
)

// Project is the root of the scene graph: an ordered set of layers rendered
// onto a fixed output canvas.
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OutputWidth  int       `json:"outputWidth"`
	OutputHeight int       `json:"outputHeight"`
	FPS          float64   `json:"fps"`
	Layers       []*Layer  `json:"layers"`
	UpdatedAt    time.Time `json:"updatedAt"`

	extra map[string]json.RawMessage
}

// NewProject creates an empty project on the default canvas.
func NewProject(name string) *Project {
	return &Project{
		ID:           uuid.NewString(),
		Name:         name,
		OutputWidth:  config.DefaultOutputWidth,
		OutputHeight: config.DefaultOutputHeight,
		FPS:          config.DefaultFPS,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Duration is the single duration-defining point of a project: the maximum
// clip end time across all layers. With no clips it falls back to the given
// default.
func (p *Project) Duration(fallback float64) float64 {
	var max float64
	var any bool
	for _, l := range p.Layers {
		for _, c := range l.Clips {
			any = true
			if end := c.Base().EndTime; end > max {
				max = end
			}
		}
	}
	if !any {
		return fallback
	}
	return max
}

// Layer returns the layer with the given id, or nil when absent.
func (p *Project) Layer(id string) *Layer {
	for _, l := range p.Layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// LayersByOrder returns layers sorted by ascending Order, so the last
// element is drawn on top. The project's own slice is not modified.
func (p *Project) LayersByOrder() []*Layer {
	sorted := append([]*Layer(nil), p.Layers...)
	slices.SortStableFunc(sorted, func(a, b *Layer) int {
		return a.Order - b.Order
	})
	return sorted
}

// VideoClips returns all video clips across layers sorted by start time.
func (p *Project) VideoClips() []*VideoClip {
	var clips []*VideoClip
	for _, l := range p.Layers {
		for _, c := range l.Clips {
			if v, ok := c.(*VideoClip); ok {
				clips = append(clips, v)
			}
		}
	}
	slices.SortStableFunc(clips, func(a, b *VideoClip) int {
		switch {
		case a.StartTime < b.StartTime:
			return -1
		case a.StartTime > b.StartTime:
			return 1
		default:
			return 0
		}
	})
	return clips
}

// CloneLayers deep-copies the layer list. This is the snapshot unit for
// undo/redo.
func (p *Project) CloneLayers() []*Layer {
	layers := make([]*Layer, len(p.Layers))
	for i, l := range p.Layers {
		layers[i] = l.Clone()
	}
	return layers
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		OutputWidth  int       `json:"outputWidth"`
		OutputHeight int       `json:"outputHeight"`
		FPS          float64   `json:"fps"`
		Layers       []*Layer  `json:"layers"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}
	a := alias{
		OutputWidth:  config.DefaultOutputWidth,
		OutputHeight: config.DefaultOutputHeight,
		FPS:          config.DefaultFPS,
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return errors.Wrap(err, "failed to decode project")
	}

	p.ID = a.ID
	p.Name = a.Name
	p.OutputWidth = a.OutputWidth
	p.OutputHeight = a.OutputHeight
	p.FPS = a.FPS
	p.Layers = a.Layers
	p.UpdatedAt = a.UpdatedAt

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		for _, k := range []string{"id", "name", "outputWidth", "outputHeight", "fps", "layers", "updatedAt"} {
			delete(raw, k)
		}
		if len(raw) > 0 {
			p.extra = raw
		}
	}
	return nil
}

func (p *Project) MarshalJSON() ([]byte, error) {
	merged := map[string]json.RawMessage{}
	for k, v := range p.extra {
		merged[k] = v
	}
	put := func(k string, v interface{}) {
		b, err := json.Marshal(v)
		if err == nil {
			merged[k] = b
		}
	}
	put("id", p.ID)
	put("name", p.Name)
	put("outputWidth", p.OutputWidth)
	put("outputHeight", p.OutputHeight)
	put("fps", p.FPS)
	put("updatedAt", p.UpdatedAt)

	layers := make([]json.RawMessage, len(p.Layers))
	for i, l := range p.Layers {
		b, err := l.MarshalJSON()
		if err != nil {
			return nil, err
		}
		layers[i] = b
	}
	put("layers", layers)

	return json.Marshal(merged)
}
