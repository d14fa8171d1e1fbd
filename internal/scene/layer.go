package scene

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// LayerType is the semantic content type of a layer. Clips on a layer share
// its type.
type LayerType string

const (
	LayerTypeVideo    LayerType = "video"
	LayerTypeSubtitle LayerType = "subtitle"
	LayerTypeAudio    LayerType = "audio"
)

// Layer is an ordered track of clips. Higher Order is drawn later, i.e. on
// top. Clips are not required to be sorted or non-overlapping; when several
// clips on one layer cover the same instant, the last one in array order
// wins for any time query.
type Layer struct {
	ID      string    `json:"id"`
	Type    LayerType `json:"type"`
	Name    string    `json:"name"`
	Order   int       `json:"order"`
	Visible bool      `json:"visible"`
	Locked  bool      `json:"locked"`
	Clips   []Clip    `json:"clips"`

	extra map[string]json.RawMessage
}

// NewLayer creates an empty visible layer.
func NewLayer(t LayerType, name string, order int) *Layer {
	return &Layer{
		ID:      uuid.NewString(),
		Type:    t,
		Name:    name,
		Order:   order,
		Visible: true,
	}
}

// Clip returns the clip with the given id, or nil when absent.
func (l *Layer) Clip(id string) Clip {
	for _, c := range l.Clips {
		if c.Base().ID == id {
			return c
		}
	}
	return nil
}

// ClipAt returns the clip active at time t. When clips overlap, the last
// match in array order wins.
func (l *Layer) ClipAt(t float64) Clip {
	var found Clip
	for _, c := range l.Clips {
		if Active(c, t) {
			found = c
		}
	}
	return found
}

// Clone deep-copies the layer and its clips.
func (l *Layer) Clone() *Layer {
	n := *l
	n.Clips = make([]Clip, len(l.Clips))
	for i, c := range l.Clips {
		n.Clips[i] = c.Clone()
	}
	if l.extra != nil {
		n.extra = make(map[string]json.RawMessage, len(l.extra))
		for k, v := range l.extra {
			n.extra[k] = v
		}
	}
	return &n
}

func (l *Layer) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID      string            `json:"id"`
		Type    LayerType         `json:"type"`
		Name    string            `json:"name"`
		Order   int               `json:"order"`
		Visible *bool             `json:"visible"`
		Locked  bool              `json:"locked"`
		Clips   []json.RawMessage `json:"clips"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return errors.Wrap(err, "failed to decode layer")
	}

	l.ID = a.ID
	l.Type = a.Type
	l.Name = a.Name
	l.Order = a.Order
	l.Visible = a.Visible == nil || *a.Visible
	l.Locked = a.Locked
	l.Clips = make([]Clip, 0, len(a.Clips))
	for i, raw := range a.Clips {
		c, err := unmarshalClip(raw)
		if err != nil {
			return errors.Wrapf(err, "layer %s clip %d", a.ID, i)
		}
		l.Clips = append(l.Clips, c)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		for _, k := range []string{"id", "type", "name", "order", "visible", "locked", "clips"} {
			delete(raw, k)
		}
		if len(raw) > 0 {
			l.extra = raw
		}
	}
	return nil
}

func (l *Layer) MarshalJSON() ([]byte, error) {
	clips := make([]json.RawMessage, len(l.Clips))
	for i, c := range l.Clips {
		b, err := marshalClip(c)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %s clip %d", l.ID, i)
		}
		clips[i] = b
	}

	merged := map[string]json.RawMessage{}
	for k, v := range l.extra {
		merged[k] = v
	}
	put := func(k string, v interface{}) {
		b, err := json.Marshal(v)
		if err == nil {
			merged[k] = b
		}
	}
	put("id", l.ID)
	put("type", l.Type)
	put("name", l.Name)
	put("order", l.Order)
	put("visible", l.Visible)
	put("locked", l.Locked)
	put("clips", clips)
	return json.Marshal(merged)
}
