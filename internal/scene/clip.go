// Package scene holds the in-memory project graph (layers of typed clips)
// and the mutation API around it: lookups, patches, selection, change
// notification and snapshot-based undo/redo. The project JSON shape produced
// here is the wire format between the editing UI and storage; unknown fields
// survive a load/save round trip.
package scene

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rdyjun/lclip/internal/geometry"
)

// ClipType tags the clip union.
type ClipType string

const (
	ClipTypeVideo    ClipType = "video"
	ClipTypeSubtitle ClipType = "subtitle"
	ClipTypeAudio    ClipType = "audio"
)

// Align is the horizontal anchor semantics for subtitle text: left anchors
// the text's left edge at x, right anchors its right edge, center centers on
// x. y is always top-anchored.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Clip is a timed, typed unit of content placed on a layer. Concrete types
// are VideoClip, SubtitleClip and AudioClip; consumers switch exhaustively.
type Clip interface {
	Base() *ClipBase
	Type() ClipType
	Clone() Clip
}

// ClipBase carries the fields every clip variant shares. StartTime and
// EndTime are timeline seconds; EndTime > StartTime in any persisted state,
// though a drag in progress may violate it transiently.
type ClipBase struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`

	// Unknown JSON fields captured at load time, re-emitted on save.
	extra map[string]json.RawMessage
}

func (b *ClipBase) Base() *ClipBase { return b }

func (b *ClipBase) cloneBase() ClipBase {
	c := *b
	if b.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(b.extra))
		for k, v := range b.extra {
			c.extra[k] = v
		}
	}
	return c
}

// VideoClip places a trimmed window of a video source on the output canvas.
// Width/Height <= 0 mean "full canvas". Opacity defaults to 1, Fit to cover.
type VideoClip struct {
	ClipBase
	Src      string  `json:"src"`
	SrcStart float64 `json:"srcStart"`
	SrcEnd   float64 `json:"srcEnd"`

	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Fit    geometry.Fit `json:"fit"`

	Opacity float64 `json:"opacity"`

	// Provenance of replay-derived clips. A filtered clip keeps its original
	// event bounds and is excluded from cut operations.
	IsFiltered  bool     `json:"isFiltered"`
	FilterStart float64  `json:"filterStart"`
	FilterEnd   float64  `json:"filterEnd"`
	EventTypes  []string `json:"eventTypes"`
}

func (c *VideoClip) Type() ClipType { return ClipTypeVideo }

func (c *VideoClip) Clone() Clip {
	n := *c
	n.ClipBase = c.cloneBase()
	if c.EventTypes != nil {
		n.EventTypes = append([]string(nil), c.EventTypes...)
	}
	return &n
}

// NewVideoClip creates a full-canvas cover clip over [start,end) mapped
// linearly onto [srcStart,srcEnd) of src.
func NewVideoClip(src string, start, end, srcStart, srcEnd float64) *VideoClip {
	return &VideoClip{
		ClipBase: ClipBase{ID: uuid.NewString(), StartTime: start, EndTime: end},
		Src:      src,
		SrcStart: srcStart,
		SrcEnd:   srcEnd,
		Fit:      geometry.FitCover,
		Opacity:  1,
	}
}

// Shadow describes a subtitle drop shadow.
type Shadow struct {
	Color   string  `json:"color"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
}

// SubtitleClip draws styled text over the canvas. X/Y are the anchor point;
// horizontal interpretation depends on Align. FontSize defaults to 48,
// Align to center, Color to white.
type SubtitleClip struct {
	ClipBase
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`

	FontSize          float64 `json:"fontSize"`
	FontFamily        string  `json:"fontFamily"`
	Color             string  `json:"color"`
	BackgroundColor   string  `json:"backgroundColor"`
	BackgroundPadding float64 `json:"backgroundPadding"`
	BorderRadius      float64 `json:"borderRadius"`
	Align             Align   `json:"align"`
	Bold              bool    `json:"bold"`
	Shadow            *Shadow `json:"shadow"`
}

func (c *SubtitleClip) Type() ClipType { return ClipTypeSubtitle }

func (c *SubtitleClip) Clone() Clip {
	n := *c
	n.ClipBase = c.cloneBase()
	if c.Shadow != nil {
		s := *c.Shadow
		n.Shadow = &s
	}
	return &n
}

// NewSubtitleClip creates a centered subtitle over [start,end).
func NewSubtitleClip(text string, start, end float64) *SubtitleClip {
	return &SubtitleClip{
		ClipBase: ClipBase{ID: uuid.NewString(), StartTime: start, EndTime: end},
		Text:     text,
		FontSize: 48,
		Color:    "white",
		Align:    AlignCenter,
	}
}

// AudioClip mixes an audio source into the output. Volume defaults to 1.
type AudioClip struct {
	ClipBase
	Src    string  `json:"src"`
	Volume float64 `json:"volume"`
	Name   string  `json:"name"`
}

func (c *AudioClip) Type() ClipType { return ClipTypeAudio }

func (c *AudioClip) Clone() Clip {
	n := *c
	n.ClipBase = c.cloneBase()
	return &n
}

// NewAudioClip creates a full-volume audio clip over [start,end).
func NewAudioClip(src, name string, start, end float64) *AudioClip {
	return &AudioClip{
		ClipBase: ClipBase{ID: uuid.NewString(), StartTime: start, EndTime: end},
		Src:      src,
		Volume:   1,
		Name:     name,
	}
}

// Active reports whether the clip's enable window [startTime,endTime)
// contains t.
func Active(c Clip, t float64) bool {
	b := c.Base()
	return t >= b.StartTime && t < b.EndTime
}

// unmarshalClip decodes one tagged clip object.
func unmarshalClip(data []byte) (Clip, error) {
	var tag struct {
		Type ClipType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, errors.Wrap(err, "failed to read clip type tag")
	}

	switch tag.Type {
	case ClipTypeVideo:
		c := &VideoClip{Fit: geometry.FitCover, Opacity: 1}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(err, "failed to decode video clip")
		}
		c.extra = extraFields(data, c)
		return c, nil
	case ClipTypeSubtitle:
		c := &SubtitleClip{FontSize: 48, Color: "white", Align: AlignCenter}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(err, "failed to decode subtitle clip")
		}
		c.extra = extraFields(data, c)
		return c, nil
	case ClipTypeAudio:
		c := &AudioClip{Volume: 1}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(err, "failed to decode audio clip")
		}
		c.extra = extraFields(data, c)
		return c, nil
	default:
		return nil, errors.Errorf("unknown clip type %q", tag.Type)
	}
}

// marshalClip encodes a clip with its type tag and any preserved unknown
// fields.
func marshalClip(c Clip) ([]byte, error) {
	var (
		known []byte
		err   error
	)
	switch v := c.(type) {
	case *VideoClip:
		type alias VideoClip
		known, err = json.Marshal((*alias)(v))
	case *SubtitleClip:
		type alias SubtitleClip
		known, err = json.Marshal((*alias)(v))
	case *AudioClip:
		type alias AudioClip
		known, err = json.Marshal((*alias)(v))
	default:
		return nil, errors.Errorf("unknown clip variant %T", c)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, errors.WithStack(err)
	}
	typeTag, _ := json.Marshal(c.Type())
	merged["type"] = typeTag
	for k, v := range c.Base().extra {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// extraFields returns the JSON keys of data not produced when re-encoding
// the decoded clip. Those are additive fields from a newer writer and must
// survive the round trip.
func extraFields(data []byte, c Clip) map[string]json.RawMessage {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var known []byte
	switch v := c.(type) {
	case *VideoClip:
		type alias VideoClip
		known, _ = json.Marshal((*alias)(v))
	case *SubtitleClip:
		type alias SubtitleClip
		known, _ = json.Marshal((*alias)(v))
	case *AudioClip:
		type alias AudioClip
		known, _ = json.Marshal((*alias)(v))
	}
	var knownKeys map[string]json.RawMessage
	_ = json.Unmarshal(known, &knownKeys)

	extra := map[string]json.RawMessage{}
	for k, v := range raw {
		if k == "type" {
			continue
		}
		if _, ok := knownKeys[k]; !ok {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
