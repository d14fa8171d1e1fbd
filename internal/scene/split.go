package scene

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SplitClip cuts a clip at timeline time t into two clips whose enable
// windows partition the original exactly. For video clips the source trim
// windows are remapped so the linear timeline-to-source mapping of the
// original is preserved by both halves:
//
//	(t - startTime)/(endTime - startTime) == (srcT - srcStart)/(srcEnd - srcStart)
//
// The original clip is shortened in place to [startTime, t) and a new clip
// covering [t, endTime) is inserted directly after it. Filtered clips keep
// their provenance on both halves.
func (m *Model) SplitClip(layerID, clipID string, t float64) (Clip, Clip, error) {
	l := m.proj.Layer(layerID)
	if l == nil {
		return nil, nil, errors.Errorf("layer %s not found", layerID)
	}

	idx := -1
	for i, c := range l.Clips {
		if c.Base().ID == clipID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, nil, errors.Errorf("clip %s not found in layer %s", clipID, layerID)
	}

	first := l.Clips[idx]
	if v, ok := first.(*VideoClip); ok && v.IsFiltered {
		return nil, nil, errors.Errorf("clip %s is replay-derived and cannot be cut", clipID)
	}
	b := first.Base()
	if t <= b.StartTime || t >= b.EndTime {
		return nil, nil, errors.Errorf(
			"split point %.3f outside clip window [%.3f, %.3f)", t, b.StartTime, b.EndTime)
	}

	second := first.Clone()
	sb := second.Base()
	sb.ID = uuid.NewString()
	sb.StartTime = t
	sb.EndTime = b.EndTime

	if v, ok := first.(*VideoClip); ok {
		srcT := v.SourceTimeAt(t)
		second.(*VideoClip).SrcStart = srcT
		second.(*VideoClip).SrcEnd = v.SrcEnd
		v.SrcEnd = srcT
	}
	b.EndTime = t

	l.Clips = append(l.Clips[:idx+1], append([]Clip{second}, l.Clips[idx+1:]...)...)

	m.emit(Event{Kind: EventClipChanged, LayerID: layerID})
	return first, second, nil
}

// SourceTimeAt maps a timeline time inside the clip's window to source
// time through the clip's linear trim mapping.
func (v *VideoClip) SourceTimeAt(t float64) float64 {
	span := v.EndTime - v.StartTime
	if span <= 0 {
		return v.SrcStart
	}
	frac := (t - v.StartTime) / span
	return v.SrcStart + frac*(v.SrcEnd-v.SrcStart)
}

// TimelineTimeAt is the inverse of SourceTimeAt: it maps a source time
// inside the trim window back to timeline time through the same linear
// mapping.
func (v *VideoClip) TimelineTimeAt(srcT float64) float64 {
	span := v.SrcEnd - v.SrcStart
	if span <= 0 {
		return v.StartTime
	}
	frac := (srcT - v.SrcStart) / span
	return v.StartTime + frac*(v.EndTime-v.StartTime)
}

// TrimClip moves a video clip's timeline window while remapping the source
// trim window through the linear mapping, so trimmed edges show exactly the
// frames that were at those timeline positions before the trim.
func (m *Model) TrimClip(layerID, clipID string, newStart, newEnd float64) error {
	l := m.proj.Layer(layerID)
	if l == nil {
		return errors.Errorf("layer %s not found", layerID)
	}
	c := l.Clip(clipID)
	if c == nil {
		return errors.Errorf("clip %s not found in layer %s", clipID, layerID)
	}
	if newEnd <= newStart {
		return errors.Errorf("invalid trim window [%.3f, %.3f)", newStart, newEnd)
	}

	if v, ok := c.(*VideoClip); ok {
		srcStart := v.SourceTimeAt(newStart)
		srcEnd := v.SourceTimeAt(newEnd)
		v.SrcStart, v.SrcEnd = srcStart, srcEnd
	}
	b := c.Base()
	b.StartTime, b.EndTime = newStart, newEnd

	m.emit(Event{Kind: EventClipChanged, LayerID: layerID})
	return nil
}
