package scene

// EventKind identifies what part of the editing state changed. The taxonomy
// is the contract between the model and its observers (preview, timeline,
// autosave).
type EventKind string

const (
	// EventClipChanged fires for clip add/remove/update, scoped to a layer.
	EventClipChanged EventKind = "clip-changed"
	// EventLayersChanged fires for layer add/remove/update/reorder and for
	// undo/redo restores.
	EventLayersChanged EventKind = "layers-changed"
	// EventSelectionChanged fires when the current layer/clip selection moves.
	EventSelectionChanged EventKind = "selection-changed"
	// EventTimeChanged fires when the playhead moves.
	EventTimeChanged EventKind = "time-changed"
	// EventPlayStateChanged fires on play/pause transitions.
	EventPlayStateChanged EventKind = "play-state-changed"
)

// Event is delivered synchronously to every subscriber after a mutation.
type Event struct {
	Kind EventKind
	// LayerID scopes EventClipChanged; empty otherwise.
	LayerID string
}

// Subscribe registers an observer. The returned function unsubscribes it.
func (m *Model) Subscribe(fn func(Event)) func() {
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() { delete(m.subs, id) }
}

func (m *Model) emit(e Event) {
	for _, fn := range m.subs {
		fn(e)
	}
}

// NotifyTimeChanged publishes a playhead move on the model's event bus.
// The player owns playback time; the bus just carries the notification.
func (m *Model) NotifyTimeChanged() { m.emit(Event{Kind: EventTimeChanged}) }

// NotifyPlayStateChanged publishes a play/pause transition.
func (m *Model) NotifyPlayStateChanged() { m.emit(Event{Kind: EventPlayStateChanged}) }
