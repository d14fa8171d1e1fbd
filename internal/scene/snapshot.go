package scene

// SaveSnapshot pushes a deep copy of the full layer list onto the undo
// stack and clears the redo stack. It must be called by the initiator of a
// mutation, before the mutation. Whole-layer snapshots trade memory for
// correctness simplicity; projects are tens of clips, not thousands.
func (m *Model) SaveSnapshot() {
	m.undo = append(m.undo, m.proj.CloneLayers())
	if len(m.undo) > m.undoDepth {
		m.undo = m.undo[1:]
	}
	m.redo = nil
}

// Undo restores the most recent snapshot, moving the current state onto the
// redo stack and clearing the selection. Returns false when there is
// nothing to undo.
func (m *Model) Undo() bool {
	if len(m.undo) == 0 {
		return false
	}
	last := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, m.proj.CloneLayers())
	m.proj.Layers = last
	m.Select("", "")
	m.emit(Event{Kind: EventLayersChanged})
	return true
}

// Redo is the mirror of Undo.
func (m *Model) Redo() bool {
	if len(m.redo) == 0 {
		return false
	}
	last := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, m.proj.CloneLayers())
	m.proj.Layers = last
	m.Select("", "")
	m.emit(Event{Kind: EventLayersChanged})
	return true
}

// UndoDepth reports how many snapshots are currently undoable.
func (m *Model) UndoDepth() int { return len(m.undo) }
