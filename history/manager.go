// Package history keeps a per-user log of committed actions and drives
// undo/redo. An undo is never a special wire message: it dispatches the
// inverse as an ordinary forward action that peers queue, dedup and apply
// like anything else.
package history

import (
	"sync"

	"github.com/sirupsen/logrus"

	"syncboard/board"
)

type userHistory struct {
	actions []board.Action
	// index of the most recently applied (undoable) entry;
	// -1 <= index < len(actions)
	index int
}

// Manager owns the Map<userId, history> and the cursors. Cursors are purely
// local bookkeeping and are never synchronized.
type Manager struct {
	mu       sync.Mutex
	store    *board.Store
	users    map[string]*userHistory
	suppress bool
	unsub    func()
	logger   *logrus.Logger
}

// NewManager subscribes to the store and records every locally committed
// action under its originating user. Close tears the subscription down.
func NewManager(store *board.Store, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := &Manager{
		store:  store,
		users:  make(map[string]*userHistory),
		logger: logger,
	}
	m.unsub = store.Subscribe(m.record)
	return m
}

func (m *Manager) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// record appends a committed action to its user's history. Inverse and redo
// dispatches are suppressed so undoing an undo never enters the log.
func (m *Manager) record(a board.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suppress {
		return
	}
	h := m.users[a.UserID]
	if h == nil {
		h = &userHistory{index: -1}
		m.users[a.UserID] = h
	}
	// a fresh action invalidates the redo tail
	h.actions = append(h.actions[:h.index+1], a)
	h.index = len(h.actions) - 1
}

// CanUndo reports whether the user has an entry at or below the cursor.
func (m *Manager) CanUndo(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.users[userID]
	return h != nil && h.index >= 0
}

// CanRedo reports whether the cursor sits below the newest entry.
func (m *Manager) CanRedo(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.users[userID]
	return h != nil && h.index < len(h.actions)-1
}

// Undo unwinds the user's most recent action by dispatching its inverse.
// A missing inverse or a conflict aborts with a warning and no state change;
// clobbering shared state would be worse than doing nothing.
func (m *Manager) Undo(userID string) bool {
	m.mu.Lock()
	h := m.users[userID]
	if h == nil || h.index < 0 {
		m.mu.Unlock()
		return false
	}
	a := h.actions[h.index]

	if m.hasConflict(a) {
		m.mu.Unlock()
		m.logger.Warnf("undo of %s for %s refused: object changed since", a.Type, userID)
		return false
	}
	inv, ok := Inverse(a)
	if !ok {
		m.mu.Unlock()
		m.logger.Warnf("undo of %s for %s refused: no inverse available", a.Type, userID)
		return false
	}

	h.index--
	m.suppress = true
	m.mu.Unlock()

	m.store.Dispatch(inv)

	m.mu.Lock()
	m.suppress = false
	m.mu.Unlock()
	return true
}

// Redo re-applies the next entry by dispatching a copy with a fresh id and
// timestamp, so delivery and dedup treat it as new.
func (m *Manager) Redo(userID string) bool {
	m.mu.Lock()
	h := m.users[userID]
	if h == nil || h.index >= len(h.actions)-1 {
		m.mu.Unlock()
		return false
	}
	a := h.actions[h.index+1]

	if m.hasConflict(a) {
		m.mu.Unlock()
		m.logger.Warnf("redo of %s for %s refused: object changed since", a.Type, userID)
		return false
	}

	h.index++
	replay := a
	replay.ID = ""
	replay.Timestamp = 0
	m.suppress = true
	m.mu.Unlock()

	m.store.Dispatch(replay)

	m.mu.Lock()
	m.suppress = false
	m.mu.Unlock()
	return true
}

// hasConflict reports whether undoing/redoing a would trample a newer edit:
// for updates and deletes, the target vanished (updates only) or someone
// touched it after the action's commit time. The comparison is a plain
// updatedAt check against the action timestamp; clock skew between clients
// can fool it, and that is a known limitation of the protocol.
func (m *Manager) hasConflict(a board.Action) bool {
	switch a.Type {
	case board.UpdateObjectAction, board.DeleteObjectAction:
		obj, ok := m.store.Object(a.Payload.ID)
		if !ok {
			return a.Type == board.UpdateObjectAction
		}
		return obj.UpdatedAt > a.Timestamp
	}
	return false
}
