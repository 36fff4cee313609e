package board

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store owns the shared whiteboard state: the object map, viewport, settings
// and the local selection. Every mutation flows through one of its methods so
// that previousState bookkeeping stays consistent for undo.
//
// Local mutations record the committed action as lastAction and notify
// subscribers; remote application only mutates. That asymmetry is what keeps
// a broadcast action from ping-ponging between peers forever.
type Store struct {
	mu        sync.RWMutex
	objects   map[string]*Object
	viewport  Viewport
	settings  Settings
	selection mapset.Set[string]
	clock     Clock

	lastAction *Action
	subs       map[int]func(Action)
	nextSub    int

	logger *logrus.Logger
}

func NewStore(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		objects:   make(map[string]*Object),
		viewport:  Viewport{Zoom: 1},
		selection: mapset.NewSet[string](),
		subs:      make(map[int]func(Action)),
		logger:    logger,
	}
}

// Subscribe registers a listener for locally committed actions. The returned
// function removes it.
func (s *Store) Subscribe(fn func(Action)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// AddObject inserts a new object built from the template, assigning its id
// and timestamps. Always succeeds.
func (s *Store) AddObject(template Object, userID string) *Object {
	s.mu.Lock()
	ts := s.clock.Tick()
	obj := template.Clone()
	obj.ID = uuid.NewString()
	obj.CreatedAt = ts
	obj.UpdatedAt = ts
	obj.Normalize(ts)

	a := Action{
		ID:        uuid.NewString(),
		Type:      AddObjectAction,
		Payload:   Payload{Object: obj.Clone()},
		Timestamp: ts,
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
	return obj
}

// UpdateObject merges a partial update into an existing object. Unknown ids
// are a logged no-op.
func (s *Store) UpdateObject(id string, patch Patch, userID string) bool {
	s.mu.Lock()
	prev, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warnf("update for unknown object %s, ignoring", id)
		return false
	}

	a := Action{
		ID:        uuid.NewString(),
		Type:      UpdateObjectAction,
		Payload:   Payload{ID: id, Updates: &patch},
		Previous:  &Previous{Object: prev.Clone()},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
	return true
}

// DeleteObject removes an object. Unknown ids are a logged no-op.
func (s *Store) DeleteObject(id string, userID string) bool {
	s.mu.Lock()
	prev, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Warnf("delete for unknown object %s, ignoring", id)
		return false
	}

	a := Action{
		ID:        uuid.NewString(),
		Type:      DeleteObjectAction,
		Payload:   Payload{ID: id},
		Previous:  &Previous{Object: prev.Clone()},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
	return true
}

// SelectObjects replaces the selection set. Selection actions stay local;
// the sync engine never broadcasts them.
func (s *Store) SelectObjects(ids []string, userID string) {
	s.mu.Lock()
	a := Action{
		ID:        uuid.NewString(),
		Type:      SelectObjectsAction,
		Payload:   Payload{IDs: append([]string(nil), ids...)},
		Previous:  &Previous{SelectedObjectIDs: mapset.Sorted(s.selection)},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
}

// ClearSelection empties the selection set.
func (s *Store) ClearSelection(userID string) {
	s.mu.Lock()
	a := Action{
		ID:        uuid.NewString(),
		Type:      ClearSelectionAction,
		Previous:  &Previous{SelectedObjectIDs: mapset.Sorted(s.selection)},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
}

// UpdateViewport replaces the shared pan/zoom state.
func (s *Store) UpdateViewport(v Viewport, userID string) {
	s.mu.Lock()
	prev := s.viewport
	a := Action{
		ID:        uuid.NewString(),
		Type:      UpdateViewportAction,
		Payload:   Payload{Viewport: &v},
		Previous:  &Previous{Viewport: &prev},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
}

// UpdateSettings replaces the board settings.
func (s *Store) UpdateSettings(set Settings, userID string) {
	s.mu.Lock()
	prev := s.settings
	a := Action{
		ID:        uuid.NewString(),
		Type:      UpdateSettingsAction,
		Payload:   Payload{Settings: &set},
		Previous:  &Previous{Settings: &prev},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
}

// ClearCanvas removes every object. The full prior object map and selection
// go into previousState, so the clear can be undone in one batch.
func (s *Store) ClearCanvas(userID string) {
	s.mu.Lock()
	prior := make(map[string]*Object, len(s.objects))
	for id, obj := range s.objects {
		prior[id] = obj.Clone()
	}

	a := Action{
		ID:   uuid.NewString(),
		Type: ClearCanvasAction,
		Previous: &Previous{
			Objects:           prior,
			SelectedObjectIDs: mapset.Sorted(s.selection),
		},
		Timestamp: s.clock.Tick(),
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
}

// ErasePath replaces one path object with the segments left after an eraser
// stroke. Segment geometry is computed by the caller; the store assigns ids
// and timestamps so peers insert identical objects.
func (s *Store) ErasePath(pathID string, segments []Object, userID string) []*Object {
	s.mu.Lock()
	prev, ok := s.objects[pathID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warnf("erase for unknown path %s, ignoring", pathID)
		return nil
	}

	ts := s.clock.Tick()
	out := make([]*Object, 0, len(segments))
	for i := range segments {
		seg := segments[i].Clone()
		seg.ID = uuid.NewString()
		seg.Type = Path
		seg.CreatedAt = ts
		seg.UpdatedAt = ts
		seg.Normalize(ts)
		out = append(out, seg)
	}

	payloadSegs := make([]*Object, len(out))
	for i, seg := range out {
		payloadSegs[i] = seg.Clone()
	}

	a := Action{
		ID:        uuid.NewString(),
		Type:      ErasePathAction,
		Payload:   Payload{ID: pathID, Segments: payloadSegs},
		Previous:  &Previous{Object: prev.Clone()},
		Timestamp: ts,
		UserID:    userID,
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
	return out
}

// Dispatch applies an externally built action (an undo inverse, a redo copy)
// and commits it like any local mutation, so it reaches peers through the
// normal pipeline. Missing id or timestamp are filled in.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp == 0 {
		a.Timestamp = s.clock.Tick()
	}
	s.apply(a)
	fns := s.commit(a)
	s.mu.Unlock()
	notify(fns, a)
}

// ApplyRemoteAction applies an action received from a peer. It mutates state
// through the same primitives as local application but is never re-recorded
// as lastAction.
func (s *Store) ApplyRemoteAction(a Action) {
	s.mu.Lock()
	s.clock.Observe(a.Timestamp)
	s.apply(a)
	s.mu.Unlock()
}

// BatchUpdate applies a sequence of actions in order with no per-item signal
// fan-out. Used for bulk transfer during bootstrap.
func (s *Store) BatchUpdate(actions []Action) {
	s.mu.Lock()
	for _, a := range actions {
		s.clock.Observe(a.Timestamp)
		s.apply(a)
	}
	s.mu.Unlock()
}

// LoadSnapshot replaces viewport/settings and inserts every object from a
// peer's snapshot, normalizing missing fields. Objects already present keep
// the incoming copy (the peer's view is authoritative during bootstrap).
func (s *Store) LoadSnapshot(snap Snapshot) {
	s.mu.Lock()
	now := s.clock.Tick()
	for id, obj := range snap.Objects {
		c := obj.Clone()
		if c.ID == "" {
			c.ID = id
		}
		c.Normalize(now)
		s.clock.Observe(c.UpdatedAt)
		s.objects[c.ID] = c
	}
	if snap.Viewport != (Viewport{}) {
		s.viewport = snap.Viewport
	}
	if snap.Settings != (Settings{}) {
		s.settings = snap.Settings
	}
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the shared state, safe to serialize after
// the store has moved on.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objs := make(map[string]*Object, len(s.objects))
	for id, obj := range s.objects {
		objs[id] = obj.Clone()
	}
	return Snapshot{Objects: objs, Viewport: s.viewport, Settings: s.settings}
}

// Object returns a copy of one object.
func (s *Store) Object(id string) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, false
	}
	return obj.Clone(), true
}

// ObjectCount returns the number of objects on the board.
func (s *Store) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Selection returns the selected object ids in sorted order.
func (s *Store) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return mapset.Sorted(s.selection)
}

// Viewport returns the current pan/zoom state.
func (s *Store) Viewport() Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// Settings returns the current board settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// LastAction returns the most recently committed local action, nil before
// the first mutation.
func (s *Store) LastAction() *Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastAction == nil {
		return nil
	}
	c := *s.lastAction
	return &c
}

// apply mutates state for one action. Shared by local commit, remote apply
// and batch replay; callers hold the lock.
func (s *Store) apply(a Action) {
	switch a.Type {
	case AddObjectAction:
		if a.Payload.Object == nil {
			return
		}
		obj := a.Payload.Object.Clone()
		obj.Normalize(a.Timestamp)
		s.objects[obj.ID] = obj

	case UpdateObjectAction:
		obj, ok := s.objects[a.Payload.ID]
		if !ok {
			return
		}
		if a.Payload.Object != nil {
			// full restore, used by undo inverses
			s.objects[a.Payload.ID] = a.Payload.Object.Clone()
			return
		}
		a.Payload.Updates.applyTo(obj)
		obj.UpdatedAt = a.Timestamp

	case DeleteObjectAction:
		delete(s.objects, a.Payload.ID)

	case SelectObjectsAction:
		s.selection = mapset.NewSet(a.Payload.IDs...)

	case ClearSelectionAction:
		s.selection = mapset.NewSet[string]()

	case UpdateViewportAction:
		if a.Payload.Viewport != nil {
			s.viewport = *a.Payload.Viewport
		}

	case UpdateSettingsAction:
		if a.Payload.Settings != nil {
			s.settings = *a.Payload.Settings
		}

	case ClearCanvasAction:
		s.objects = make(map[string]*Object)
		s.selection = mapset.NewSet[string]()

	case ErasePathAction:
		if _, ok := s.objects[a.Payload.ID]; !ok {
			return
		}
		delete(s.objects, a.Payload.ID)
		for _, seg := range a.Payload.Segments {
			c := seg.Clone()
			c.Normalize(a.Timestamp)
			s.objects[c.ID] = c
		}

	case BatchUpdateAction:
		for _, sub := range a.Payload.Actions {
			s.apply(sub)
		}

	default:
		s.logger.Warnf("unknown action type %q, ignoring", a.Type)
	}
}

// commit records lastAction and snapshots the subscriber list; callers hold
// the lock and invoke the returned funcs after releasing it.
func (s *Store) commit(a Action) []func(Action) {
	c := a
	s.lastAction = &c
	fns := make([]func(Action), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(Action), a Action) {
	for _, fn := range fns {
		fn(a)
	}
}
