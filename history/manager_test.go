package history

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/board"
)

func setup(t *testing.T) (*board.Store, *Manager) {
	t.Helper()
	store := board.NewStore(nil)
	m := NewManager(store, nil)
	t.Cleanup(m.Close)
	return store, m
}

func addRect(store *board.Store, user string) *board.Object {
	return store.AddObject(board.Object{Type: board.Rectangle, X: 10, Y: 10, Width: 50, Height: 50, Fill: "#ffffff"}, user)
}

func TestUndoRedoAdd(t *testing.T) {
	store, m := setup(t)
	before := store.Snapshot()
	obj := addRect(store, "alice")

	require.True(t, m.CanUndo("alice"))
	require.True(t, m.Undo("alice"))
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("undo of add did not restore prior state:\n%s", diff)
	}

	require.True(t, m.CanRedo("alice"))
	require.True(t, m.Redo("alice"))
	got, ok := store.Object(obj.ID)
	require.True(t, ok, "redo must bring the object back under its original id")
	assert.Equal(t, obj.Fill, got.Fill)
	assert.Equal(t, obj.X, got.X)
}

func TestUndoRedoUpdate(t *testing.T) {
	store, m := setup(t)
	obj := addRect(store, "alice")
	before := store.Snapshot()

	fill := "#ff0000"
	require.True(t, store.UpdateObject(obj.ID, board.Patch{Fill: &fill}, "alice"))

	require.True(t, m.Undo("alice"))
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("undo of update did not restore prior state:\n%s", diff)
	}
	require.True(t, m.CanRedo("alice"))

	require.True(t, m.Redo("alice"))
	got, _ := store.Object(obj.ID)
	assert.Equal(t, "#ff0000", got.Fill)
}

func TestUndoRedoDelete(t *testing.T) {
	store, m := setup(t)
	obj := addRect(store, "alice")
	before := store.Snapshot()

	require.True(t, store.DeleteObject(obj.ID, "alice"))
	require.True(t, m.Undo("alice"))
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("undo of delete did not restore prior state:\n%s", diff)
	}

	require.True(t, m.Redo("alice"))
	_, ok := store.Object(obj.ID)
	assert.False(t, ok)
}

func TestUndoClearCanvasRestoresEverything(t *testing.T) {
	store, m := setup(t)
	a := addRect(store, "alice")
	b := addRect(store, "alice")
	c := addRect(store, "alice")
	store.SelectObjects([]string{a.ID, b.ID}, "alice")

	store.ClearCanvas("alice")
	require.Equal(t, 0, store.ObjectCount())

	require.True(t, m.Undo("alice"))
	assert.Equal(t, 3, store.ObjectCount())
	for _, id := range []string{a.ID, b.ID, c.ID} {
		_, ok := store.Object(id)
		assert.True(t, ok, "object %s must come back under its original id", id)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, store.Selection())
}

func TestUndoErasePath(t *testing.T) {
	store, m := setup(t)
	p := store.AddObject(board.Object{Type: board.Path, X: 0, Y: 0}, "alice")
	before := store.Snapshot()

	segs := store.ErasePath(p.ID, []board.Object{{X: 1, Y: 1}, {X: 2, Y: 2}}, "alice")
	require.Len(t, segs, 2)

	require.True(t, m.Undo("alice"))
	if diff := cmp.Diff(before, store.Snapshot()); diff != "" {
		t.Fatalf("undo of erase did not restore prior state:\n%s", diff)
	}
	for _, seg := range segs {
		_, ok := store.Object(seg.ID)
		assert.False(t, ok, "segment %s must be gone after undo", seg.ID)
	}
}

func TestUndoRefusedOnRemoteConflict(t *testing.T) {
	store, m := setup(t)
	obj := addRect(store, "alice")

	fill := "#ff0000"
	require.True(t, store.UpdateObject(obj.ID, board.Patch{Fill: &fill}, "alice"))
	localTS := store.LastAction().Timestamp

	// a peer touches the same object later
	x := 99.0
	store.ApplyRemoteAction(board.Action{
		ID:        "remote-1",
		Type:      board.UpdateObjectAction,
		Payload:   board.Payload{ID: obj.ID, Updates: &board.Patch{X: &x}},
		Timestamp: localTS + 1000,
		UserID:    "bob",
	})

	assert.False(t, m.Undo("alice"), "undo must refuse rather than clobber the newer edit")
	got, _ := store.Object(obj.ID)
	assert.Equal(t, "#ff0000", got.Fill)
	assert.Equal(t, 99.0, got.X)
	assert.True(t, m.CanUndo("alice"), "the refused entry stays on the history")
}

func TestUndoRefusedWhenTargetGone(t *testing.T) {
	store, m := setup(t)
	obj := addRect(store, "alice")
	fill := "#ff0000"
	require.True(t, store.UpdateObject(obj.ID, board.Patch{Fill: &fill}, "alice"))

	store.ApplyRemoteAction(board.Action{
		ID:        "remote-del",
		Type:      board.DeleteObjectAction,
		Payload:   board.Payload{ID: obj.ID},
		Timestamp: store.LastAction().Timestamp + 1,
		UserID:    "bob",
	})

	assert.False(t, m.Undo("alice"))
}

func TestEmptyHistoryNoOps(t *testing.T) {
	_, m := setup(t)
	assert.False(t, m.CanUndo("alice"))
	assert.False(t, m.CanRedo("alice"))
	assert.False(t, m.Undo("alice"))
	assert.False(t, m.Redo("alice"))
}

func TestNewActionTruncatesRedoTail(t *testing.T) {
	store, m := setup(t)
	addRect(store, "alice")
	addRect(store, "alice")

	require.True(t, m.Undo("alice"))
	require.True(t, m.CanRedo("alice"))

	addRect(store, "alice")
	assert.False(t, m.CanRedo("alice"), "a fresh action invalidates the redo tail")
}

func TestRemoteActionsNeverEnterHistory(t *testing.T) {
	store, m := setup(t)
	store.ApplyRemoteAction(board.Action{
		ID:        "remote-1",
		Type:      board.AddObjectAction,
		Payload:   board.Payload{Object: &board.Object{ID: "o", Type: board.Circle}},
		Timestamp: 1,
		UserID:    "bob",
	})
	assert.False(t, m.CanUndo("bob"), "remote-origin actions are not undoable by the applying client")
}

func TestHistoriesAreIndependentPerUser(t *testing.T) {
	store, m := setup(t)
	a := addRect(store, "alice")
	b := addRect(store, "bob")

	require.True(t, m.Undo("bob"))
	_, okA := store.Object(a.ID)
	_, okB := store.Object(b.ID)
	assert.True(t, okA, "bob's undo must not touch alice's object")
	assert.False(t, okB)
}

func TestInverseTable(t *testing.T) {
	obj := &board.Object{ID: "o", Type: board.Rectangle, X: 1, Y: 2, CreatedAt: 1, UpdatedAt: 1}

	tests := []struct {
		name     string
		action   board.Action
		wantType board.ActionType
		wantOK   bool
	}{
		{
			name:     "add inverts to delete",
			action:   board.Action{Type: board.AddObjectAction, Payload: board.Payload{Object: obj}},
			wantType: board.DeleteObjectAction,
			wantOK:   true,
		},
		{
			name:     "delete inverts to add",
			action:   board.Action{Type: board.DeleteObjectAction, Payload: board.Payload{ID: "o"}, Previous: &board.Previous{Object: obj}},
			wantType: board.AddObjectAction,
			wantOK:   true,
		},
		{
			name:   "delete without previous has no inverse",
			action: board.Action{Type: board.DeleteObjectAction, Payload: board.Payload{ID: "o"}},
			wantOK: false,
		},
		{
			name:     "update inverts to restoring update",
			action:   board.Action{Type: board.UpdateObjectAction, Payload: board.Payload{ID: "o"}, Previous: &board.Previous{Object: obj}},
			wantType: board.UpdateObjectAction,
			wantOK:   true,
		},
		{
			name:   "update without previous has no inverse",
			action: board.Action{Type: board.UpdateObjectAction, Payload: board.Payload{ID: "o"}},
			wantOK: false,
		},
		{
			name:     "selection inverts even without previous",
			action:   board.Action{Type: board.SelectObjectsAction, Payload: board.Payload{IDs: []string{"o"}}},
			wantType: board.SelectObjectsAction,
			wantOK:   true,
		},
		{
			name:   "viewport without previous has no inverse",
			action: board.Action{Type: board.UpdateViewportAction, Payload: board.Payload{Viewport: &board.Viewport{Zoom: 2}}},
			wantOK: false,
		},
		{
			name:     "clear canvas inverts to batch restore",
			action:   board.Action{Type: board.ClearCanvasAction, Previous: &board.Previous{Objects: map[string]*board.Object{"o": obj}}},
			wantType: board.BatchUpdateAction,
			wantOK:   true,
		},
		{
			name:   "clear canvas with nothing to restore has no inverse",
			action: board.Action{Type: board.ClearCanvasAction, Previous: &board.Previous{}},
			wantOK: false,
		},
		{
			name:     "erase inverts to batch",
			action:   board.Action{Type: board.ErasePathAction, Payload: board.Payload{ID: "o", Segments: []*board.Object{{ID: "s1"}}}, Previous: &board.Previous{Object: obj}},
			wantType: board.BatchUpdateAction,
			wantOK:   true,
		},
		{
			name:   "batch has no inverse",
			action: board.Action{Type: board.BatchUpdateAction},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := Inverse(tt.action)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantType, inv.Type)
				assert.NotEmpty(t, inv.ID)
			}
		})
	}
}
