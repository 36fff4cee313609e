package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRect() Object {
	return Object{Type: Rectangle, X: 10, Y: 10, Width: 50, Height: 50, Fill: "#ffffff"}
}

func TestAddObjectAssignsIdentity(t *testing.T) {
	s := NewStore(nil)
	obj := s.AddObject(newRect(), "alice")

	require.NotEmpty(t, obj.ID)
	require.NotZero(t, obj.CreatedAt)
	require.Equal(t, obj.CreatedAt, obj.UpdatedAt)

	last := s.LastAction()
	require.NotNil(t, last)
	assert.Equal(t, AddObjectAction, last.Type)
	assert.Equal(t, "alice", last.UserID)
	assert.Equal(t, obj.ID, last.Payload.Object.ID)
	assert.Equal(t, 1, s.ObjectCount())
}

func TestUpdateObjectRecordsPreviousState(t *testing.T) {
	s := NewStore(nil)
	obj := s.AddObject(newRect(), "alice")

	fill := "#ff0000"
	ok := s.UpdateObject(obj.ID, Patch{Fill: &fill}, "alice")
	require.True(t, ok)

	got, ok := s.Object(obj.ID)
	require.True(t, ok)
	assert.Equal(t, "#ff0000", got.Fill)
	assert.Greater(t, got.UpdatedAt, obj.CreatedAt)

	last := s.LastAction()
	require.NotNil(t, last.Previous)
	require.NotNil(t, last.Previous.Object)
	assert.Equal(t, "#ffffff", last.Previous.Object.Fill, "previousState must hold the pre-merge object")
}

func TestUpdateUnknownObjectIsNoOp(t *testing.T) {
	s := NewStore(nil)
	fill := "#ff0000"
	assert.False(t, s.UpdateObject("missing", Patch{Fill: &fill}, "alice"))
	assert.Nil(t, s.LastAction())
}

func TestDeleteObjectRecordsPreviousState(t *testing.T) {
	s := NewStore(nil)
	obj := s.AddObject(newRect(), "alice")

	require.True(t, s.DeleteObject(obj.ID, "alice"))
	assert.Equal(t, 0, s.ObjectCount())

	last := s.LastAction()
	require.Equal(t, DeleteObjectAction, last.Type)
	require.NotNil(t, last.Previous.Object)
	assert.Equal(t, obj.ID, last.Previous.Object.ID)

	assert.False(t, s.DeleteObject(obj.ID, "alice"), "second delete is a no-op")
}

func TestClearCanvasSnapshotsEverything(t *testing.T) {
	s := NewStore(nil)
	a := s.AddObject(newRect(), "alice")
	b := s.AddObject(Object{Type: Circle, X: 1, Y: 2}, "alice")
	s.SelectObjects([]string{a.ID}, "alice")

	s.ClearCanvas("alice")

	assert.Equal(t, 0, s.ObjectCount())
	assert.Empty(t, s.Selection())

	last := s.LastAction()
	require.Equal(t, ClearCanvasAction, last.Type)
	require.Len(t, last.Previous.Objects, 2)
	assert.Contains(t, last.Previous.Objects, a.ID)
	assert.Contains(t, last.Previous.Objects, b.ID)
	assert.Equal(t, []string{a.ID}, last.Previous.SelectedObjectIDs)
}

func TestErasePathReplacesWithSegments(t *testing.T) {
	s := NewStore(nil)
	p := s.AddObject(Object{Type: Path, X: 0, Y: 0}, "alice")

	segs := s.ErasePath(p.ID, []Object{{X: 0, Y: 0}, {X: 5, Y: 5}}, "alice")
	require.Len(t, segs, 2)

	_, ok := s.Object(p.ID)
	assert.False(t, ok, "original path must be gone")
	assert.Equal(t, 2, s.ObjectCount())
	for _, seg := range segs {
		assert.Equal(t, Path, seg.Type)
		got, ok := s.Object(seg.ID)
		require.True(t, ok)
		assert.Equal(t, seg.X, got.X)
	}

	last := s.LastAction()
	require.Equal(t, ErasePathAction, last.Type)
	assert.Equal(t, p.ID, last.Previous.Object.ID)
	assert.Len(t, last.Payload.Segments, 2)

	assert.Nil(t, s.ErasePath("missing", nil, "alice"))
}

func TestSnapshotIsDetached(t *testing.T) {
	s := NewStore(nil)
	obj := s.AddObject(newRect(), "alice")

	snap := s.Snapshot()

	fill := "#00ff00"
	s.UpdateObject(obj.ID, Patch{Fill: &fill}, "alice")
	s.UpdateViewport(Viewport{X: 3, Y: 4, Zoom: 2}, "alice")

	assert.Equal(t, "#ffffff", snap.Objects[obj.ID].Fill, "snapshot must not track later mutations")
	assert.Equal(t, Viewport{Zoom: 1}, snap.Viewport)
}

func TestApplyRemoteActionDoesNotSignal(t *testing.T) {
	s := NewStore(nil)
	var seen []Action
	unsub := s.Subscribe(func(a Action) { seen = append(seen, a) })
	defer unsub()

	remote := Action{
		ID:        "remote-1",
		Type:      AddObjectAction,
		Payload:   Payload{Object: &Object{ID: "obj-1", Type: Circle, X: 1, Y: 1}},
		Timestamp: 42,
		UserID:    "bob",
	}
	s.ApplyRemoteAction(remote)

	assert.Equal(t, 1, s.ObjectCount())
	assert.Empty(t, seen, "remote application must not hit subscribers")
	assert.Nil(t, s.LastAction(), "remote application must not become lastAction")
}

func TestApplyRemoteActionIsIdempotent(t *testing.T) {
	s := NewStore(nil)
	remote := Action{
		ID:        "remote-1",
		Type:      AddObjectAction,
		Payload:   Payload{Object: &Object{ID: "obj-1", Type: Circle, X: 1, Y: 1}},
		Timestamp: 42,
		UserID:    "bob",
	}

	s.ApplyRemoteAction(remote)
	once := s.Snapshot()
	s.ApplyRemoteAction(remote)
	twice := s.Snapshot()

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("double apply changed state (-once +twice):\n%s", diff)
	}
}

func TestRemoteObjectIsNormalized(t *testing.T) {
	s := NewStore(nil)
	s.ApplyRemoteAction(Action{
		ID:        "remote-1",
		Type:      AddObjectAction,
		Payload:   Payload{Object: &Object{ID: "obj-1", Type: Text}},
		Timestamp: 42,
	})

	got, ok := s.Object("obj-1")
	require.True(t, ok)
	assert.Equal(t, int64(42), got.CreatedAt)
	assert.Equal(t, int64(42), got.UpdatedAt)
	assert.NotNil(t, got.Data)
}

func TestBatchUpdateAppliesInOrder(t *testing.T) {
	s := NewStore(nil)
	x1, x2 := 1.0, 2.0
	s.BatchUpdate([]Action{
		{ID: "a1", Type: AddObjectAction, Payload: Payload{Object: &Object{ID: "o", Type: Star, CreatedAt: 1, UpdatedAt: 1}}, Timestamp: 1},
		{ID: "a2", Type: UpdateObjectAction, Payload: Payload{ID: "o", Updates: &Patch{X: &x1}}, Timestamp: 2},
		{ID: "a3", Type: UpdateObjectAction, Payload: Payload{ID: "o", Updates: &Patch{X: &x2}}, Timestamp: 3},
	})

	got, ok := s.Object("o")
	require.True(t, ok)
	assert.Equal(t, 2.0, got.X)
	assert.Equal(t, int64(3), got.UpdatedAt)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewStore(nil)
	var count int
	unsub := s.Subscribe(func(Action) { count++ })

	s.AddObject(newRect(), "alice")
	require.Equal(t, 1, count)

	unsub()
	s.AddObject(newRect(), "alice")
	assert.Equal(t, 1, count, "unsubscribed listener must not fire")
}

func TestSelectionOperations(t *testing.T) {
	s := NewStore(nil)
	a := s.AddObject(newRect(), "alice")
	b := s.AddObject(newRect(), "alice")

	s.SelectObjects([]string{b.ID, a.ID}, "alice")
	assert.Len(t, s.Selection(), 2)

	last := s.LastAction()
	assert.Equal(t, SelectObjectsAction, last.Type)

	s.ClearSelection("alice")
	assert.Empty(t, s.Selection())
	assert.Equal(t, ClearSelectionAction, s.LastAction().Type)
}

func TestViewportAndSettings(t *testing.T) {
	s := NewStore(nil)
	s.UpdateViewport(Viewport{X: 10, Y: 20, Zoom: 1.5}, "alice")
	assert.Equal(t, Viewport{X: 10, Y: 20, Zoom: 1.5}, s.Viewport())
	require.NotNil(t, s.LastAction().Previous.Viewport)
	assert.Equal(t, Viewport{Zoom: 1}, *s.LastAction().Previous.Viewport)

	s.UpdateSettings(Settings{ShowGrid: true, Background: "dots"}, "alice")
	assert.Equal(t, Settings{ShowGrid: true, Background: "dots"}, s.Settings())
}
