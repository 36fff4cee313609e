package history

import (
	"github.com/google/uuid"

	"syncboard/board"
)

// Inverse builds the action that exactly unwinds a. It reports false when the
// original carries too little previousState to reconstruct what it destroyed;
// such actions simply cannot be undone.
func Inverse(a board.Action) (board.Action, bool) {
	inv := board.Action{ID: uuid.NewString(), UserID: a.UserID}

	switch a.Type {
	case board.AddObjectAction:
		if a.Payload.Object == nil {
			return board.Action{}, false
		}
		inv.Type = board.DeleteObjectAction
		inv.Payload = board.Payload{ID: a.Payload.Object.ID}

	case board.DeleteObjectAction:
		if a.Previous == nil || a.Previous.Object == nil {
			return board.Action{}, false
		}
		inv.Type = board.AddObjectAction
		inv.Payload = board.Payload{Object: a.Previous.Object.Clone()}

	case board.UpdateObjectAction:
		if a.Previous == nil || a.Previous.Object == nil {
			return board.Action{}, false
		}
		// full restore rather than a field patch, so fields the update
		// touched and fields it did not all come back together
		inv.Type = board.UpdateObjectAction
		inv.Payload = board.Payload{ID: a.Payload.ID, Object: a.Previous.Object.Clone()}

	case board.SelectObjectsAction, board.ClearSelectionAction:
		var prior []string
		if a.Previous != nil {
			prior = a.Previous.SelectedObjectIDs
		}
		inv.Type = board.SelectObjectsAction
		inv.Payload = board.Payload{IDs: append([]string(nil), prior...)}

	case board.UpdateViewportAction:
		if a.Previous == nil || a.Previous.Viewport == nil {
			return board.Action{}, false
		}
		v := *a.Previous.Viewport
		inv.Type = board.UpdateViewportAction
		inv.Payload = board.Payload{Viewport: &v}

	case board.UpdateSettingsAction:
		if a.Previous == nil || a.Previous.Settings == nil {
			return board.Action{}, false
		}
		set := *a.Previous.Settings
		inv.Type = board.UpdateSettingsAction
		inv.Payload = board.Payload{Settings: &set}

	case board.ErasePathAction:
		if a.Previous == nil || a.Previous.Object == nil {
			return board.Action{}, false
		}
		steps := make([]board.Action, 0, len(a.Payload.Segments)+1)
		for _, seg := range a.Payload.Segments {
			steps = append(steps, board.Action{
				ID:      uuid.NewString(),
				Type:    board.DeleteObjectAction,
				Payload: board.Payload{ID: seg.ID},
				UserID:  a.UserID,
			})
		}
		steps = append(steps, board.Action{
			ID:      uuid.NewString(),
			Type:    board.AddObjectAction,
			Payload: board.Payload{Object: a.Previous.Object.Clone()},
			UserID:  a.UserID,
		})
		inv.Type = board.BatchUpdateAction
		inv.Payload = board.Payload{Actions: steps}

	case board.ClearCanvasAction:
		if a.Previous == nil || len(a.Previous.Objects) == 0 {
			return board.Action{}, false
		}
		steps := make([]board.Action, 0, len(a.Previous.Objects)+1)
		for _, obj := range a.Previous.Objects {
			steps = append(steps, board.Action{
				ID:      uuid.NewString(),
				Type:    board.AddObjectAction,
				Payload: board.Payload{Object: obj.Clone()},
				UserID:  a.UserID,
			})
		}
		steps = append(steps, board.Action{
			ID:      uuid.NewString(),
			Type:    board.SelectObjectsAction,
			Payload: board.Payload{IDs: append([]string(nil), a.Previous.SelectedObjectIDs...)},
			UserID:  a.UserID,
		})
		inv.Type = board.BatchUpdateAction
		inv.Payload = board.Payload{Actions: steps}

	default:
		return board.Action{}, false
	}

	return inv, true
}
