package board

// ActionType is the closed set of synchronizable mutations.
type ActionType string

const (
	AddObjectAction      ActionType = "ADD_OBJECT"
	UpdateObjectAction   ActionType = "UPDATE_OBJECT"
	DeleteObjectAction   ActionType = "DELETE_OBJECT"
	SelectObjectsAction  ActionType = "SELECT_OBJECTS"
	ClearSelectionAction ActionType = "CLEAR_SELECTION"
	UpdateViewportAction ActionType = "UPDATE_VIEWPORT"
	UpdateSettingsAction ActionType = "UPDATE_SETTINGS"
	ClearCanvasAction    ActionType = "CLEAR_CANVAS"
	ErasePathAction      ActionType = "ERASE_PATH"
	BatchUpdateAction    ActionType = "BATCH_UPDATE"
)

// Action is the unit of synchronization. Ids are unique across the session;
// re-applying an already-seen id must be a no-op.
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Payload   Payload    `json:"payload"`
	Previous  *Previous  `json:"previousState,omitempty"`
	Timestamp int64      `json:"timestamp"`
	UserID    string     `json:"userId"`
}

// Payload carries the per-type data; only the fields the type needs are set.
type Payload struct {
	Object   *Object   `json:"object,omitempty"`   // ADD_OBJECT, or a full restore on UPDATE_OBJECT
	ID       string    `json:"id,omitempty"`       // UPDATE_OBJECT, DELETE_OBJECT, ERASE_PATH
	Updates  *Patch    `json:"updates,omitempty"`  // UPDATE_OBJECT
	IDs      []string  `json:"ids,omitempty"`      // SELECT_OBJECTS
	Viewport *Viewport `json:"viewport,omitempty"` // UPDATE_VIEWPORT
	Settings *Settings `json:"settings,omitempty"` // UPDATE_SETTINGS
	Segments []*Object `json:"segments,omitempty"` // ERASE_PATH
	Actions  []Action  `json:"actions,omitempty"`  // BATCH_UPDATE
}

// Previous snapshots what an action destroyed, enough to build its inverse.
// Actions of an invertible type that lack it simply cannot be undone.
type Previous struct {
	Object            *Object            `json:"object,omitempty"`
	Objects           map[string]*Object `json:"objects,omitempty"`
	SelectedObjectIDs []string           `json:"selectedObjectIds,omitempty"`
	Viewport          *Viewport          `json:"viewport,omitempty"`
	Settings          *Settings          `json:"settings,omitempty"`
}

// LocalOnly reports whether an action type is excluded from cross-user sync.
// Selection is per-client state and never goes on the wire.
func LocalOnly(t ActionType) bool {
	return t == SelectObjectsAction || t == ClearSelectionAction
}
