package commons

import "syncboard/board"

type MessageType string

const (
	ActionMessage        MessageType = "whiteboard_action" // a single committed action
	StateSyncMessage     MessageType = "state_sync"        // bulk action replay
	RequestStateMessage  MessageType = "request_state"     // late joiner asking for a snapshot
	StateResponseMessage MessageType = "state_response"    // snapshot reply, routed to the requester
	SessionMessage       MessageType = "session"           // server assigns the connection id
	JoinMessage          MessageType = "join"              // joining messages
	UsersMessage         MessageType = "users"             // list of active users
)

// SyncData wraps the action batch of a state_sync message.
type SyncData struct {
	Actions []board.Action `json:"actions"`
}

// Message is the envelope for everything on the room channel. Only the
// fields relevant to the Type are set.
type Message struct {
	Type        MessageType     `json:"type"`
	Action      *board.Action   `json:"action,omitempty"`
	Data        *SyncData       `json:"data,omitempty"`
	RequesterID string          `json:"requesterId,omitempty"`
	State       *board.Snapshot `json:"state,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Username    string          `json:"username,omitempty"`
	Users       []string        `json:"users,omitempty"`
}
