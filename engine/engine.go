// Package engine bridges the local action stream to the room transport. It
// owns the connection phase machine, queues outbound actions until the
// channel is ready, suppresses echoes of its own broadcasts, deduplicates
// inbound deliveries by action id, and runs the late-joiner bootstrap
// handshake.
package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"syncboard/board"
	"syncboard/commons"
)

// Phase is the connection lifecycle. Transitions happen only on transport
// events; any phase falls back to Disconnected on transport loss.
type Phase string

const (
	Disconnected Phase = "disconnected"
	Connecting   Phase = "connecting"
	Handshake    Phase = "handshake"
	Ready        Phase = "ready"
)

// Transport sends opaque messages to the room. Delivery is fire-and-forget;
// per-connection ordering and at-least-once delivery are assumed, nothing
// more.
type Transport interface {
	Send(msg commons.Message) error
}

// Config holds the protocol tunables. The jitter window spreads simultaneous
// bootstrap responses apart; the values are policy, not protocol constants.
type Config struct {
	SettleDelay time.Duration // wait after seeing peers before requesting state
	JitterMin   time.Duration // responder reply delay, lower bound
	JitterMax   time.Duration // responder reply delay, upper bound
	IDSetCap    int           // recent-id set size that triggers a trim
	IDSetKeep   int           // ids retained after a trim
}

func (c Config) withDefaults() Config {
	if c.SettleDelay == 0 {
		c.SettleDelay = 250 * time.Millisecond
	}
	if c.JitterMin == 0 {
		c.JitterMin = 100 * time.Millisecond
	}
	if c.JitterMax == 0 {
		c.JitterMax = 400 * time.Millisecond
	}
	if c.IDSetCap == 0 {
		c.IDSetCap = 1000
	}
	if c.IDSetKeep == 0 {
		c.IDSetKeep = 500
	}
	return c
}

type Engine struct {
	mu        sync.Mutex
	store     *board.Store
	transport Transport
	cfg       Config
	logger    *logrus.Logger

	phase     Phase
	sessionID string
	recent    *recentIDs
	queue     []board.Action
	unsub     func()

	// bootstrap bookkeeping, reset on disconnect
	hasRequestedState  bool
	hasReceivedInitial bool
	waitingForInitial  bool
	everHadPeers       bool

	// invalidates pending settle/jitter timers from a previous connection
	gen int
}

func New(store *board.Store, transport Transport, cfg Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &Engine{
		store:     store,
		transport: transport,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		phase:     Disconnected,
	}
	e.recent = newRecentIDs(e.cfg.IDSetCap, e.cfg.IDSetKeep)
	e.unsub = store.Subscribe(e.onLocalAction)
	return e
}

// Close detaches the engine from the store.
func (e *Engine) Close() {
	if e.unsub != nil {
		e.unsub()
	}
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// SessionID is the server-assigned id for this connection, used as the
// requesterId in the bootstrap handshake.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// WaitingForInitialState reports whether the bootstrap request is still
// outstanding. The UI layer shows a loading overlay while this is true and
// decides on its own when to give up; the engine never retries.
func (e *Engine) WaitingForInitialState() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitingForInitial
}

// HandleConnected moves the engine out of Disconnected once the transport
// reports the room join. The session id arrives in a follow-up message.
func (e *Engine) HandleConnected() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = Connecting
	e.logger.Info("transport connected, waiting for session id")
}

// HandleDisconnected drops back to Disconnected. Queued actions and all
// bootstrap flags are discarded; a reconnect re-runs the full handshake.
func (e *Engine) HandleDisconnected() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = Disconnected
	e.sessionID = ""
	e.queue = nil
	e.hasRequestedState = false
	e.hasReceivedInitial = false
	e.waitingForInitial = false
	e.everHadPeers = false
	e.gen++
	e.logger.Info("transport disconnected, sync state reset")
}

// HandleMessage routes one inbound room message.
func (e *Engine) HandleMessage(msg commons.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == Disconnected {
		return
	}

	switch msg.Type {
	case commons.SessionMessage:
		e.sessionID = msg.SessionID
		e.phase = Handshake
		e.logger.Infof("session %s established, handshake started", e.sessionID)

	case commons.UsersMessage:
		e.handleUsers(msg.Users)

	case commons.RequestStateMessage:
		e.handleRequestState(msg.RequesterID)

	case commons.StateResponseMessage:
		e.handleStateResponse(msg)

	case commons.ActionMessage:
		e.handleAction(msg.Action)

	case commons.StateSyncMessage:
		e.handleStateSync(msg.Data)

	case commons.JoinMessage:
		e.logger.Infof("%s has joined the session", msg.Username)
	}
}

// handleAction applies one remote action, unless the id was already sent or
// seen. An echo of our own broadcast coming back must not double-apply.
func (e *Engine) handleAction(a *board.Action) {
	if a == nil || e.phase != Ready {
		return
	}
	if e.recent.Contains(a.ID) {
		e.logger.Debugf("action %s already seen, skipping", a.ID)
		return
	}
	e.recent.Add(a.ID)
	e.store.ApplyRemoteAction(*a)
}

// handleStateSync replays a bulk action batch, still dedup'd per action id.
func (e *Engine) handleStateSync(data *commons.SyncData) {
	if data == nil || e.phase != Ready {
		return
	}
	fresh := make([]board.Action, 0, len(data.Actions))
	for _, a := range data.Actions {
		if e.recent.Contains(a.ID) {
			continue
		}
		e.recent.Add(a.ID)
		fresh = append(fresh, a)
	}
	if len(fresh) > 0 {
		e.store.BatchUpdate(fresh)
	}
}

// onLocalAction observes the store's lastAction stream. Selection actions
// never leave the client; everything else is sent, or queued until Ready.
func (e *Engine) onLocalAction(a board.Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if board.LocalOnly(a.Type) {
		return
	}
	if e.recent.Contains(a.ID) {
		return
	}
	if e.phase != Ready {
		e.queue = append(e.queue, a)
		e.logger.Debugf("queued action %s until channel is ready (%d pending)", a.ID, len(e.queue))
		return
	}
	e.sendAction(a)
}

// sendAction broadcasts one action and marks it sent. Send failures are
// logged and dropped: the local optimistic apply already holds the change,
// so delivery is best-effort. Callers hold the lock.
func (e *Engine) sendAction(a board.Action) {
	e.recent.Add(a.ID)
	err := e.transport.Send(commons.Message{Type: commons.ActionMessage, Action: &a})
	if err != nil {
		e.logger.Warnf("failed to send action %s: %v", a.ID, err)
	}
}

// becomeReady flips the phase and flushes the outbound queue in FIFO order.
// Callers hold the lock.
func (e *Engine) becomeReady(reason string) {
	e.phase = Ready
	e.waitingForInitial = false
	e.logger.Infof("channel ready: %s", reason)
	for _, a := range e.queue {
		e.sendAction(a)
	}
	e.queue = nil
}
