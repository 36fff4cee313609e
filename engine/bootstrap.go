package engine

import (
	"math/rand"
	"time"

	"syncboard/commons"
)

// Late-joiner state transfer. There is no central authority holding "the"
// board: a client that joins an occupied room asks the room for a snapshot,
// every ready peer answers after a random jitter, and the first response
// addressed to the requester wins. A lone first joiner has nobody to ask and
// proceeds straight to Ready with an empty board.

// handleUsers reacts to the roster. During handshake the participant count
// decides between "alone, start empty" and "occupied, request state".
// Callers hold the lock.
func (e *Engine) handleUsers(users []string) {
	n := len(users)
	if n > 1 {
		e.everHadPeers = true
	}
	if e.phase != Handshake {
		return
	}
	if n <= 1 {
		if e.everHadPeers && e.waitingForInitial {
			e.logger.Info("all peers left before responding, proceeding with local state")
		}
		e.becomeReady("alone in room")
		return
	}
	e.beginBootstrap()
}

// beginBootstrap schedules the one request_state of this connection's
// lifetime. The settle delay lets the roster and any in-flight responses
// quiet down first.
func (e *Engine) beginBootstrap() {
	if e.hasRequestedState || e.hasReceivedInitial {
		return
	}
	e.hasRequestedState = true
	e.waitingForInitial = true
	gen := e.gen

	time.AfterFunc(e.cfg.SettleDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen || e.hasReceivedInitial || e.phase != Handshake {
			return
		}
		e.logger.Infof("requesting board state as %s", e.sessionID)
		err := e.transport.Send(commons.Message{
			Type:        commons.RequestStateMessage,
			RequesterID: e.sessionID,
		})
		if err != nil {
			e.logger.Warnf("failed to send state request: %v", err)
		}
	})
}

// handleRequestState answers a peer's request after a random jitter, so a
// crowded room does not respond in one burst. Only Ready peers respond; a
// client mid-handshake has nothing trustworthy to offer. Callers hold the
// lock.
func (e *Engine) handleRequestState(requesterID string) {
	if requesterID == "" || requesterID == e.sessionID {
		return
	}
	if e.phase != Ready {
		return
	}
	gen := e.gen

	time.AfterFunc(e.jitter(), func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen || e.phase != Ready {
			return
		}
		snap := e.store.Snapshot()
		e.logger.Infof("sending board state to %s (%d objects)", requesterID, len(snap.Objects))
		err := e.transport.Send(commons.Message{
			Type:        commons.StateResponseMessage,
			RequesterID: requesterID,
			State:       &snap,
		})
		if err != nil {
			e.logger.Warnf("failed to send state response: %v", err)
		}
	})
}

// handleStateResponse applies the first response matching our own pending
// request. Later responses are stale by definition and ignored, even when
// they carry more objects. Callers hold the lock.
func (e *Engine) handleStateResponse(msg commons.Message) {
	if msg.RequesterID != e.sessionID || msg.State == nil {
		return
	}
	if !e.waitingForInitial || e.hasReceivedInitial {
		e.logger.Debug("state response after the window closed, ignoring")
		return
	}
	e.hasReceivedInitial = true
	e.store.LoadSnapshot(*msg.State)
	e.logger.Infof("initial state applied: %d objects", len(msg.State.Objects))
	e.becomeReady("initial state received")
}

func (e *Engine) jitter() time.Duration {
	window := e.cfg.JitterMax - e.cfg.JitterMin
	if window <= 0 {
		return e.cfg.JitterMin
	}
	return e.cfg.JitterMin + time.Duration(rand.Int63n(int64(window)))
}
