// Package undo implements the Hyperstore Undo Manager (spec.md §3,
// §4.10): a per-domain event recorder that stores forward-session
// event frames, synthesizes reverse events on pop, and replays them
// through the owning domain's dispatcher.
//
// Modeled on the teacher's Transaction buffering in
// pkg/storage/transaction.go (operations recorded, then replayed or
// discarded as a unit) but keyed here by session id rather than a
// single flat buffer, since spec.md's undo stack holds one frame per
// committed session rather than one transaction at a time.
package undo

import (
	"context"
	"sync"

	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/session"
)

// Dispatcher applies a single event's effect directly to a domain,
// bypassing id minting (domain.Domain.Dispatch satisfies this).
type Dispatcher func(events.Event) error

// Filter decides whether an event is worth recording for undo. A nil
// Filter keeps every event.
type Filter func(events.Event) bool

// Frame is one undo or redo entry: the events produced by a single
// committed session, in original append order.
type Frame struct {
	SessionID int64
	Events    []events.Event
}

// Manager is the per-domain undo/redo stack described in spec.md
// §4.10. It subscribes itself to session-completed notifications and
// must be disposed (via Dispose, typically through Domain.AddAdapter)
// to unsubscribe.
type Manager struct {
	mu sync.Mutex

	sessions *session.Manager
	dispatch Dispatcher

	// Filter, if set, restricts which events of a completed session
	// are retained on the undo stack.
	Filter Filter

	undoStack []Frame
	redoStack []Frame

	unsubscribe func()
}

// NewManager creates an undo Manager for one domain, subscribing to
// sessions' session-completed notifications immediately.
func NewManager(sessions *session.Manager, dispatch Dispatcher) *Manager {
	m := &Manager{sessions: sessions, dispatch: dispatch}
	m.unsubscribe = sessions.Subscribe(func(_ context.Context, info session.Info) error {
		m.OnSessionCompleted(info)
		return nil
	})
	return m
}

// OnSessionCompleted records a completed session's events as a new
// undo frame, unless the session aborted or its mode is Undo, Redo or
// Loading (spec.md §4.10). A frame matching the already-current top
// frame's session id is merged rather than duplicated, covering
// reopened nested sessions. Recording always clears the redo stack.
func (m *Manager) OnSessionCompleted(info session.Info) {
	if info.Aborted || info.Mode.IsUndoOrRedo() || info.Mode.Has(events.Loading) {
		return
	}

	kept := info.Events
	if m.Filter != nil {
		kept = filterEvents(kept, m.Filter)
	}
	if len(kept) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.undoStack); n > 0 && m.undoStack[n-1].SessionID == info.SessionID {
		m.undoStack[n-1].Events = append(m.undoStack[n-1].Events, kept...)
	} else {
		m.undoStack = append(m.undoStack, Frame{SessionID: info.SessionID, Events: kept})
	}
	m.redoStack = nil
}

// SavePoint returns the session id of the top undo frame, or
// ok=false when the stack is empty (spec.md §4.10).
func (m *Manager) SavePoint() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.undoStack) == 0 {
		return 0, false
	}
	return m.undoStack[len(m.undoStack)-1].SessionID, true
}

// Undo pops frames from the undo stack and replays their inverse
// events through the dispatcher, in an Undo-mode session. Without a
// save point, only the top frame is popped; with one, frames are
// popped until the given session id is reached, draining the entire
// stack if it is never found (spec.md §4.10). All inverse events
// produced by this call are merged into a single redo frame.
func (m *Manager) Undo(savePoint *int64) error {
	popped := m.popUndo(savePoint)
	if len(popped) == 0 {
		return nil
	}
	return m.replay(events.Undo, popped, &m.redoStack)
}

// Redo pops the top redo frame (produced by a prior Undo call) and
// replays its inverse events through the dispatcher, in a Redo-mode
// session, pushing the result back onto the undo stack.
func (m *Manager) Redo() error {
	m.mu.Lock()
	if len(m.redoStack) == 0 {
		m.mu.Unlock()
		return nil
	}
	top := m.redoStack[len(m.redoStack)-1]
	m.redoStack = m.redoStack[:len(m.redoStack)-1]
	m.mu.Unlock()

	return m.replay(events.Redo, []Frame{top}, &m.undoStack)
}

func (m *Manager) popUndo(savePoint *int64) []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	var popped []Frame
	for len(m.undoStack) > 0 {
		top := m.undoStack[len(m.undoStack)-1]
		m.undoStack = m.undoStack[:len(m.undoStack)-1]
		popped = append(popped, top)
		if savePoint == nil || top.SessionID == *savePoint {
			break
		}
	}
	return popped
}

// replay opens a session in mode, dispatches the inverse of every
// event in popped (most recently appended first, across frames in pop
// order), appends each inverse to the session, and pushes a single
// merged frame of those inverses onto dest.
func (m *Manager) replay(mode events.Mode, popped []Frame, dest *[]Frame) error {
	s := m.sessions.Begin(mode)

	var produced []events.Event
	for _, frame := range popped {
		for i := len(frame.Events) - 1; i >= 0; i-- {
			rev := frame.Events[i].Reverse(s.ID())
			if err := m.dispatch(rev); err != nil {
				_ = m.sessions.Close(context.Background(), s, false)
				return err
			}
			s.Append(rev)
			produced = append(produced, rev)
		}
	}

	if err := m.sessions.Close(context.Background(), s, true); err != nil {
		return err
	}

	if len(produced) > 0 {
		m.mu.Lock()
		*dest = append(*dest, Frame{SessionID: popped[0].SessionID, Events: produced})
		m.mu.Unlock()
	}
	return nil
}

// Dispose unsubscribes the Manager from session-completed
// notifications (spec.md §5: "Disposing a Domain disposes every
// Adapter").
func (m *Manager) Dispose() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func filterEvents(evs []events.Event, keep Filter) []events.Event {
	out := make([]events.Event, 0, len(evs))
	for _, e := range evs {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
