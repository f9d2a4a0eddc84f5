// Package session implements the Hyperstore Session / unit-of-work
// (spec.md §3, §4.6): a process-wide ambient "current session" slot
// with nesting depth, a mode bitmask, and outermost-commit-only
// semantics for constraint evaluation, subscriber notification and
// rollback.
//
// Modeled on the teacher's Transaction (pkg/storage/transaction.go):
// buffered operations applied atomically on commit, discarded on
// rollback, guarded by a mutex. Generalized here from a single flat
// buffer to the spec's nested-depth session, and from storage.Operation
// to events.Event with deterministic inverses.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	goevents "github.com/asaidimu/go-events"
	"github.com/orneryd/hyperstore/pkg/events"
)

// Completed is the event name subscribers register against: one
// notification per outermost session close (spec.md §4.6 step 3,
// §4.7 "eventName is the string discriminator used by the dispatcher").
const Completed = "session-completed"

// Info is the immutable snapshot delivered to session-completed
// subscribers (spec.md §3's Session entity, §4.6 step 3).
type Info struct {
	SessionID int64
	Events    []events.Event
	Aborted   bool
	Mode      events.Mode
}

// Session is a single thread-of-control unit of work. Nested
// beginSession calls share the same Session and increase depth; only
// the outermost close triggers commit or rollback (spec.md §4.6).
type Session struct {
	mu      sync.Mutex
	id      int64
	mode    events.Mode
	depth   int
	events  []events.Event
	aborted bool
	closed  bool
}

// ID returns the session's monotonic identifier.
func (s *Session) ID() int64 { return s.id }

// Mode returns the session's mode bitmask.
func (s *Session) Mode() events.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Append adds an event to the session's buffer (spec.md §5: "events
// are stored in append order").
func (s *Session) Append(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.SessionID = s.id
	s.events = append(s.events, e)
}

// Events returns a copy of the events appended so far.
func (s *Session) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Abort marks the session as aborted; its outermost close will roll
// back instead of committing.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// Aborted reports whether the session has been marked aborted.
func (s *Session) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// CommitFunc runs Check and Validate constraints over every element
// touched by s's events (spec.md §4.6 steps 1-2). It returns a non-nil
// error — a *herrors.Error with Kind ConstraintError — when a Check
// constraint with errorFlag=true failed, which aborts the session.
type CommitFunc func(s *Session) error

// RollbackFunc replays s's events in reverse via getReverseEvent,
// under mode|=Rollback so cascades do not re-fire (spec.md §4.6
// "On rollback"). Invoked only when a session aborts.
type RollbackFunc func(s *Session, reversed []events.Event)

// Manager owns the ambient current-session slot for one Store
// (spec.md §5: "a process-wide ambient 'current session' slot holds
// at most one Session" — scoped here to the owning Store rather than
// a true process global, so multiple Stores in one process do not
// interfere).
type Manager struct {
	mu      sync.Mutex
	current *Session
	nextID  int64

	commit   CommitFunc
	rollback RollbackFunc

	bus *goevents.TypedEventBus[Info]
}

// NewManager creates a Manager wired to the given commit/rollback
// hooks. Domain/Store supply these so session stays independent of
// the schema and graph packages.
func NewManager(commit CommitFunc, rollback RollbackFunc) (*Manager, error) {
	bus, err := goevents.NewTypedEventBus[Info](goevents.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("session: initializing event bus: %w", err)
	}
	return &Manager{commit: commit, rollback: rollback, bus: bus}, nil
}

// Subscribe registers fn against session-completed notifications and
// returns an unsubscribe function (spec.md §5: "Subscriptions are
// identified by integer cookies returned from subscribe; unsubscribe
// removes by cookie" — realized here as a closure rather than an
// integer handle, matching go-events' Subscribe contract).
func (m *Manager) Subscribe(fn func(context.Context, Info) error) func() {
	return m.bus.Subscribe(Completed, fn)
}

// Current returns the ambient session, if one is open.
func (m *Manager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != nil
}

// Begin opens a new session or, if one is already open, increases its
// nesting depth (spec.md §4.6).
func (m *Manager) Begin(mode events.Mode) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.mu.Lock()
		m.current.depth++
		m.current.mu.Unlock()
		return m.current
	}

	m.nextID++
	s := &Session{id: m.nextID, mode: mode, depth: 1}
	m.current = s
	return s
}

// AcceptChanges records nothing and does not commit (spec.md §4.6).
// Whether a nesting depth is committed is given by the committed
// argument of its Close call; only the outermost Close commits.
func (m *Manager) AcceptChanges(s *Session) {
	// A session rolls back if Abort was called, if Close is called with
	// committed=false at any depth, or if the commit hook fails.
	// AcceptChanges exists as an explicit, named call site mirroring
	// spec.md's API; it has no effect on that outcome.
}

// Close decrements the nesting depth; only the outermost call
// triggers commit or rollback (spec.md §4.6). committed=false at any
// depth marks the whole session aborted.
func (m *Manager) Close(ctx context.Context, s *Session, committed bool) error {
	s.mu.Lock()
	s.depth--
	outermost := s.depth == 0
	if !committed {
		s.aborted = true
	}
	s.mu.Unlock()

	if !outermost {
		return nil
	}

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	return m.finish(ctx, s)
}

func (m *Manager) finish(ctx context.Context, s *Session) error {
	if !s.Aborted() && m.commit != nil {
		if err := m.commit(s); err != nil {
			s.Abort()
			log.Printf("session %d: commit aborted: %v", s.ID(), err)
		}
	}

	if s.Aborted() {
		s.mu.Lock()
		s.mode |= events.Rollback
		forward := make([]events.Event, len(s.events))
		copy(forward, s.events)
		s.mu.Unlock()

		var reversed []events.Event
		for i := len(forward) - 1; i >= 0; i-- {
			reversed = append(reversed, forward[i].Reverse(s.id))
		}
		if m.rollback != nil {
			m.rollback(s, reversed)
		}
	}

	s.mu.Lock()
	s.closed = true
	evs := make([]events.Event, len(s.events))
	copy(evs, s.events)
	info := Info{SessionID: s.id, Events: evs, Aborted: s.aborted, Mode: s.mode}
	s.mu.Unlock()

	m.bus.Emit(Completed, info)
	if info.Aborted {
		return fmt.Errorf("session %d aborted", s.id)
	}
	return nil
}
