// Package store implements the Hyperstore Store (spec.md §2, §5): the
// root aggregate owning the schema registry, every registered Domain,
// the shared session Manager, and the per-domain Undo Managers that
// act as the "dispatcher" spec.md §2 describes Store as owning.
//
// Modeled on the teacher's DB facade (pkg/nornicdb/db.go): a single
// struct constructed with Open/New that wires together the storage
// engine, schema manager and auxiliary subsystems behind one
// RWMutex-guarded handle, generalized here to own N named Domains
// sharing one schema Registry and one session Manager instead of the
// teacher's single fixed storage engine.
package store

import (
	"log"
	"strings"
	"sync"

	"github.com/orneryd/hyperstore/pkg/config"
	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/herrors"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
	"github.com/orneryd/hyperstore/pkg/undo"
)

// Store owns every Domain registered against one schema Registry and
// one session Manager (spec.md §2: "root aggregate owning schemas,
// domains, the dispatcher and the event bus"). Its CommitFunc runs
// Check/Validate constraints across every domain a session touched;
// its RollbackFunc replays reverse events through each touched
// domain's own Dispatch, routed by the event's Domain field.
type Store struct {
	mu sync.RWMutex

	config   *config.Config
	registry *schema.Registry
	sessions *session.Manager

	domains map[string]*domain.Domain
	undoMgr map[string]*undo.Manager
}

// New creates a Store. A nil cfg uses config.DefaultConfig().
func New(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	st := &Store{
		config:   cfg,
		registry: schema.NewRegistry(),
		domains:  make(map[string]*domain.Domain),
		undoMgr:  make(map[string]*undo.Manager),
	}

	mgr, err := session.NewManager(st.commit, st.rollback)
	if err != nil {
		return nil, herrors.Wrap(herrors.InvalidArgument, err, "store: initializing session manager")
	}
	st.sessions = mgr
	return st, nil
}

// Registry exposes the shared schema registry so callers register
// entities/relationships before creating domains that use them.
func (st *Store) Registry() *schema.Registry { return st.registry }

// Sessions exposes the shared session manager (spec.md §4.6:
// beginSession/acceptChanges/close operate against this).
func (st *Store) Sessions() *session.Manager { return st.sessions }

// Config returns the Store's configuration.
func (st *Store) Config() *config.Config { return st.config }

// CreateDomain registers and returns a new Domain named name, wired to
// this Store's shared registry and session manager, with its own Undo
// Manager attached as an adapter (spec.md §4.5, §4.10).
func (st *Store) CreateDomain(name string) *domain.Domain {
	dom := domain.New(name, st.registry, st.sessions)
	dom.SetClock(st.config.ClockTick)
	dom.SetCompactionThreshold(st.config.CompactionThreshold)

	um := undo.NewManager(st.sessions, dom.Dispatch)
	dom.AddAdapter(um)

	st.mu.Lock()
	st.domains[dom.Name()] = dom
	st.undoMgr[dom.Name()] = um
	st.mu.Unlock()

	return dom
}

// Domain returns the registered domain named name, if any.
func (st *Store) Domain(name string) (*domain.Domain, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	d, ok := st.domains[normalizeDomainName(name)]
	return d, ok
}

// Domains returns every registered domain's name.
func (st *Store) Domains() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, 0, len(st.domains))
	for name := range st.domains {
		out = append(out, name)
	}
	return out
}

// Undo pops and replays undo frames for the named domain (spec.md
// §4.10). A nil savePoint pops exactly one frame.
func (st *Store) Undo(domainName string, savePoint *int64) error {
	um, ok := st.undoManager(domainName)
	if !ok {
		return herrors.New(herrors.InvalidArgument, "store: unknown domain %q", domainName)
	}
	return um.Undo(savePoint)
}

// Redo replays the top redo frame for the named domain.
func (st *Store) Redo(domainName string) error {
	um, ok := st.undoManager(domainName)
	if !ok {
		return herrors.New(herrors.InvalidArgument, "store: unknown domain %q", domainName)
	}
	return um.Redo()
}

// SavePoint returns the named domain's current undo save point.
func (st *Store) SavePoint(domainName string) (int64, bool) {
	um, ok := st.undoManager(domainName)
	if !ok {
		return 0, false
	}
	return um.SavePoint()
}

func (st *Store) undoManager(domainName string) (*undo.Manager, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	um, ok := st.undoMgr[normalizeDomainName(domainName)]
	return um, ok
}

// Dispose releases every registered domain and clears the Store's
// domain table (spec.md §5: "Disposing a Domain disposes every
// Adapter, the Hypergraph, the EventManager and clears the cache").
func (st *Store) Dispose() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, dom := range st.domains {
		dom.Dispose()
	}
	st.domains = make(map[string]*domain.Domain)
	st.undoMgr = make(map[string]*undo.Manager)
}

// commit is the session.CommitFunc wired into the shared session
// Manager (spec.md §4.6 steps 1-2): it resolves every element touched
// by s's events back to its owning domain and schema element, runs
// Check constraints (aborting on the first ErrorFlag failure) and then
// Validate constraints (diagnostics only, logged rather than fatal).
func (st *Store) commit(s *session.Session) error {
	touched := collectTouched(s.Events())
	if len(touched) == 0 {
		return nil
	}

	var diags schema.Diagnostics
	for key, props := range touched {
		dom, ok := st.Domain(key.domain)
		if !ok {
			continue
		}
		el, err := dom.Get(key.id)
		if err != nil {
			// Removed later in the same session; nothing live to check.
			continue
		}
		schemaEl, ok := st.registry.GetSchemaElement(el.SchemaID())
		if !ok {
			continue
		}

		if aborting := schema.RunChecks(schemaEl, el, "", &diags); aborting != nil {
			return herrors.New(herrors.ConstraintError, "check failed on %q: %s", el.ID(), aborting.Message)
		}
		for prop := range props {
			if prop == "" {
				continue
			}
			if aborting := schema.RunChecks(schemaEl, el, prop, &diags); aborting != nil {
				return herrors.New(herrors.ConstraintError, "check failed on %q.%q: %s", el.ID(), prop, aborting.Message)
			}
		}
		schema.RunValidations(schemaEl, el, &diags)
	}

	for _, d := range diags.Entries() {
		if d.Kind == schema.Validate {
			log.Printf("store: validate diagnostic on %s (%s): %s", d.ElementID, d.Property, d.Message)
		}
	}
	return nil
}

// rollback is the session.RollbackFunc wired into the shared session
// Manager (spec.md §4.6 "On rollback"): it dispatches every reversed
// event through the domain named by its Domain field, so a rollback
// spanning several domains (e.g. a cascade that crossed a relationship
// between domains) unwinds each one correctly.
func (st *Store) rollback(s *session.Session, reversed []events.Event) {
	for _, e := range reversed {
		dom, ok := st.Domain(e.Domain)
		if !ok {
			continue
		}
		if err := dom.Dispatch(e); err != nil {
			log.Printf("store: rollback dispatch failed for session %d on %s: %v", s.ID(), e.ID, err)
		}
	}
}

type touchedKey struct {
	domain string
	id     string
}

// collectTouched reduces a session's events to the set of (domain, id)
// pairs that need a commit-time constraint check, along with which
// property names changed on each. Add events are recorded with an
// empty-string property (element-level check only); removals are
// skipped since there is nothing live left to check.
func collectTouched(evs []events.Event) map[touchedKey]map[string]bool {
	out := make(map[touchedKey]map[string]bool)
	touch := func(domainName, id, prop string) {
		key := touchedKey{domain: domainName, id: id}
		if out[key] == nil {
			out[key] = make(map[string]bool)
		}
		if prop != "" {
			out[key][prop] = true
		}
	}

	for _, e := range evs {
		switch e.Kind {
		case events.AddEntity, events.AddRelationship:
			touch(e.Domain, e.ID, "")
		case events.ChangePropertyValue:
			touch(e.Domain, e.ID, e.PropertyName)
		}
	}
	return out
}

// normalizeDomainName mirrors Domain.Name()'s lowercase normalization
// so a lookup by either case succeeds, the way the registry's
// case-insensitive lookups do (spec.md §4.2).
func normalizeDomainName(name string) string { return strings.ToLower(name) }
