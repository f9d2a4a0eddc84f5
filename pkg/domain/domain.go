package domain

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/graph"
	"github.com/orneryd/hyperstore/pkg/ids"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
)

// Adapter receives a notification after every outermost session close
// (spec.md §5: "Disposing a Domain disposes every Adapter"). Live
// Collections and the Undo Manager are Adapters.
type Adapter interface {
	OnSessionCompleted(info session.Info)
	Dispose()
}

// Domain is the spec.md §4.5 facade over one Hypergraph: it mints ids,
// creates/removes entities and relationships, reads/writes property
// values, and maintains a materialized ModelElement cache.
//
// Modeled on the teacher's DB facade (pkg/nornicdb/db.go): one struct
// wrapping a storage engine with high-level Store/Remember/Recall-style
// methods, generalized here to schema-driven entities/relationships.
type Domain struct {
	mu sync.RWMutex

	name     string
	ids      *ids.Service
	registry *schema.Registry
	graph    *graph.Hypergraph
	sessions *session.Manager
	clock    func() int64

	cache map[string]*ModelElement

	adapters []Adapter
}

// New creates a Domain named name, sharing registry (schema lookups)
// and sessions (the ambient current-session slot) with its owning
// Store.
func New(name string, registry *schema.Registry, sessions *session.Manager) *Domain {
	lname := strings.ToLower(name)
	return &Domain{
		name:     lname,
		ids:      ids.NewService(lname),
		registry: registry,
		graph:    graph.NewHypergraph(lname),
		sessions: sessions,
		clock:    func() int64 { return time.Now().UnixNano() },
		cache:    make(map[string]*ModelElement),
	}
}

// Name returns the domain's lowercase-normalized name.
func (d *Domain) Name() string { return d.name }

// SetClock overrides the version-stamp source (spec.md §3's "defaults
// to wall-clock-derived tick count when not supplied"). Store calls
// this once at construction time using config.Config.ClockTick; tests
// that build a Domain directly keep the wall-clock default.
func (d *Domain) SetClock(clock func() int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// SetCompactionThreshold overrides the hypergraph's tombstone
// compaction trigger (spec.md §10.3's Config.CompactionThreshold).
func (d *Domain) SetCompactionThreshold(n int) {
	d.graph.SetCompactionThreshold(n)
}

// Stats is the live node/edge/property count triple (spec.md §12,
// mirroring the teacher's DB.Stats()/Engine.NodeCount+EdgeCount).
type Stats struct {
	Entities      int
	Relationships int
	Properties    int
}

// Stats reports the domain's current live element counts.
func (d *Domain) Stats() Stats {
	return Stats{
		Entities:      d.graph.NodeCount(),
		Relationships: d.graph.EdgeCount(),
		Properties:    d.graph.PropertyCount(),
	}
}

// Graph exposes the underlying Hypergraph for adapters (e.g. Live
// Collection, Undo Manager) that need direct read access.
func (d *Domain) Graph() *graph.Hypergraph { return d.graph }

// Sequence returns the domain's current id sequence counter.
func (d *Domain) Sequence() int64 { return d.ids.Sequence() }

// Sessions exposes the shared session manager so adapters can
// subscribe to session-completed notifications.
func (d *Domain) Sessions() *session.Manager { return d.sessions }

// Registry exposes the shared schema registry for callers (e.g. the
// JSON Loader) that need to resolve reference descriptors.
func (d *Domain) Registry() *schema.Registry { return d.registry }

// AddAdapter registers an adapter to be disposed alongside the domain
// (spec.md §4.5). The adapter is responsible for subscribing itself
// via Sessions().Subscribe.
func (d *Domain) AddAdapter(a Adapter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.adapters = append(d.adapters, a)
}

// Dispose releases every adapter and clears the materialized cache
// (spec.md §5), marking each cached element disposed. Operations do not
// check that flag, so later calls do not return herrors.DisposedElement.
func (d *Domain) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.adapters {
		a.Dispose()
	}
	for _, m := range d.cache {
		m.disposed = true
	}
	d.adapters = nil
	d.cache = make(map[string]*ModelElement)
}

// withSession runs fn inside the active session, opening one via
// runInSession semantics if none is active (spec.md §5), and closes a
// session it opened itself: committed if fn succeeded, rolled back
// otherwise. A session found already ambient is left for its own
// opener to close.
func (d *Domain) withSession(mode events.Mode, fn func(s *session.Session) error) error {
	s, ambient := d.sessions.Current()
	if !ambient {
		s = d.sessions.Begin(mode)
	}

	err := fn(s)

	if !ambient {
		if closeErr := d.sessions.Close(context.Background(), s, err == nil); err == nil {
			err = closeErr
		}
	}
	return err
}

// cacheGet returns a cached ModelElement, constructing one lazily from
// the underlying GraphNode if necessary (spec.md §3: "Materialized on
// demand from a GraphNode via the Domain cache").
func (d *Domain) cacheGet(id string) (*ModelElement, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if m, ok := d.cache[id]; ok && !m.disposed {
		return m, true
	}

	node, ok := d.graph.GetNode(id)
	if !ok {
		return nil, false
	}

	m := &ModelElement{id: node.ID, schemaID: node.SchemaID, domain: d}
	if node.Kind == graph.KindEdge {
		m.isRelationship = true
		m.startID, m.startSchemaID = node.StartID, node.StartSchemaID
		m.endID, m.endSchemaID = node.EndID, node.EndSchemaID
	}
	d.cache[id] = m
	return m, true
}

func (d *Domain) disposeCached(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.cache[id]; ok {
		m.disposed = true
	}
	delete(d.cache, id)
}
