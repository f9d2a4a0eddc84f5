package domain

import (
	"context"
	"sync"

	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
)

// ModelElementCollection is the Live Collection of spec.md §4.9: a
// materialized, self-updating many-side view of a relationship, bound
// to one terminal element and a direction (opposite). It subscribes to
// session-completed notifications and stays in sync without the
// caller re-querying.
//
// Modeled on the Undo Manager's subscribe-on-construct,
// unsubscribe-on-Dispose shape (pkg/undo/undo.go): both are Domain
// Adapters reacting to session.Info, one replaying events, this one
// filtering them into a live slice.
type ModelElementCollection struct {
	mu sync.Mutex

	domain   *Domain
	relSchema *schema.Relationship
	source   *ModelElement
	opposite bool
	filter   func(*ModelElement) bool

	items []*ModelElement

	unsubscribe func()
}

// NewModelElementCollection builds and populates a live collection for
// relSchema bound to source. opposite=false tracks rel.end for
// relationships where source is rel.start (the usual "one-to-many
// owned" direction); opposite=true tracks rel.start for relationships
// where source is rel.end. filter, if non-nil, additionally restricts
// membership (spec.md §4.9).
func NewModelElementCollection(d *Domain, relSchema *schema.Relationship, source *ModelElement, opposite bool, filter func(*ModelElement) bool) *ModelElementCollection {
	c := &ModelElementCollection{
		domain:    d,
		relSchema: relSchema,
		source:    source,
		opposite:  opposite,
		filter:    filter,
	}
	c.reload()
	c.unsubscribe = d.sessions.Subscribe(func(_ context.Context, info session.Info) error {
		c.OnSessionCompleted(info)
		return nil
	})
	return c
}

// reload recomputes items from scratch via FindRelationships, matching
// spec.md §4.9's invariant directly rather than incrementally.
func (c *ModelElementCollection) reload() {
	var start, end *ModelElement
	if c.opposite {
		end = c.source
	} else {
		start = c.source
	}

	var out []*ModelElement
	for _, rel := range c.domain.FindRelationships(c.relSchema.Element, start, end) {
		var terminal *ModelElement
		var err error
		if c.opposite {
			terminal, err = c.domain.Get(rel.StartID())
		} else {
			terminal, err = c.domain.Get(rel.EndID())
		}
		if err != nil {
			continue
		}
		if c.filter != nil && !c.filter(terminal) {
			continue
		}
		out = append(out, terminal)
	}

	c.mu.Lock()
	c.items = out
	c.mu.Unlock()
}

// OnSessionCompleted inspects AddRelationship/RemoveRelationship
// events matching this collection's schema and terminal id, applying
// the filter predicate, and updates items incrementally (spec.md
// §4.9). Any other event kind is ignored. Satisfies the Adapter
// interface so a collection can be registered via Domain.AddAdapter
// alongside the Undo Manager.
func (c *ModelElementCollection) OnSessionCompleted(info session.Info) {
	if info.Aborted {
		return
	}

	for _, e := range info.Events {
		switch e.Kind {
		case events.AddRelationship:
			c.applyAdd(e)
		case events.RemoveRelationship:
			c.applyRemove(e)
		}
	}
}

// schemaMatches reports whether eventSchemaID is the collection's
// relationship schema or one of its subtypes, mirroring the isA check
// Domain.FindRelationships applies (pkg/domain/crud.go).
func (c *ModelElementCollection) schemaMatches(eventSchemaID string) bool {
	if eventSchemaID == c.relSchema.ID {
		return true
	}
	el, ok := c.domain.registry.GetSchemaElement(eventSchemaID)
	return ok && el.IsA(c.relSchema.ID)
}

func (c *ModelElementCollection) matches(e events.Event) (terminalID string, ok bool) {
	if !c.schemaMatches(e.SchemaID) {
		return "", false
	}
	if c.opposite {
		if e.EndID != c.source.id {
			return "", false
		}
		return e.StartID, true
	}
	if e.StartID != c.source.id {
		return "", false
	}
	return e.EndID, true
}

func (c *ModelElementCollection) applyAdd(e events.Event) {
	terminalID, ok := c.matches(e)
	if !ok {
		return
	}
	terminal, err := c.domain.Get(terminalID)
	if err != nil {
		return
	}
	if c.filter != nil && !c.filter(terminal) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.items {
		if m.id == terminalID {
			return
		}
	}
	c.items = append(c.items, terminal)
}

func (c *ModelElementCollection) applyRemove(e events.Event) {
	terminalID, ok := c.matches(e)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.items {
		if m.id == terminalID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Count returns the number of elements currently in the collection.
func (c *ModelElementCollection) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ToArray returns a snapshot copy of the collection's current items.
func (c *ModelElementCollection) ToArray() []*ModelElement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ModelElement, len(c.items))
	copy(out, c.items)
	return out
}

// Add creates a new relationship between source and target under
// relSchema (a thin wrapper over Domain.CreateRelationship, spec.md
// §4.9). items updates via the resulting session-completed
// notification, not synchronously.
func (c *ModelElementCollection) Add(target *ModelElement, version int64) (*ModelElement, error) {
	if c.opposite {
		return c.domain.CreateRelationship(c.relSchema.SimpleName, "", target.id, c.source.id, c.source.schemaID, version)
	}
	return c.domain.CreateRelationship(c.relSchema.SimpleName, "", c.source.id, target.id, target.schemaID, version)
}

// Remove removes the relationship between source and target under
// relSchema, if one exists (a thin wrapper over Domain.Remove finding
// the connecting edge first, spec.md §4.9).
func (c *ModelElementCollection) Remove(target *ModelElement, version int64) error {
	var start, end *ModelElement
	if c.opposite {
		start, end = target, c.source
	} else {
		start, end = c.source, target
	}

	for _, rel := range c.domain.FindRelationships(c.relSchema.Element, start, end) {
		return c.domain.Remove(rel.id, version)
	}
	return nil
}

// Dispose unsubscribes the collection from session-completed
// notifications (spec.md §5: "Disposing a Domain disposes every
// Adapter").
func (c *ModelElementCollection) Dispose() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

var _ Adapter = (*ModelElementCollection)(nil)
