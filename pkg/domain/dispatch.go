package domain

import (
	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/herrors"
	"github.com/orneryd/hyperstore/pkg/ids"
)

// Dispatch applies e directly to the domain's graph, using e's own id,
// schema and version rather than minting anything new. This is the
// per-domain dispatcher spec.md §4.10 and §4.11 replay through: the
// Undo Manager dispatches reverse events during undo/redo, and the
// JSON Loader dispatches constructed events while loading. Callers are
// responsible for appending e to whatever session is active; Dispatch
// only touches the graph and the materialized-element cache.
func (d *Domain) Dispatch(e events.Event) error {
	switch e.Kind {
	case events.AddEntity:
		if _, err := d.graph.AddNode(e.ID, e.SchemaID, e.Version); err != nil {
			return herrors.Wrap(herrors.DuplicateElement, err, "dispatch AddEntity %q", e.ID)
		}
		if _, local, ok := ids.Split(e.ID); ok {
			d.ids.Observe(local)
		}
		d.mu.Lock()
		delete(d.cache, e.ID)
		d.mu.Unlock()
		d.cacheGet(e.ID)

	case events.RemoveEntity, events.RemoveRelationship:
		// The forward event stream already enumerates every cascaded
		// removal individually, so replay must not cascade again —
		// Rollback suppresses cascade enumeration in RemoveNode.
		if _, err := d.graph.RemoveNode(e.ID, e.Version, events.Rollback); err != nil {
			return herrors.Wrap(herrors.InvalidElement, err, "dispatch %s %q", e.Kind, e.ID)
		}
		d.disposeCached(e.ID)

	case events.AddRelationship:
		embedded := false
		if rel, ok := d.registry.GetSchemaRelationship(e.SchemaID); ok {
			embedded = rel.Embedded
		}
		if _, err := d.graph.AddRelationship(e.ID, e.SchemaID, e.StartID, e.StartSchemaID, e.EndID, e.EndSchemaID, e.Version, embedded); err != nil {
			return herrors.Wrap(herrors.DuplicateElement, err, "dispatch AddRelationship %q", e.ID)
		}
		if _, local, ok := ids.Split(e.ID); ok {
			d.ids.Observe(local)
		}
		d.mu.Lock()
		delete(d.cache, e.ID)
		d.mu.Unlock()
		d.cacheGet(e.ID)

	case events.ChangePropertyValue:
		owner, ok := d.graph.GetNode(e.ID)
		if !ok {
			return herrors.New(herrors.InvalidElement, "dispatch ChangePropertyValue: no live element %q", e.ID)
		}
		if e.RestoresAbsence {
			// Undoing the property's first-ever set: no prior value
			// exists to restore, so the property node itself goes away
			// rather than being left holding nil (spec.md §8 scenario 2).
			d.graph.RemoveProperty(e.ID, e.PropertyName)
			return nil
		}
		if _, err := d.graph.SetProperty(e.ID, owner.SchemaID, e.PropertyName, e.Value, e.Version); err != nil {
			return herrors.Wrap(herrors.InvalidElement, err, "dispatch ChangePropertyValue %q.%q", e.ID, e.PropertyName)
		}

	case events.RemoveProperty:
		d.graph.RemoveProperty(e.ID, e.PropertyName)
	}
	return nil
}
