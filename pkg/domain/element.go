// Package domain implements the Hyperstore Domain facade (spec.md §3,
// §4.5): create/remove entities and relationships, read/write property
// values, and a materialized ModelElement cache — the layer application
// code actually calls.
//
// Modeled on the teacher's DB facade (pkg/nornicdb/db.go): a single
// struct wrapping a storage engine with Store/Remember/Recall/Link-style
// convenience methods, generalized here from the teacher's fixed
// memory-node shape to schema-driven entities/relationships backed by
// pkg/graph.
package domain

import (
	"github.com/orneryd/hyperstore/pkg/herrors"
	"github.com/orneryd/hyperstore/pkg/schema"
)

// ModelElement is the materialized, schema-aware handle application
// code holds for a live graph node (spec.md §3). It is marked disposed
// when the underlying GraphNode is removed; Disposed reports the flag.
// No operation checks it: a disposed element's accessors keep working
// and nothing returns herrors.DisposedElement for it.
type ModelElement struct {
	id       string
	schemaID string
	domain   *Domain

	// Relationship-only.
	startID       string
	startSchemaID string
	endID         string
	endSchemaID   string
	isRelationship bool

	disposed bool
}

// ElementID satisfies schema.Accessor.
func (m *ModelElement) ElementID() string { return m.id }

// ElementSchemaID satisfies schema.Accessor.
func (m *ModelElement) ElementSchemaID() string { return m.schemaID }

// PropertyValue satisfies schema.Accessor by reading the element's
// current (possibly mid-session) property value from the Hypergraph.
func (m *ModelElement) PropertyValue(name string) (any, bool) {
	node, ok := m.domain.graph.GetProperty(m.id, name)
	if !ok {
		return nil, false
	}
	return node.Value, true
}

// ID returns the element's fully-qualified id (`domain:localPart`).
func (m *ModelElement) ID() string { return m.id }

// SchemaID returns the id of the schema element this node was created
// against.
func (m *ModelElement) SchemaID() string { return m.schemaID }

// IsRelationship reports whether this element is a relationship
// (edge) rather than an entity.
func (m *ModelElement) IsRelationship() bool { return m.isRelationship }

// StartID, EndID and their schema ids are populated only for
// relationship elements.
func (m *ModelElement) StartID() string       { return m.startID }
func (m *ModelElement) StartSchemaID() string { return m.startSchemaID }
func (m *ModelElement) EndID() string         { return m.endID }
func (m *ModelElement) EndSchemaID() string   { return m.endSchemaID }

// Disposed reports whether the element's underlying node has been
// removed from the graph.
func (m *ModelElement) Disposed() bool { return m.disposed }

// requireLive returns herrors.DisposedElement if m has been disposed.
func (m *ModelElement) requireLive() error {
	if m.disposed {
		return herrors.New(herrors.DisposedElement, "element %q has been disposed", m.id)
	}
	return nil
}

var _ schema.Accessor = (*ModelElement)(nil)
