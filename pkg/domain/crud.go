package domain

import (
	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/graph"
	"github.com/orneryd/hyperstore/pkg/herrors"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
)

// PropertyValue is the {value, oldValue, version} triple returned by
// GetPropertyValue (spec.md §3).
type PropertyValue struct {
	Value    any
	OldValue any
	Version  int64
}

// ElementExists reports whether id is live in this domain.
func (d *Domain) ElementExists(id string) bool {
	return d.graph.HasNode(id)
}

// Get returns the materialized ModelElement for id.
func (d *Domain) Get(id string) (*ModelElement, error) {
	m, ok := d.cacheGet(id)
	if !ok {
		return nil, herrors.New(herrors.InvalidElement, "no live element %q in domain %q", id, d.name)
	}
	return m, nil
}

// CreateEntity mints an id if absent, inserts a node, appends an
// AddEntity event, and materializes the element (spec.md §4.5).
func (d *Domain) CreateEntity(schemaName string, id string, version int64) (*ModelElement, error) {
	info, err := d.registry.GetSchemaInfo(schemaName, true)
	if err != nil {
		return nil, herrors.Wrap(herrors.UnknownSchema, err, "create entity")
	}

	full := d.ids.CreateID(id)
	v := version
	if v == 0 {
		v = d.clock()
	}

	var out *ModelElement
	err = d.withSession(events.Normal, func(s *session.Session) error {
		if _, gerr := d.graph.AddNode(full, info.ID, v); gerr != nil {
			return herrors.Wrap(herrors.DuplicateElement, gerr, "create entity %q", full)
		}
		s.Append(events.NewAddEntity(d.name, full, info.ID, v, true))
		m, ok := d.cacheGet(full)
		if !ok {
			return herrors.New(herrors.InvalidElement, "create entity %q: not found after insert", full)
		}
		out = m
		return nil
	})
	return out, err
}

// CreateRelationship creates a relationship node from startID to
// endID, enforcing that start is a live element in this domain and
// matches the relationship's declared start schema (spec.md §4.5).
func (d *Domain) CreateRelationship(schemaName, id, startID, endID string, endSchemaID string, version int64) (*ModelElement, error) {
	rel, ok := d.registry.GetSchemaRelationship(schemaName)
	if !ok {
		return nil, herrors.New(herrors.UnknownSchema, "unknown relationship schema %q", schemaName)
	}

	start, ok := d.graph.GetNode(startID)
	if !ok {
		return nil, herrors.New(herrors.InvalidElement, "start element %q not live in domain %q", startID, d.name)
	}
	if start.SchemaID != rel.StartSchemaID {
		// start.SchemaID must satisfy the declared start schema, directly
		// or via inheritance; the node only stores the leaf schema id,
		// so inheritance is checked through the registry.
		if startEl, ok := d.registry.GetSchemaElement(start.SchemaID); !ok || !startEl.IsA(rel.StartSchemaID) {
			return nil, herrors.New(herrors.TypeMismatch, "start element %q schema %q does not satisfy %q", startID, start.SchemaID, rel.StartSchemaID)
		}
	}

	full := d.ids.CreateID(id)
	v := version
	if v == 0 {
		v = d.clock()
	}
	if endSchemaID == "" {
		endSchemaID = rel.EndSchemaID
	}

	var out *ModelElement
	err := d.withSession(events.Normal, func(s *session.Session) error {
		if _, gerr := d.graph.AddRelationship(full, rel.ID, startID, start.SchemaID, endID, endSchemaID, v, rel.Embedded); gerr != nil {
			return herrors.Wrap(herrors.DuplicateElement, gerr, "create relationship %q", full)
		}
		s.Append(events.NewAddRelationship(d.name, full, rel.ID, startID, start.SchemaID, endID, endSchemaID, v, true))
		m, ok := d.cacheGet(full)
		if !ok {
			return herrors.New(herrors.InvalidElement, "create relationship %q: not found after insert", full)
		}
		out = m
		return nil
	})
	return out, err
}

// Remove runs the Hypergraph's cascade, pushes every returned event
// into the active session, and disposes the cached ModelElement for
// every removed id (spec.md §4.5).
func (d *Domain) Remove(id string, version int64) error {
	v := version
	if v == 0 {
		v = d.clock()
	}
	return d.withSession(events.Normal, func(s *session.Session) error {
		evs, err := d.graph.RemoveNode(id, v, s.Mode())
		if err != nil {
			return herrors.Wrap(herrors.InvalidElement, err, "remove %q", id)
		}
		for _, e := range evs {
			s.Append(e)
			switch e.Kind {
			case events.RemoveEntity, events.RemoveRelationship:
				d.disposeCached(e.ID)
			}
		}
		return nil
	})
}

// SetPropertyValue requires a live owner, allocates or overwrites the
// property node, advances version, and appends ChangePropertyValue
// with value/oldValue serialized through the property's value-object
// serializer (spec.md §4.5).
func (d *Domain) SetPropertyValue(ownerID string, prop *schema.Property, value any, version int64) error {
	owner, ok := d.graph.GetNode(ownerID)
	if !ok {
		return herrors.New(herrors.InvalidElement, "no live element %q", ownerID)
	}

	v := version
	if v == 0 {
		v = d.clock()
	}

	old, hadOld := d.graph.GetProperty(ownerID, prop.Name)
	var oldValue any
	if hadOld {
		oldValue = old.Value
	} else if prop.HasDefault() {
		oldValue = prop.ResolveDefault()
	}

	serialized := value
	if prop.Serialize != nil {
		serialized = prop.Serialize(value)
	}
	oldSerialized := oldValue
	if prop.Serialize != nil && hadOld {
		oldSerialized = prop.Serialize(oldValue)
	}

	return d.withSession(events.Normal, func(s *session.Session) error {
		if _, err := d.graph.SetProperty(ownerID, owner.SchemaID, prop.Name, serialized, v); err != nil {
			return herrors.Wrap(herrors.InvalidElement, err, "set property %q on %q", prop.Name, ownerID)
		}
		s.Append(events.NewChangePropertyValue(d.name, ownerID, owner.SchemaID, prop.Name, serialized, oldSerialized, hadOld, v))
		return nil
	})
}

// GetPropertyValue returns a fresh PropertyValue triple. When the
// property node is absent but a default exists, the default is
// materialized with version=0 (spec.md §4.5).
func (d *Domain) GetPropertyValue(ownerID string, prop *schema.Property) (PropertyValue, error) {
	if !d.graph.HasNode(ownerID) {
		return PropertyValue{}, herrors.New(herrors.InvalidElement, "no live element %q", ownerID)
	}

	node, ok := d.graph.GetProperty(ownerID, prop.Name)
	if !ok {
		if !prop.HasDefault() {
			return PropertyValue{}, nil
		}
		return PropertyValue{Value: prop.ResolveDefault(), Version: 0}, nil
	}

	value := node.Value
	if prop.Deserialize != nil {
		value = prop.Deserialize(value)
	}
	return PropertyValue{Value: value, Version: node.Version}, nil
}

// FindRelationships returns every relationship edge matching the given
// filters (spec.md §4.5): walking start.outgoings when start is given,
// end.incomings when end is given, or every edge of the schema
// otherwise, always honoring schema-isA-subtype when schemaElement is
// supplied.
func (d *Domain) FindRelationships(schemaElement *schema.Element, start, end *ModelElement) []*ModelElement {
	var out []*ModelElement

	isA := func(id string) bool {
		if schemaElement == nil {
			return true
		}
		el, ok := d.registry.GetSchemaElement(id)
		return ok && el.IsA(schemaElement.ID)
	}

	switch {
	case start != nil:
		node, ok := d.graph.GetNode(start.id)
		if !ok {
			return nil
		}
		for edgeID, info := range node.Outgoing() {
			if end != nil && info.EndID != end.id {
				continue
			}
			if !isA(info.SchemaID) {
				continue
			}
			if m, ok := d.cacheGet(edgeID); ok {
				out = append(out, m)
			}
		}
	case end != nil:
		node, ok := d.graph.GetNode(end.id)
		if !ok {
			return nil
		}
		for edgeID, info := range node.Incoming() {
			if !isA(info.SchemaID) {
				continue
			}
			if m, ok := d.cacheGet(edgeID); ok {
				out = append(out, m)
			}
		}
	default:
		kind := graph.KindEdge
		schemaID := ""
		if schemaElement != nil {
			schemaID = schemaElement.ID
		}
		for _, node := range d.graph.GetNodes(kind, "") {
			if schemaID != "" && !isA(node.SchemaID) {
				continue
			}
			if m, ok := d.cacheGet(node.ID); ok {
				out = append(out, m)
			}
		}
	}

	return out
}

// Find returns every live node of the given kind. A non-empty schemaID
// keeps only nodes whose schema id equals it exactly; subtypes are not
// included. An empty schemaID matches every node of kind.
func (d *Domain) Find(kind graph.Kind, schemaID string) []*ModelElement {
	var out []*ModelElement
	for _, node := range d.graph.GetNodes(kind, schemaID) {
		if m, ok := d.cacheGet(node.ID); ok {
			out = append(out, m)
		}
	}
	return out
}
