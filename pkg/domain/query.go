package domain

import "github.com/orneryd/hyperstore/pkg/cursor"

// ReferenceResolver builds a cursor.ReferenceResolver closed over d: a
// Query configuration key resolves to a sub-query only when it names a
// schema.ReferenceDescriptor on the element's own schema (spec.md
// §4.2, §4.8) — in which case it walks the descriptor's relationship
// edge via FindRelationships and maps each edge to its opposite
// terminal, the same traversal applyPOCOReference uses to expand
// reference properties on load.
func (d *Domain) ReferenceResolver() cursor.ReferenceResolver {
	return func(el cursor.Element, name string) ([]cursor.Element, bool) {
		schemaEl, ok := d.registry.GetSchemaElement(el.SchemaID())
		if !ok {
			return nil, false
		}
		ref, ok := schemaEl.GetReference(name)
		if !ok {
			return nil, false
		}
		rel, ok := d.registry.GetSchemaRelationship(ref.RelationshipID)
		if !ok {
			return nil, true
		}

		owner, ok := d.cacheGet(el.ID())
		if !ok {
			return nil, true
		}

		var edges []*ModelElement
		if ref.Opposite {
			edges = d.FindRelationships(rel.Element, nil, owner)
		} else {
			edges = d.FindRelationships(rel.Element, owner, nil)
		}

		out := make([]cursor.Element, 0, len(edges))
		for _, edge := range edges {
			terminalID := edge.EndID()
			if ref.Opposite {
				terminalID = edge.StartID()
			}
			if m, ok := d.cacheGet(terminalID); ok {
				out = append(out, m)
			}
		}
		return out, true
	}
}

// Query runs the spec.md §4.8 Query cursor over roots, resolving
// reference configuration keys into sub-queries through this domain's
// schema registry.
func (d *Domain) Query(roots []*ModelElement, config cursor.Config) []cursor.Element {
	items := make([]cursor.Element, len(roots))
	for i, m := range roots {
		items[i] = m
	}
	return cursor.Query(items, config, d.ReferenceResolver())
}
