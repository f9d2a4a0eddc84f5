package jsonio

import (
	"encoding/json"

	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/graph"
)

// SaveEnvelope serializes every live entity and relationship in dom
// into the envelope form (spec.md §6), with each property emitted as
// its current (already-serialized) value. The envelope carries no
// `schemas` block; schema fields are always written as full ids.
func SaveEnvelope(dom *domain.Domain) *Envelope {
	env := &Envelope{}

	for _, el := range dom.Find(graph.KindNode, "") {
		env.Entities = append(env.Entities, EntityDecl{
			ID:         el.ID(),
			Schema:     el.SchemaID(),
			Properties: properties(dom, el.ID()),
		})
	}

	for _, el := range dom.Find(graph.KindEdge, "") {
		env.Relationships = append(env.Relationships, RelationshipDecl{
			ID:          el.ID(),
			Schema:      el.SchemaID(),
			StartID:     el.StartID(),
			EndID:       el.EndID(),
			EndSchemaID: el.EndSchemaID(),
			Properties:  properties(dom, el.ID()),
		})
	}

	return env
}

// MarshalEnvelope is SaveEnvelope followed by JSON encoding.
func MarshalEnvelope(dom *domain.Domain) ([]byte, error) {
	return json.Marshal(SaveEnvelope(dom))
}

func properties(dom *domain.Domain, ownerID string) []PropertyDecl {
	names := dom.Graph().PropertyNames(ownerID)
	if len(names) == 0 {
		return nil
	}
	out := make([]PropertyDecl, 0, len(names))
	for _, name := range names {
		node, ok := dom.Graph().GetProperty(ownerID, name)
		if !ok {
			continue
		}
		out = append(out, PropertyDecl{Name: name, Value: node.Value})
	}
	return out
}
