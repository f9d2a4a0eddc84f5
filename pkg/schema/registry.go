package schema

import (
	"fmt"
	"strings"
	"sync"
)

// ambiguous is the sentinel stored in Registry.byName when two
// elements register under the same simple name — spec.md §4.2: "Simple-
// name lookup returns the element only when unambiguous; collision
// marks the entry as a sentinel and future simple-name lookups fail."
var ambiguous = &Element{}

// Registry interns schema elements by full id and by unqualified
// (simple) name, and keeps the registered relationships in a list that
// Registry.GetSchemaRelationships filters by start/end schema id. It is
// the spec.md §2.2/§4.2 Schema Registry.
//
// Modeled on the teacher's SchemaManager (pkg/storage/schema.go): a
// single RWMutex-guarded struct holding name-keyed maps, generalized
// here from Neo4j constraints/indexes to schema elements.
type Registry struct {
	mu            sync.RWMutex
	byID          map[string]*Element
	byName        map[string]*Element // may hold the `ambiguous` sentinel
	relationships []*Relationship
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*Element),
		byName: make(map[string]*Element),
	}
}

func normalize(s string) string { return strings.ToLower(s) }

// AddSchemaElement interns el by its full id and simple name. Returns
// ErrDuplicateSchema if the id already exists (case-insensitive, per
// spec.md §4.2 and Open Question (c)). A second element with a simple
// name already seen marks that name ambiguous for future lookups,
// rather than failing the add.
func (r *Registry) AddSchemaElement(el *Element) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalize(el.ID)
	if _, exists := r.byID[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSchema, el.ID)
	}
	r.byID[key] = el

	nameKey := normalize(el.SimpleName)
	if existing, ok := r.byName[nameKey]; ok && existing != ambiguous {
		r.byName[nameKey] = ambiguous
	} else if !ok {
		r.byName[nameKey] = el
	}

	return nil
}

// AddSchemaRelationship interns a relationship element and, if it
// declares startProperty/endProperty, attaches ReferenceDescriptors to
// the corresponding start/end schema elements (spec.md §4.2).
func (r *Registry) AddSchemaRelationship(rel *Relationship) error {
	if err := r.AddSchemaElement(rel.Element); err != nil {
		return err
	}

	r.mu.Lock()
	r.relationships = append(r.relationships, rel)
	r.mu.Unlock()

	if rel.StartProperty != "" {
		if start, ok := r.GetSchemaElement(rel.StartSchemaID); ok {
			_ = start.AddReference(&ReferenceDescriptor{
				Name:           rel.StartProperty,
				Opposite:       false,
				RelationshipID: rel.ID,
				IsCollection:   rel.Cardinality.EndIsCollection(true),
			})
		}
	}
	if rel.EndProperty != "" {
		if end, ok := r.GetSchemaElement(rel.EndSchemaID); ok {
			_ = end.AddReference(&ReferenceDescriptor{
				Name:           rel.EndProperty,
				Opposite:       true,
				RelationshipID: rel.ID,
				IsCollection:   rel.Cardinality.EndIsCollection(false),
			})
		}
	}
	return nil
}

// GetSchemaInfo resolves name — a full id or a simple name — to a
// schema element. If throwing is true, failure to resolve (unknown or
// ambiguous) returns an error; otherwise it returns a nil element and
// a nil error.
func (r *Registry) GetSchemaInfo(name string, throwing bool) (*Element, error) {
	el, err := r.lookup(name)
	if err != nil && throwing {
		return nil, err
	}
	return el, nil
}

func (r *Registry) lookup(name string) (*Element, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := normalize(name)
	if el, ok := r.byID[key]; ok {
		return el, nil
	}
	if el, ok := r.byName[key]; ok {
		if el == ambiguous {
			return nil, fmt.Errorf("%w: %q", ErrAmbiguousSchema, name)
		}
		return el, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

// GetSchemaElement returns the element for name (id or simple name)
// without throwing; ok is false if unknown or ambiguous.
func (r *Registry) GetSchemaElement(name string) (*Element, bool) {
	el, err := r.lookup(name)
	if err != nil {
		return nil, false
	}
	return el, true
}

// GetSchemaEntity is GetSchemaElement restricted to KindEntity.
func (r *Registry) GetSchemaEntity(name string) (*Element, bool) {
	el, ok := r.GetSchemaElement(name)
	if !ok || el.Kind != KindEntity {
		return nil, false
	}
	return el, true
}

// GetSchemaRelationship is GetSchemaElement restricted to
// KindRelationship, returning the *Relationship view.
func (r *Registry) GetSchemaRelationship(name string) (*Relationship, bool) {
	el, ok := r.GetSchemaElement(name)
	if !ok || el.Kind != KindRelationship {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rel := range r.relationships {
		if rel.Element == el {
			return rel, true
		}
	}
	return nil, false
}

// GetSchemaRelationships returns every registered relationship whose
// start/end schema matches the given filters. A nil filter matches any
// schema on that side (spec.md §4.2).
func (r *Registry) GetSchemaRelationships(start, end *string) []*Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Relationship
	for _, rel := range r.relationships {
		if start != nil && !normalizedEquals(rel.StartSchemaID, *start) {
			continue
		}
		if end != nil && !normalizedEquals(rel.EndSchemaID, *end) {
			continue
		}
		out = append(out, rel)
	}
	return out
}

func normalizedEquals(a, b string) bool { return normalize(a) == normalize(b) }
