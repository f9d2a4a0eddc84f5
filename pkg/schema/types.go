// Package schema implements the schema registry described in spec.md
// §2.2 and §4.2: interning of schema elements by id and simple name,
// reference descriptors for relationship-carried properties, single
// inheritance, and the per-schema Check/Validate constraint list of
// §4.3.
//
// The registry follows the teacher's SchemaManager shape
// (pkg/storage/schema.go in the nornicdb example): a single RWMutex-
// guarded struct owning several name-keyed maps, case-insensitive
// lookups, and "Duplicate X" errors on collision — generalized here
// from Neo4j labels/constraints/indexes to entity/relationship/value-
// object/primitive schema elements.
package schema

// Kind discriminates the four schema element kinds from spec.md §3.
type Kind string

const (
	KindEntity       Kind = "Entity"
	KindRelationship Kind = "Relationship"
	KindValueObject  Kind = "ValueObject"
	KindPrimitive    Kind = "Primitive"
)

// Cardinality enumerates the four relationship cardinalities from
// spec.md §3 (SchemaRelationship.cardinality).
type Cardinality string

const (
	OneToOne   Cardinality = "1-1"
	OneToMany  Cardinality = "1-*"
	ManyToOne  Cardinality = "*-1"
	ManyToMany Cardinality = "*-*"
)

// EndIsCollection reports whether the reachable end of a relationship
// with this cardinality is a collection, viewed from the given side.
// Used by the registry to stamp ReferenceDescriptor.IsCollection
// (spec.md §4.2).
func (c Cardinality) EndIsCollection(fromStart bool) bool {
	switch c {
	case OneToOne:
		return false
	case OneToMany:
		return fromStart // start sees many ends; end sees one start
	case ManyToOne:
		return !fromStart // start sees one end; end sees many starts
	case ManyToMany:
		return true
	default:
		return false
	}
}

// Info is SchemaInfo from spec.md §3: the immutable identity of a
// schema element.
type Info struct {
	ID         string // "<schemaName>:<local>"
	SimpleName string
	Kind       Kind
}

// PropertyKind distinguishes stored properties from calculated ones
// (spec.md §3, SchemaProperty.kind).
type PropertyKind string

const (
	PropertyNormal     PropertyKind = "Normal"
	PropertyCalculated PropertyKind = "Calculated"
)

// DefaultValueFunc computes a default value on demand; used when a
// SchemaProperty's default is a thunk rather than a literal (spec.md
// §4.5, Domain.getPropertyValue).
type DefaultValueFunc func() any

// Serializer/Deserializer convert a property value to/from its wire
// representation (spec.md §6, "Element serialization").
type Serializer func(value any) any
type Deserializer func(raw any) any

// Property is SchemaProperty from spec.md §3.
type Property struct {
	Name           string
	ValueSchemaID  string // id of the property's value-object or primitive schema
	DefaultLiteral any
	DefaultThunk   DefaultValueFunc
	Serialize      Serializer
	Deserialize    Deserializer
	Kind           PropertyKind
}

// HasDefault reports whether this property declares a default value
// (literal or thunk).
func (p *Property) HasDefault() bool {
	return p.DefaultThunk != nil || p.DefaultLiteral != nil
}

// ResolveDefault materializes the property's default value. A thunk is
// invoked on every call (spec.md §4.5: "if the default is a thunk it is
// invoked each call").
func (p *Property) ResolveDefault() any {
	if p.DefaultThunk != nil {
		return p.DefaultThunk()
	}
	return p.DefaultLiteral
}

// ReferenceDescriptor is attached to a source schema when a
// relationship declares a startProperty/endProperty name (spec.md
// §4.2). It lets callers navigate a relationship by property name
// instead of by schema id.
type ReferenceDescriptor struct {
	Name           string
	Opposite       bool   // true if this descriptor was derived from the "end" side
	RelationshipID string // the SchemaRelationship.ID this descriptor belongs to
	IsCollection   bool
}

// Element is SchemaElement from spec.md §3: an Info plus its own
// properties, references, optional base element (single inheritance),
// and constraint list. Entities, relationships and value-objects are
// all represented by *Element; Relationship additionally embeds
// relationship-only fields (see Relationship below).
//
// Element.sealed marks an element immutable once Seal is called. Nothing
// in the registry or in Domain calls Seal: creating graph nodes of a
// schema leaves its element open to further properties, references and
// constraints.
type Element struct {
	Info
	properties map[string]*Property
	references map[string]*ReferenceDescriptor
	base       *Element
	constraints []Constraint
	sealed     bool
}

// NewElement creates a schema element with no properties, references,
// constraints or base.
func NewElement(info Info) *Element {
	return &Element{
		Info:       info,
		properties: make(map[string]*Property),
		references: make(map[string]*ReferenceDescriptor),
	}
}

// Seal marks the element immutable; subsequent AddProperty/AddReference/
// AddConstraint calls return an error. Sealing is explicit: the element
// is not sealed automatically when nodes of its schema are created.
func (e *Element) Seal() { e.sealed = true }

// Sealed reports whether the element has been sealed.
func (e *Element) Sealed() bool { return e.sealed }

// SetBase sets the element's single base (parent) element, enabling
// isA/getProperty(recurse) traversal (spec.md §4.2).
func (e *Element) SetBase(base *Element) { e.base = base }

// Base returns the element's base element, or nil if it has none.
func (e *Element) Base() *Element { return e.base }

// AddProperty attaches an own property to the element.
func (e *Element) AddProperty(p *Property) error {
	if e.sealed {
		return errSealed(e.ID)
	}
	e.properties[p.Name] = p
	return nil
}

// AddReference attaches a reference descriptor to the element (spec.md
// §4.2, attached by the registry when a relationship declares
// startProperty/endProperty).
func (e *Element) AddReference(r *ReferenceDescriptor) error {
	if e.sealed {
		return errSealed(e.ID)
	}
	e.references[r.Name] = r
	return nil
}

// AddConstraint attaches a Check/Validate constraint to the element
// (spec.md §4.3).
func (e *Element) AddConstraint(c Constraint) error {
	if e.sealed {
		return errSealed(e.ID)
	}
	e.constraints = append(e.constraints, c)
	return nil
}

// OwnProperty returns the element's own (non-inherited) property by
// name.
func (e *Element) OwnProperty(name string) (*Property, bool) {
	p, ok := e.properties[name]
	return p, ok
}

// GetProperty searches for a property bottom-up: first own, then
// (if recurse) the base chain (spec.md §4.2).
func (e *Element) GetProperty(name string, recurse bool) (*Property, bool) {
	if p, ok := e.properties[name]; ok {
		return p, true
	}
	if recurse && e.base != nil {
		return e.base.GetProperty(name, recurse)
	}
	return nil, false
}

// GetReference looks up a reference descriptor by name, walking the
// base chain.
func (e *Element) GetReference(name string) (*ReferenceDescriptor, bool) {
	if r, ok := e.references[name]; ok {
		return r, true
	}
	if e.base != nil {
		return e.base.GetReference(name)
	}
	return nil, false
}

// GetProperties concatenates inherited and own properties. When
// includeInherited is false, only this element's own properties are
// returned.
func (e *Element) GetProperties(includeInherited bool) []*Property {
	var out []*Property
	if includeInherited && e.base != nil {
		out = append(out, e.base.GetProperties(true)...)
	}
	for _, p := range e.properties {
		out = append(out, p)
	}
	return out
}

// Constraints returns the element's own constraint list (spec.md §4.3).
func (e *Element) Constraints() []Constraint {
	return e.constraints
}

// IsA walks the base chain looking for schemaID, including itself.
func (e *Element) IsA(schemaID string) bool {
	for cur := e; cur != nil; cur = cur.base {
		if cur.ID == schemaID {
			return true
		}
	}
	return false
}

// Relationship is SchemaRelationship from spec.md §3: an Element with
// start/end schema ids, a cardinality, an embedded flag, and optional
// reference property names on either end.
type Relationship struct {
	*Element
	StartSchemaID string
	EndSchemaID   string
	Cardinality   Cardinality
	Embedded      bool
	StartProperty string // optional; reference name installed on the start schema
	EndProperty   string // optional; reference name installed on the end schema
}

func errSealed(id string) error {
	return schemaSealedError(id)
}
