package jsonio_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/jsonio"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReferencingTestDomain registers Library/Book/Owns with
// startProperty/endProperty names so the registry attaches
// ReferenceDescriptors (spec.md §4.2), which the POCO loader needs to
// tell a reference-shaped key apart from a plain property.
func newReferencingTestDomain(t *testing.T) *domain.Domain {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.AddSchemaElement(schema.NewElement(schema.Info{ID: "d:Book", SimpleName: "Book", Kind: schema.KindEntity})))
	require.NoError(t, reg.AddSchemaElement(schema.NewElement(schema.Info{ID: "d:Library", SimpleName: "Library", Kind: schema.KindEntity})))

	rel := schema.NewElement(schema.Info{ID: "d:Owns", SimpleName: "Owns", Kind: schema.KindRelationship})
	require.NoError(t, reg.AddSchemaRelationship(&schema.Relationship{
		Element:       rel,
		StartSchemaID: "d:Library",
		EndSchemaID:   "d:Book",
		Cardinality:   schema.OneToMany,
		Embedded:      true,
		StartProperty: "books",   // Library.books -> []Book, collection
		EndProperty:   "library", // Book.library -> Library, singular (opposite side)
	}))

	mgr, err := session.NewManager(nil, nil)
	require.NoError(t, err)
	return domain.New("d", reg, mgr)
}

func TestLoadPOCO_CollectionReferenceCreatesNestedEntitiesAndRelationships(t *testing.T) {
	dom := newReferencingTestDomain(t)

	id, result, err := jsonio.LoadPOCO(dom, "d:Library", []byte(`{
		"id": "1",
		"books": [
			{"id": "2"},
			{"id": "3"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "d:1", id)
	assert.Equal(t, 3, result.EntitiesLoaded, "one library plus two books")
	assert.Equal(t, 2, result.RelationshipsLoaded)

	assert.True(t, dom.ElementExists("d:1"))
	library, err := dom.Get("d:1")
	require.NoError(t, err)

	found := dom.FindRelationships(nil, library, nil)
	assert.Len(t, found, 2)
}

func TestLoadPOCO_RefResolvesToEarlierTaggedObject(t *testing.T) {
	dom := newReferencingTestDomain(t)

	_, result, err := jsonio.LoadPOCO(dom, "d:Library", []byte(`{
		"id": "1",
		"books": [
			{"id": "2", "$id": "book1"},
			{"$ref": "book1"}
		]
	}`))
	require.NoError(t, err)
	// The second "book" resolves to the same element the first one
	// created, so only one book entity and two relationships exist.
	assert.Equal(t, 2, result.EntitiesLoaded, "library plus one distinct book")
	assert.Equal(t, 2, result.RelationshipsLoaded)
}
