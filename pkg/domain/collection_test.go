package domain_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibraryBookDomain(t *testing.T) (*domain.Domain, *schema.Registry) {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.AddSchemaElement(schema.NewElement(schema.Info{ID: "d:Book", SimpleName: "Book", Kind: schema.KindEntity})))
	require.NoError(t, reg.AddSchemaElement(schema.NewElement(schema.Info{ID: "d:Library", SimpleName: "Library", Kind: schema.KindEntity})))

	rel := schema.NewElement(schema.Info{ID: "d:Owns", SimpleName: "Owns", Kind: schema.KindRelationship})
	require.NoError(t, reg.AddSchemaRelationship(&schema.Relationship{
		Element: rel, StartSchemaID: "d:Library", EndSchemaID: "d:Book", Cardinality: schema.OneToMany, Embedded: true,
	}))

	mgr, err := session.NewManager(nil, nil)
	require.NoError(t, err)
	return domain.New("d", reg, mgr), reg
}

// Scenario from spec.md §4.9: the collection's initial item set equals
// every book already owned by the library at construction time.
func TestModelElementCollection_PopulatesFromExistingRelationships(t *testing.T) {
	dom, reg := newLibraryBookDomain(t)
	owns, _ := reg.GetSchemaRelationship("Owns")

	library, err := dom.CreateEntity("Library", "", 0)
	require.NoError(t, err)
	book, err := dom.CreateEntity("Book", "", 0)
	require.NoError(t, err)
	_, err = dom.CreateRelationship("Owns", "", library.ID(), book.ID(), "d:Book", 0)
	require.NoError(t, err)

	coll := domain.NewModelElementCollection(dom, owns, library, false, nil)
	defer coll.Dispose()

	assert.Equal(t, 1, coll.Count())
	assert.Equal(t, book.ID(), coll.ToArray()[0].ID())
}

// Adding a new relationship after construction updates the collection
// via the session-completed subscription, without a manual reload
// (spec.md §4.9).
func TestModelElementCollection_TracksRelationshipAddedLater(t *testing.T) {
	dom, reg := newLibraryBookDomain(t)
	owns, _ := reg.GetSchemaRelationship("Owns")

	library, err := dom.CreateEntity("Library", "", 0)
	require.NoError(t, err)
	coll := domain.NewModelElementCollection(dom, owns, library, false, nil)
	defer coll.Dispose()
	assert.Equal(t, 0, coll.Count())

	book, err := dom.CreateEntity("Book", "", 0)
	require.NoError(t, err)
	_, err = coll.Add(book, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, coll.Count())
	assert.Equal(t, book.ID(), coll.ToArray()[0].ID())
}

// Removing the relationship drops the element from the collection
// (spec.md §4.9).
func TestModelElementCollection_TracksRelationshipRemoved(t *testing.T) {
	dom, reg := newLibraryBookDomain(t)
	owns, _ := reg.GetSchemaRelationship("Owns")

	library, err := dom.CreateEntity("Library", "", 0)
	require.NoError(t, err)
	book, err := dom.CreateEntity("Book", "", 0)
	require.NoError(t, err)

	coll := domain.NewModelElementCollection(dom, owns, library, false, nil)
	defer coll.Dispose()

	_, err = coll.Add(book, 0)
	require.NoError(t, err)
	require.Equal(t, 1, coll.Count())

	require.NoError(t, coll.Remove(book, 0))
	assert.Equal(t, 0, coll.Count())
}

// A filter predicate excludes matching relationships whose terminal
// element fails it (spec.md §4.9).
func TestModelElementCollection_FilterExcludesNonMatchingTerminal(t *testing.T) {
	dom, reg := newLibraryBookDomain(t)
	owns, _ := reg.GetSchemaRelationship("Owns")

	library, err := dom.CreateEntity("Library", "", 0)
	require.NoError(t, err)
	excluded, err := dom.CreateEntity("Book", "", 0)
	require.NoError(t, err)

	alwaysFalse := func(*domain.ModelElement) bool { return false }
	coll := domain.NewModelElementCollection(dom, owns, library, false, alwaysFalse)
	defer coll.Dispose()

	_, err = coll.Add(excluded, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, coll.Count())
}

// Dispose unsubscribes the collection; further committed sessions no
// longer change its item set (spec.md §4.9, §5).
func TestModelElementCollection_DisposeStopsTracking(t *testing.T) {
	dom, reg := newLibraryBookDomain(t)
	owns, _ := reg.GetSchemaRelationship("Owns")

	library, err := dom.CreateEntity("Library", "", 0)
	require.NoError(t, err)
	book, err := dom.CreateEntity("Book", "", 0)
	require.NoError(t, err)

	coll := domain.NewModelElementCollection(dom, owns, library, false, nil)
	coll.Dispose()

	_, err = dom.CreateRelationship("Owns", "", library.ID(), book.ID(), "d:Book", 0)
	require.NoError(t, err)

	assert.Equal(t, 0, coll.Count())
}
