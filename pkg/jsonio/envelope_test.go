package jsonio_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/domain"
	"github.com/orneryd/hyperstore/pkg/jsonio"
	"github.com/orneryd/hyperstore/pkg/schema"
	"github.com/orneryd/hyperstore/pkg/session"
	"github.com/orneryd/hyperstore/pkg/undo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDomain(t *testing.T) (*domain.Domain, *session.Manager) {
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
	return domain.New("d", reg, mgr), mgr
}

// Scenario 6 from spec.md §8: loading a numeric id 42 advances the
// domain sequence so the next minted id is 43.
func TestLoadEnvelope_ObservesNumericIDsIntoSequence(t *testing.T) {
	dom, _ := newTestDomain(t)

	result, err := jsonio.LoadEnvelope(dom, []byte(`{
		"entities": [{"id": "d:42", "schema": "d:Book", "properties": [{"name": "title", "value": "Dune"}]}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntitiesLoaded)
	assert.True(t, dom.ElementExists("d:42"))

	next, err := dom.CreateEntity("Book", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "d:43", next.ID())
}

func TestLoadEnvelope_IsNotRecordedByUndo(t *testing.T) {
	dom, mgr := newTestDomain(t)
	um := undo.NewManager(mgr, dom.Dispatch)
	defer um.Dispose()

	_, err := jsonio.LoadEnvelope(dom, []byte(`{"entities": [{"id": "d:1", "schema": "d:Book"}]}`))
	require.NoError(t, err)

	_, ok := um.SavePoint()
	assert.False(t, ok, "a Loading-mode session must not be recorded for undo")
}

func TestLoadEnvelope_RelationshipsAfterEntitiesAndRemoval(t *testing.T) {
	dom, _ := newTestDomain(t)

	_, err := jsonio.LoadEnvelope(dom, []byte(`{
		"entities": [
			{"id": "d:1", "schema": "d:Library"},
			{"id": "d:2", "schema": "d:Book"}
		],
		"relationships": [
			{"id": "d:3", "schema": "d:Owns", "startId": "d:1", "endId": "d:2", "endSchemaId": "d:Book"}
		]
	}`))
	require.NoError(t, err)
	assert.True(t, dom.ElementExists("d:3"))

	result, err := jsonio.LoadEnvelope(dom, []byte(`{
		"entities": [{"id": "d:1", "schema": "d:Library", "state": "D"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
	assert.False(t, dom.ElementExists("d:1"), "removal must cascade through the embedded relationship")
	assert.False(t, dom.ElementExists("d:2"))
	assert.False(t, dom.ElementExists("d:3"))
}

func TestLoadEnvelope_ResolvesNumericSchemaIndex(t *testing.T) {
	dom, _ := newTestDomain(t)

	result, err := jsonio.LoadEnvelope(dom, []byte(`{
		"schemas": [{"elements": [{"id": "d:Book", "name": "Book"}]}],
		"entities": [{"id": "d:1", "schema": 0}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntitiesLoaded)
	el, err := dom.Get("d:1")
	require.NoError(t, err)
	assert.Equal(t, "d:Book", el.SchemaID())
}

func TestSaveEnvelope_RoundTripsIntoAFreshDomain(t *testing.T) {
	dom, _ := newTestDomain(t)
	_, err := jsonio.LoadEnvelope(dom, []byte(`{
		"entities": [{"id": "d:1", "schema": "d:Book", "properties": [{"name": "title", "value": "Dune"}]}]
	}`))
	require.NoError(t, err)

	data, err := jsonio.MarshalEnvelope(dom)
	require.NoError(t, err)

	fresh, _ := newTestDomain(t)
	_, err = jsonio.LoadEnvelope(fresh, data)
	require.NoError(t, err)

	el, err := fresh.Get("d:1")
	require.NoError(t, err)
	assert.Equal(t, "d:Book", el.SchemaID())
}
