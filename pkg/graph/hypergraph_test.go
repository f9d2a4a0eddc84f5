package graph_test

import (
	"testing"

	"github.com/orneryd/hyperstore/pkg/events"
	"github.com/orneryd/hyperstore/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode_DuplicateFails(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, err := g.AddNode("lib:1", "lib:Book", 1)
	require.NoError(t, err)

	_, err = g.AddNode("lib:1", "lib:Book", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrDuplicateElement)
}

func TestAddRelationship_UnknownStartFails(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, err := g.AddNode("lib:2", "lib:Book", 1)
	require.NoError(t, err)

	_, err = g.AddRelationship("lib:3", "lib:Owns", "lib:missing", "lib:Library", "lib:2", "lib:Book", 1, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrInvalidStart)
}

func TestAddRelationship_SymmetricAdjacency(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:1", "lib:Library", 1)
	_, _ = g.AddNode("lib:2", "lib:Book", 1)

	rel, err := g.AddRelationship("lib:3", "lib:Owns", "lib:1", "lib:Library", "lib:2", "lib:Book", 1, true)
	require.NoError(t, err)
	assert.True(t, rel.Embedded)

	start, _ := g.GetNode("lib:1")
	end, _ := g.GetNode("lib:2")
	assert.Contains(t, start.Outgoing(), "lib:3")
	assert.Contains(t, end.Incoming(), "lib:3")
}

func TestRemoveNode_CascadesThroughEmbeddedRelationship(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:1", "lib:Library", 1)
	_, _ = g.AddNode("lib:2", "lib:Book", 1)
	_, err := g.AddRelationship("lib:3", "lib:Owns", "lib:1", "lib:Library", "lib:2", "lib:Book", 1, true)
	require.NoError(t, err)

	evs, err := g.RemoveNode("lib:1", 2, events.Normal)
	require.NoError(t, err)

	// spec.md §8 scenario 3: the embedded child (Book) is removed
	// before its owner (Library), so a reverse-replay recreates the
	// owner before the child that references it.
	var kinds []events.Kind
	var ids []string
	for _, e := range evs {
		kinds = append(kinds, e.Kind)
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []events.Kind{events.RemoveRelationship, events.RemoveEntity, events.RemoveEntity}, kinds)
	assert.Equal(t, []string{"lib:3", "lib:2", "lib:1"}, ids, "embedded child must be removed before its owner")

	assert.False(t, g.HasNode("lib:1"))
	assert.False(t, g.HasNode("lib:2"), "embedded end must be cascaded away")
	assert.False(t, g.HasNode("lib:3"))

	var topLevels int
	for _, e := range evs {
		if e.ID == "lib:1" && e.TopLevel {
			topLevels++
		}
	}
	assert.Equal(t, 1, topLevels)
}

func TestRemoveNode_NonEmbeddedLeavesOtherSideLive(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:a", "lib:Person", 1)
	_, _ = g.AddNode("lib:b", "lib:Person", 1)
	_, err := g.AddRelationship("lib:r", "lib:Knows", "lib:a", "lib:Person", "lib:b", "lib:Person", 1, false)
	require.NoError(t, err)

	_, err = g.RemoveNode("lib:a", 2, events.Normal)
	require.NoError(t, err)

	assert.False(t, g.HasNode("lib:a"))
	assert.True(t, g.HasNode("lib:b"), "non-embedded relationship must not cascade to the other endpoint")
	assert.False(t, g.HasNode("lib:r"))
}

func TestRemoveNode_SuppressesCascadeInRollbackMode(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:1", "lib:Library", 1)
	_, _ = g.AddNode("lib:2", "lib:Book", 1)
	_, err := g.AddRelationship("lib:3", "lib:Owns", "lib:1", "lib:Library", "lib:2", "lib:Book", 1, true)
	require.NoError(t, err)

	evs, err := g.RemoveNode("lib:1", 2, events.Rollback)
	require.NoError(t, err)
	require.Len(t, evs, 1, "rollback mode must not cascade")
	assert.True(t, g.HasNode("lib:2"))
	assert.True(t, g.HasNode("lib:3"))
}

func TestSetGetRemoveProperty(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:1", "lib:Book", 1)

	_, err := g.SetProperty("lib:1", "lib:Book", "title", "Dune", 1)
	require.NoError(t, err)

	p, ok := g.GetProperty("lib:1", "title")
	require.True(t, ok)
	assert.Equal(t, "Dune", p.Value)

	removed, ok := g.RemoveProperty("lib:1", "title")
	require.True(t, ok)
	assert.Equal(t, "Dune", removed.Value)

	_, ok = g.GetProperty("lib:1", "title")
	assert.False(t, ok)
}

func TestRemoveNode_CascadesPropertyRemovals(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:1", "lib:Book", 1)
	_, _ = g.SetProperty("lib:1", "lib:Book", "title", "Dune", 1)

	evs, err := g.RemoveNode("lib:1", 2, events.Normal)
	require.NoError(t, err)

	require.Len(t, evs, 2)
	assert.Equal(t, events.RemoveProperty, evs[0].Kind, "property removals must precede entity removals")
	assert.Equal(t, events.RemoveEntity, evs[1].Kind)
}

func TestGetNodes_FiltersByKindAndExactSchema(t *testing.T) {
	g := graph.NewHypergraph("lib")
	_, _ = g.AddNode("lib:1", "lib:Book", 1)
	_, _ = g.AddNode("lib:2", "lib:Magazine", 1)

	books := g.GetNodes(graph.KindNode, "lib:Book")
	require.Len(t, books, 1)
	assert.Equal(t, "lib:1", books[0].ID)

	all := g.GetNodes(graph.KindNode, "")
	assert.Len(t, all, 2)
}
