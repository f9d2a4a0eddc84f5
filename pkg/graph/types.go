// Package graph implements the Hyperstore Hypergraph (spec.md §3, §4.4):
// adjacency storage for entity, relationship and property nodes, with
// tombstone-based removal and cascading deletion along embedded edges.
//
// Modeled on the teacher's pkg/storage (types.go/memory.go): an
// RWMutex-guarded engine holding nodes/edges plus label-style indexes,
// generalized here from Neo4j's label/property-graph shape to the
// schema-id-addressed hypergraph shape spec.md describes.
package graph

import "github.com/orneryd/hyperstore/pkg/events"

// Kind distinguishes the three node shapes a Hypergraph stores
// (spec.md §3's GraphNode.kind).
type Kind int

const (
	KindNode Kind = 1 << iota
	KindEdge
	KindProperty
)

// EdgeInfo is the adjacency-list entry stored in a node's outgoing/
// incoming maps, keyed by edge id (spec.md §3).
type EdgeInfo struct {
	ID          string
	SchemaID    string
	EndID       string
	EndSchemaID string
}

// GraphNode is the single node representation for entities,
// relationships and property values (spec.md §3). Property-only fields
// (Value) and relationship-only fields (StartID, EndID, ...) are zero
// for kinds that do not use them.
type GraphNode struct {
	ID       string
	SchemaID string
	Kind     Kind
	Version  int64

	// Relationship-only.
	StartID       string
	StartSchemaID string
	EndID         string
	EndSchemaID   string
	Embedded      bool
	Both          bool // start == end: single edge recorded in both directions

	// Property-only.
	Value any

	outgoing map[string]EdgeInfo
	incoming map[string]EdgeInfo

	deleted bool
}

// Outgoing returns a copy of the node's outgoing EdgeInfo, keyed by
// edge id (spec.md §3).
func (n *GraphNode) Outgoing() map[string]EdgeInfo { return cloneEdges(n.outgoing) }

// Incoming returns a copy of the node's incoming EdgeInfo, keyed by
// edge id.
func (n *GraphNode) Incoming() map[string]EdgeInfo { return cloneEdges(n.incoming) }

// Deleted reports whether the node has been tombstoned.
func (n *GraphNode) Deleted() bool { return n.deleted }

func cloneEdges(m map[string]EdgeInfo) map[string]EdgeInfo {
	out := make(map[string]EdgeInfo, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// cascadeResult is the ordered event list returned by removeNode:
// property removals, then relationship removals, then entity removals
// (spec.md §4.4 step 4).
type cascadeResult struct {
	properties    []events.Event
	relationships []events.Event
	entities      []events.Event
}

func (c *cascadeResult) all() []events.Event {
	out := make([]events.Event, 0, len(c.properties)+len(c.relationships)+len(c.entities))
	out = append(out, c.properties...)
	out = append(out, c.relationships...)
	out = append(out, c.entities...)
	return out
}
