package graph

import (
	"fmt"
	"sync"

	"github.com/orneryd/hyperstore/pkg/events"
)

// DefaultCompactionThreshold is the tombstone count at which a
// Hypergraph rebuilds its backing sequence (spec.md §4.4: "≈1000").
const DefaultCompactionThreshold = 1000

// Hypergraph is the spec.md §4.4 adjacency store: entity and
// relationship nodes live in an ordered sequence with a key→index map
// for O(1) lookup; property nodes live in a separate dictionary keyed
// by ownerId+propertyName.
//
// Modeled on the teacher's MemoryEngine (pkg/storage/memory.go): one
// RWMutex guarding parallel maps/slices, generalized from
// label-indexed nodes/edges to schema-id-addressed hypergraph nodes
// with tombstone compaction instead of eager delete-and-reindex.
type Hypergraph struct {
	mu sync.RWMutex

	domain string

	nodes []*GraphNode   // entity/relationship nodes; tombstoned slots are nil
	index map[string]int // id -> slot in nodes, or -1 once tombstoned

	properties      map[string]*GraphNode      // ownerId+"\x00"+propName -> property node
	propertiesByOwner map[string]map[string]bool // ownerId -> set of propName

	tombstones          int
	compactionThreshold int
}

// NewHypergraph creates an empty Hypergraph for the given domain name.
func NewHypergraph(domain string) *Hypergraph {
	return &Hypergraph{
		domain:              domain,
		index:               make(map[string]int),
		properties:          make(map[string]*GraphNode),
		propertiesByOwner:   make(map[string]map[string]bool),
		compactionThreshold: DefaultCompactionThreshold,
	}
}

// SetCompactionThreshold overrides the tombstone count that triggers
// compaction, for callers that configure it away from
// DefaultCompactionThreshold (spec.md §10.3's Config.CompactionThreshold).
func (g *Hypergraph) SetCompactionThreshold(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.compactionThreshold = n
}

func propertyKey(ownerID, propName string) string { return ownerID + "\x00" + propName }

// AddNode inserts a new entity node. Fails with ErrDuplicateElement if
// id is already live (spec.md §4.4).
func (g *Hypergraph) AddNode(id, schemaID string, version int64) (*GraphNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.isLive(id) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateElement, id)
	}

	n := &GraphNode{ID: id, SchemaID: schemaID, Kind: KindNode, Version: version,
		outgoing: make(map[string]EdgeInfo), incoming: make(map[string]EdgeInfo)}
	g.insert(n)
	return n, nil
}

// AddRelationship inserts a new relationship node between startId and
// endId. Fails with ErrInvalidStart if startId is not live. If endId is
// not live, the edge is still created (its target may live in another
// domain) but no incoming edge is recorded there. If startId==endId, a
// single Both-direction edge is recorded (spec.md §4.4).
func (g *Hypergraph) AddRelationship(id, schemaID, startID, startSchemaID, endID, endSchemaID string, version int64, embedded bool) (*GraphNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.isLive(id) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateElement, id)
	}
	start, ok := g.get(startID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStart, startID)
	}

	n := &GraphNode{
		ID: id, SchemaID: schemaID, Kind: KindEdge, Version: version,
		StartID: startID, StartSchemaID: startSchemaID,
		EndID: endID, EndSchemaID: endSchemaID,
		Embedded: embedded, Both: startID == endID,
		outgoing: make(map[string]EdgeInfo), incoming: make(map[string]EdgeInfo),
	}
	g.insert(n)

	info := EdgeInfo{ID: id, SchemaID: schemaID, EndID: endID, EndSchemaID: endSchemaID}
	start.outgoing[id] = info

	if end, ok := g.get(endID); ok {
		backInfo := EdgeInfo{ID: id, SchemaID: schemaID, EndID: startID, EndSchemaID: startSchemaID}
		if n.Both {
			end.outgoing[id] = backInfo
		} else {
			end.incoming[backInfo.ID] = EdgeInfo{ID: id, SchemaID: schemaID, EndID: startID, EndSchemaID: startSchemaID}
		}
	}

	return n, nil
}

// GetNode returns the live node for id.
func (g *Hypergraph) GetNode(id string) (*GraphNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.get(id)
}

// HasNode reports whether id is live.
func (g *Hypergraph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isLive(id)
}

// SetProperty creates or overwrites the property node keyed by
// ownerId+propName. ownerId must be live.
func (g *Hypergraph) SetProperty(ownerID, schemaID, propName string, value any, version int64) (*GraphNode, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.isLive(ownerID) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, ownerID)
	}

	key := propertyKey(ownerID, propName)
	n := &GraphNode{ID: key, SchemaID: schemaID, Kind: KindProperty, Version: version, Value: value}
	g.properties[key] = n

	if g.propertiesByOwner[ownerID] == nil {
		g.propertiesByOwner[ownerID] = make(map[string]bool)
	}
	g.propertiesByOwner[ownerID][propName] = true

	return n, nil
}

// GetProperty returns the property node for ownerId+propName, if any.
func (g *Hypergraph) GetProperty(ownerID, propName string) (*GraphNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.properties[propertyKey(ownerID, propName)]
	return n, ok
}

// PropertyNames returns the names of every property node currently set
// on ownerID (unordered). Used by the JSON save path to enumerate an
// element's properties without the caller knowing them in advance.
func (g *Hypergraph) PropertyNames(ownerID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := g.propertiesByOwner[ownerID]
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	return out
}

// RemoveProperty deletes the property node for ownerId+propName.
func (g *Hypergraph) RemoveProperty(ownerID, propName string) (*GraphNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removePropertyLocked(ownerID, propName)
}

func (g *Hypergraph) removePropertyLocked(ownerID, propName string) (*GraphNode, bool) {
	key := propertyKey(ownerID, propName)
	n, ok := g.properties[key]
	if !ok {
		return nil, false
	}
	delete(g.properties, key)
	delete(g.propertiesByOwner[ownerID], propName)
	return n, true
}

// GetNodes returns every live node whose Kind bit matches kind and,
// when schemaID is non-empty, whose SchemaID equals it exactly (no
// isA widening — spec.md §4.4). The result is a plain slice; pkg/domain
// consumes it directly.
func (g *Hypergraph) GetNodes(kind Kind, schemaID string) []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n == nil || n.deleted {
			continue
		}
		if n.Kind&kind == 0 {
			continue
		}
		if schemaID != "" && n.SchemaID != schemaID {
			continue
		}
		out = append(out, n)
	}
	return out
}

// NodeCount returns the number of live KindNode entities.
func (g *Hypergraph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, node := range g.nodes {
		if node != nil && !node.deleted && node.Kind == KindNode {
			n++
		}
	}
	return n
}

// PropertyCount returns the number of live property nodes.
func (g *Hypergraph) PropertyCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.properties)
}

// EdgeCount returns the number of live KindEdge relationships.
func (g *Hypergraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, node := range g.nodes {
		if node != nil && !node.deleted && node.Kind == KindEdge {
			n++
		}
	}
	return n
}

// RemoveNode implements the cascading deletion of spec.md §4.4.
//
// In Rollback or Undo/Redo mode, cascade enumeration is suppressed —
// only the requested id is removed, because the reverse event stream
// already carries the individual removals for everything else. The
// returned events are ordered property removals, then relationship
// removals, then entity removals.
func (g *Hypergraph) RemoveNode(id string, version int64, mode events.Mode) ([]events.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.isLive(id) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	suppressed := mode.Has(events.Rollback) || mode.IsUndoOrRedo()

	var order []*GraphNode
	visited := make(map[string]bool)
	queue := []string{id}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		node, ok := g.get(cur)
		if !ok {
			continue
		}
		order = append(order, node)

		if suppressed {
			continue
		}
		for edgeID := range node.outgoing {
			queue = append(queue, edgeID)
		}
		for edgeID := range node.incoming {
			queue = append(queue, edgeID)
		}
		if node.Kind == KindEdge && node.Embedded {
			queue = append(queue, node.EndID)
		}
	}

	result := &cascadeResult{}
	for _, node := range order {
		g.unlink(node)

		topLevel := node.ID == id
		switch node.Kind {
		case KindEdge:
			result.relationships = append(result.relationships, events.NewRemoveRelationship(
				g.domain, node.ID, node.SchemaID, node.StartID, node.StartSchemaID, node.EndID, node.EndSchemaID, version, topLevel))
		default:
			result.entities = append(result.entities, events.NewRemoveEntity(g.domain, node.ID, node.SchemaID, version, topLevel))
		}

		for propName := range g.propertiesByOwner[node.ID] {
			if propNode, ok := g.removePropertyLocked(node.ID, propName); ok {
				result.properties = append(result.properties, events.NewRemoveProperty(g.domain, node.ID, node.SchemaID, propName, propNode.Value, version))
			}
		}

		g.tombstone(node.ID)
	}

	if g.tombstones > g.compactionThreshold {
		g.compact()
	}

	// BFS discovers an owner before the embedded children it cascades
	// into, so result.entities/relationships come out owner-first.
	// spec.md §4.4 step 4 and §8 scenario 3 require the reverse: every
	// child removed before its owner, so a later reverse-replay
	// recreates the owner before the child that references it.
	reverseEvents(result.entities)
	reverseEvents(result.relationships)

	return result.all(), nil
}

// reverseEvents reverses evs in place.
func reverseEvents(evs []events.Event) {
	for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
		evs[i], evs[j] = evs[j], evs[i]
	}
}

// get returns the live node for id, assuming the caller holds g.mu.
func (g *Hypergraph) get(id string) (*GraphNode, bool) {
	idx, ok := g.index[id]
	if !ok || idx < 0 {
		return nil, false
	}
	n := g.nodes[idx]
	if n == nil || n.deleted {
		return nil, false
	}
	return n, true
}

func (g *Hypergraph) isLive(id string) bool {
	_, ok := g.get(id)
	return ok
}

func (g *Hypergraph) insert(n *GraphNode) {
	g.nodes = append(g.nodes, n)
	g.index[n.ID] = len(g.nodes) - 1
}

// unlink removes a relationship's EdgeInfo from its endpoints' incident
// maps. No-op for entity and property nodes.
func (g *Hypergraph) unlink(n *GraphNode) {
	if n.Kind != KindEdge {
		return
	}
	if start, ok := g.get(n.StartID); ok {
		delete(start.outgoing, n.ID)
	}
	if n.Both {
		if end, ok := g.get(n.EndID); ok {
			delete(end.outgoing, n.ID)
		}
		return
	}
	if end, ok := g.get(n.EndID); ok {
		delete(end.incoming, n.ID)
	}
}

// tombstone marks id's slot as removed: the index map keeps a sentinel
// (-1) rather than deleting the key, the slot itself is cleared
// (spec.md §4.4: "the key map points to a sentinel value and the slot
// holds nothing").
func (g *Hypergraph) tombstone(id string) {
	idx, ok := g.index[id]
	if !ok {
		return
	}
	if g.nodes[idx] != nil {
		g.nodes[idx].deleted = true
	}
	g.nodes[idx] = nil
	g.index[id] = -1
	g.tombstones++
}

// compact rebuilds the node sequence and index, discarding tombstoned
// slots (spec.md §4.4).
func (g *Hypergraph) compact() {
	fresh := make([]*GraphNode, 0, len(g.nodes)-g.tombstones)
	freshIndex := make(map[string]int, len(fresh))
	for _, n := range g.nodes {
		if n == nil {
			continue
		}
		freshIndex[n.ID] = len(fresh)
		fresh = append(fresh, n)
	}
	g.nodes = fresh
	g.index = freshIndex
	g.tombstones = 0
}
