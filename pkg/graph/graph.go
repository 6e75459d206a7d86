// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// NodeID is a handle to a node: the owning graph's lineage, a table slot
// and the slot generation.
//
// The zero NodeID never refers to a node.
type NodeID struct {
	lineage uint64
	slot    uint32
	gen     uint32
}

// IsZero reports whether id is the zero handle.
func (id NodeID) IsZero() bool { return id.gen == 0 }

// Slot returns the table slot of the handle.
func (id NodeID) Slot() uint32 { return id.slot }

// Generation returns the slot generation captured by the handle.
func (id NodeID) Generation() uint32 { return id.gen }

// String returns a debug representation such as "n3.1".
func (id NodeID) String() string { return fmt.Sprintf("n%d.%d", id.slot, id.gen) }

// EdgeID is a handle to an edge: the owning graph's lineage, a table slot
// and the slot generation.
//
// The zero EdgeID never refers to an edge.
type EdgeID struct {
	lineage uint64
	slot    uint32
	gen     uint32
}

// IsZero reports whether id is the zero handle.
func (id EdgeID) IsZero() bool { return id.gen == 0 }

// Slot returns the table slot of the handle.
func (id EdgeID) Slot() uint32 { return id.slot }

// Generation returns the slot generation captured by the handle.
func (id EdgeID) Generation() uint32 { return id.gen }

// String returns a debug representation such as "e7.2".
func (id EdgeID) String() string { return fmt.Sprintf("e%d.%d", id.slot, id.gen) }

// nodeEntry is one slot of the node table.
type nodeEntry struct {
	gen    uint32
	live   bool
	seq    uint64
	labels []string
	props  *Properties
	in     []EdgeID
	out    []EdgeID
}

// edgeEntry is one slot of the edge table.
type edgeEntry struct {
	gen   uint32
	live  bool
	seq   uint64
	start NodeID
	end   NodeID
	name  string
	props *Properties
}

// Options configures Graph allocation.
type Options struct {
	// NodeCapacity preallocates the node table.
	NodeCapacity int

	// EdgeCapacity preallocates the edge table.
	EdgeCapacity int
}

// Option is a functional option for configuring Graph.
type Option func(*Options)

// WithCapacity preallocates room for the given number of nodes and edges.
func WithCapacity(nodes, edges int) Option {
	return func(o *Options) {
		o.NodeCapacity = nodes
		o.EdgeCapacity = edges
	}
}

// Graph is an in-memory labelled property graph.
//
// Description:
//
//	Graph owns a node table and an edge table. Slots of removed entries are
//	recycled with a bumped generation, so handles to removed entries become
//	stale rather than aliasing new entries. A single counter shared by nodes
//	and edges assigns each entry a sequence number that is never reused.
//
//	Every graph carries a random lineage stamp that its handles embed, so
//	a handle from an unrelated graph is never mistaken for a member. Copy
//	and FromSnapshot keep the stamp, which is what keeps handles valid
//	across them.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use. See the package documentation.
type Graph struct {
	nodes []nodeEntry
	edges []edgeEntry

	// freeNodes and freeEdges hold dead slots available for reuse.
	freeNodes []uint32
	freeEdges []uint32

	// nodeOrder and edgeOrder hold live slots in creation order.
	nodeOrder []uint32
	edgeOrder []uint32

	counter uint64
	lineage uint64
}

// newLineage returns a non-zero random lineage stamp.
func newLineage() uint64 {
	for {
		if l := rand.Uint64(); l != 0 {
			return l
		}
	}
}

// New creates an empty graph.
//
// Example:
//
//	g := graph.New()
//	g := graph.New(graph.WithCapacity(1024, 4096))
func New(opts ...Option) *Graph {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return &Graph{
		nodes:     make([]nodeEntry, 0, options.NodeCapacity),
		edges:     make([]edgeEntry, 0, options.EdgeCapacity),
		nodeOrder: make([]uint32, 0, options.NodeCapacity),
		edgeOrder: make([]uint32, 0, options.EdgeCapacity),
		lineage:   newLineage(),
	}
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodeOrder) }

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int { return len(g.edgeOrder) }

// Contains reports whether n refers to a live node of this graph.
func (g *Graph) Contains(n NodeID) bool {
	if n.lineage != g.lineage || int(n.slot) >= len(g.nodes) || n.gen == 0 {
		return false
	}
	e := &g.nodes[n.slot]
	return e.live && e.gen == n.gen
}

// ContainsEdge reports whether e refers to a live edge of this graph.
func (g *Graph) ContainsEdge(e EdgeID) bool {
	if e.lineage != g.lineage || int(e.slot) >= len(g.edges) || e.gen == 0 {
		return false
	}
	ent := &g.edges[e.slot]
	return ent.live && ent.gen == e.gen
}

// node returns the entry for n, panicking on a stale or foreign handle.
func (g *Graph) node(op string, n NodeID) *nodeEntry {
	if !g.Contains(n) {
		panic(fmt.Sprintf("graph: %s: stale or foreign node handle %s", op, n))
	}
	return &g.nodes[n.slot]
}

// edge returns the entry for e, panicking on a stale or foreign handle.
func (g *Graph) edge(op string, e EdgeID) *edgeEntry {
	if !g.ContainsEdge(e) {
		panic(fmt.Sprintf("graph: %s: stale or foreign edge handle %s", op, e))
	}
	return &g.edges[e.slot]
}

// nextSeq advances the shared identity counter.
func (g *Graph) nextSeq() uint64 {
	g.counter++
	return g.counter
}

// AddNode adds a node and returns its handle.
//
// Description:
//
//	Creates a node with the given labels and properties. The first label
//	is the primary type tag. The graph takes ownership of props; callers
//	must not mutate it afterwards except through the graph.
//
// Inputs:
//
//	labels - Non-empty list of labels. Copied.
//	props - Property map. nil is treated as empty.
//
// Outputs:
//
//	NodeID - Handle to the new node.
//
// Panics:
//
//	If labels is empty.
func (g *Graph) AddNode(labels []string, props *Properties) NodeID {
	if len(labels) == 0 {
		panic("graph: AddNode: node requires at least one label")
	}
	if props == nil {
		props = NewProperties()
	}
	ls := make([]string, len(labels))
	copy(ls, labels)

	entry := nodeEntry{
		live:   true,
		seq:    g.nextSeq(),
		labels: ls,
		props:  props,
	}

	var slot uint32
	if n := len(g.freeNodes); n > 0 {
		slot = g.freeNodes[n-1]
		g.freeNodes = g.freeNodes[:n-1]
		entry.gen = g.nodes[slot].gen
		g.nodes[slot] = entry
	} else {
		slot = uint32(len(g.nodes))
		entry.gen = 1
		g.nodes = append(g.nodes, entry)
	}
	g.nodeOrder = append(g.nodeOrder, slot)

	return NodeID{lineage: g.lineage, slot: slot, gen: entry.gen}
}

// AddEdge adds a directed, named edge from start to end.
//
// Description:
//
//	Creates the edge and records its handle in the outgoing set of start
//	and the incoming set of end. Parallel edges and self-loops are allowed.
//
// Inputs:
//
//	start, end - Live nodes of this graph.
//	name - Relation name. May be empty.
//	props - Property map. nil is treated as empty. Ownership transfers.
//
// Outputs:
//
//	EdgeID - Handle to the new edge.
//	error - Non-nil if an endpoint is not a live node of this graph.
//
// Errors:
//
//	*StructuralError wrapping ErrReferencedNodeNotFound
func (g *Graph) AddEdge(start, end NodeID, name string, props *Properties) (EdgeID, error) {
	if !g.Contains(start) {
		return EdgeID{}, &StructuralError{Role: "start", Node: start}
	}
	if !g.Contains(end) {
		return EdgeID{}, &StructuralError{Role: "end", Node: end}
	}
	if props == nil {
		props = NewProperties()
	}

	entry := edgeEntry{
		live:  true,
		seq:   g.nextSeq(),
		start: start,
		end:   end,
		name:  name,
		props: props,
	}

	var slot uint32
	if n := len(g.freeEdges); n > 0 {
		slot = g.freeEdges[n-1]
		g.freeEdges = g.freeEdges[:n-1]
		entry.gen = g.edges[slot].gen
		g.edges[slot] = entry
	} else {
		slot = uint32(len(g.edges))
		entry.gen = 1
		g.edges = append(g.edges, entry)
	}
	g.edgeOrder = append(g.edgeOrder, slot)

	id := EdgeID{lineage: g.lineage, slot: slot, gen: entry.gen}
	g.nodes[start.slot].out = append(g.nodes[start.slot].out, id)
	g.nodes[end.slot].in = append(g.nodes[end.slot].in, id)
	return id, nil
}

// RemoveEdge detaches e from both endpoints and deletes it.
//
// Panics:
//
//	If e is not a live edge of this graph.
func (g *Graph) RemoveEdge(e EdgeID) {
	ent := g.edge("RemoveEdge", e)

	start := &g.nodes[ent.start.slot]
	start.out = removeEdgeID(start.out, e)
	end := &g.nodes[ent.end.slot]
	end.in = removeEdgeID(end.in, e)

	g.edgeOrder = removeSlot(g.edgeOrder, e.slot)
	g.killEdge(e.slot, ent)
}

// RemoveNode removes every incident edge of n and then n itself.
//
// Description:
//
//	This is an unconditional cascading delete. Adapters that must relink
//	neighbours do so before calling RemoveNode.
//
// Panics:
//
//	If n is not a live node of this graph.
func (g *Graph) RemoveNode(n NodeID) {
	ent := g.node("RemoveNode", n)

	incident := make([]EdgeID, 0, len(ent.in)+len(ent.out))
	incident = append(incident, ent.out...)
	incident = append(incident, ent.in...)
	for _, e := range incident {
		// self-loops appear in both sets
		if g.ContainsEdge(e) {
			g.RemoveEdge(e)
		}
	}

	ent = &g.nodes[n.slot]
	g.nodeOrder = removeSlot(g.nodeOrder, n.slot)
	ent.live = false
	ent.labels = nil
	ent.props = nil
	ent.in, ent.out = nil, nil
	if ent.gen < math.MaxUint32 {
		ent.gen++
		g.freeNodes = append(g.freeNodes, n.slot)
	}
}

// Clear removes every node and edge.
//
// Handles taken before Clear become stale. The identity counter is kept, so
// sequence numbers are not reused.
func (g *Graph) Clear() {
	for _, slot := range g.edgeOrder {
		g.killEdge(slot, &g.edges[slot])
	}
	for _, slot := range g.nodeOrder {
		ent := &g.nodes[slot]
		ent.live = false
		ent.labels, ent.props, ent.in, ent.out = nil, nil, nil, nil
		if ent.gen < math.MaxUint32 {
			ent.gen++
			g.freeNodes = append(g.freeNodes, slot)
		}
	}
	g.edgeOrder = g.edgeOrder[:0]
	g.nodeOrder = g.nodeOrder[:0]
}

// killEdge marks an edge slot dead without touching adjacency.
func (g *Graph) killEdge(slot uint32, ent *edgeEntry) {
	ent.live = false
	ent.start, ent.end = NodeID{}, NodeID{}
	ent.name = ""
	ent.props = nil
	if ent.gen < math.MaxUint32 {
		ent.gen++
		g.freeEdges = append(g.freeEdges, slot)
	}
}

// RemoveOrphanNodes removes every node with no incident edges and returns
// how many were removed.
func (g *Graph) RemoveOrphanNodes() int {
	var orphans []NodeID
	for _, slot := range g.nodeOrder {
		ent := &g.nodes[slot]
		if len(ent.in) == 0 && len(ent.out) == 0 {
			orphans = append(orphans, NodeID{lineage: g.lineage, slot: slot, gen: ent.gen})
		}
	}
	for _, n := range orphans {
		g.RemoveNode(n)
	}
	return len(orphans)
}

// Copy returns a deep, independent clone of g.
//
// The clone shares no storage with g. Handles valid on g are valid on the
// clone and refer to the corresponding entries.
func (g *Graph) Copy() *Graph {
	c := &Graph{
		nodes:     make([]nodeEntry, len(g.nodes)),
		edges:     make([]edgeEntry, len(g.edges)),
		freeNodes: append([]uint32(nil), g.freeNodes...),
		freeEdges: append([]uint32(nil), g.freeEdges...),
		nodeOrder: append([]uint32(nil), g.nodeOrder...),
		edgeOrder: append([]uint32(nil), g.edgeOrder...),
		counter:   g.counter,
		lineage:   g.lineage,
	}
	for i, ent := range g.nodes {
		c.nodes[i] = nodeEntry{
			gen:  ent.gen,
			live: ent.live,
			seq:  ent.seq,
		}
		if ent.live {
			c.nodes[i].labels = append([]string(nil), ent.labels...)
			c.nodes[i].props = ent.props.Clone()
			c.nodes[i].in = append([]EdgeID(nil), ent.in...)
			c.nodes[i].out = append([]EdgeID(nil), ent.out...)
		}
	}
	for i, ent := range g.edges {
		c.edges[i] = ent
		if ent.live {
			c.edges[i].props = ent.props.Clone()
		}
	}
	return c
}

// Nodes returns all live nodes in creation order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodeOrder))
	for i, slot := range g.nodeOrder {
		out[i] = NodeID{lineage: g.lineage, slot: slot, gen: g.nodes[slot].gen}
	}
	return out
}

// Edges returns all live edges in creation order.
func (g *Graph) Edges() []EdgeID {
	out := make([]EdgeID, len(g.edgeOrder))
	for i, slot := range g.edgeOrder {
		out[i] = EdgeID{lineage: g.lineage, slot: slot, gen: g.edges[slot].gen}
	}
	return out
}

// Seq returns the sequence number assigned to n at creation.
func (g *Graph) Seq(n NodeID) uint64 { return g.node("Seq", n).seq }

// EdgeSeq returns the sequence number assigned to e at creation.
func (g *Graph) EdgeSeq(e EdgeID) uint64 { return g.edge("EdgeSeq", e).seq }

// Labels returns a copy of the labels of n.
func (g *Graph) Labels(n NodeID) []string {
	return append([]string(nil), g.node("Labels", n).labels...)
}

// PrimaryLabel returns the first label of n.
func (g *Graph) PrimaryLabel(n NodeID) string { return g.node("PrimaryLabel", n).labels[0] }

// HasLabel reports whether n carries label.
func (g *Graph) HasLabel(n NodeID, label string) bool {
	return hasLabel(g.node("HasLabel", n).labels, label)
}

// Properties returns the live property map of n. Mutations through the
// returned pointer are visible to the graph.
func (g *Graph) Properties(n NodeID) *Properties { return g.node("Properties", n).props }

// Property returns a single property of n.
func (g *Graph) Property(n NodeID, key string) (Value, bool) {
	return g.node("Property", n).props.Get(key)
}

// SetProperty sets a single property of n.
func (g *Graph) SetProperty(n NodeID, key string, v Value) {
	g.node("SetProperty", n).props.Set(key, v)
}

// InEdges returns a copy of the incoming edge set of n in insertion order.
func (g *Graph) InEdges(n NodeID) []EdgeID {
	return append([]EdgeID(nil), g.node("InEdges", n).in...)
}

// OutEdges returns a copy of the outgoing edge set of n in insertion order.
func (g *Graph) OutEdges(n NodeID) []EdgeID {
	return append([]EdgeID(nil), g.node("OutEdges", n).out...)
}

// EdgeStart returns the start node of e.
func (g *Graph) EdgeStart(e EdgeID) NodeID { return g.edge("EdgeStart", e).start }

// EdgeEnd returns the end node of e.
func (g *Graph) EdgeEnd(e EdgeID) NodeID { return g.edge("EdgeEnd", e).end }

// EdgeName returns the name of e.
func (g *Graph) EdgeName(e EdgeID) string { return g.edge("EdgeName", e).name }

// EdgeProperties returns the live property map of e.
func (g *Graph) EdgeProperties(e EdgeID) *Properties { return g.edge("EdgeProperties", e).props }

// Stats summarizes a graph by primary label and edge name.
type Stats struct {
	Nodes        int            `json:"nodes"`
	Edges        int            `json:"edges"`
	NodesByLabel map[string]int `json:"nodes_by_label"`
	EdgesByName  map[string]int `json:"edges_by_name"`
}

// Stats counts live nodes per primary label and live edges per name.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:        len(g.nodeOrder),
		Edges:        len(g.edgeOrder),
		NodesByLabel: make(map[string]int),
		EdgesByName:  make(map[string]int),
	}
	for _, slot := range g.nodeOrder {
		s.NodesByLabel[g.nodes[slot].labels[0]]++
	}
	for _, slot := range g.edgeOrder {
		s.EdgesByName[g.edges[slot].name]++
	}
	return s
}

func removeEdgeID(ids []EdgeID, id EdgeID) []EdgeID {
	for i, e := range ids {
		if e == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func removeSlot(slots []uint32, slot uint32) []uint32 {
	for i, s := range slots {
		if s == slot {
			return append(slots[:i], slots[i+1:]...)
		}
	}
	return slots
}
