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

// TraverseOptions narrows a neighbour query.
type TraverseOptions struct {
	// EdgeName restricts the query to edges with this name when HasEdgeName
	// is set. The empty string is a valid edge name.
	EdgeName    string
	HasEdgeName bool

	// Label restricts the query to neighbours carrying this label when
	// HasLabel is set.
	Label    string
	HasLabel bool
}

// TraverseOption is a functional option for neighbour queries.
type TraverseOption func(*TraverseOptions)

// ByEdgeName keeps only edges named name.
func ByEdgeName(name string) TraverseOption {
	return func(o *TraverseOptions) {
		o.EdgeName = name
		o.HasEdgeName = true
	}
}

// ByLabel keeps only neighbours carrying label.
func ByLabel(label string) TraverseOption {
	return func(o *TraverseOptions) {
		o.Label = label
		o.HasLabel = true
	}
}

// SuccessorNodes returns the end nodes of the outgoing edges of n.
//
// Description:
//
//	Selects the outgoing edges of n, narrows them by edge name if
//	ByEdgeName is given, resolves each to its end node and narrows by
//	label if ByLabel is given. Results follow edge insertion order. A
//	neighbour reached through two parallel edges appears twice.
//
// Inputs:
//
//	n - A live node of this graph.
//	opts - Optional ByEdgeName and ByLabel filters.
//
// Outputs:
//
//	[]NodeID - Matching neighbours. Empty, never nil, when nothing matches.
//
// Panics:
//
//	If n is stale.
//
// Example:
//
//	surfaces := g.SuccessorNodes(space, graph.ByEdgeName("contains"), graph.ByLabel("Surface"))
func (g *Graph) SuccessorNodes(n NodeID, opts ...TraverseOption) []NodeID {
	return g.neighbours(g.node("SuccessorNodes", n).out, true, opts, false)
}

// SuccessorNode returns the first result of SuccessorNodes.
func (g *Graph) SuccessorNode(n NodeID, opts ...TraverseOption) (NodeID, bool) {
	return first(g.neighbours(g.node("SuccessorNode", n).out, true, opts, true))
}

// PredecessorNodes returns the start nodes of the incoming edges of n.
//
// It mirrors SuccessorNodes over incoming edges.
func (g *Graph) PredecessorNodes(n NodeID, opts ...TraverseOption) []NodeID {
	return g.neighbours(g.node("PredecessorNodes", n).in, false, opts, false)
}

// PredecessorNode returns the first result of PredecessorNodes.
func (g *Graph) PredecessorNode(n NodeID, opts ...TraverseOption) (NodeID, bool) {
	return first(g.neighbours(g.node("PredecessorNode", n).in, false, opts, true))
}

func (g *Graph) neighbours(edges []EdgeID, outgoing bool, opts []TraverseOption, stopAtFirst bool) []NodeID {
	var o TraverseOptions
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]NodeID, 0)
	for _, id := range edges {
		e := &g.edges[id.slot]
		if o.HasEdgeName && e.name != o.EdgeName {
			continue
		}
		other := e.start
		if outgoing {
			other = e.end
		}
		if o.HasLabel && !hasLabel(g.nodes[other.slot].labels, o.Label) {
			continue
		}
		out = append(out, other)
		if stopAtFirst {
			break
		}
	}
	return out
}

func first(ids []NodeID) (NodeID, bool) {
	if len(ids) == 0 {
		return NodeID{}, false
	}
	return ids[0], true
}
