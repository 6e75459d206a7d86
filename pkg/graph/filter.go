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

// Filters scan the tables linearly in creation order. No secondary index is
// kept; graphs here are building-model scale.

// FilterNodesByLabel returns every node carrying label, in creation order.
// No match yields an empty, non-nil slice.
func (g *Graph) FilterNodesByLabel(label string) []NodeID {
	out := make([]NodeID, 0)
	for _, slot := range g.nodeOrder {
		if hasLabel(g.nodes[slot].labels, label) {
			out = append(out, NodeID{lineage: g.lineage, slot: slot, gen: g.nodes[slot].gen})
		}
	}
	return out
}

// FilterNodeByLabel returns the first node carrying label.
func (g *Graph) FilterNodeByLabel(label string) (NodeID, bool) {
	for _, slot := range g.nodeOrder {
		if hasLabel(g.nodes[slot].labels, label) {
			return NodeID{lineage: g.lineage, slot: slot, gen: g.nodes[slot].gen}, true
		}
	}
	return NodeID{}, false
}

// FilterNodesByProperty returns every node whose property key equals v
// exactly (see Value.Equal), in creation order.
func (g *Graph) FilterNodesByProperty(key string, v Value) []NodeID {
	out := make([]NodeID, 0)
	for _, slot := range g.nodeOrder {
		if propertyMatches(g.nodes[slot].props, key, v) {
			out = append(out, NodeID{lineage: g.lineage, slot: slot, gen: g.nodes[slot].gen})
		}
	}
	return out
}

// FilterNodeByProperty returns the first node whose property key equals v.
func (g *Graph) FilterNodeByProperty(key string, v Value) (NodeID, bool) {
	for _, slot := range g.nodeOrder {
		if propertyMatches(g.nodes[slot].props, key, v) {
			return NodeID{lineage: g.lineage, slot: slot, gen: g.nodes[slot].gen}, true
		}
	}
	return NodeID{}, false
}

// FilterEdgesByName returns every edge named name, in creation order.
func (g *Graph) FilterEdgesByName(name string) []EdgeID {
	out := make([]EdgeID, 0)
	for _, slot := range g.edgeOrder {
		if g.edges[slot].name == name {
			out = append(out, EdgeID{lineage: g.lineage, slot: slot, gen: g.edges[slot].gen})
		}
	}
	return out
}

// FilterEdgeByName returns the first edge named name.
func (g *Graph) FilterEdgeByName(name string) (EdgeID, bool) {
	for _, slot := range g.edgeOrder {
		if g.edges[slot].name == name {
			return EdgeID{lineage: g.lineage, slot: slot, gen: g.edges[slot].gen}, true
		}
	}
	return EdgeID{}, false
}

// FilterEdgesByProperty returns every edge whose property key equals v.
func (g *Graph) FilterEdgesByProperty(key string, v Value) []EdgeID {
	out := make([]EdgeID, 0)
	for _, slot := range g.edgeOrder {
		if propertyMatches(g.edges[slot].props, key, v) {
			out = append(out, EdgeID{lineage: g.lineage, slot: slot, gen: g.edges[slot].gen})
		}
	}
	return out
}

// FilterEdgeByProperty returns the first edge whose property key equals v.
func (g *Graph) FilterEdgeByProperty(key string, v Value) (EdgeID, bool) {
	for _, slot := range g.edgeOrder {
		if propertyMatches(g.edges[slot].props, key, v) {
			return EdgeID{lineage: g.lineage, slot: slot, gen: g.edges[slot].gen}, true
		}
	}
	return EdgeID{}, false
}

// LookupAll returns every node of the given type label.
//
// Domain wrappers build their named accessors on LookupAll and LookupOne
// instead of resolving attribute names dynamically.
func (g *Graph) LookupAll(label string) []NodeID {
	return g.FilterNodesByLabel(label)
}

// LookupOne returns the first node of the given type label.
func (g *Graph) LookupOne(label string) (NodeID, bool) {
	return g.FilterNodeByLabel(label)
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func propertyMatches(p *Properties, key string, v Value) bool {
	got, ok := p.Get(key)
	return ok && got.Equal(v)
}
