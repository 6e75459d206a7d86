// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package xmlgraph

import "github.com/AleutianAI/openbuilding/pkg/graph"

// Root returns the first node, in creation order, with no incoming tree edge.
func (d *Document) Root() (graph.NodeID, bool) {
	for _, n := range d.g.Nodes() {
		if !d.isTreeChild(n) {
			return n, true
		}
	}
	return graph.NodeID{}, false
}

func (d *Document) isTreeChild(n graph.NodeID) bool {
	for _, e := range d.g.InEdges(n) {
		switch d.g.EdgeName(e) {
		case EdgeFirstChild, EdgeNextSibling:
			return true
		}
	}
	return false
}

// FirstChild returns the first child of n.
func (d *Document) FirstChild(n graph.NodeID) (graph.NodeID, bool) {
	return d.g.SuccessorNode(n, graph.ByEdgeName(EdgeFirstChild))
}

// NextSibling returns the sibling following n.
func (d *Document) NextSibling(n graph.NodeID) (graph.NodeID, bool) {
	return d.g.SuccessorNode(n, graph.ByEdgeName(EdgeNextSibling))
}

// PreviousSibling returns the sibling preceding n.
func (d *Document) PreviousSibling(n graph.NodeID) (graph.NodeID, bool) {
	return d.g.PredecessorNode(n, graph.ByEdgeName(EdgeNextSibling))
}

// Parent returns the parent of n by walking to the first sibling and
// following its incoming first_child edge.
func (d *Document) Parent(n graph.NodeID) (graph.NodeID, bool) {
	first := n
	for {
		prev, ok := d.PreviousSibling(first)
		if !ok {
			break
		}
		first = prev
	}
	return d.g.PredecessorNode(first, graph.ByEdgeName(EdgeFirstChild))
}

// Children returns the children of n in document order.
func (d *Document) Children(n graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	c, ok := d.FirstChild(n)
	for ok {
		out = append(out, c)
		c, ok = d.NextSibling(c)
	}
	return out
}

// ChildrenByLabel returns the children of n carrying label.
func (d *Document) ChildrenByLabel(n graph.NodeID, label string) []graph.NodeID {
	return d.withLabel(d.Children(n), label)
}

// Child returns the first child of n carrying label.
func (d *Document) Child(n graph.NodeID, label string) (graph.NodeID, bool) {
	return firstOf(d.ChildrenByLabel(n, label))
}

// NextSiblings returns the siblings after n, nearest first.
func (d *Document) NextSiblings(n graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	s, ok := d.NextSibling(n)
	for ok {
		out = append(out, s)
		s, ok = d.NextSibling(s)
	}
	return out
}

// PreviousSiblings returns the siblings before n, nearest first.
func (d *Document) PreviousSiblings(n graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	s, ok := d.PreviousSibling(n)
	for ok {
		out = append(out, s)
		s, ok = d.PreviousSibling(s)
	}
	return out
}

// Siblings returns every child of the parent of n, n included, in document
// order. A root is its own only sibling.
func (d *Document) Siblings(n graph.NodeID) []graph.NodeID {
	prev := d.PreviousSiblings(n)
	out := make([]graph.NodeID, 0, len(prev)+1)
	for i := len(prev) - 1; i >= 0; i-- {
		out = append(out, prev[i])
	}
	out = append(out, n)
	return append(out, d.NextSiblings(n)...)
}

// Ancestors returns the ancestors of n, parent first.
func (d *Document) Ancestors(n graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	p, ok := d.Parent(n)
	for ok {
		out = append(out, p)
		p, ok = d.Parent(p)
	}
	return out
}

// Ancestor returns the nearest ancestor of n carrying label.
func (d *Document) Ancestor(n graph.NodeID, label string) (graph.NodeID, bool) {
	return firstOf(d.withLabel(d.Ancestors(n), label))
}

// Descendants returns the subtree below n in document (pre-)order.
func (d *Document) Descendants(n graph.NodeID) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	var walk func(graph.NodeID)
	walk = func(p graph.NodeID) {
		for _, c := range d.Children(p) {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// DescendantsByLabel returns the descendants of n carrying label.
func (d *Document) DescendantsByLabel(n graph.NodeID, label string) []graph.NodeID {
	return d.withLabel(d.Descendants(n), label)
}

// Descendant returns the first descendant of n carrying label.
func (d *Document) Descendant(n graph.NodeID, label string) (graph.NodeID, bool) {
	return firstOf(d.DescendantsByLabel(n, label))
}

func (d *Document) withLabel(nodes []graph.NodeID, label string) []graph.NodeID {
	out := make([]graph.NodeID, 0, len(nodes))
	for _, n := range nodes {
		if d.g.HasLabel(n, label) {
			out = append(out, n)
		}
	}
	return out
}

func firstOf(nodes []graph.NodeID) (graph.NodeID, bool) {
	if len(nodes) == 0 {
		return graph.NodeID{}, false
	}
	return nodes[0], true
}
