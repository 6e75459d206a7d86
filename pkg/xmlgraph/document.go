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

import (
	"fmt"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// Edge names used by the tree encoding.
const (
	EdgeFirstChild  = "first_child"
	EdgeNextSibling = "next_sibling"
)

// Property keys set on element nodes.
const (
	PropAttributes = "attributes"
	PropText       = "text"
	PropNamespace  = "ns"
	PropPrefix     = "prefix"
)

// Attr is an attribute as written: Name is the qualified name, for example
// "id", "xml:lang" or "xmlns:gb".
type Attr struct {
	Name  string
	Value string
}

// Element describes a node to add to a Document.
type Element struct {
	// Local is the local tag name. It becomes the node label.
	Local string

	// Prefix is the tag prefix, empty for none.
	Prefix string

	// Namespace is the resolved namespace URI, empty for none.
	Namespace string

	// Attrs in emission order.
	Attrs []Attr

	// Text content. Empty means no text.
	Text string
}

// properties builds the node property map for el.
func (el Element) properties() *graph.Properties {
	attrs := graph.NewProperties()
	for _, a := range el.Attrs {
		attrs.Set(a.Name, graph.Text(a.Value))
	}
	p := graph.NewProperties(graph.Prop(PropAttributes, graph.Map(attrs)))
	if el.Namespace != "" {
		p.Set(PropNamespace, graph.Text(el.Namespace))
	}
	if el.Prefix != "" {
		p.Set(PropPrefix, graph.Text(el.Prefix))
	}
	if el.Text != "" {
		p.Set(PropText, graph.Text(el.Text))
	}
	return p
}

// Document is an element tree stored as a graph.
type Document struct {
	g *graph.Graph
}

// New returns an empty document.
func New() *Document {
	return &Document{g: graph.New()}
}

// Wrap returns a document view over an existing graph. The graph is shared,
// not copied.
func Wrap(g *graph.Graph) *Document {
	return &Document{g: g}
}

// Graph returns the underlying graph.
func (d *Document) Graph() *graph.Graph { return d.g }

// Copy returns an independent deep copy of the document.
func (d *Document) Copy() *Document { return &Document{g: d.g.Copy()} }

// AddRoot adds el as a node with no parent and returns it.
//
// Root returns the first such node in creation order, so a document holds a
// single tree unless callers add more than one root.
func (d *Document) AddRoot(el Element) graph.NodeID {
	return d.g.AddNode([]string{el.Local}, el.properties())
}

// AppendChild adds el as the last child of parent and returns it.
//
// Description:
//
//	If parent has no children a first_child edge is created. Otherwise the
//	current last child is located by walking the sibling chain, which is
//	O(k) in the number of children, and a next_sibling edge is added.
//
// Panics:
//
//	If parent is not a live node of the document.
func (d *Document) AppendChild(parent graph.NodeID, el Element) graph.NodeID {
	if !d.g.Contains(parent) {
		panic(fmt.Sprintf("xmlgraph: AppendChild: stale parent handle %s", parent))
	}
	child := d.g.AddNode([]string{el.Local}, el.properties())
	d.link(parent, child)
	return child
}

// link attaches an existing node as the last child of parent.
func (d *Document) link(parent, child graph.NodeID) {
	first, ok := d.FirstChild(parent)
	if !ok {
		d.mustEdge(parent, child, EdgeFirstChild)
		return
	}
	last := first
	for {
		next, ok := d.NextSibling(last)
		if !ok {
			break
		}
		last = next
	}
	d.mustEdge(last, child, EdgeNextSibling)
}

// mustEdge adds a tree edge between two nodes known to be live.
func (d *Document) mustEdge(start, end graph.NodeID, name string) {
	if _, err := d.g.AddEdge(start, end, name, nil); err != nil {
		panic(fmt.Sprintf("xmlgraph: relink %s: %v", name, err))
	}
}

// RemoveNode deletes n together with its whole subtree.
//
// Description:
//
//	Descendants are removed depth-first, children before the node. If n is
//	its parent's first child, the parent's first_child edge is repointed to
//	the next sibling, or dropped if there is none. If n has both a previous
//	and a next sibling they are linked directly. Finally n and its edges are
//	deleted through the graph.
//
//	Removing the root empties the tree. Removing an only child leaves the
//	parent childless. Removing the last child leaves the previous sibling as
//	the new last child.
//
// Panics:
//
//	If n is not a live node of the document.
func (d *Document) RemoveNode(n graph.NodeID) {
	for _, c := range d.Children(n) {
		d.RemoveNode(c)
	}

	prev, hasPrev := d.PreviousSibling(n)
	next, hasNext := d.NextSibling(n)

	if !hasPrev && hasNext {
		if parent, ok := d.g.PredecessorNode(n, graph.ByEdgeName(EdgeFirstChild)); ok {
			d.mustEdge(parent, next, EdgeFirstChild)
		}
	}
	if hasPrev && hasNext {
		d.mustEdge(prev, next, EdgeNextSibling)
	}
	d.g.RemoveNode(n)
}

// Tag returns the local tag name of n.
func (d *Document) Tag(n graph.NodeID) string { return d.g.PrimaryLabel(n) }

// Namespace returns the resolved namespace URI of n, empty for none.
func (d *Document) Namespace(n graph.NodeID) string { return d.textProp(n, PropNamespace) }

// Prefix returns the tag prefix of n, empty for none.
func (d *Document) Prefix(n graph.NodeID) string { return d.textProp(n, PropPrefix) }

// QualifiedName returns prefix:local, or local when there is no prefix.
func (d *Document) QualifiedName(n graph.NodeID) string {
	if p := d.Prefix(n); p != "" {
		return p + ":" + d.Tag(n)
	}
	return d.Tag(n)
}

// Text returns the text content of n and whether it has any.
func (d *Document) Text(n graph.NodeID) (string, bool) {
	v, ok := d.g.Property(n, PropText)
	if !ok {
		return "", false
	}
	s, ok := v.AsText()
	return s, ok
}

// SetText replaces the text content of n. Empty text removes it.
func (d *Document) SetText(n graph.NodeID, text string) {
	if text == "" {
		d.g.Properties(n).Delete(PropText)
		return
	}
	d.g.SetProperty(n, PropText, graph.Text(text))
}

// Attributes returns the attributes of n in stored order.
func (d *Document) Attributes(n graph.NodeID) []Attr {
	m := d.attrMap(n)
	out := make([]Attr, 0, m.Len())
	m.Range(func(key string, v graph.Value) bool {
		out = append(out, Attr{Name: key, Value: v.String()})
		return true
	})
	return out
}

// Attribute returns a single attribute of n.
func (d *Document) Attribute(n graph.NodeID, name string) (string, bool) {
	v, ok := d.attrMap(n).Get(name)
	if !ok {
		return "", false
	}
	return v.String(), true
}

// SetAttribute sets an attribute of n, appending it if new.
func (d *Document) SetAttribute(n graph.NodeID, name, value string) {
	m, ok := d.g.Properties(n).Get(PropAttributes)
	if attrs, isMap := m.AsMap(); ok && isMap {
		attrs.Set(name, graph.Text(value))
		return
	}
	d.g.SetProperty(n, PropAttributes, graph.Map(graph.NewProperties(graph.Prop(name, graph.Text(value)))))
}

// DeleteAttribute removes an attribute of n and reports whether it was set.
func (d *Document) DeleteAttribute(n graph.NodeID, name string) bool {
	return d.attrMap(n).Delete(name)
}

// FilterNodesByAttribute returns every node whose attribute name equals
// value, in creation order.
func (d *Document) FilterNodesByAttribute(name, value string) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	for _, n := range d.g.Nodes() {
		if v, ok := d.Attribute(n, name); ok && v == value {
			out = append(out, n)
		}
	}
	return out
}

// FilterNodeByAttribute returns the first node whose attribute name equals
// value.
func (d *Document) FilterNodeByAttribute(name, value string) (graph.NodeID, bool) {
	for _, n := range d.g.Nodes() {
		if v, ok := d.Attribute(n, name); ok && v == value {
			return n, true
		}
	}
	return graph.NodeID{}, false
}

func (d *Document) attrMap(n graph.NodeID) *graph.Properties {
	v, ok := d.g.Property(n, PropAttributes)
	if !ok {
		return nil
	}
	m, _ := v.AsMap()
	return m
}

func (d *Document) textProp(n graph.NodeID, key string) string {
	v, ok := d.g.Property(n, key)
	if !ok {
		return ""
	}
	s, _ := v.AsText()
	return s
}
