// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gbxml adds building-model operations to an xmlgraph.Document
// holding a gbXML file.
//
// gbXML elements reference each other through an id attribute on the
// target and a <tag>IdRef attribute on the referrer, where <tag> is the
// target's tag name with its first letter lowered: a Space with id "sp1"
// is referenced as spaceIdRef="sp1" and a WindowType as windowTypeIdRef.
// Model keeps these references consistent when ids are renamed or nodes
// are removed.
//
// A Model is not safe for concurrent use, like the document it wraps.
package gbxml

import (
	"errors"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AleutianAI/openbuilding/pkg/graph"
	"github.com/AleutianAI/openbuilding/pkg/xmlgraph"
)

// Namespace is the gbXML schema namespace URI.
const Namespace = "http://www.gbxml.org/schema"

// AttrID is the attribute that names a referencable element.
const AttrID = "id"

// Sentinel errors for model operations.
var (
	// ErrMissingID is returned when an operation needs an id attribute the
	// node does not have.
	ErrMissingID = errors.New("node has no id attribute")

	// ErrDuplicateID is returned by RenameID when another node already
	// carries the new id.
	ErrDuplicateID = errors.New("id already in use")

	// ErrMalformedGeometry is returned when a CartesianPoint does not hold
	// three numeric Coordinate children.
	ErrMalformedGeometry = errors.New("malformed geometry")
)

// Model is a gbXML view over an element-tree document.
type Model struct {
	doc *xmlgraph.Document
}

// Wrap returns a model view over d. The document is shared, not copied.
func Wrap(d *xmlgraph.Document) *Model {
	return &Model{doc: d}
}

// Parse reads a gbXML document from r.
func Parse(r io.Reader) (*Model, error) {
	d, err := xmlgraph.Parse(r)
	if err != nil {
		return nil, err
	}
	return Wrap(d), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Model, error) {
	return Parse(strings.NewReader(s))
}

// Document returns the underlying document.
func (m *Model) Document() *xmlgraph.Document { return m.doc }

// IsGBXML reports whether the document root is a gbXML element in the
// gbXML namespace.
func (m *Model) IsGBXML() bool {
	root, ok := m.doc.Root()
	return ok && m.doc.Tag(root) == "gbXML" && m.doc.Namespace(root) == Namespace
}

// IDRefAttribute returns the name of the attribute that references an
// element with the given tag, for example "constructionIdRef" for
// "Construction".
func IDRefAttribute(tag string) string {
	r, size := utf8.DecodeRuneInString(tag)
	if r == utf8.RuneError {
		return "IdRef"
	}
	return string(unicode.ToLower(r)) + tag[size:] + "IdRef"
}

// ID returns the id attribute of n.
func (m *Model) ID(n graph.NodeID) (string, bool) {
	return m.doc.Attribute(n, AttrID)
}

// ByID returns the first node, in creation order, whose id attribute is id.
func (m *Model) ByID(id string) (graph.NodeID, bool) {
	return m.doc.FilterNodeByAttribute(AttrID, id)
}

// Referrers returns every node holding a reference to n, in creation order.
func (m *Model) Referrers(n graph.NodeID) []graph.NodeID {
	id, ok := m.ID(n)
	if !ok {
		return nil
	}
	return m.doc.FilterNodesByAttribute(IDRefAttribute(m.doc.Tag(n)), id)
}

// RenameID changes the id of n and rewrites every reference to it.
//
// Description:
//
//	The reference attribute is derived from the tag of n. Every node whose
//	reference attribute equals the old id is updated to newID. Renaming to
//	the current id is a no-op.
//
// Outputs:
//
//	int - Number of reference attributes rewritten.
//
// Errors:
//
//	ErrMissingID if n has no id attribute.
//	ErrDuplicateID if a different node already has id newID.
//
// Panics:
//
//	If n is not a live node of the document.
func (m *Model) RenameID(n graph.NodeID, newID string) (int, error) {
	oldID, ok := m.ID(n)
	if !ok {
		return 0, ErrMissingID
	}
	if oldID == newID {
		return 0, nil
	}
	if other, taken := m.ByID(newID); taken && other != n {
		return 0, ErrDuplicateID
	}
	m.doc.SetAttribute(n, AttrID, newID)
	refAttr := IDRefAttribute(m.doc.Tag(n))
	rewritten := 0
	for _, r := range m.doc.FilterNodesByAttribute(refAttr, oldID) {
		m.doc.SetAttribute(r, refAttr, newID)
		rewritten++
	}
	return rewritten, nil
}

// RemoveNode deletes n with its subtree and drops every reference to the
// removed elements.
//
// Description:
//
//	The ids of n and its descendants are collected before the subtree is
//	removed. Afterwards each surviving node loses any reference attribute
//	that pointed at one of them, so removing a Space also clears the
//	spaceIdRef of the AdjacentSpaceId elements that named it.
//
// Outputs:
//
//	int - Number of reference attributes deleted.
//
// Panics:
//
//	If n is not a live node of the document.
func (m *Model) RemoveNode(n graph.NodeID) int {
	type ref struct{ attr, id string }
	var refs []ref
	for _, c := range append([]graph.NodeID{n}, m.doc.Descendants(n)...) {
		if id, ok := m.ID(c); ok {
			refs = append(refs, ref{IDRefAttribute(m.doc.Tag(c)), id})
		}
	}
	m.doc.RemoveNode(n)

	dropped := 0
	for _, r := range refs {
		for _, holder := range m.doc.FilterNodesByAttribute(r.attr, r.id) {
			if m.doc.DeleteAttribute(holder, r.attr) {
				dropped++
			}
		}
	}
	return dropped
}

// refTarget resolves the reference attribute attr of n.
func (m *Model) refTarget(n graph.NodeID, attr string) (graph.NodeID, bool) {
	id, ok := m.doc.Attribute(n, attr)
	if !ok || id == "" {
		return graph.NodeID{}, false
	}
	return m.ByID(id)
}

// childRefTargets resolves attr on each child of n labelled label, keeping
// child order and skipping references that do not resolve.
func (m *Model) childRefTargets(n graph.NodeID, label, attr string) []graph.NodeID {
	out := make([]graph.NodeID, 0)
	for _, c := range m.doc.ChildrenByLabel(n, label) {
		if t, ok := m.refTarget(c, attr); ok {
			out = append(out, t)
		}
	}
	return out
}
