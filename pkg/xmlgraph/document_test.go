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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// assertTree checks the tree encoding: at most one outgoing first_child and
// next_sibling edge per node, and parent resolution works for every node
// reachable from the root.
func assertTree(t *testing.T, d *Document) {
	t.Helper()
	g := d.Graph()
	for _, n := range g.Nodes() {
		first := g.SuccessorNodes(n, graph.ByEdgeName(EdgeFirstChild))
		next := g.SuccessorNodes(n, graph.ByEdgeName(EdgeNextSibling))
		assert.LessOrEqual(t, len(first), 1, "first_child edges on %s", d.Tag(n))
		assert.LessOrEqual(t, len(next), 1, "next_sibling edges on %s", d.Tag(n))
	}
	root, ok := d.Root()
	if !ok {
		return
	}
	for _, n := range d.Descendants(root) {
		_, ok := d.Parent(n)
		assert.True(t, ok, "parent of %s", d.Tag(n))
	}
}

// outline renders tags and text so tests can compare structure.
func outline(d *Document, n graph.NodeID) string {
	var b strings.Builder
	b.WriteString(d.QualifiedName(n))
	if text, ok := d.Text(n); ok {
		b.WriteString("=" + text)
	}
	children := d.Children(n)
	if len(children) > 0 {
		b.WriteByte('(')
		for i, c := range children {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(outline(d, c))
		}
		b.WriteByte(')')
	}
	return b.String()
}

func mustParse(t *testing.T, s string) (*Document, graph.NodeID) {
	t.Helper()
	d, err := ParseString(s)
	require.NoError(t, err)
	root, ok := d.Root()
	require.True(t, ok)
	return d, root
}

func TestRemoveNode_FirstOfTwo(t *testing.T) {
	d, root := mustParse(t, "<a><b/><c/></a>")
	b, ok := d.Child(root, "b")
	require.True(t, ok)

	d.RemoveNode(b)

	out, err := d.Serialize()
	require.NoError(t, err)
	assert.Equal(t, "<a><c/></a>", out)
	assertTree(t, d)
}

func TestRemoveNode_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		remove string
		want   string
	}{
		{"only child", "<a><b/></a>", "b", "a"},
		{"last child", "<a><b/><c/></a>", "c", "a(b)"},
		{"middle child", "<a><b/><c/><d/></a>", "c", "a(b d)"},
		{"first of three", "<a><b/><c/><d/></a>", "b", "a(c d)"},
		{"subtree", "<a><b><x><y/></x><z/></b><c/></a>", "b", "a(c)"},
		{"nested last", "<a><b><x/><y/></b></a>", "y", "a(b(x))"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, root := mustParse(t, tc.input)
			n, ok := d.Descendant(root, tc.remove)
			require.True(t, ok)

			before := d.Graph().NodeCount()
			removed := len(d.Descendants(n)) + 1
			d.RemoveNode(n)

			assert.Equal(t, tc.want, outline(d, root))
			assert.Equal(t, before-removed, d.Graph().NodeCount())
			assertTree(t, d)
		})
	}
}

func TestRemoveNode_Root(t *testing.T) {
	d, root := mustParse(t, "<a><b/><c/></a>")
	d.RemoveNode(root)

	assert.Equal(t, 0, d.Graph().NodeCount())
	assert.Equal(t, 0, d.Graph().EdgeCount())
	_, err := d.Serialize()
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestRemoveNode_StaleHandlePanics(t *testing.T) {
	d, root := mustParse(t, "<a><b/></a>")
	b, _ := d.FirstChild(root)
	d.RemoveNode(b)
	assert.Panics(t, func() { d.RemoveNode(b) })
}

func TestAppendChild(t *testing.T) {
	d := New()
	root := d.AddRoot(Element{Local: "Campus", Attrs: []Attr{{Name: "id", Value: "c1"}}})
	b1 := d.AppendChild(root, Element{Local: "Building", Text: "B1"})
	b2 := d.AppendChild(root, Element{Local: "Building", Text: "B2"})
	loc := d.AppendChild(root, Element{Local: "Location"})

	assert.Equal(t, []graph.NodeID{b1, b2, loc}, d.Children(root))
	assert.Equal(t, []graph.NodeID{b1, b2}, d.ChildrenByLabel(root, "Building"))
	assert.Equal(t, []graph.NodeID{b1, b2, loc}, d.Siblings(b2))
	assert.Equal(t, []graph.NodeID{loc}, d.NextSiblings(b2))
	assert.Equal(t, []graph.NodeID{b2, b1}, d.PreviousSiblings(loc))

	p, ok := d.Parent(loc)
	require.True(t, ok)
	assert.Equal(t, root, p)

	out, err := d.Serialize()
	require.NoError(t, err)
	assert.Equal(t, `<Campus id="c1"><Building>B1</Building><Building>B2</Building><Location/></Campus>`, out)

	assert.Panics(t, func() { d.AppendChild(graph.NodeID{}, Element{Local: "x"}) })
}

func TestTreeQueries(t *testing.T) {
	d, root := mustParse(t, `<a><b><c><d/></c></b><e><d/></e></a>`)

	c, ok := d.Descendant(root, "c")
	require.True(t, ok)
	dd, ok := d.FirstChild(c)
	require.True(t, ok)

	assert.Equal(t, []string{"c", "b", "a"}, tags(d, d.Ancestors(dd)))
	anc, ok := d.Ancestor(dd, "b")
	require.True(t, ok)
	assert.Equal(t, "b", d.Tag(anc))
	_, ok = d.Ancestor(dd, "zzz")
	assert.False(t, ok)

	assert.Equal(t, []string{"b", "c", "d", "e", "d"}, tags(d, d.Descendants(root)))
	assert.Len(t, d.DescendantsByLabel(root, "d"), 2)

	_, ok = d.Parent(root)
	assert.False(t, ok)
	assert.Equal(t, []graph.NodeID{root}, d.Siblings(root))
	_, ok = d.FirstChild(dd)
	assert.False(t, ok)
	assert.Empty(t, d.Children(dd))
}

func TestAttributes(t *testing.T) {
	d, root := mustParse(t, `<Surface id="s1" surfaceType="ExteriorWall"><Opening id="o1"/></Surface>`)

	assert.Equal(t, []Attr{{"id", "s1"}, {"surfaceType", "ExteriorWall"}}, d.Attributes(root))
	v, ok := d.Attribute(root, "surfaceType")
	require.True(t, ok)
	assert.Equal(t, "ExteriorWall", v)
	_, ok = d.Attribute(root, "missing")
	assert.False(t, ok)

	d.SetAttribute(root, "surfaceType", "Roof")
	d.SetAttribute(root, "constructionIdRef", "c1")
	assert.Equal(t, []Attr{{"id", "s1"}, {"surfaceType", "Roof"}, {"constructionIdRef", "c1"}}, d.Attributes(root))

	assert.True(t, d.DeleteAttribute(root, "surfaceType"))
	assert.False(t, d.DeleteAttribute(root, "surfaceType"))
	assert.Equal(t, []Attr{{"id", "s1"}, {"constructionIdRef", "c1"}}, d.Attributes(root))

	o, ok := d.FilterNodeByAttribute("id", "o1")
	require.True(t, ok)
	assert.Equal(t, "Opening", d.Tag(o))
	assert.Len(t, d.FilterNodesByAttribute("id", "s1"), 1)
	assert.Empty(t, d.FilterNodesByAttribute("id", "nope"))
	_, ok = d.FilterNodeByAttribute("id", "nope")
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	d, root := mustParse(t, "<a>\n   hello world  \n<b>  </b></a>")

	text, ok := d.Text(root)
	require.True(t, ok)
	assert.Equal(t, "hello world", text)

	b, _ := d.FirstChild(root)
	_, ok = d.Text(b)
	assert.False(t, ok, "whitespace-only text is absent")

	d.SetText(b, "x")
	text, _ = d.Text(b)
	assert.Equal(t, "x", text)
	d.SetText(b, "")
	_, ok = d.Text(b)
	assert.False(t, ok)
}

func TestCopy_Independent(t *testing.T) {
	d, root := mustParse(t, "<a><b/></a>")
	c := d.Copy()
	b, _ := c.FirstChild(root)
	c.RemoveNode(b)

	assert.Equal(t, "a(b)", outline(d, root))
	assert.Equal(t, "a", outline(c, root))
}

func TestWriteTo(t *testing.T) {
	d, _ := mustParse(t, "<a><b/></a>")
	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len("<a><b/></a>")), n)
	assert.Equal(t, "<a><b/></a>", buf.String())

	_, err = New().WriteTo(&buf)
	assert.True(t, errors.Is(err, ErrEmptyDocument))
}

func tags(d *Document, nodes []graph.NodeID) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = d.Tag(n)
	}
	return out
}
