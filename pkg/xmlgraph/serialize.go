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
	"encoding/xml"
	"io"
	"strings"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// Declaration is the XML declaration written by WithDeclaration.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// SerializeOptions controls document output.
type SerializeOptions struct {
	// Indent is repeated once per nesting level before each child element.
	// Empty means compact output on a single line.
	Indent string

	// Declaration prepends the XML declaration.
	Declaration bool
}

// SerializeOption is a functional option for Serialize and Write.
type SerializeOption func(*SerializeOptions)

// WithIndent indents nested elements with the given string.
func WithIndent(indent string) SerializeOption {
	return func(o *SerializeOptions) {
		o.Indent = indent
	}
}

// WithDeclaration prepends the XML declaration.
func WithDeclaration() SerializeOption {
	return func(o *SerializeOptions) {
		o.Declaration = true
	}
}

// Serialize renders the tree under Root as document text.
//
// Description:
//
//	Elements are emitted with their prefix, their attributes in stored
//	order, their text and their children in sibling order. An element with
//	neither text nor children is written as an empty-element tag. When a
//	node's namespace is not bound to its prefix by an enclosing
//	declaration, a declaration is added so the output resolves to the same
//	namespaces.
//
// Errors:
//
//	ErrEmptyDocument - The document has no root.
//
// Example:
//
//	doc, _ := xmlgraph.ParseString("<a><b/><c/></a>")
//	b, _ := doc.Descendant(root, "b")
//	doc.RemoveNode(b)
//	out, _ := doc.Serialize() // "<a><c/></a>"
func (d *Document) Serialize(opts ...SerializeOption) (string, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders the document to w. See Serialize.
func (d *Document) Write(w io.Writer, opts ...SerializeOption) error {
	var o SerializeOptions
	for _, opt := range opts {
		opt(&o)
	}
	root, ok := d.Root()
	if !ok {
		return ErrEmptyDocument
	}

	var buf bytes.Buffer
	if o.Declaration {
		buf.WriteString(Declaration)
		buf.WriteByte('\n')
	}
	d.render(&buf, root, 0, scope{"xml": XMLNamespace}, &o)
	if o.Indent != "" {
		buf.WriteByte('\n')
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteTo writes compact output to w. It implements io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	s, err := d.Serialize()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, s)
	return int64(n), err
}

func (d *Document) render(buf *bytes.Buffer, n graph.NodeID, depth int, outer scope, o *SerializeOptions) {
	name := d.QualifiedName(n)
	attrs := d.Attributes(n)

	inner := outer
	copied := false
	bind := func(prefix, uri string) {
		if !copied {
			inner = make(scope, len(outer)+1)
			for k, v := range outer {
				inner[k] = v
			}
			copied = true
		}
		inner[prefix] = uri
	}
	for _, a := range attrs {
		if prefix, ok := declaredPrefix(splitName(a.Name)); ok {
			bind(prefix, a.Value)
		}
	}
	prefix := d.Prefix(n)
	if uri := d.Namespace(n); prefix != "xml" && inner[prefix] != uri {
		declName := "xmlns"
		if prefix != "" {
			declName = "xmlns:" + prefix
		}
		attrs = append(attrs, Attr{Name: declName, Value: uri})
		bind(prefix, uri)
	}

	buf.WriteByte('<')
	buf.WriteString(name)
	for _, a := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		escape(buf, a.Value)
		buf.WriteByte('"')
	}

	children := d.Children(n)
	text, hasText := d.Text(n)
	if len(children) == 0 && !hasText {
		buf.WriteString("/>")
		return
	}

	buf.WriteByte('>')
	if hasText {
		escape(buf, text)
	}
	for _, c := range children {
		if o.Indent != "" {
			buf.WriteByte('\n')
			buf.WriteString(strings.Repeat(o.Indent, depth+1))
		}
		d.render(buf, c, depth+1, inner, o)
	}
	if o.Indent != "" && len(children) > 0 {
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(o.Indent, depth))
	}
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
}

// splitName turns a qualified name back into an xml.Name.
func splitName(qname string) xml.Name {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return xml.Name{Space: qname[:i], Local: qname[i+1:]}
	}
	return xml.Name{Local: qname}
}

func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
