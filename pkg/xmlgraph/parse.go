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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// XMLNamespace is the namespace permanently bound to the xml prefix.
const XMLNamespace = "http://www.w3.org/XML/1998/namespace"

// ParseString parses a document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads an element-tree document into a new Document.
//
// Description:
//
//	Recursive descent over the raw token stream. Each element becomes a
//	node labelled with its local name and is attached to its parent with
//	AppendChild. Direct character data of an element is concatenated and
//	trimmed. Comments, processing instructions and directives are
//	skipped. Prefixes are kept as written and resolved against the
//	in-scope declarations.
//
// Outputs:
//
//	*Document - The parsed document.
//	error - A *FormatError wrapping ErrMalformedDocument on bad input.
//
// Errors:
//
//	Mismatched end tag, element left open at EOF, no root element, content
//	after the root, undeclared prefix, tokenizer syntax errors.
func Parse(r io.Reader) (*Document, error) {
	p := &parser{
		dec: xml.NewDecoder(r),
		doc: New(),
	}
	if err := p.document(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// scope maps prefixes to namespace URIs. The empty prefix is the default
// namespace.
type scope map[string]string

type parser struct {
	dec *xml.Decoder
	doc *Document
}

func (p *parser) line() int {
	line, _ := p.dec.InputPos()
	return line
}

func (p *parser) errorf(format string, args ...any) error {
	return &FormatError{Line: p.line(), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) tokenError(err error) error {
	var serr *xml.SyntaxError
	if errors.As(err, &serr) {
		return &FormatError{Line: serr.Line, Msg: "syntax error", Err: err}
	}
	return &FormatError{Line: p.line(), Msg: "read error", Err: err}
}

// document parses the prolog, exactly one root element and the epilog.
func (p *parser) document() error {
	root := scope{"xml": XMLNamespace}
	seenRoot := false
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			if !seenRoot {
				return p.errorf("no root element")
			}
			return nil
		}
		if err != nil {
			return p.tokenError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if seenRoot {
				return p.errorf("content after root element: <%s>", rawName(t.Name))
			}
			seenRoot = true
			if err := p.element(t.Copy(), graph.NodeID{}, false, root); err != nil {
				return err
			}
		case xml.EndElement:
			return p.errorf("unexpected end tag </%s>", rawName(t.Name))
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				if seenRoot {
					return p.errorf("content after root element")
				}
				return p.errorf("text before root element")
			}
		}
	}
}

// element parses the content of start up to and including its end tag.
func (p *parser) element(start xml.StartElement, parent graph.NodeID, hasParent bool, outer scope) error {
	sc := outer
	copied := false
	for _, a := range start.Attr {
		prefix, declared := declaredPrefix(a.Name)
		if !declared {
			continue
		}
		if !copied {
			sc = make(scope, len(outer)+1)
			for k, v := range outer {
				sc[k] = v
			}
			copied = true
		}
		sc[prefix] = a.Value
	}

	el := Element{
		Local:  start.Name.Local,
		Prefix: start.Name.Space,
		Attrs:  make([]Attr, 0, len(start.Attr)),
	}
	ns, ok := sc[el.Prefix]
	if !ok && el.Prefix != "" {
		return p.errorf("undeclared prefix %q on <%s>", el.Prefix, rawName(start.Name))
	}
	el.Namespace = ns
	for _, a := range start.Attr {
		if a.Name.Space != "" && a.Name.Space != "xmlns" {
			if _, ok := sc[a.Name.Space]; !ok {
				return p.errorf("undeclared prefix %q on attribute %s", a.Name.Space, rawName(a.Name))
			}
		}
		el.Attrs = append(el.Attrs, Attr{Name: rawName(a.Name), Value: a.Value})
	}

	var node graph.NodeID
	if hasParent {
		node = p.doc.AppendChild(parent, el)
	} else {
		node = p.doc.AddRoot(el)
	}

	// only text ahead of the first child is kept
	var text bytes.Buffer
	sawChild := false
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			return p.errorf("unterminated element <%s>", rawName(start.Name))
		}
		if err != nil {
			return p.tokenError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			sawChild = true
			if err := p.element(t.Copy(), node, true, sc); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name != start.Name {
				return p.errorf("end tag </%s> does not match <%s>", rawName(t.Name), rawName(start.Name))
			}
			p.doc.SetText(node, strings.TrimSpace(text.String()))
			return nil
		case xml.CharData:
			if !sawChild {
				text.Write(t)
			}
		}
	}
}

// declaredPrefix reports whether name is a namespace declaration and the
// prefix it binds.
func declaredPrefix(name xml.Name) (string, bool) {
	switch {
	case name.Space == "" && name.Local == "xmlns":
		return "", true
	case name.Space == "xmlns":
		return name.Local, true
	default:
		return "", false
	}
}

func rawName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
