// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package epjson maps JSON simulation input documents onto a graph.
//
// A document is an object of object types, each holding named instances:
//
//	{"Zone": {"Room 1": {"x_origin": 0, "multiplier": 1}}}
//
// Each instance becomes a node labelled with its object type. The instance
// name is stored in the "id" property, followed by the instance fields in
// document order. No edges are created.
package epjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// PropID holds the instance name of each node.
const PropID = "id"

// Sentinel errors for document conversion.
var (
	// ErrMalformedDocument is returned when the input is not an object of
	// objects of objects.
	ErrMalformedDocument = errors.New("malformed epjson document")

	// ErrMissingID is returned when writing a node without a Text id.
	ErrMissingID = errors.New("node has no text id")

	// ErrDuplicateID is returned when two instances share a type and name.
	ErrDuplicateID = errors.New("duplicate instance name")
)

// Read parses a document into a new graph.
//
// Description:
//
//	Streams tokens so field order is kept. JSON numbers become Number,
//	strings Text, booleans Bool, arrays List, objects Map and null Null.
//
// Errors:
//
//	ErrMalformedDocument - Syntax error or unexpected shape.
//	ErrDuplicateID - An object type lists the same instance name twice.
func Read(r io.Reader) (*graph.Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	g := graph.New()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	for dec.More() {
		label, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("%w (object type %q)", err, label)
		}
		seen := make(map[string]struct{})
		for dec.More() {
			name, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: %s %q", ErrDuplicateID, label, name)
			}
			seen[name] = struct{}{}

			fields, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			m, ok := fields.AsMap()
			if !ok {
				return nil, fmt.Errorf("%w: %s %q is not an object", ErrMalformedDocument, label, name)
			}
			if m.Has(PropID) {
				return nil, fmt.Errorf("%w: %s %q has a field named %q", ErrMalformedDocument, label, name, PropID)
			}
			props := graph.NewProperties(graph.Prop(PropID, graph.Text(name)))
			m.Range(func(key string, v graph.Value) bool {
				props.Set(key, v)
				return true
			})
			g.AddNode([]string{label}, props)
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedDocument)
	}
	return g, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformedDocument, want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrMalformedDocument, tok)
	}
	return key, nil
}

// readValue decodes one JSON value from the token stream.
func readValue(dec *json.Decoder) (graph.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return graph.Value{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	switch t := tok.(type) {
	case nil:
		return graph.Null(), nil
	case bool:
		return graph.Bool(t), nil
	case string:
		return graph.Text(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return graph.Value{}, fmt.Errorf("%w: number %s: %v", ErrMalformedDocument, t, err)
		}
		return graph.Number(f), nil
	case json.Delim:
		switch t {
		case '[':
			var items []graph.Value
			for dec.More() {
				v, err := readValue(dec)
				if err != nil {
					return graph.Value{}, err
				}
				items = append(items, v)
			}
			if err := expectDelim(dec, ']'); err != nil {
				return graph.Value{}, err
			}
			return graph.List(items...), nil
		case '{':
			p := graph.NewProperties()
			for dec.More() {
				key, err := readKey(dec)
				if err != nil {
					return graph.Value{}, err
				}
				v, err := readValue(dec)
				if err != nil {
					return graph.Value{}, err
				}
				p.Set(key, v)
			}
			if err := expectDelim(dec, '}'); err != nil {
				return graph.Value{}, err
			}
			return graph.Map(p), nil
		}
	}
	return graph.Value{}, fmt.Errorf("%w: unexpected token %v", ErrMalformedDocument, tok)
}

// Write renders the nodes of g as a document.
//
// Description:
//
//	Nodes are grouped by primary label and id. Every property except id is
//	written as an instance field. Keys are sorted and the output is
//	indented with four spaces, so equal graphs produce equal bytes.
//
// Errors:
//
//	ErrMissingID - A node has no Text id.
//	ErrDuplicateID - Two nodes share a label and id.
func Write(g *graph.Graph, w io.Writer) error {
	doc := make(map[string]map[string]map[string]any)
	for _, n := range g.Nodes() {
		label := g.PrimaryLabel(n)
		idv, ok := g.Property(n, PropID)
		id, isText := idv.AsText()
		if !ok || !isText {
			return fmt.Errorf("%w: %s node %s", ErrMissingID, label, n)
		}
		instances, ok := doc[label]
		if !ok {
			instances = make(map[string]map[string]any)
			doc[label] = instances
		}
		if _, dup := instances[id]; dup {
			return fmt.Errorf("%w: %s %q", ErrDuplicateID, label, id)
		}
		fields := make(map[string]any)
		g.Properties(n).Range(func(key string, v graph.Value) bool {
			if key != PropID {
				fields[key] = v.Interface()
			}
			return true
		})
		instances[id] = fields
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("epjson: encode: %w", err)
	}
	return nil
}
