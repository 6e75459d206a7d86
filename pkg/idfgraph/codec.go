// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package idfgraph

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// Syntax characters of the record format.
const (
	FieldSeparator    = ','
	RecordTerminator  = ';'
	CommentMarker     = '!'
	fieldKeyPrefix    = "F"
	reservedFieldChar = ",;!\n\r"
)

// FieldKey returns the positional property key for the i-th field, 1-based.
func FieldKey(i int) string {
	return fieldKeyPrefix + strconv.Itoa(i)
}

// ParseString parses records held in a string.
func ParseString(s string) (*Sequence, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a record stream into a new Sequence.
//
// Description:
//
//	Comments are stripped from each line first. The remaining text is
//	split on the record terminator, each record on the field separator,
//	and every token is trimmed. The first token is the label; the others
//	become Text properties F1..Fn. Records are appended in input order.
//
// Errors:
//
//	*FormatError wrapping ErrMalformedRecord for a record with an empty
//	label and for trailing text with no terminator.
func Parse(r io.Reader) (*Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("idfgraph: read: %w", err)
	}

	seq := New()
	var (
		record    strings.Builder
		startLine int
		tail      graph.NodeID
	)
	for i, line := range strings.Split(string(data), "\n") {
		lineNo := i + 1
		if c := strings.IndexByte(line, CommentMarker); c >= 0 {
			line = line[:c]
		}
		for {
			end := strings.IndexByte(line, RecordTerminator)
			if end < 0 {
				if startLine == 0 && strings.TrimSpace(line) != "" {
					startLine = lineNo
				}
				record.WriteString(line)
				record.WriteByte('\n')
				break
			}
			if startLine == 0 {
				startLine = lineNo
			}
			record.WriteString(line[:end])
			if tail, err = seq.appendRecord(tail, record.String(), startLine); err != nil {
				return nil, err
			}
			record.Reset()
			startLine = 0
			line = line[end+1:]
		}
	}
	if strings.TrimSpace(record.String()) != "" {
		return nil, &FormatError{Line: startLine, Msg: "record is missing its terminator"}
	}
	return seq, nil
}

// appendRecord parses one record and links it after tail. The parser
// tracks the tail itself so loading stays linear.
func (s *Sequence) appendRecord(tail graph.NodeID, text string, line int) (graph.NodeID, error) {
	tokens := strings.Split(text, string(FieldSeparator))
	label := strings.TrimSpace(tokens[0])
	if label == "" {
		return tail, &FormatError{Line: line, Msg: "record has an empty label"}
	}
	props := graph.NewProperties()
	for i, tok := range tokens[1:] {
		props.Set(FieldKey(i+1), graph.Text(strings.TrimSpace(tok)))
	}
	n := s.g.AddNode([]string{label}, props)
	if !tail.IsZero() {
		s.mustLink(tail, n)
	}
	return n, nil
}

// Serialize renders the records from head to tail.
//
// Description:
//
//	Each record is written as its primary label followed by its property
//	values in insertion order, separated by commas and terminated by
//	";\n". A record without properties is written as "label;". Numbers use
//	the shortest round-trip form, Bools are "true" or "false", Null is an
//	empty field and Lists contribute one field per element.
//
// Errors:
//
//	ErrUnsupportedValue - A Map or Payload value, or Text containing a
//	separator, terminator, comment marker or line break.
func (s *Sequence) Serialize() (string, error) {
	var b strings.Builder
	for _, n := range s.Records() {
		fields, err := s.Fields(n)
		if err != nil {
			return "", fmt.Errorf("record %s: %w", s.Label(n), err)
		}
		b.WriteString(s.Label(n))
		for _, f := range fields {
			b.WriteByte(FieldSeparator)
			b.WriteString(f)
		}
		b.WriteByte(RecordTerminator)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// WriteTo writes the serialized records to w. It implements io.WriterTo.
func (s *Sequence) WriteTo(w io.Writer) (int64, error) {
	out, err := s.Serialize()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, out)
	return int64(n), err
}

// appendField renders v as one or more record fields.
func appendField(fields []string, key string, v graph.Value) ([]string, error) {
	switch v.Kind() {
	case graph.KindNull:
		return append(fields, ""), nil
	case graph.KindNumber, graph.KindBool:
		return append(fields, v.String()), nil
	case graph.KindText:
		text, _ := v.AsText()
		if strings.ContainsAny(text, reservedFieldChar) {
			return nil, fmt.Errorf("%w: field %s contains a reserved character", ErrUnsupportedValue, key)
		}
		return append(fields, text), nil
	case graph.KindList:
		items, _ := v.AsList()
		var err error
		for _, item := range items {
			if fields, err = appendField(fields, key, item); err != nil {
				return nil, err
			}
		}
		return fields, nil
	default:
		return nil, fmt.Errorf("%w: field %s is a %s", ErrUnsupportedValue, key, v.Kind())
	}
}
