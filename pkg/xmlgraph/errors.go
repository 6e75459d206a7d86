// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package xmlgraph encodes element-tree documents as graphs.
//
// Each element becomes a node labelled with its local tag name. Tree
// structure is carried by two edge kinds: a parent has one first_child edge
// to its first child, and each child has one next_sibling edge to the child
// after it. Parents are found by walking back to the first sibling and
// following its incoming first_child edge.
//
// Node properties:
//
//	attributes  Map of qualified attribute name to Text, in document order.
//	            Namespace declarations are kept as xmlns attributes.
//	text        Text ahead of the first child element, trimmed. Absent
//	            when empty. Text that follows a child is dropped.
//	ns          Resolved namespace URI of the tag. Absent when none.
//	prefix      Tag prefix as written. Absent when none.
//
// A Document is not safe for concurrent use, like the graph it wraps.
package xmlgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for document operations.
var (
	// ErrMalformedDocument is wrapped by every *FormatError.
	ErrMalformedDocument = errors.New("malformed xml document")

	// ErrEmptyDocument is returned when serializing a document with no root.
	ErrEmptyDocument = errors.New("document has no root element")
)

// FormatError reports a document that violates the element-tree grammar.
type FormatError struct {
	// Line is the 1-based input line where the problem was detected.
	Line int

	// Msg describes the problem.
	Msg string

	// Err is the underlying tokenizer error, if any.
	Err error
}

// Error implements error.
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: line %d: %s: %v", ErrMalformedDocument, e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: line %d: %s", ErrMalformedDocument, e.Line, e.Msg)
}

// Unwrap returns ErrMalformedDocument and the underlying error.
func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedDocument, e.Err}
	}
	return []error{ErrMalformedDocument}
}
