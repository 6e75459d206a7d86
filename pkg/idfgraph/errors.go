// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package idfgraph encodes ordered record streams as a chain of "next" edges.
//
// The record syntax is the line-record form used by simulation input files:
//
//	record := label ("," field)* ";"
//
// A "!" starts a comment that runs to the end of the line. Parsed fields are
// stored positionally as Text properties keyed F1..Fn; mapping positions to
// field names belongs to the schema layer.
package idfgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for sequence operations.
var (
	// ErrMalformedRecord is wrapped by every *FormatError.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnsupportedValue is returned when a property cannot be written as a
	// record field.
	ErrUnsupportedValue = errors.New("value cannot be written as a record field")
)

// FormatError reports input that violates the record grammar.
type FormatError struct {
	// Line is the 1-based line on which the offending record starts.
	Line int

	// Msg describes the problem.
	Msg string
}

// Error implements error.
func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", ErrMalformedRecord, e.Line, e.Msg)
}

// Unwrap returns ErrMalformedRecord.
func (e *FormatError) Unwrap() error {
	return ErrMalformedRecord
}
