// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides an in-memory labelled property graph.
//
// The graph package is the engine underneath every building data model in
// this module. Nodes carry an ordered list of labels and an ordered property
// map; edges are directed, carry a name and their own property map. Domain
// schemas (BIM, gbXML, EnergyPlus) are nothing more than conventions over
// node labels and edge names.
//
// # Ownership Model
//
// The Graph owns growable tables of nodes and edges. NodeID and EdgeID are
// lightweight handles (table slot plus generation). Removing an entry bumps
// the slot generation, so a handle held across a removal is detected as
// stale instead of silently aliasing a newer entry.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. Exactly one owner mutates a graph at
// a time; callers that share a graph across goroutines must provide their
// own lock. Copy() returns a fully independent graph and is the supported
// way to hand a graph to another owner.
//
// # Errors
//
// Lookups that match nothing return an empty slice or (zero, false), never
// an error. Adding an edge whose endpoint is not a live member of the graph
// returns a *StructuralError. Removing or reading through a stale handle is
// a programming error and panics.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrReferencedNodeNotFound is returned when an edge references a node
	// that is not a live member of this graph.
	ErrReferencedNodeNotFound = errors.New("referenced node not found")

	// ErrInvalidSnapshot is returned when a snapshot cannot be restored
	// because its tables are inconsistent.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrUnknownPayload is returned when a snapshot contains a payload kind
	// that has not been registered with RegisterPayload.
	ErrUnknownPayload = errors.New("unknown payload kind")
)

// StructuralError reports an edge endpoint that is absent from the graph.
//
// It always wraps ErrReferencedNodeNotFound, so callers can test with
// errors.Is(err, ErrReferencedNodeNotFound).
type StructuralError struct {
	// Role is "start" or "end".
	Role string

	// Node is the offending handle.
	Node NodeID
}

// Error implements error.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s node %s", ErrReferencedNodeNotFound, e.Role, e.Node)
}

// Unwrap returns ErrReferencedNodeNotFound.
func (e *StructuralError) Unwrap() error {
	return ErrReferencedNodeNotFound
}
