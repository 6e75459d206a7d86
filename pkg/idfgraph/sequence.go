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

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// EdgeNext links each record to the one after it.
const EdgeNext = "next"

// Sequence is a totally ordered list of records stored as a graph.
//
// Description:
//
//	Nodes form a simple path under EdgeNext: one head with no incoming
//	next edge, one tail with no outgoing next edge. Append and RemoveNode
//	keep that shape.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type Sequence struct {
	g *graph.Graph
}

// New returns an empty sequence.
func New() *Sequence {
	return &Sequence{g: graph.New()}
}

// Wrap returns a sequence view over an existing graph. The graph is shared.
func Wrap(g *graph.Graph) *Sequence {
	return &Sequence{g: g}
}

// Graph returns the underlying graph.
func (s *Sequence) Graph() *graph.Graph { return s.g }

// Copy returns an independent deep copy.
func (s *Sequence) Copy() *Sequence { return &Sequence{g: s.g.Copy()} }

// Len returns the number of records.
func (s *Sequence) Len() int { return s.g.NodeCount() }

// Head returns the first node in creation order with no incoming next edge.
func (s *Sequence) Head() (graph.NodeID, bool) {
	for _, n := range s.g.Nodes() {
		if _, ok := s.Previous(n); !ok {
			return n, true
		}
	}
	return graph.NodeID{}, false
}

// Tail returns the last node in creation order with no outgoing next edge.
func (s *Sequence) Tail() (graph.NodeID, bool) {
	nodes := s.g.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if _, ok := s.Next(nodes[i]); !ok {
			return nodes[i], true
		}
	}
	return graph.NodeID{}, false
}

// Next returns the record after n.
func (s *Sequence) Next(n graph.NodeID) (graph.NodeID, bool) {
	return s.g.SuccessorNode(n, graph.ByEdgeName(EdgeNext))
}

// Previous returns the record before n.
func (s *Sequence) Previous(n graph.NodeID) (graph.NodeID, bool) {
	return s.g.PredecessorNode(n, graph.ByEdgeName(EdgeNext))
}

// Append adds a record after the current tail and returns it.
//
// Locating the tail is an O(n) scan.
func (s *Sequence) Append(labels []string, props *graph.Properties) graph.NodeID {
	tail, hasTail := s.Tail()
	n := s.g.AddNode(labels, props)
	if hasTail {
		s.mustLink(tail, n)
	}
	return n
}

// RemoveNode splices n out of the chain and deletes it.
//
// If n has both a predecessor and a successor they are linked directly.
//
// Panics:
//
//	If n is not a live node of the sequence.
func (s *Sequence) RemoveNode(n graph.NodeID) {
	prev, hasPrev := s.Previous(n)
	next, hasNext := s.Next(n)
	if hasPrev && hasNext {
		s.mustLink(prev, next)
	}
	s.g.RemoveNode(n)
}

func (s *Sequence) mustLink(from, to graph.NodeID) {
	if _, err := s.g.AddEdge(from, to, EdgeNext, nil); err != nil {
		panic(fmt.Sprintf("idfgraph: link: %v", err))
	}
}

// Records returns the chain from head to tail. The walk stops if it would
// revisit a node.
func (s *Sequence) Records() []graph.NodeID {
	out := make([]graph.NodeID, 0, s.g.NodeCount())
	n, ok := s.Head()
	seen := make(map[graph.NodeID]struct{}, s.g.NodeCount())
	for ok {
		if _, dup := seen[n]; dup {
			break
		}
		seen[n] = struct{}{}
		out = append(out, n)
		n, ok = s.Next(n)
	}
	return out
}

// Label returns the record type of n.
func (s *Sequence) Label(n graph.NodeID) string { return s.g.PrimaryLabel(n) }

// Fields returns the rendered field values of n in property order.
func (s *Sequence) Fields(n graph.NodeID) ([]string, error) {
	var fields []string
	var err error
	s.g.Properties(n).Range(func(key string, v graph.Value) bool {
		fields, err = appendField(fields, key, v)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}
