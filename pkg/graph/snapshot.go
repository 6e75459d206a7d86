// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is a lossless dump of a graph's tables.
//
// Description:
//
//	A snapshot records every slot, including dead ones, with its
//	generation, plus the free lists and the identity counter. Restoring it
//	with FromSnapshot yields a graph on which handles taken before the
//	snapshot remain valid (or stale) exactly as they were. A snapshot
//	without a lineage restores under a fresh one.
//
//	Adjacency sets are not stored. They always follow edge creation order,
//	so they are rebuilt by replaying live edges in sequence order.
type Snapshot struct {
	Version   int          `json:"version"`
	Lineage   uint64       `json:"lineage,omitempty"`
	Counter   uint64       `json:"counter"`
	Nodes     []NodeRecord `json:"nodes"`
	Edges     []EdgeRecord `json:"edges"`
	FreeNodes []uint32     `json:"free_nodes,omitempty"`
	FreeEdges []uint32     `json:"free_edges,omitempty"`
}

// NodeRecord is one node table slot.
type NodeRecord struct {
	Gen        uint32      `json:"gen"`
	Live       bool        `json:"live"`
	Seq        uint64      `json:"seq,omitempty"`
	Labels     []string    `json:"labels,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
}

// EdgeRecord is one edge table slot.
type EdgeRecord struct {
	Gen        uint32      `json:"gen"`
	Live       bool        `json:"live"`
	Seq        uint64      `json:"seq,omitempty"`
	Start      SlotRef     `json:"start"`
	End        SlotRef     `json:"end"`
	Name       string      `json:"name,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
}

// SlotRef is the serialized form of a NodeID.
type SlotRef struct {
	Slot uint32 `json:"slot"`
	Gen  uint32 `json:"gen"`
}

// Snapshot captures the full state of g. The snapshot shares no storage
// with g.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		Version:   SnapshotVersion,
		Lineage:   g.lineage,
		Counter:   g.counter,
		Nodes:     make([]NodeRecord, len(g.nodes)),
		Edges:     make([]EdgeRecord, len(g.edges)),
		FreeNodes: append([]uint32(nil), g.freeNodes...),
		FreeEdges: append([]uint32(nil), g.freeEdges...),
	}
	for i, ent := range g.nodes {
		rec := NodeRecord{Gen: ent.gen, Live: ent.live}
		if ent.live {
			rec.Seq = ent.seq
			rec.Labels = append([]string(nil), ent.labels...)
			rec.Properties = ent.props.Clone()
		}
		s.Nodes[i] = rec
	}
	for i, ent := range g.edges {
		rec := EdgeRecord{Gen: ent.gen, Live: ent.live}
		if ent.live {
			rec.Seq = ent.seq
			rec.Start = SlotRef{Slot: ent.start.slot, Gen: ent.start.gen}
			rec.End = SlotRef{Slot: ent.end.slot, Gen: ent.end.gen}
			rec.Name = ent.name
			rec.Properties = ent.props.Clone()
		}
		s.Edges[i] = rec
	}
	return s
}

// FromSnapshot rebuilds a graph from s.
//
// Description:
//
//	Validates the tables and restores them verbatim. Live edges are
//	replayed in sequence order to rebuild adjacency.
//
// Outputs:
//
//	*Graph - The restored graph. It shares no storage with s.
//	error - Non-nil if s is inconsistent.
//
// Errors:
//
//	ErrInvalidSnapshot - Unknown version, dangling edge endpoint, duplicate
//	or out-of-range sequence numbers, bad free list.
func FromSnapshot(s *Snapshot) (*Graph, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, s.Version)
	}

	g := &Graph{
		nodes:   make([]nodeEntry, len(s.Nodes)),
		edges:   make([]edgeEntry, len(s.Edges)),
		counter: s.Counter,
		lineage: s.Lineage,
	}
	if g.lineage == 0 {
		g.lineage = newLineage()
	}
	seen := make(map[uint64]struct{}, len(s.Nodes)+len(s.Edges))
	checkSeq := func(what string, slot int, seq uint64) error {
		if seq == 0 || seq > s.Counter {
			return fmt.Errorf("%w: %s slot %d has sequence %d outside 1..%d",
				ErrInvalidSnapshot, what, slot, seq, s.Counter)
		}
		if _, dup := seen[seq]; dup {
			return fmt.Errorf("%w: duplicate sequence %d", ErrInvalidSnapshot, seq)
		}
		seen[seq] = struct{}{}
		return nil
	}

	for i, rec := range s.Nodes {
		if rec.Gen == 0 {
			return nil, fmt.Errorf("%w: node slot %d has generation 0", ErrInvalidSnapshot, i)
		}
		ent := nodeEntry{gen: rec.Gen, live: rec.Live}
		if rec.Live {
			if len(rec.Labels) == 0 {
				return nil, fmt.Errorf("%w: node slot %d has no labels", ErrInvalidSnapshot, i)
			}
			if err := checkSeq("node", i, rec.Seq); err != nil {
				return nil, err
			}
			ent.seq = rec.Seq
			ent.labels = append([]string(nil), rec.Labels...)
			ent.props = rec.Properties.Clone()
			g.nodeOrder = append(g.nodeOrder, uint32(i))
		}
		g.nodes[i] = ent
	}

	for i, rec := range s.Edges {
		if rec.Gen == 0 {
			return nil, fmt.Errorf("%w: edge slot %d has generation 0", ErrInvalidSnapshot, i)
		}
		ent := edgeEntry{gen: rec.Gen, live: rec.Live}
		if rec.Live {
			if err := checkSeq("edge", i, rec.Seq); err != nil {
				return nil, err
			}
			start := NodeID{lineage: g.lineage, slot: rec.Start.Slot, gen: rec.Start.Gen}
			end := NodeID{lineage: g.lineage, slot: rec.End.Slot, gen: rec.End.Gen}
			if !g.Contains(start) || !g.Contains(end) {
				return nil, fmt.Errorf("%w: edge slot %d references a missing node", ErrInvalidSnapshot, i)
			}
			ent.seq = rec.Seq
			ent.start, ent.end = start, end
			ent.name = rec.Name
			ent.props = rec.Properties.Clone()
			g.edgeOrder = append(g.edgeOrder, uint32(i))
		}
		g.edges[i] = ent
	}

	var err error
	if g.freeNodes, err = restoreFreeList("node", s.FreeNodes, len(g.nodes), func(slot uint32) (bool, uint32) {
		return g.nodes[slot].live, g.nodes[slot].gen
	}); err != nil {
		return nil, err
	}
	if g.freeEdges, err = restoreFreeList("edge", s.FreeEdges, len(g.edges), func(slot uint32) (bool, uint32) {
		return g.edges[slot].live, g.edges[slot].gen
	}); err != nil {
		return nil, err
	}

	sort.Slice(g.nodeOrder, func(a, b int) bool {
		return g.nodes[g.nodeOrder[a]].seq < g.nodes[g.nodeOrder[b]].seq
	})
	sort.Slice(g.edgeOrder, func(a, b int) bool {
		return g.edges[g.edgeOrder[a]].seq < g.edges[g.edgeOrder[b]].seq
	})
	for _, slot := range g.edgeOrder {
		ent := &g.edges[slot]
		id := EdgeID{lineage: g.lineage, slot: slot, gen: ent.gen}
		g.nodes[ent.start.slot].out = append(g.nodes[ent.start.slot].out, id)
		g.nodes[ent.end.slot].in = append(g.nodes[ent.end.slot].in, id)
	}
	return g, nil
}

func restoreFreeList(what string, free []uint32, size int, state func(uint32) (bool, uint32)) ([]uint32, error) {
	out := make([]uint32, 0, len(free))
	seen := make(map[uint32]struct{}, len(free))
	for _, slot := range free {
		if int(slot) >= size {
			return nil, fmt.Errorf("%w: free %s slot %d out of range", ErrInvalidSnapshot, what, slot)
		}
		live, gen := state(slot)
		if live || gen == 0 {
			return nil, fmt.Errorf("%w: free %s slot %d is not reusable", ErrInvalidSnapshot, what, slot)
		}
		if _, dup := seen[slot]; dup {
			return nil, fmt.Errorf("%w: free %s slot %d listed twice", ErrInvalidSnapshot, what, slot)
		}
		seen[slot] = struct{}{}
		out = append(out, slot)
	}
	return out, nil
}

// MarshalSnapshot encodes the full state of g as JSON.
func MarshalSnapshot(g *Graph) ([]byte, error) {
	data, err := json.Marshal(g.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("graph: encode snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes JSON written by MarshalSnapshot into a graph.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return FromSnapshot(&s)
}
