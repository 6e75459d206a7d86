// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export writes one-directional diagnostic views of a graph.
//
// None of these forms can be read back. Use graph.MarshalSnapshot for a
// lossless dump.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/gowebpki/jcs"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

type projectedNode struct {
	ID         uint64         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	In         []uint64       `json:"in"`
	Out        []uint64       `json:"out"`
}

type projectedEdge struct {
	ID         uint64         `json:"id"`
	Start      uint64         `json:"start"`
	End        uint64         `json:"end"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

type projection struct {
	Nodes []projectedNode `json:"nodes"`
	Edges []projectedEdge `json:"edges"`
}

// Projection renders the properties and adjacency of g as canonical JSON.
//
// Description:
//
//	Entries are identified by their sequence numbers. Property values are
//	plain JSON, with NaN and infinities written as the strings "NaN",
//	"+Inf" and "-Inf". The output is canonicalized per RFC 8785, so two
//	graphs with the same content and history produce identical bytes.
//
// Errors:
//
//	Returns an error if a payload cannot be encoded.
func Projection(g *graph.Graph) ([]byte, error) {
	p := projection{
		Nodes: make([]projectedNode, 0, g.NodeCount()),
		Edges: make([]projectedEdge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		p.Nodes = append(p.Nodes, projectedNode{
			ID:         g.Seq(n),
			Labels:     g.Labels(n),
			Properties: plain(g.Properties(n)),
			In:         edgeSeqs(g, g.InEdges(n)),
			Out:        edgeSeqs(g, g.OutEdges(n)),
		})
	}
	for _, e := range g.Edges() {
		p.Edges = append(p.Edges, projectedEdge{
			ID:         g.EdgeSeq(e),
			Start:      g.Seq(g.EdgeStart(e)),
			End:        g.Seq(g.EdgeEnd(e)),
			Name:       g.EdgeName(e),
			Properties: plain(g.EdgeProperties(e)),
		})
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("export: encode projection: %w", err)
	}
	data, err = jcs.Transform(data)
	if err != nil {
		return nil, fmt.Errorf("export: canonicalize projection: %w", err)
	}
	return data, nil
}

// Fingerprint returns the hex SHA-256 digest of the projection of g.
func Fingerprint(g *graph.Graph) (string, error) {
	data, err := Projection(g)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func plain(p *graph.Properties) map[string]any {
	out := make(map[string]any, p.Len())
	p.Range(func(key string, v graph.Value) bool {
		out[key] = plainValue(v)
		return true
	})
	return out
}

func plainValue(v graph.Value) any {
	switch v.Kind() {
	case graph.KindNumber:
		f, _ := v.AsNumber()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return f
	case graph.KindList:
		items, _ := v.AsList()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = plainValue(item)
		}
		return out
	case graph.KindMap:
		m, _ := v.AsMap()
		return plain(m)
	default:
		return v.Interface()
	}
}

func edgeSeqs(g *graph.Graph, ids []graph.EdgeID) []uint64 {
	out := make([]uint64, len(ids))
	for i, e := range ids {
		out[i] = g.EdgeSeq(e)
	}
	return out
}
