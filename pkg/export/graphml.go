// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

// GraphMLNamespace is the GraphML schema namespace.
const GraphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

// GraphML data keys.
const (
	KeyLabels   = "d0"
	KeyEdgeName = "d1"
)

type gmlDocument struct {
	XMLName xml.Name `xml:"graphml"`
	Xmlns   string   `xml:"xmlns,attr"`
	Keys    []gmlKey `xml:"key"`
	Graph   gmlGraph `xml:"graph"`
}

type gmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type gmlGraph struct {
	EdgeDefault string    `xml:"edgedefault,attr"`
	Nodes       []gmlNode `xml:"node"`
	Edges       []gmlEdge `xml:"edge"`
}

type gmlNode struct {
	ID   string    `xml:"id,attr"`
	Data []gmlData `xml:"data"`
}

type gmlEdge struct {
	ID     string    `xml:"id,attr"`
	Source string    `xml:"source,attr"`
	Target string    `xml:"target,attr"`
	Data   []gmlData `xml:"data"`
}

type gmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteGraphML writes g as a GraphML document for graph viewers.
//
// Nodes carry their labels joined with commas and edges carry their name.
// Property values are not exported.
func WriteGraphML(g *graph.Graph, w io.Writer) error {
	doc := gmlDocument{
		Xmlns: GraphMLNamespace,
		Keys: []gmlKey{
			{ID: KeyLabels, For: "node", Name: "labels", Type: "string"},
			{ID: KeyEdgeName, For: "edge", Name: "name", Type: "string"},
		},
		Graph: gmlGraph{EdgeDefault: "directed"},
	}
	for _, n := range g.Nodes() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, gmlNode{
			ID:   nodeKey(g, n),
			Data: []gmlData{{Key: KeyLabels, Value: strings.Join(g.Labels(n), ",")}},
		})
	}
	for _, e := range g.Edges() {
		doc.Graph.Edges = append(doc.Graph.Edges, gmlEdge{
			ID:     fmt.Sprintf("e%d", g.EdgeSeq(e)),
			Source: nodeKey(g, g.EdgeStart(e)),
			Target: nodeKey(g, g.EdgeEnd(e)),
			Data:   []gmlData{{Key: KeyEdgeName, Value: g.EdgeName(e)}},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode graphml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func nodeKey(g *graph.Graph, n graph.NodeID) string {
	return fmt.Sprintf("n%d", g.Seq(n))
}
