// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/openbuilding/pkg/export"
	"github.com/AleutianAI/openbuilding/pkg/gbxml"
	"github.com/AleutianAI/openbuilding/pkg/graph"
	"github.com/AleutianAI/openbuilding/pkg/xmlgraph"
)

type statsReport struct {
	File        string `json:"file"`
	Format      Format `json:"format"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	GBXML       *gbxml.Summary `json:"gbxml,omitempty"`
	graph.Stats
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		from        string
		asJSON      bool
		fingerprint bool
	)
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Count nodes by label and edges by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := detectFormat(args[0], from)
			if err != nil {
				return err
			}
			g, err := readGraph(cmd.Context(), a.rec, args[0], f)
			if err != nil {
				return err
			}
			report := statsReport{File: args[0], Format: f, Stats: g.Stats()}
			if f == FormatXML {
				if m := gbxml.Wrap(xmlgraph.Wrap(g)); m.IsGBXML() {
					sum := m.Summarize()
					report.GBXML = &sum
				}
			}
			if fingerprint {
				if report.Fingerprint, err = export.Fingerprint(g); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printStats(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format (default: from the file extension)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&fingerprint, "fingerprint", false, "include the content fingerprint")
	return cmd
}

func printStats(w io.Writer, r statsReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file\t%s\n", r.File)
	fmt.Fprintf(tw, "format\t%s\n", r.Format)
	fmt.Fprintf(tw, "nodes\t%d\n", r.Nodes)
	fmt.Fprintf(tw, "edges\t%d\n", r.Edges)
	if r.Fingerprint != "" {
		fmt.Fprintf(tw, "fingerprint\t%s\n", r.Fingerprint)
	}
	if b := r.GBXML; b != nil {
		fmt.Fprintf(tw, "gbxml\tcampuses=%d buildings=%d spaces=%d surfaces=%d zones=%d\n",
			b.Campuses, b.Buildings, b.Spaces, b.Surfaces, b.Zones)
	}
	for _, label := range sortedKeys(r.NodesByLabel) {
		fmt.Fprintf(tw, "  label %s\t%d\n", label, r.NodesByLabel[label])
	}
	for _, name := range sortedKeys(r.EdgesByName) {
		fmt.Fprintf(tw, "  edge %s\t%d\n", name, r.EdgesByName[name])
	}
	return tw.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
