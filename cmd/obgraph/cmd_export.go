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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/openbuilding/pkg/export"
	"github.com/AleutianAI/openbuilding/pkg/graph"
)

func newExportCmd(a *app) *cobra.Command {
	var from, as, out string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write a diagnostic view of a document's graph",
		Long: `Export writes a one-way view of the graph:

  graphml     nodes with their labels and edges with their names, for viewers
  projection  canonical JSON of every property and adjacency list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := detectFormat(args[0], from)
			if err != nil {
				return err
			}
			g, err := readGraph(cmd.Context(), a.rec, args[0], f)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := writeExport(g, as, w); err != nil {
				return err
			}
			a.logger.Debug("exported", "input", args[0], "as", as, "output", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format (default: from the file extension)")
	cmd.Flags().StringVar(&as, "as", "graphml", "view to write: graphml or projection")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func writeExport(g *graph.Graph, as string, w io.Writer) error {
	switch as {
	case "graphml":
		return export.WriteGraphML(g, w)
	case "projection":
		data, err := export.Projection(g)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	default:
		return fmt.Errorf("%w: unknown export %q", errUnknownFormat, as)
	}
}
