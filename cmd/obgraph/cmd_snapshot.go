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
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	storage "github.com/AleutianAI/openbuilding/pkg/storage/badger"
)

const (
	tagFormat = "format"
	tagSource = "source"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore graphs in the snapshot store",
	}
	cmd.AddCommand(
		newSnapshotSaveCmd(a),
		newSnapshotLoadCmd(a),
		newSnapshotListCmd(a),
		newSnapshotDeleteCmd(a),
	)
	return cmd
}

func newSnapshotSaveCmd(a *app) *cobra.Command {
	var from, name string
	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Parse a document and store its graph",
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
			if name == "" {
				name = filepath.Base(args[0])
			}

			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			info, err := store.Save(cmd.Context(), name, g,
				storage.WithTag(tagFormat, string(f)),
				storage.WithTag(tagSource, args[0]),
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format (default: from the file extension)")
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: the file name)")
	return cmd
}

func newSnapshotLoadCmd(a *app) *cobra.Command {
	var to, out string
	cmd := &cobra.Command{
		Use:   "load <id|name>",
		Short: "Restore a snapshot and write it as a document",
		Long: `Load restores the snapshot with the given ID, or the newest one with the
given name, and writes it in its source format unless --to says otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			info, err := store.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			g, err := store.Load(ctx, info.ID)
			if err != nil {
				return err
			}

			from, err := parseFormat(info.Tags[tagFormat])
			if err != nil {
				return fmt.Errorf("snapshot %s has no source format: %w", info.ID, err)
			}
			target := from
			if to != "" {
				if target, err = parseFormat(to); err != nil {
					return err
				}
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
			return writeGraph(ctx, a.rec, g, from, target, a.cfg.Output, w)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output format (default: the source format)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newSnapshotListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tFORMAT\tNODES\tEDGES\tCREATED")
			for _, info := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					info.ID, info.Name, info.Tags[tagFormat], info.Nodes, info.Edges,
					info.CreatedAt.Local().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newSnapshotDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete snapshots by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
