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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var errSameFile = errors.New("output would overwrite the input")

type convertOptions struct {
	from    string
	to      string
	outDir  string
	stdout  bool
	workers int
}

func newConvertCmd(a *app) *cobra.Command {
	var opts convertOptions
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert documents between formats",
		Long: `Convert reads each file, builds its graph and writes it in the target
format. Files are converted concurrently, one graph per worker.

XML converts to XML only. IDF and epJSON convert to each other and to
themselves.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd.Context(), args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "input format (default: from the file extension)")
	f.StringVar(&opts.to, "to", "", "output format: xml, idf or epjson (required)")
	f.StringVar(&opts.outDir, "out-dir", "", "directory for converted files (default: next to the input)")
	f.BoolVar(&opts.stdout, "stdout", false, "write the single converted document to stdout")
	f.IntVar(&opts.workers, "workers", 0, "concurrent conversions (default: convert.workers)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func (a *app) runConvert(ctx context.Context, inputs []string, opts convertOptions) error {
	to, err := parseFormat(opts.to)
	if err != nil {
		return err
	}
	if opts.stdout {
		if len(inputs) != 1 {
			return errors.New("--stdout takes exactly one input")
		}
		from, err := detectFormat(inputs[0], opts.from)
		if err != nil {
			return err
		}
		g, err := readGraph(ctx, a.rec, inputs[0], from)
		if err != nil {
			return err
		}
		return writeGraph(ctx, a.rec, g, from, to, a.cfg.Output, a.stdout)
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	workers := opts.workers
	if workers <= 0 {
		workers = a.cfg.Convert.Workers
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, input := range inputs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := a.convertFile(ctx, input, opts.from, to, opts.outDir)
			return err
		})
	}
	return eg.Wait()
}

// convertFile converts one input and returns the path written.
func (a *app) convertFile(ctx context.Context, input, fromFlag string, to Format, outDir string) (string, error) {
	start := time.Now()
	from, err := detectFormat(input, fromFlag)
	if err != nil {
		return "", err
	}
	out := outputPath(input, outDir, to)
	if same, _ := samePath(input, out); same {
		return "", fmt.Errorf("%w: %s", errSameFile, input)
	}

	g, err := readGraph(ctx, a.rec, input, from)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := writeGraph(ctx, a.rec, g, from, to, a.cfg.Output, &buf); err != nil {
		return "", fmt.Errorf("%s: %w", input, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return "", err
	}

	a.logger.Info("converted",
		"input", input,
		"output", out,
		"from", string(from),
		"to", string(to),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
