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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/openbuilding/pkg/telemetry"
)

type watchOptions struct {
	to          Format
	outDir      string
	debounce    time.Duration
	metricsAddr string
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		to          string
		outDir      string
		debounce    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-convert documents whenever they change",
		Long: `Watch converts every supported document under dir once, then again each
time it is written. Changes are debounced. Files already in the target
format are skipped unless --out-dir is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseFormat(to)
			if err != nil {
				return err
			}
			opts := watchOptions{
				to:          target,
				outDir:      outDir,
				debounce:    a.cfg.Watch.Debounce,
				metricsAddr: a.cfg.Watch.MetricsAddr,
			}
			if cmd.Flags().Changed("debounce") {
				opts.debounce = debounce
			}
			if metricsAddr != "" {
				opts.metricsAddr = metricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, args[0], opts, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&to, "to", "", "output format: xml, idf or epjson (required)")
	f.StringVar(&outDir, "out-dir", "", "directory for converted files (default: next to the input)")
	f.DurationVar(&debounce, "debounce", 0, "quiet period before converting (default: watch.debounce)")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address (prometheus exporter only)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// runWatch blocks until ctx is done. ready, if set, is called once the
// initial pass has finished and the watcher is armed.
func (a *app) runWatch(ctx context.Context, root string, opts watchOptions, ready func()) error {
	if info, err := os.Stat(root); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if opts.outDir, err = filepath.Abs(opts.outDir); err != nil {
			return err
		}
	}

	if opts.metricsAddr != "" {
		stopMetrics, err := a.serveMetrics(opts.metricsAddr)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	var initial []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if opts.outDir != "" && sameDir(path, opts.outDir) {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		initial = append(initial, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	a.convertBatch(ctx, initial, opts)
	a.logger.Info("watching", "dir", root, "to", string(opts.to))
	if ready != nil {
		ready()
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.Add(event.Name)
					continue
				}
			}
			pending[event.Name] = struct{}{}
			timer.Reset(opts.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err.Error())

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			a.convertBatch(ctx, paths, opts)
		}
	}
}

// convertBatch converts the convertible paths and logs failures. Outputs
// never feed back: they are either in the target format next to their
// input, or under the skipped output directory.
func (a *app) convertBatch(ctx context.Context, paths []string, opts watchOptions) {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		from, err := detectFormat(path, "")
		if err != nil {
			continue
		}
		if opts.outDir == "" && from == opts.to {
			continue
		}
		if opts.outDir != "" && sameDir(filepath.Dir(abs), opts.outDir) {
			continue
		}

		if _, err := a.convertFile(ctx, path, "", opts.to, opts.outDir); err != nil {
			a.logger.Error("convert failed", "input", path, "error", err.Error())
		}
	}
}

func (a *app) serveMetrics(addr string) (stop func(), err error) {
	handler := telemetry.MetricsHandler()
	if handler == nil {
		return nil, errors.New("metrics address set but the prometheus metric exporter is not enabled")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err.Error())
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func sameDir(path, dir string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator))
}
