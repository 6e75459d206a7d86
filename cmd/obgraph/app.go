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
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/openbuilding/cmd/obgraph/config"
	"github.com/AleutianAI/openbuilding/pkg/logging"
	storage "github.com/AleutianAI/openbuilding/pkg/storage/badger"
	"github.com/AleutianAI/openbuilding/pkg/telemetry"
)

// app carries state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	inMemory   bool

	cfg      config.Config
	level    logging.Level
	logger   *logging.Logger
	rec      *telemetry.Recorder
	shutdown func(context.Context) error

	stdout io.Writer
	stderr io.Writer
}

func newApp() *app {
	return &app{stdout: os.Stdout, stderr: os.Stderr}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "obgraph",
		Short: "Convert and inspect building model documents as property graphs",
		Long: `obgraph loads XML (gbXML and similar), IDF and epJSON building models
into an in-memory labelled property graph, writes them back out, exports
diagnostic views and keeps snapshots in a local BadgerDB store.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.openbuilding/obgraph.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.jsonLogs, "json-logs", false, "write logs as JSON")
	flags.BoolVar(&a.inMemory, "in-memory", false, "keep snapshots in memory for this run only")

	root.AddCommand(
		newConvertCmd(a),
		newStatsCmd(a),
		newExportCmd(a),
		newSnapshotCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and starts logging and
// telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.jsonLogs {
		cfg.Log.JSON = true
	}
	if a.inMemory {
		cfg.Snapshot.InMemory = true
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.level = level
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "obgraph",
		JSON:    cfg.Log.JSON,
		Output:  a.stderr,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	a.rec = telemetry.Default()
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if a.shutdown != nil {
		err = a.shutdown(ctx)
	}
	if a.logger != nil {
		if cerr := a.logger.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// openStore opens the snapshot database named by the configuration.
func (a *app) openStore() (*storage.DB, *storage.SnapshotStore, error) {
	sc := a.cfg.Snapshot
	dbCfg := storage.DefaultConfig()
	dbCfg.InMemory = sc.InMemory
	dbCfg.Path = config.ExpandPath(sc.Path)
	dbCfg.SyncWrites = sc.SyncWrites
	dbCfg.GCInterval = sc.GCInterval
	dbCfg.GCDiscardRatio = sc.GCDiscardRatio
	if a.level == logging.LevelDebug {
		dbCfg.Logger = a.logger.With("component", "badger").Slog()
	}

	db, err := storage.OpenDB(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}
	store, err := storage.NewSnapshotStore(db,
		storage.WithLogger(a.logger.Slog()),
		storage.WithRecorder(a.rec),
	)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}
