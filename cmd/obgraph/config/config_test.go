// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Convert.Workers)
	assert.True(t, cfg.Snapshot.SyncWrites)
	assert.Equal(t, "  ", cfg.Output.Indent)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Convert, cfg.Convert)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
snapshot:
  in_memory: true
  path: ""
convert:
  workers: 16
watch:
  debounce: 1s
  metrics_addr: localhost:9464
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Snapshot.InMemory)
	assert.Equal(t, 16, cfg.Convert.Workers)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "localhost:9464", cfg.Watch.MetricsAddr)
	// untouched keys keep their defaults
	assert.Equal(t, "  ", cfg.Output.Indent)
	assert.Equal(t, 0.5, cfg.Snapshot.GCDiscardRatio)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"workers too low", "convert:\n  workers: 0\n"},
		{"workers too high", "convert:\n  workers: 65\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"discard ratio", "snapshot:\n  gc_discard_ratio: 2\n"},
		{"path required", "snapshot:\n  path: \"\"\n"},
		{"bad metrics addr", "watch:\n  metrics_addr: nonsense\n"},
		{"bad exporter", "telemetry:\n  trace_exporter: zipkin\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, Parse([]byte("unknown_key: 1\n"), &cfg))
	assert.Error(t, Parse([]byte("log: [\n"), &cfg))
	assert.NoError(t, Parse(nil, &cfg))
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "obgraph.yaml")
	cfg := DefaultConfig()
	cfg.Convert.Workers = 9
	cfg.Output.Declaration = false
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Convert, got.Convert)
	assert.Equal(t, cfg.Output, got.Output)
	assert.Equal(t, cfg.Snapshot, got.Snapshot)
	assert.Equal(t, cfg.Watch, got.Watch)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, "x"), ExpandPath("~/x"))
	assert.Equal(t, "/abs", ExpandPath("/abs"))
	assert.Equal(t, "~other", ExpandPath("~other"))
}
