// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the obgraph YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/openbuilding/pkg/telemetry"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the obgraph configuration file.
type Config struct {
	Log       LogConfig        `yaml:"log"`
	Snapshot  SnapshotConfig   `yaml:"snapshot"`
	Output    OutputConfig     `yaml:"output"`
	Convert   ConvertConfig    `yaml:"convert"`
	Watch     WatchConfig      `yaml:"watch"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

// SnapshotConfig locates the snapshot database.
type SnapshotConfig struct {
	Path           string        `yaml:"path" validate:"required_unless=InMemory true"`
	InMemory       bool          `yaml:"in_memory"`
	SyncWrites     bool          `yaml:"sync_writes"`
	GCInterval     time.Duration `yaml:"gc_interval" validate:"min=0"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio" validate:"gte=0,lte=1"`
}

// OutputConfig controls XML rendering.
type OutputConfig struct {
	Indent      string `yaml:"indent" validate:"max=8"`
	Declaration bool   `yaml:"declaration"`
}

type ConvertConfig struct {
	// Workers bounds how many files convert at once.
	Workers int `yaml:"workers" validate:"min=1,max=64"`
}

type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce" validate:"min=0"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Snapshot: SnapshotConfig{
			Path:           filepath.Join("~", ".openbuilding", "snapshots"),
			SyncWrites:     true,
			GCInterval:     5 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Output: OutputConfig{
			Indent:      "  ",
			Declaration: true,
		},
		Convert:   ConvertConfig{Workers: 4},
		Watch:     WatchConfig{Debounce: 250 * time.Millisecond},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// DefaultPath returns ~/.openbuilding/obgraph.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".openbuilding", "obgraph.yaml"), nil
}

// Load reads the configuration at path over the defaults and validates it.
//
// Description:
//
//	An empty path means DefaultPath. A missing default file yields the
//	defaults; a missing explicit path is an error. Keys absent from the
//	file keep their default values.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, Validate(cfg)
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, Validate(cfg)
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Save writes cfg to path as YAML, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
