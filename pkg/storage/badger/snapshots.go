// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/openbuilding/pkg/export"
	"github.com/AleutianAI/openbuilding/pkg/graph"
	"github.com/AleutianAI/openbuilding/pkg/telemetry"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot has the given ID.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrCorruptSnapshot is returned when stored data no longer matches
	// the fingerprint recorded at save time.
	ErrCorruptSnapshot = errors.New("snapshot data does not match its fingerprint")

	// ErrInvalidName is returned by Save for an empty name.
	ErrInvalidName = errors.New("snapshot name must not be empty")
)

const (
	metaPrefix = "snapshot/meta/"
	dataPrefix = "snapshot/data/"
)

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Bytes       int       `json:"bytes"`
	Fingerprint string    `json:"fingerprint"`

	// Tags are caller-supplied labels such as the source format.
	Tags map[string]string `json:"tags,omitempty"`
}

// SaveOption adds metadata to a snapshot at save time.
type SaveOption func(*SnapshotInfo)

// WithTag attaches a key/value tag to the snapshot.
func WithTag(key, value string) SaveOption {
	return func(info *SnapshotInfo) {
		if info.Tags == nil {
			info.Tags = make(map[string]string)
		}
		info.Tags[key] = value
	}
}

// StoreOption configures a SnapshotStore.
type StoreOption func(*SnapshotStore)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *SnapshotStore) { s.logger = logger }
}

// WithRecorder sets the telemetry recorder used for Save and Load.
func WithRecorder(rec *telemetry.Recorder) StoreOption {
	return func(s *SnapshotStore) { s.rec = rec }
}

// SnapshotStore keeps full structural graph snapshots under random IDs.
//
// Description:
//
//	Each snapshot is two keys: a JSON SnapshotInfo under
//	snapshot/meta/<id> and the graph.MarshalSnapshot bytes under
//	snapshot/data/<id>. Both are written in one transaction. A loaded
//	graph keeps every handle the saved graph had.
//
// Thread Safety:
//
//	Safe for concurrent use. Graphs passed to Save must not be mutated
//	during the call.
type SnapshotStore struct {
	db     *DB
	logger *slog.Logger
	rec    *telemetry.Recorder
	now    func() time.Time
}

// NewSnapshotStore returns a store over db.
func NewSnapshotStore(db *DB, opts ...StoreOption) (*SnapshotStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	s := &SnapshotStore{
		db:     db,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rec == nil {
		s.rec = telemetry.Default()
	}
	return s, nil
}

// Save stores a snapshot of g under name and returns its description.
//
// Description:
//
//	Names are labels for humans and need not be unique; the returned ID
//	is what Load and Delete take.
//
// Errors:
//
//	ErrInvalidName, a snapshot encoding error, or a storage error.
func (s *SnapshotStore) Save(ctx context.Context, name string, g *graph.Graph, opts ...SaveOption) (info SnapshotInfo, err error) {
	ctx, op := s.rec.Start(ctx, "snapshot.save", "badger")
	defer func() { op.End(ctx, g.NodeCount(), err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return SnapshotInfo{}, ErrInvalidName
	}
	data, err := graph.MarshalSnapshot(g)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("encode snapshot: %w", err)
	}
	fp, err := export.Fingerprint(g)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("fingerprint snapshot: %w", err)
	}

	info = SnapshotInfo{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   s.now().UTC(),
		Nodes:       g.NodeCount(),
		Edges:       g.EdgeCount(),
		Bytes:       len(data),
		Fingerprint: fp,
	}
	for _, opt := range opts {
		opt(&info)
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("encode snapshot info: %w", err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(info.ID), data); err != nil {
			return err
		}
		return txn.Set(metaKey(info.ID), meta)
	})
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("save snapshot %s: %w", name, err)
	}

	s.logger.Info("snapshot saved",
		slog.String("id", info.ID),
		slog.String("name", info.Name),
		slog.Int("nodes", info.Nodes),
		slog.Int("edges", info.Edges),
	)
	return info, nil
}

// Load restores the snapshot with the given ID.
//
// Errors:
//
//	ErrSnapshotNotFound, ErrCorruptSnapshot, or graph.ErrInvalidSnapshot
//	when the stored tables are inconsistent.
func (s *SnapshotStore) Load(ctx context.Context, id string) (g *graph.Graph, err error) {
	ctx, op := s.rec.Start(ctx, "snapshot.load", "badger")
	defer func() {
		nodes := 0
		if g != nil {
			nodes = g.NodeCount()
		}
		op.End(ctx, nodes, err)
	}()

	if _, perr := uuid.Parse(id); perr != nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}

	var (
		info SnapshotInfo
		data []byte
	)
	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		if info, err = readInfo(txn, id); err != nil {
			return err
		}
		item, err := txn.Get(dataKey(id))
		if err != nil {
			return notFound(err, id)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	g, err = graph.UnmarshalSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	fp, err := export.Fingerprint(g)
	if err != nil {
		return nil, fmt.Errorf("fingerprint snapshot %s: %w", id, err)
	}
	if fp != info.Fingerprint {
		return nil, fmt.Errorf("%w: %s", ErrCorruptSnapshot, id)
	}
	return g, nil
}

// Info returns the description of one snapshot.
func (s *SnapshotStore) Info(ctx context.Context, id string) (SnapshotInfo, error) {
	var info SnapshotInfo
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		info, err = readInfo(txn, id)
		return err
	})
	return info, err
}

// List returns every snapshot, oldest first. Ties are broken by ID.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	out := []SnapshotInfo{}
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var info SnapshotInfo
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Resolve finds a snapshot by ID, or else the newest one with that name.
func (s *SnapshotStore) Resolve(ctx context.Context, ref string) (SnapshotInfo, error) {
	if info, err := s.Info(ctx, ref); err == nil {
		return info, nil
	} else if !errors.Is(err, ErrSnapshotNotFound) {
		return SnapshotInfo{}, err
	}

	all, err := s.List(ctx)
	if err != nil {
		return SnapshotInfo{}, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Name == ref {
			return all[i], nil
		}
	}
	return SnapshotInfo{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, ref)
}

// Delete removes a snapshot.
//
// Errors:
//
//	ErrSnapshotNotFound if id is unknown.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(id)); err != nil {
			return notFound(err, id)
		}
		if err := txn.Delete(metaKey(id)); err != nil {
			return err
		}
		return txn.Delete(dataKey(id))
	})
	if err != nil {
		return err
	}
	s.logger.Info("snapshot deleted", slog.String("id", id))
	return nil
}

func readInfo(txn *badger.Txn, id string) (SnapshotInfo, error) {
	var info SnapshotInfo
	item, err := txn.Get(metaKey(id))
	if err != nil {
		return info, notFound(err, id)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &info)
	})
	if err != nil {
		return info, fmt.Errorf("decode snapshot info %s: %w", id, err)
	}
	return info, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return err
}

func metaKey(id string) []byte { return []byte(metaPrefix + id) }
func dataKey(id string) []byte { return []byte(dataPrefix + id) }
