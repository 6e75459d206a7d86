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
	"math"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/openbuilding/pkg/graph"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSnapshotStore(db)
	require.NoError(t, err)
	return store
}

func buildingGraph(t *testing.T) (*graph.Graph, graph.NodeID, graph.NodeID) {
	t.Helper()
	g := graph.New()
	space := g.AddNode([]string{"Space"}, graph.NewProperties(graph.Prop("name", graph.Text("Office"))))
	wall := g.AddNode([]string{"Surface"}, graph.NewProperties(graph.Prop("area", graph.Number(9.5))))
	scratch := g.AddNode([]string{"Scratch"}, nil)
	_, err := g.AddEdge(space, wall, "contains", nil)
	require.NoError(t, err)
	g.RemoveNode(scratch)
	return g, space, wall
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, space, wall := buildingGraph(t)

	info, err := store.Save(ctx, " office ", g)
	require.NoError(t, err)
	_, err = uuid.Parse(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "office", info.Name)
	assert.Equal(t, 2, info.Nodes)
	assert.Equal(t, 1, info.Edges)
	assert.Positive(t, info.Bytes)
	assert.Len(t, info.Fingerprint, 64)

	restored, err := store.Load(ctx, info.ID)
	require.NoError(t, err)
	require.True(t, restored.Contains(space), "handles survive a round trip")
	require.True(t, restored.Contains(wall))
	assert.Equal(t, []graph.NodeID{wall}, restored.SuccessorNodes(space))

	// the removed slot is reused the same way in both graphs
	a := g.AddNode([]string{"Zone"}, nil)
	b := restored.AddNode([]string{"Zone"}, nil)
	assert.Equal(t, a, b)
}

func TestSnapshotStore_NonFiniteNumbers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g := graph.New()
	n := g.AddNode([]string{"Sensor"}, graph.NewProperties(
		graph.Prop("reading", graph.Number(math.NaN())),
		graph.Prop("ceiling", graph.Number(math.Inf(1))),
	))

	info, err := store.Save(ctx, "sensors", g)
	require.NoError(t, err)

	restored, err := store.Load(ctx, info.ID)
	require.NoError(t, err)
	assert.True(t, g.Properties(n).Equal(restored.Properties(n)))
}

func TestSnapshotStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = store.Load(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = store.Info(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.ErrorIs(t, store.Delete(ctx, uuid.NewString()), ErrSnapshotNotFound)
	_, err = store.Resolve(ctx, "nothing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestSnapshotStore_InvalidName(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Save(context.Background(), "  ", graph.New())
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestSnapshotStore_ListResolveDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	empty, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	g := graph.New()
	first, err := store.Save(ctx, "model", g)
	require.NoError(t, err)
	g.AddNode([]string{"Zone"}, nil)
	second, err := store.Save(ctx, "model", g)
	require.NoError(t, err)
	other, err := store.Save(ctx, "other", g)
	require.NoError(t, err)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, other.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	got, err := store.Resolve(ctx, "model")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID, "newest snapshot with the name wins")
	got, err = store.Resolve(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, store.Delete(ctx, second.ID))
	_, err = store.Load(ctx, second.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	got, err = store.Resolve(ctx, "model")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	all, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSnapshotStore_Corrupt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	g, _, _ := buildingGraph(t)
	info, err := store.Save(ctx, "office", g)
	require.NoError(t, err)

	// swap in data from a different graph
	other := graph.New()
	other.AddNode([]string{"Zone"}, nil)
	data, err := graph.MarshalSnapshot(other)
	require.NoError(t, err)
	require.NoError(t, store.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(dataKey(info.ID), data)
	}))
	_, err = store.Load(ctx, info.ID)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)

	require.NoError(t, store.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(dataKey(info.ID), []byte("{"))
	}))
	_, err = store.Load(ctx, info.ID)
	assert.ErrorIs(t, err, graph.ErrInvalidSnapshot)
}

func TestNewSnapshotStore_NilDB(t *testing.T) {
	_, err := NewSnapshotStore(nil)
	assert.Error(t, err)
}

func TestSnapshotStore_Tags(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Save(ctx, "zone", graph.New(), WithTag("format", "idf"), WithTag("source", "zone.idf"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"format": "idf", "source": "zone.idf"}, info.Tags)

	got, err := store.Info(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, info.Tags, got.Tags)
	assert.True(t, info.CreatedAt.Equal(got.CreatedAt))
}
