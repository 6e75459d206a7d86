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
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("key"))
		require.NoError(t, err)
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestOpenWithPath_Persists(t *testing.T) {
	dir, err := TempDir("badger-test-")
	require.NoError(t, err)
	defer CleanupDir(dir)

	db, err := OpenWithPath(dir)
	require.NoError(t, err)
	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := OpenWithPath(dir)
	require.NoError(t, err)
	defer db2.Close()
	err = db2.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("k"))
		return err
	})
	assert.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestConfigs(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.SyncWrites)
	assert.False(t, cfg.InMemory)
	assert.Equal(t, 1, cfg.NumVersionsToKeep)
	assert.Equal(t, 5*time.Minute, cfg.GCInterval)
	assert.Equal(t, 0.5, cfg.GCDiscardRatio)

	mem := InMemoryConfig()
	assert.True(t, mem.InMemory)
	assert.False(t, mem.SyncWrites)
	assert.Zero(t, mem.GCInterval)
}

func TestDB_Transactions(t *testing.T) {
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte("a"), []byte("1"))
	}))

	var got []byte
	require.NoError(t, db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("a"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	}))
	assert.Equal(t, []byte("1"), got)

	t.Run("error rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTxn(ctx, func(txn *badger.Txn) error {
			if err := txn.Set([]byte("b"), []byte("2")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		err = db.WithReadTxn(ctx, func(txn *badger.Txn) error {
			_, err := txn.Get([]byte("b"))
			return err
		})
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := db.WithTxn(cctx, func(*badger.Txn) error { called = true; return nil })
		assert.ErrorIs(t, err, context.Canceled)
		err = db.WithReadTxn(cctx, func(*badger.Txn) error { called = true; return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestDB_Metadata(t *testing.T) {
	mem, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	assert.True(t, mem.InMemory())
	assert.Empty(t, mem.Path())
	assert.NoError(t, mem.Sync())
	require.NoError(t, mem.Close())
	assert.NoError(t, mem.Close(), "second close returns the first result")

	dir, err := TempDir("badger-meta-")
	require.NoError(t, err)
	defer CleanupDir(dir)

	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.GCInterval = 10 * time.Millisecond
	disk, err := OpenDB(cfg)
	require.NoError(t, err)
	assert.False(t, disk.InMemory())
	assert.Equal(t, dir, disk.Path())
	require.NotNil(t, disk.gc)
	assert.NoError(t, disk.Sync())
	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, disk.Close())
}

func TestGCRunner(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewGCRunner(nil, time.Second, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db, 0, 0.5, nil)
	assert.Error(t, err)
	_, err = NewGCRunner(db, time.Second, 1.5, nil)
	assert.Error(t, err)

	t.Run("stop without start", func(t *testing.T) {
		r, err := NewGCRunner(db, time.Second, 0.5, nil)
		require.NoError(t, err)
		r.Stop()
		r.Stop()
	})

	t.Run("start twice then stop twice", func(t *testing.T) {
		r, err := NewGCRunner(db, time.Hour, 0.5, nil)
		require.NoError(t, err)
		r.Start()
		r.Start()
		r.Stop()
		r.Stop()
	})
}

func TestCleanupDir_Empty(t *testing.T) {
	assert.NoError(t, CleanupDir(""))
}
