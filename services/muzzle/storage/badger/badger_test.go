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

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())

	ctx := context.Background()
	require.NoError(t, db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set([]byte("artifact/a"), []byte("v"))
	}))
	require.NoError(t, db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("artifact/a"))
		require.NoError(t, err)
		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("v"), val)
			return nil
		})
	}))
}

func TestOpen_Persistent(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("k"), []byte("persisted"))
	}))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	cfg.ReadOnly = true
	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, dir, reopened.Path())

	require.NoError(t, reopened.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("k"))
		require.NoError(t, err)
		v, err := item.ValueCopy(nil)
		require.NoError(t, err)
		assert.Equal(t, "persisted", string(v))
		return nil
	}))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestWithTxn(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	t.Run("rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.WithTxn(context.Background(), func(txn *badger.Txn) error {
			require.NoError(t, txn.Set([]byte("rolled"), []byte("x")))
			return boom
		})
		require.ErrorIs(t, err, boom)

		err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
			_, err := txn.Get([]byte("rolled"))
			return err
		})
		require.ErrorIs(t, err, badger.ErrKeyNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := db.WithTxn(ctx, func(*badger.Txn) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
		err = db.WithReadTxn(ctx, func(*badger.Txn) error { return nil })
		require.ErrorIs(t, err, context.Canceled)
	})
}
