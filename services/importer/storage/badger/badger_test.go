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
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// newMemoryWriter returns a writer over an in-memory database.
func newMemoryWriter(t *testing.T) *Writer {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	w, err := NewWriter(db)
	require.NoError(t, err)
	return w
}

// seedTriangle writes a→b, b→c, c→a plus an isolated node z.
func seedTriangle(t *testing.T, w *Writer) {
	t.Helper()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "z"} {
		require.NoError(t, w.PutNode(ctx, source.Node{
			ID:         id,
			Labels:     []string{"Person"},
			Properties: map[string]any{"name": id, "age": 30},
		}))
	}
	require.NoError(t, w.PutRelationship(ctx, "r1", "a", "b", "KNOWS", map[string]any{"since": 2001}))
	require.NoError(t, w.PutRelationship(ctx, "r2", "b", "c", "KNOWS", nil))
	require.NoError(t, w.PutRelationship(ctx, "r3", "c", "a", "LIKES", nil))
	require.NoError(t, w.SetRoot(ctx, "a"))
}

func relIDs(rels []source.Relationship) []string {
	ids := make([]string, len(rels))
	for i, r := range rels {
		ids[i] = r.ID
	}
	sort.Strings(ids)
	return ids
}

func TestConfigFunctions(t *testing.T) {
	t.Run("DefaultConfig has SyncWrites", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.True(t, cfg.SyncWrites)
		assert.False(t, cfg.InMemory)
		assert.False(t, cfg.ReadOnly)
		assert.Equal(t, 1, cfg.NumVersionsToKeep)
	})

	t.Run("ReadOnlyConfig never writes", func(t *testing.T) {
		cfg := ReadOnlyConfig("/data/graph")
		assert.True(t, cfg.ReadOnly)
		assert.Equal(t, "/data/graph", cfg.Path)
	})

	t.Run("InMemoryConfig has InMemory", func(t *testing.T) {
		cfg := InMemoryConfig()
		assert.True(t, cfg.InMemory)
		assert.False(t, cfg.SyncWrites)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrPathRequired)
}

func TestOpen_ReadOnlyDoesNotCreateDirectory(t *testing.T) {
	dir, err := TempDir("graphstore-test-")
	require.NoError(t, err)
	defer CleanupDir(dir)

	missing := filepath.Join(dir, "missing")
	_, err = Open(ReadOnlyConfig(missing))
	require.Error(t, err)

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "read-only open must not create the directory")
}

func TestOpen_ReadOnlyRejectsPlainDirectory(t *testing.T) {
	dir, err := TempDir("graphstore-test-")
	require.NoError(t, err)
	defer CleanupDir(dir)

	_, err = Open(ReadOnlyConfig(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a graph store")
}

func TestNewStore_RejectsForeignDatabase(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	}))

	_, err = NewStore(db, nil)
	assert.ErrorIs(t, err, ErrNotGraphStore)
}

func TestStore_RootAndRelationships(t *testing.T) {
	w := newMemoryWriter(t)
	seedTriangle(t, w)

	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)
	defer store.Shutdown(context.Background())
	assert.Equal(t, "local", store.Kind())

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	root, err := tx.RootNode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", root.ID)
	assert.Equal(t, []string{"Person"}, root.Labels)
	assert.Equal(t, int64(30), root.Properties["age"], "integers decode as int64")

	rels, err := tx.Relationships(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r3"}, relIDs(rels), "both directions are expanded")

	for _, r := range rels {
		if r.ID == "r1" {
			assert.Equal(t, "a", r.Start.ID)
			assert.Equal(t, "b", r.End.ID)
			assert.Equal(t, "KNOWS", r.Type)
			assert.Equal(t, int64(2001), r.Properties["since"])
		}
	}

	isolated, err := tx.Relationships(ctx, "z")
	require.NoError(t, err)
	assert.Empty(t, isolated)
}

func TestStore_RootDefaultsToFirstNode(t *testing.T) {
	w := newMemoryWriter(t)
	ctx := context.Background()
	require.NoError(t, w.PutNode(ctx, source.Node{ID: "m"}))
	require.NoError(t, w.PutNode(ctx, source.Node{ID: "k"}))

	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)
	defer store.Shutdown(ctx)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	root, err := tx.RootNode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k", root.ID)
}

func TestStore_EmptyStoreHasNoRoot(t *testing.T) {
	w := newMemoryWriter(t)
	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)
	defer store.Shutdown(context.Background())

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	_, err = tx.RootNode(ctx)
	assert.ErrorIs(t, err, source.ErrRootNotFound)
}

func TestStore_SingleTransaction(t *testing.T) {
	w := newMemoryWriter(t)
	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)
	defer store.Shutdown(context.Background())

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	_, err = store.Begin(ctx)
	assert.ErrorIs(t, err, source.ErrTransactionOpen)

	tx.MarkSuccess()
	require.NoError(t, tx.Finish(ctx))
	assert.ErrorIs(t, tx.Finish(ctx), source.ErrTransactionFinished)

	_, err = tx.RootNode(ctx)
	assert.ErrorIs(t, err, source.ErrTransactionFinished)

	tx2, err := store.Begin(ctx)
	require.NoError(t, err, "finishing releases the store")
	require.NoError(t, tx2.Finish(ctx))
}

func TestStore_BeginAfterShutdown(t *testing.T) {
	w := newMemoryWriter(t)
	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Shutdown(ctx))
	require.NoError(t, store.Shutdown(ctx), "shutdown is idempotent")

	_, err = store.Begin(ctx)
	assert.ErrorIs(t, err, source.ErrStoreClosed)
}

func TestStore_SelfLoopIndexedOnce(t *testing.T) {
	w := newMemoryWriter(t)
	ctx := context.Background()
	require.NoError(t, w.PutNode(ctx, source.Node{ID: "a"}))
	require.NoError(t, w.PutRelationship(ctx, "loop", "a", "a", "SELF", nil))

	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)
	defer store.Shutdown(ctx)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	rels, err := tx.Relationships(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"loop"}, relIDs(rels))
}

func TestWriter_Validation(t *testing.T) {
	w := newMemoryWriter(t)
	defer w.Close()
	ctx := context.Background()

	assert.Error(t, w.PutNode(ctx, source.Node{ID: ""}))
	assert.Error(t, w.PutNode(ctx, source.Node{ID: "a:b"}))

	require.NoError(t, w.PutNode(ctx, source.Node{ID: "a"}))
	err := w.PutRelationship(ctx, "r1", "a", "ghost", "KNOWS", nil)
	assert.ErrorIs(t, err, source.ErrNodeNotFound)

	assert.ErrorIs(t, w.SetRoot(ctx, "ghost"), source.ErrNodeNotFound)

	_, err = Create(Config{ReadOnly: true, Path: "/tmp/x"})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestDB_OpenSettings(t *testing.T) {
	mem, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer mem.Close()
	assert.True(t, mem.InMemory())
	assert.False(t, mem.ReadOnly())
	assert.Empty(t, mem.Path())

	dir, err := TempDir("graphstore-test-")
	require.NoError(t, err)
	defer CleanupDir(dir)

	cfg := DefaultConfig()
	cfg.Path = dir
	w, err := Create(cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, w.DB().Path())
	assert.False(t, w.DB().ReadOnly())
	require.NoError(t, w.Close())

	ro, err := Open(ReadOnlyConfig(dir))
	require.NoError(t, err)
	defer ro.Close()
	assert.True(t, ro.ReadOnly())
	assert.False(t, ro.InMemory())
	assert.Equal(t, dir, ro.Path())

	_, err = NewWriter(ro)
	assert.ErrorIs(t, err, ErrReadOnly, "a read-only database cannot be seeded")
}

func TestOpenStore_PersistentRoundTrip(t *testing.T) {
	dir, err := TempDir("graphstore-test-")
	require.NoError(t, err)
	defer CleanupDir(dir)

	cfg := DefaultConfig()
	cfg.Path = dir
	w, err := Create(cfg)
	require.NoError(t, err)
	seedTriangle(t, w)
	require.NoError(t, w.Close())

	store, err := OpenStore(dir, nil)
	require.NoError(t, err)
	defer store.Shutdown(context.Background())

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	rels, err := tx.Relationships(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, relIDs(rels))
}

func TestAdjPrefixDoesNotMatchLongerIDs(t *testing.T) {
	w := newMemoryWriter(t)
	ctx := context.Background()
	for _, id := range []string{"n1", "n10", "n2"} {
		require.NoError(t, w.PutNode(ctx, source.Node{ID: id}))
	}
	require.NoError(t, w.PutRelationship(ctx, "r", "n10", "n2", "T", nil))

	store, err := NewStore(w.DB(), nil)
	require.NoError(t, err)
	defer store.Shutdown(ctx)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	rels, err := tx.Relationships(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, rels)
}
