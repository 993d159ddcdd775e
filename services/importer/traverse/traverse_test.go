// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traverse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/source/sourcetest"
)

// walk drains a fresh traversal and returns the emitted relationship ids.
func walk(t *testing.T, store *sourcetest.Store, u Uniqueness) []string {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	cur, err := New(tx, Options{Uniqueness: u}).Relationships(ctx)
	require.NoError(t, err)

	var ids []string
	for cur.Next(ctx) {
		ids = append(ids, cur.Relationship().ID)
	}
	require.NoError(t, cur.Err())
	assert.Equal(t, len(ids), cur.Visited())
	return ids
}

// diamond: a-b, a-c, b-d, c-d, plus d-d self loop.
func diamond() *sourcetest.Store {
	s := sourcetest.New("")
	for _, id := range []string{"a", "b", "c", "d"} {
		s.AddNode(id, nil, nil)
	}
	s.AddRelationship("ab", "a", "b", "T", nil)
	s.AddRelationship("ac", "a", "c", "T", nil)
	s.AddRelationship("bd", "b", "d", "T", nil)
	s.AddRelationship("cd", "c", "d", "T", nil)
	s.AddRelationship("dd", "d", "d", "T", nil)
	return s
}

func TestParseUniqueness(t *testing.T) {
	tests := []struct {
		in      string
		want    Uniqueness
		wantErr bool
	}{
		{"", RelationshipGlobal, false},
		{"relationship", RelationshipGlobal, false},
		{"node", NodeGlobal, false},
		{"path", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUniqueness(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownUniqueness)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Uniqueness {
	t.Helper()
	u, err := ParseUniqueness(s)
	require.NoError(t, err)
	return u
}

func TestWalk_Chain(t *testing.T) {
	ids := walk(t, sourcetest.Chain(3, "KNOWS"), RelationshipGlobal)
	assert.Equal(t, []string{"r1", "r2"}, ids)
}

func TestWalk_FollowsBothDirections(t *testing.T) {
	s := sourcetest.New("")
	s.AddNode("root", nil, nil).AddNode("in", nil, nil).AddNode("out", nil, nil)
	s.AddRelationship("incoming", "in", "root", "T", nil)
	s.AddRelationship("outgoing", "root", "out", "U", nil)

	assert.ElementsMatch(t, []string{"incoming", "outgoing"}, walk(t, s, RelationshipGlobal))
}

func TestWalk_DepthFirstOrder(t *testing.T) {
	ids := walk(t, diamond(), RelationshipGlobal)
	// a -> b -> d -> c, where c still sees the unseen ac back to a.
	// The self loop is emitted once the walk unwinds to d.
	assert.Equal(t, []string{"ab", "bd", "cd", "ac", "dd"}, ids)
}

func TestWalk_Uniqueness(t *testing.T) {
	t.Run("relationship global emits every relationship once", func(t *testing.T) {
		ids := walk(t, diamond(), RelationshipGlobal)
		assert.ElementsMatch(t, []string{"ab", "ac", "bd", "cd", "dd"}, ids)
	})

	t.Run("node global emits the spanning tree", func(t *testing.T) {
		ids := walk(t, diamond(), NodeGlobal)
		assert.Equal(t, []string{"ab", "bd", "cd"}, ids)
	})
}

func TestWalk_EmptyStore(t *testing.T) {
	assert.Empty(t, walk(t, sourcetest.New(""), RelationshipGlobal))
}

func TestWalk_IsolatedRoot(t *testing.T) {
	s := sourcetest.New("")
	s.AddNode("lonely", nil, nil).AddNode("x", nil, nil).AddNode("y", nil, nil)
	s.AddRelationship("xy", "x", "y", "T", nil)

	assert.Empty(t, walk(t, s, RelationshipGlobal), "unreachable nodes are not imported")
}

func TestWalk_LazyExpansion(t *testing.T) {
	s := sourcetest.Chain(4, "NEXT")
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	cur, err := New(tx, Options{}).Relationships(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Expanded, "nothing is read before Next")

	require.True(t, cur.Next(ctx))
	assert.Equal(t, []string{"n1"}, s.Expanded)
}

func TestRelationships_OneShot(t *testing.T) {
	s := sourcetest.Chain(2, "T")
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Finish(ctx)

	tr := New(tx, Options{})
	_, err = tr.Relationships(ctx)
	require.NoError(t, err)
	_, err = tr.Relationships(ctx)
	assert.ErrorIs(t, err, ErrConsumed)
}

func TestCursor_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("expansion failure", func(t *testing.T) {
		boom := errors.New("read failed")
		s := sourcetest.Chain(3, "T")
		s.ExpandErr = map[string]error{"n2": boom}
		tx, _ := s.Begin(ctx)
		defer tx.Finish(ctx)

		cur, err := New(tx, Options{}).Relationships(ctx)
		require.NoError(t, err)
		require.True(t, cur.Next(ctx))
		assert.False(t, cur.Next(ctx))
		assert.ErrorIs(t, cur.Err(), boom)
		assert.False(t, cur.Next(ctx), "cursor stays stopped")
	})

	t.Run("context cancelled", func(t *testing.T) {
		s := sourcetest.Chain(3, "T")
		tx, _ := s.Begin(ctx)
		defer tx.Finish(ctx)

		cctx, cancel := context.WithCancel(ctx)
		cur, err := New(tx, Options{}).Relationships(cctx)
		require.NoError(t, err)
		cancel()
		assert.False(t, cur.Next(cctx))
		assert.ErrorIs(t, cur.Err(), context.Canceled)
	})

	t.Run("root lookup failure", func(t *testing.T) {
		s := sourcetest.New("")
		s.AddNode("a", nil, nil).SetRoot("ghost")
		tx, _ := s.Begin(ctx)
		defer tx.Finish(ctx)

		_, err := New(tx, Options{}).Relationships(ctx)
		assert.ErrorIs(t, err, source.ErrNodeNotFound)
	})
}
