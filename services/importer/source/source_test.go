// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package source

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationship_Other(t *testing.T) {
	a := Node{ID: "a"}
	b := Node{ID: "b"}

	tests := []struct {
		name   string
		rel    Relationship
		from   string
		wantID string
	}{
		{"from start", Relationship{Start: a, End: b}, "a", "b"},
		{"from end", Relationship{Start: a, End: b}, "b", "a"},
		{"self loop", Relationship{Start: a, End: a}, "a", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantID, tt.rel.Other(tt.from).ID)
		})
	}
}

func TestAddressFormatError(t *testing.T) {
	cause := &url.Error{Op: "parse", URL: "::", Err: errors.New("missing protocol scheme")}
	err := error(&AddressFormatError{Address: "::", Reason: "unparseable", Cause: cause})

	var afe *AddressFormatError
	require.True(t, errors.As(err, &afe))
	assert.Equal(t, "::", afe.Address)
	assert.Contains(t, err.Error(), "malformed store address")
	assert.Contains(t, err.Error(), "unparseable")

	var ue *url.Error
	assert.True(t, errors.As(err, &ue), "cause should be reachable through Unwrap")
}

func TestConnectionError(t *testing.T) {
	err := error(&ConnectionError{Target: "/tmp/nope", Kind: "local", Cause: ErrNodeNotFound})

	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "local", ce.Kind)
	assert.True(t, errors.Is(err, ErrNodeNotFound))
	assert.Equal(t, `cannot connect to local store "/tmp/nope": node not found`, err.Error())
}

func TestCredentials(t *testing.T) {
	t.Run("seals and opens password", func(t *testing.T) {
		secret := []byte("hunter2")
		c := NewCredentials("neo4j", secret)

		assert.Equal(t, "neo4j", c.Login())
		assert.True(t, c.HasPassword())

		pw, err := c.Password()
		require.NoError(t, err)
		assert.Equal(t, "hunter2", pw)
	})

	t.Run("no password", func(t *testing.T) {
		c := NewCredentials("neo4j", nil)
		assert.False(t, c.HasPassword())

		_, err := c.Password()
		assert.ErrorIs(t, err, ErrNoPassword)
	})

	t.Run("string hides secret", func(t *testing.T) {
		c := NewCredentials("neo4j", []byte("hunter2"))
		assert.NotContains(t, c.String(), "hunter2")
		assert.Contains(t, c.String(), "password_set=true")
	})
}
