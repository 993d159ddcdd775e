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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var (
	keyFormat = []byte("meta:format")
	keyRoot   = []byte("meta:root")

	prefixNode = []byte("node:")
	prefixRel  = []byte("rel:")
	prefixAdj  = []byte("adj:")
)

func nodeKey(id string) []byte {
	return append(append([]byte{}, prefixNode...), id...)
}

func relKey(id string) []byte {
	return append(append([]byte{}, prefixRel...), id...)
}

// adjPrefix is the scan prefix for every relationship touching nodeID.
// The trailing separator keeps "n1" from matching "n10".
func adjPrefix(nodeID string) []byte {
	return []byte(string(prefixAdj) + nodeID + ":")
}

func adjKey(nodeID, relID string) []byte {
	return append(adjPrefix(nodeID), relID...)
}

// relIDFromAdjKey extracts the relationship id from an adjacency key.
func relIDFromAdjKey(prefix, key []byte) string {
	return string(bytes.TrimPrefix(key, prefix))
}

// validID rejects ids that would corrupt the key layout.
func validID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.Contains(id, ":") {
		return fmt.Errorf("id %q must not contain ':'", id)
	}
	return nil
}

// nodeRecord is the stored form of a node.
type nodeRecord struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// relRecord is the stored form of a relationship. Endpoints are stored by
// id and resolved on read.
type relRecord struct {
	ID         string         `json:"id"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// decodeRecord unmarshals a stored record, keeping integer properties as
// int64 instead of float64.
func decodeRecord(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	switch r := v.(type) {
	case *nodeRecord:
		r.Properties = normalizeProperties(r.Properties)
	case *relRecord:
		r.Properties = normalizeProperties(r.Properties)
	}
	return nil
}

func normalizeProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		return normalizeProperties(t)
	default:
		return v
	}
}
