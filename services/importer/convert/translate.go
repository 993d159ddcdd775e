// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package convert

import (
	"fmt"
	"math"
	"time"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// labelKeys are the properties tried, in order, for a node's label.
var labelKeys = []string{"name", "title"}

// Label picks the display label for a source node: the "name" property,
// then "title", then the first source label, then the source id.
func Label(n source.Node) string {
	for _, key := range labelKeys {
		if v, ok := n.Properties[key]; ok && v != nil {
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
	}
	if len(n.Labels) > 0 && n.Labels[0] != "" {
		return n.Labels[0]
	}
	return n.ID
}

// NodeAttributes translates a node's properties and adds its source id
// and labels.
func NodeAttributes(n source.Node) map[string]any {
	attrs := Properties(n.Properties)
	attrs[AttrSourceID] = n.ID
	labels := make([]any, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = l
	}
	attrs[AttrLabels] = labels
	return attrs
}

// Properties translates a property map. The result is never nil.
func Properties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+2)
	for k, v := range props {
		out[k] = Value(v)
	}
	return out
}

// Value translates one property value into a destination attribute.
//
// Booleans, strings and floats are kept, integers are widened to int64,
// lists are translated element-wise, times become RFC 3339 strings and
// anything else is rendered with fmt.Sprint.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string, int64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return widenUnsigned(uint64(x))
	case uint64:
		return widenUnsigned(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Value(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	default:
		return fmt.Sprint(x)
	}
}

func widenUnsigned(u uint64) any {
	if u > math.MaxInt64 {
		return fmt.Sprint(u)
	}
	return int64(u)
}
