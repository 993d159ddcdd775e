// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cancel provides the cancellation token shared between an import
// and whoever may stop it.
//
// A Token is a one-way flag. The import loop polls Cancelled() between
// relationships; any goroutine may call Cancel. Cancellation never rolls
// anything back: work done before the flag was observed is kept.
package cancel

// CancelType categorizes why an import was stopped.
type CancelType int

const (
	// CancelUser is an explicit Cancel call, e.g. from a UI action.
	CancelUser CancelType = iota

	// CancelSignal is an OS signal such as SIGINT.
	CancelSignal

	// CancelContext is the caller's context ending.
	CancelContext
)

// String returns the metric label for the cancel type.
func (t CancelType) String() string {
	switch t {
	case CancelUser:
		return "user"
	case CancelSignal:
		return "signal"
	case CancelContext:
		return "context"
	default:
		return "unknown"
	}
}

// CancelReason describes a cancellation.
type CancelReason struct {
	Type    CancelType
	Message string
}

// String renders the reason for logs.
func (r CancelReason) String() string {
	if r.Message == "" {
		return r.Type.String()
	}
	return r.Type.String() + ": " + r.Message
}
