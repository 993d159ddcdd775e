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

// =============================================================================
// ERROR TYPES
// =============================================================================

// AddressFormatError reports a remote address that is not a well-formed
// resource locator for a graph store.
type AddressFormatError struct {
	// Address is the rejected input, verbatim.
	Address string

	// Reason describes what is wrong with it.
	Reason string

	// Cause is the underlying parse error, if any.
	Cause error
}

// Error implements the error interface.
func (e *AddressFormatError) Error() string {
	msg := "malformed store address " + quote(e.Address)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *AddressFormatError) Unwrap() error {
	return e.Cause
}

// ConnectionError reports a store that could not be opened: an invalid
// local path, an unreachable remote server, or rejected credentials.
type ConnectionError struct {
	// Target is the path or address that was being opened.
	Target string

	// Kind is "local" or "remote".
	Kind string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	msg := "cannot connect to " + e.Kind + " store " + quote(e.Target)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

func quote(s string) string {
	return "\"" + s + "\""
}
