// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package importer

// State is the lifecycle state of an Importer.
type State int32

const (
	// StateIdle means no import has run yet.
	StateIdle State = iota

	// StateConnecting means the source store is being opened.
	StateConnecting

	// StateTransactionOpen means a source transaction is open and the
	// destination project has not been created yet.
	StateTransactionOpen

	// StateTraversing means relationships are being converted.
	StateTraversing

	// StateClosing means the transaction and connection are being released.
	StateClosing

	// StateDone means the import completed and its workspace is open.
	StateDone

	// StateCancelled means the import stopped early on request. Work done
	// before the stop is kept.
	StateCancelled

	// StateFailed means the import stopped on an error.
	StateFailed
)

// String returns the metric label for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateTransactionOpen:
		return "transaction_open"
	case StateTraversing:
		return "traversing"
	case StateClosing:
		return "closing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends an import.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}
