// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cancel

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is a one-shot cancellation flag.
//
// Thread Safety: Safe for concurrent use. Cancelled is a single atomic
// load and is cheap enough to poll per relationship.
type Token struct {
	cancelled atomic.Bool
	metrics   *Metrics

	mu     sync.Mutex
	reason CancelReason
}

// New returns a fresh, uncancelled token recording into m.
// A nil m uses DefaultMetrics().
func New(m *Metrics) *Token {
	if m == nil {
		m = DefaultMetrics()
	}
	m.TokensCreated.Inc()
	return &Token{metrics: m}
}

// Cancel requests cancellation.
//
// Description:
//
//	Sets the flag. Only the first call records its reason and increments
//	the cancel counter; later calls are no-ops. The return value is always
//	true: cancellation is a request that is always accepted.
//
// Thread Safety: Safe for concurrent use.
func (t *Token) Cancel(reason CancelReason) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled.Load() {
		return true
	}
	t.reason = reason
	t.cancelled.Store(true)
	t.metrics.CancelTotal.WithLabelValues(reason.Type.String()).Inc()
	return true
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Reason returns the first cancellation reason and whether there is one.
func (t *Token) Reason() (CancelReason, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason, t.cancelled.Load()
}

// Watch cancels the token with CancelContext when ctx ends.
//
// The returned stop function releases the watcher. It reports false if
// the context had already fired.
func (t *Token) Watch(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		t.Cancel(CancelReason{Type: CancelContext, Message: context.Cause(ctx).Error()})
	})
}
