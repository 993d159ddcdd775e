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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for import cancellation.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
type Metrics struct {
	// CancelTotal counts first-time cancellations by type.
	CancelTotal *prometheus.CounterVec

	// TokensCreated counts tokens issued, one per import run.
	TokensCreated prometheus.Counter
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// DefaultMetrics returns the process-wide metrics, registering them with
// the default Prometheus registerer on first use.
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates and registers cancellation metrics with reg.
//
// Description:
//
//	Uses promauto.With so tests can pass a private registry. Registering
//	twice on the same registerer panics.
//
// Outputs:
//   - *Metrics: The created metrics. Never nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CancelTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "graphimport",
				Subsystem: "cancel",
				Name:      "total",
				Help:      "Total import cancellations by type",
			},
			[]string{"type"},
		),

		TokensCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "graphimport",
				Subsystem: "cancel",
				Name:      "tokens_created_total",
				Help:      "Total cancellation tokens issued",
			},
		),
	}
}
