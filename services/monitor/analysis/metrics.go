// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis tier metrics.
var (
	tierAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_analysis_tier_attempts_total",
		Help: "Analysis tier attempts by tier and outcome",
	}, []string{"tier", "outcome"})

	tierDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentinel_analysis_tier_duration_seconds",
		Help:    "Time spent in one analysis tier attempt",
		Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 15, 30, 60},
	}, []string{"tier"})

	fallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_analysis_fallback_total",
		Help: "Analysis cycles that degraded past the structured-chain tier",
	})
)
