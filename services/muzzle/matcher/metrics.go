// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

const tracerName = "muzzle.matcher"

var tracer = otel.Tracer(tracerName)

var (
	matchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muzzle_match_runs_total",
		Help: "Units matched against a scope, by outcome",
	}, []string{"result"})

	mismatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muzzle_mismatches_total",
		Help: "Mismatches reported, by kind",
	}, []string{"kind"})

	matchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "muzzle_match_duration_seconds",
		Help:    "Time to match one unit against one scope",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	memoHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "muzzle_match_memo_hits_total",
		Help: "Matches answered from the per-scope result memo",
	})
)
