// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

const tracerName = "muzzle.collector"

var tracer = otel.Tracer(tracerName)

var (
	collectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "muzzle_collections_total",
		Help: "Instrumentation units collected, by outcome",
	}, []string{"status"})

	collectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "muzzle_collection_duration_seconds",
		Help:    "Time to collect references for one instrumentation unit",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	collectedReferences = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "muzzle_collected_references",
		Help:    "References per collected unit, before and after pruning",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"stage"})
)
