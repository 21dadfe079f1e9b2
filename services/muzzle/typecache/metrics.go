// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typecache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for cache operations.
var (
	tracer = otel.Tracer("muzzle.typecache")
	meter  = otel.Meter("muzzle.typecache")
)

// Metrics for cache operations.
var (
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	cacheEvictions metric.Int64Counter
	scopeResolvers metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"muzzle_typecache_hits_total",
			metric.WithDescription("Total number of type cache hits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"muzzle_typecache_misses_total",
			metric.WithDescription("Total number of type cache misses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheEvictions, err = meter.Int64Counter(
			"muzzle_typecache_evictions_total",
			metric.WithDescription("Entries dropped after their scope was collected"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		scopeResolvers, err = meter.Int64Counter(
			"muzzle_typecache_resolvers_total",
			metric.WithDescription("Total number of per-scope resolvers created"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCacheHit records a cache hit metric.
func recordCacheHit(ctx context.Context, negative bool) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.Bool("negative", negative)))
}

// recordCacheMiss records a cache miss metric.
func recordCacheMiss(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheMisses.Add(ctx, 1)
}

// recordCacheEviction records the entries removed for one collected scope.
func recordCacheEviction(n int) {
	if n == 0 {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	cacheEvictions.Add(context.Background(), int64(n))
}

// recordResolverCreated counts a new per-scope resolver.
func recordResolverCreated(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	scopeResolvers.Add(ctx, 1)
}

// startResolverSpan creates a span for resolver creation.
func startResolverSpan(ctx context.Context, t trace.Tracer, scope *Scope) (context.Context, trace.Span) {
	return t.Start(ctx, "Cache.Resolver", trace.WithAttributes(spanScopeAttrs(scope)...))
}
