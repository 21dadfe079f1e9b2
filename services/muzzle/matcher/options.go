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
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/typecache"
)

type options struct {
	cache  *typecache.Cache
	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Matcher.
type Option func(*options)

// WithCache shares a type cache between matchers. By default each
// Matcher creates its own.
func WithCache(c *typecache.Cache) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider sets the provider match spans are recorded with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}
