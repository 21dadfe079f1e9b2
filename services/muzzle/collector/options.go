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
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Defaults for the virtual field declaration call.
const (
	DefaultVirtualFieldOwner      = "io.opentelemetry.instrumentation.api.util.VirtualField"
	DefaultVirtualFieldMethod     = "find"
	DefaultVirtualFieldDescriptor = "(Ljava/lang/Class;Ljava/lang/Class;)Lio/opentelemetry/instrumentation/api/util/VirtualField;"
)

// Classifier decides a property of a class by dotted name.
type Classifier func(className string) bool

// PrefixClassifier returns a Classifier matching any of the prefixes.
func PrefixClassifier(prefixes ...string) Classifier {
	return func(className string) bool {
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(className, p) {
				return true
			}
		}
		return false
	}
}

func never(string) bool { return false }

type options struct {
	logger           *slog.Logger
	tracer           trace.Tracer
	library          Classifier
	vfOwner          string
	vfMethod         string
	vfDescriptor     string
	platformPrefixes []string
}

func defaultOptions() options {
	return options{
		logger:           slog.Default(),
		tracer:           tracer,
		library:          never,
		vfOwner:          DefaultVirtualFieldOwner,
		vfMethod:         DefaultVirtualFieldMethod,
		vfDescriptor:     DefaultVirtualFieldDescriptor,
		platformPrefixes: []string{"java."},
	}
}

// Option configures a Collector.
type Option func(*options)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider sets the provider spans are recorded with. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithLibraryClassifier marks helper classes that are library
// instrumentation. Such classes are visited like helpers but their
// references are kept and checked against the host.
func WithLibraryClassifier(c Classifier) Option {
	return func(o *options) {
		if c != nil {
			o.library = c
		}
	}
}

// WithVirtualFieldMethod sets the owner, name and descriptor of the call
// that declares virtual fields.
func WithVirtualFieldMethod(owner, name, descriptor string) Option {
	return func(o *options) {
		if owner != "" && name != "" && descriptor != "" {
			o.vfOwner = owner
			o.vfMethod = name
			o.vfDescriptor = descriptor
		}
	}
}

// WithPlatformPrefixes sets the class name prefixes that are always
// present in a host and never recorded. Defaults to "java.".
func WithPlatformPrefixes(prefixes ...string) Option {
	return func(o *options) {
		o.platformPrefixes = append([]string(nil), prefixes...)
	}
}
