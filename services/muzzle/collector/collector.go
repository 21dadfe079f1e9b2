// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package collector builds the structural reference graph of an
// instrumentation unit from its symbol-touch feed.
//
// Collection runs once per unit, ahead of time. It walks the unit's advice
// classes and every helper class reachable from them, records what each
// touched symbol must look like, discovers virtual field declarations, and
// finally prunes everything the unit provides itself. The output is an
// immutable Result that the matcher checks against live scopes.
//
// # Thread Safety
//
// A Collector holds only configuration and may be shared. Each call to
// Collect works on its own state.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianMuzzle/pkg/logging"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/feed"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// Unit is a named piece of instrumentation code.
type Unit struct {
	// Name identifies the unit in errors and artifacts.
	Name string

	// AdviceClasses are the entry points. Only their method bodies are
	// scanned.
	AdviceClasses []string

	// Resources are resource paths shipped with the unit. Service
	// registration manifests among them name additional helper classes.
	Resources []string
}

// Result is the output of collecting one unit.
type Result struct {
	Unit string

	// References are the requirements checked against a host, in
	// discovery order.
	References *references.Graph

	// AllReferences is the graph before pruning, including helper
	// classes. The matcher walks it for helper hierarchies.
	AllReferences *references.Graph

	// HelperClasses lists helper classes with super types before
	// subtypes, the order they must be injected in.
	HelperClasses []string

	// LibraryClasses are the helper classes that are library
	// instrumentation. They stay in References and are resolved against
	// the host like any library type.
	LibraryClasses []string

	VirtualFields references.VirtualFieldMappings
}

// Collector collects reference graphs from a class feed.
type Collector struct {
	feed     feed.ClassFeed
	isHelper Classifier
	opts     options
}

// New creates a Collector.
//
// Inputs:
//
//	src - Feed serving the unit's classes. If it also implements
//	      feed.ResourceOpener, unit resources can be collected.
//	isHelper - Reports whether a class is shipped with the
//	           instrumentation rather than expected in the host.
//	opts - Optional configuration.
//
// Outputs:
//
//	*Collector - Ready to use. Never nil.
func New(src feed.ClassFeed, isHelper Classifier, opts ...Option) *Collector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if isHelper == nil {
		isHelper = never
	}
	return &Collector{feed: src, isHelper: isHelper, opts: o}
}

// Collect builds the reference graph for unit.
//
// Description:
//
//	Each advice class is visited (method bodies only), then every helper
//	class it reaches, transitively. Service manifests listed in
//	unit.Resources contribute their entries as helper starting points.
//	The combined graph is pruned of helper-provided requirements, and
//	helper classes are sorted super types first.
//
// Inputs:
//
//	ctx - Checked between classes for cancellation.
//	unit - The unit to collect.
//
// Outputs:
//
//	*Result - The collected graph. Nil on error.
//	error - A *BuildError for any collection failure, or ctx.Err().
func (c *Collector) Collect(ctx context.Context, unit Unit) (*Result, error) {
	ctx, span := c.opts.tracer.Start(ctx, "collector.Collect",
		trace.WithAttributes(
			attribute.String("unit", unit.Name),
			attribute.Int("advice_classes", len(unit.AdviceClasses)),
			attribute.Int("resources", len(unit.Resources)),
		),
	)
	defer span.End()

	start := time.Now()
	logger := logging.WithTrace(ctx, c.opts.logger).With(slog.String("unit", unit.Name))

	result, err := c.collect(ctx, unit, logger)
	collectionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		collectionsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "collection failed")
		logger.Error("collection failed", slog.String("error", err.Error()))
		return nil, err
	}

	collectionsTotal.WithLabelValues("ok").Inc()
	collectedReferences.WithLabelValues("all").Observe(float64(result.AllReferences.Len()))
	collectedReferences.WithLabelValues("pruned").Observe(float64(result.References.Len()))
	span.SetAttributes(
		attribute.Int("references", result.References.Len()),
		attribute.Int("helper_classes", len(result.HelperClasses)),
		attribute.Int("virtual_fields", result.VirtualFields.Len()),
	)
	logger.Info("collection complete",
		slog.Int("references", result.References.Len()),
		slog.Int("all_references", result.AllReferences.Len()),
		slog.Int("helper_classes", len(result.HelperClasses)),
		slog.Int("virtual_fields", result.VirtualFields.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (c *Collector) collect(ctx context.Context, unit Unit, logger *slog.Logger) (*Result, error) {
	if len(unit.AdviceClasses) == 0 && len(unit.Resources) == 0 {
		return nil, &BuildError{Unit: unit.Name, Err: ErrEmptyUnit}
	}

	r := newRun(c, unit.Name, logger)
	for _, advice := range unit.AdviceClasses {
		if err := r.visitAll(ctx, []string{advice}, true); err != nil {
			return nil, err
		}
	}
	for _, path := range unit.Resources {
		if err := r.collectResource(ctx, path); err != nil {
			return nil, err
		}
	}

	helpers := r.sortedHelpers()
	var library []string
	for _, h := range helpers {
		if c.opts.library(h) {
			library = append(library, h)
		}
	}
	return &Result{
		Unit:           unit.Name,
		References:     r.prune(),
		AllReferences:  r.refs,
		HelperClasses:  helpers,
		LibraryClasses: library,
		VirtualFields:  r.virtualFields,
	}, nil
}

func (c *Collector) isPlatform(className string) bool {
	for _, p := range c.opts.platformPrefixes {
		if strings.HasPrefix(className, p) {
			return true
		}
	}
	return false
}

// providedByLibrary reports whether a class is checked against the host.
func (c *Collector) providedByLibrary(className string) bool {
	return c.opts.library(className) || !c.isHelper(className)
}

// run is the state of one Collect call.
type run struct {
	c      *Collector
	unit   string
	logger *slog.Logger

	refs    *references.Graph
	visited map[string]bool

	helperOrder  []string
	helperSet    map[string]bool
	helperSupers map[string][]string

	virtualFields references.VirtualFieldMappings
}

func newRun(c *Collector, unit string, logger *slog.Logger) *run {
	refs, _ := references.NewGraph()
	return &run{
		c:            c,
		unit:         unit,
		logger:       logger,
		refs:         refs,
		visited:      make(map[string]bool),
		helperSet:    make(map[string]bool),
		helperSupers: make(map[string][]string),
	}
}

// visitAll visits start and every helper class reachable from it. Only the
// first class is treated as advice, and only when advice is true.
func (r *run) visitAll(ctx context.Context, start []string, advice bool) error {
	queue := append([]string(nil), start...)
	queued := make(map[string]bool, len(start))
	for _, s := range start {
		queued[s] = true
	}
	isAdvice := advice

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := queue[0]
		queue = queue[1:]
		if r.visited[name] {
			isAdvice = false
			continue
		}
		r.visited[name] = true

		v, err := r.visitClass(name, isAdvice)
		if err != nil {
			return err
		}
		for _, ref := range v.refs.Refs() {
			if !r.visited[ref.Name] && !queued[ref.Name] && r.c.isHelper(ref.Name) {
				queued[ref.Name] = true
				queue = append(queue, ref.Name)
			}
			if err := r.refs.Add(ref); err != nil {
				return &BuildError{Unit: r.unit, Class: name, Err: err}
			}
		}
		for _, h := range v.helperClasses {
			r.addHelper(h)
		}
		if !isAdvice {
			r.helperSupers[name] = append(r.helperSupers[name], v.helperSupers...)
		}
		for _, vf := range v.virtualFields.Entries() {
			r.virtualFields.Add(vf.OwnerType, vf.FieldType)
		}
		isAdvice = false
	}
	return nil
}

func (r *run) visitClass(name string, advice bool) (*classVisitor, error) {
	reader, err := r.c.feed.Open(name)
	if err != nil {
		return nil, &BuildError{Unit: r.unit, Class: name, Err: fmt.Errorf("open class: %w", err)}
	}
	defer reader.Close()

	v := newClassVisitor(r.c, name, advice)
	if err := v.visit(reader); err != nil {
		return nil, &BuildError{Unit: r.unit, Class: name, Line: v.line, Err: err}
	}
	r.logger.Debug("visited class",
		slog.String("class", name),
		slog.Bool("advice", advice),
		slog.Int("references", v.refs.Len()),
	)
	return v, nil
}

func (r *run) addHelper(name string) {
	if r.helperSet[name] {
		return
	}
	r.helperSet[name] = true
	r.helperOrder = append(r.helperOrder, name)
}
