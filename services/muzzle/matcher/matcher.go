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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianMuzzle/pkg/logging"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/artifact"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/typecache"
)

// Matcher checks artifacts against resolution scopes.
type Matcher struct {
	opts options
	memo *typecache.WeakMap[typecache.Scope, *scopeResults]
}

// scopeResults memoizes Matches answers for one scope.
type scopeResults struct {
	mu    sync.Mutex
	units map[string]bool
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	o := options{
		logger: slog.Default(),
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = typecache.NewCache(typecache.WithLogger(o.logger))
	}
	return &Matcher{
		opts: o,
		memo: typecache.NewWeakMap[typecache.Scope, *scopeResults](),
	}
}

// Cache returns the type cache used for resolution.
func (m *Matcher) Cache() *typecache.Cache {
	return m.opts.cache
}

// MatchAll returns every unsatisfied requirement of a in scope.
//
// Description:
//
//	Non-helper references are resolved in scope and their flags, methods
//	and fields checked. Helper classes are checked for unimplemented
//	abstract methods and unresolvable fields across their in-graph and
//	live hierarchy. Each reference is checked in isolation: a panic or
//	resolution failure produces a mismatch for that reference only.
//
// Inputs:
//
//	ctx - Carries the trace. Cancellation turns the remaining lookups
//	      into ReferenceCheckError mismatches.
//	a - The unit's artifact.
//	scope - The resolution scope. A nil scope yields one ReferenceCheckError.
//
// Outputs:
//
//	[]references.Mismatch - In reference order. Empty means safe.
//
// Thread Safety: Safe for concurrent use.
func (m *Matcher) MatchAll(ctx context.Context, a *artifact.Artifact, scope *typecache.Scope) []references.Mismatch {
	start := time.Now()
	runID := uuid.NewString()

	unit, scopeName := "", "<nil>"
	if a != nil {
		unit = a.Unit
	}
	if scope != nil {
		scopeName = scope.String()
	}
	ctx, span := m.opts.tracer.Start(ctx, "matcher.MatchAll",
		trace.WithAttributes(
			attribute.String("muzzle.run_id", runID),
			attribute.String("muzzle.unit", unit),
			attribute.String("muzzle.scope", scopeName),
		),
	)
	defer span.End()

	logger := logging.WithTrace(ctx, m.opts.logger).With(
		slog.String("run_id", runID),
		slog.String("unit", unit),
		slog.String("scope", scopeName),
	)

	var mismatches []references.Mismatch
	switch {
	case a == nil:
		mismatches = []references.Mismatch{
			references.NewReferenceCheckError(nil, "", scopeName, artifact.ErrInvalidArtifact),
		}
	case scope == nil:
		mismatches = []references.Mismatch{
			references.NewReferenceCheckError(nil, a.Unit, scopeName, ErrNilScope),
		}
	case a.Validate() != nil:
		mismatches = []references.Mismatch{
			references.NewReferenceCheckError(nil, a.Unit, scopeName, a.Validate()),
		}
	default:
		run := &matchRun{
			ctx:      ctx,
			art:      a,
			resolver: m.opts.cache.Resolver(ctx, scope),
			scope:    scopeName,
			helpers:  a.AllReferences.Filter(keepHelpers(a)),
		}
		mismatches = run.matchAll()
	}

	result := "safe"
	if len(mismatches) > 0 {
		result = "unsafe"
		span.SetStatus(codes.Error, "mismatches found")
	}
	span.SetAttributes(attribute.Int("muzzle.mismatches", len(mismatches)))
	matchRunsTotal.WithLabelValues(result).Inc()
	matchDuration.Observe(time.Since(start).Seconds())
	for _, mm := range mismatches {
		mismatchesTotal.WithLabelValues(mm.Kind().String()).Inc()
		logger.Debug("mismatch", slog.String("kind", mm.Kind().String()), slog.String("detail", mm.String()))
	}

	if len(mismatches) > 0 {
		logger.Info("unit does not match scope",
			slog.Int("mismatches", len(mismatches)),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		logger.Debug("unit matches scope", slog.Duration("duration", time.Since(start)))
	}
	return mismatches
}

// Matches reports whether a has no mismatches in scope. The answer is
// memoized per scope for as long as the scope is live.
func (m *Matcher) Matches(ctx context.Context, a *artifact.Artifact, scope *typecache.Scope) bool {
	if a == nil || scope == nil {
		return false
	}
	res, _ := m.memo.LoadOrCompute(scope, func() *scopeResults {
		return &scopeResults{units: make(map[string]bool)}
	})
	key := a.Unit + "@" + a.CollectedAt.Format(time.RFC3339Nano)

	res.mu.Lock()
	ok, found := res.units[key]
	res.mu.Unlock()
	if found {
		memoHitsTotal.Inc()
		return ok
	}

	ok = len(m.MatchAll(ctx, a, scope)) == 0
	res.mu.Lock()
	res.units[key] = ok
	res.mu.Unlock()
	return ok
}

func keepHelpers(a *artifact.Artifact) func(*references.ClassRef) *references.ClassRef {
	return func(ref *references.ClassRef) *references.ClassRef {
		if a.IsHelper(ref.Name) {
			return ref
		}
		return nil
	}
}

// matchRun is the state of one MatchAll call.
type matchRun struct {
	ctx      context.Context
	art      *artifact.Artifact
	resolver *typecache.Resolver
	scope    string
	helpers  *references.Graph
}

func (r *matchRun) matchAll() []references.Mismatch {
	var out []references.Mismatch
	checked := make(map[string]bool)
	for _, ref := range r.art.References.Refs() {
		checked[ref.Name] = true
		out = append(out, r.check(ref)...)
	}
	// Helpers pruned from References are still checked for consistency.
	for _, name := range r.art.HelperClasses {
		if checked[name] {
			continue
		}
		checked[name] = true
		if ref, ok := r.art.AllReferences.Get(name); ok {
			out = append(out, r.check(ref)...)
		}
	}
	return out
}

// check verifies one reference, converting panics into a mismatch.
func (r *matchRun) check(ref *references.ClassRef) (out []references.Mismatch) {
	defer func() {
		if p := recover(); p != nil {
			out = []references.Mismatch{references.NewReferenceCheckError(
				ref.Sources, ref.Name, r.scope, fmt.Errorf("%w: %v", ErrCheckPanic, p))}
		}
	}()

	if r.art.IsHelper(ref.Name) {
		if !r.art.IsRegisteredHelper(ref.Name) {
			return []references.Mismatch{references.NewMissingClass(ref.Sources, ref.Name)}
		}
		return r.checkHelper(ref)
	}
	return r.checkLibraryType(ref)
}

// failure converts a resolution error into the mismatch reported for ref.
func (r *matchRun) failure(ref *references.ClassRef, err error) references.Mismatch {
	name := ref.Name
	var ue *unresolvedError
	if errors.As(err, &ue) {
		name = ue.Name
	}
	if errors.Is(err, typecache.ErrTypeNotFound) {
		return references.NewMissingClass(ref.Sources, name)
	}
	return references.NewReferenceCheckError(ref.Sources, ref.Name, r.scope, err)
}

// resolveAncestor resolves a super type during a hierarchy search. A
// missing root class resolves to nil without error.
func (r *matchRun) resolveAncestor(name string) (*typecache.TypeDescription, error) {
	desc, err := r.resolver.Resolve(r.ctx, name)
	if err != nil {
		if name == rootClassName && errors.Is(err, typecache.ErrTypeNotFound) {
			return nil, nil
		}
		return nil, &unresolvedError{Name: name, Err: err}
	}
	return desc, nil
}

func (r *matchRun) checkLibraryType(ref *references.ClassRef) []references.Mismatch {
	desc, err := r.resolver.Resolve(r.ctx, ref.Name)
	if err != nil {
		return []references.Mismatch{r.failure(ref, err)}
	}

	var out []references.Mismatch
	for _, f := range ref.Flags.Flags() {
		if !f.Matches(desc.Modifiers) {
			out = append(out, references.NewMissingFlag(ref.Sources, ref.Name, f, desc.Modifiers))
		}
	}

	for _, mr := range ref.Methods {
		found, err := r.findMember(desc, mr.Key(), methodsOf, make(map[string]bool))
		if err != nil {
			return []references.Mismatch{r.failure(ref, err)}
		}
		sources := sourcesOr(mr.Sources, ref.Sources)
		if found == nil {
			out = append(out, references.NewMissingMethod(sources, ref.Name, mr.Key()))
			continue
		}
		out = append(out, memberFlags(sources, ref.Name, mr.String(), mr.Flags, found.Modifiers)...)
	}

	for _, fr := range ref.Fields {
		var found *typecache.MemberDescription
		if fr.Declared {
			if f, ok := desc.Field(fr.Name, fr.Descriptor); ok {
				found = &f
			}
		} else {
			found, err = r.findMember(desc, fr.Key(), fieldsOf, make(map[string]bool))
			if err != nil {
				return []references.Mismatch{r.failure(ref, err)}
			}
		}
		sources := sourcesOr(fr.Sources, ref.Sources)
		if found == nil {
			out = append(out, references.NewMissingField(sources, ref.Name, fr.Key()))
			continue
		}
		out = append(out, memberFlags(sources, ref.Name, fr.String(), fr.Flags, found.Modifiers)...)
	}
	return out
}

func memberFlags(sources []references.Source, className, member string, flags references.FlagSet, mods references.Modifiers) []references.Mismatch {
	var out []references.Mismatch
	for _, f := range flags.Flags() {
		if !f.Matches(mods) {
			out = append(out, references.NewMissingFlag(sources, className+"#"+member, f, mods))
		}
	}
	return out
}

func methodsOf(t *typecache.TypeDescription) []typecache.MemberDescription { return t.Methods }
func fieldsOf(t *typecache.TypeDescription) []typecache.MemberDescription  { return t.Fields }

// findMember searches t, then its super class chain, then its interfaces.
func (r *matchRun) findMember(
	t *typecache.TypeDescription,
	key references.MemberKey,
	members func(*typecache.TypeDescription) []typecache.MemberDescription,
	seen map[string]bool,
) (*typecache.MemberDescription, error) {
	if seen[t.Name] {
		return nil, nil
	}
	seen[t.Name] = true

	for _, m := range members(t) {
		if m.Name == key.Name && m.Descriptor == key.Descriptor {
			return &m, nil
		}
	}
	supers := make([]string, 0, len(t.Interfaces)+1)
	if t.SuperName != "" {
		supers = append(supers, t.SuperName)
	}
	supers = append(supers, t.Interfaces...)
	for _, name := range supers {
		st, err := r.resolveAncestor(name)
		if err != nil {
			return nil, err
		}
		if st == nil {
			continue
		}
		found, err := r.findMember(st, key, members, seen)
		if err != nil || found != nil {
			return found, err
		}
	}
	return nil, nil
}

func sourcesOr(sources, fallback []references.Source) []references.Source {
	if len(sources) > 0 {
		return sources
	}
	return fallback
}
