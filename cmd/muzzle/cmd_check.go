// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/artifact"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/matcher"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/typecache"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/watch"
)

type checkFlags struct {
	units  []string
	scopes []string
	json   bool
	watch  bool
}

// scopeEntry is one scope file loaded for a check run.
type scopeEntry struct {
	path  string
	scope *typecache.Scope
}

// checkResult is the outcome of matching one artifact against one scope.
type checkResult struct {
	Unit       string          `json:"unit"`
	Scope      string          `json:"scope"`
	File       string          `json:"file"`
	Mismatches []mismatchEntry `json:"mismatches"`
}

type mismatchEntry struct {
	Kind    string              `json:"kind"`
	Sources []references.Source `json:"sources,omitempty"`
	Details string              `json:"details"`
	Message string              `json:"message"`
}

func newCheckCmd(a *app) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check stored artifacts against resolution scopes",
		Long: `Match the requirements of stored artifacts against the types described
by one or more scope files. Each scope stands for one class loader of the
target application.

Every (unit, scope) pair is checked, up to matcher.parallelism at a time.
Exits 1 if any pair has mismatches.

Examples:
  muzzle check --unit netty --scope netty-4.1.yaml
  muzzle check --scope app.yaml --json
  muzzle check --unit netty --scope netty-4.1.yaml --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, f)
		},
	}

	cmd.Flags().StringArrayVar(&f.units, "unit", nil, "Unit to check (repeatable, default: every stored unit)")
	cmd.Flags().StringArrayVar(&f.scopes, "scope", nil, "YAML scope file (repeatable)")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Re-check whenever a scope file changes")
	_ = cmd.MarkFlagRequired("scope")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, f *checkFlags) error {
	ctx := cmd.Context()

	arts, err := a.loadArtifacts(ctx, f.units)
	if err != nil {
		return err
	}
	scopes, err := loadScopes(f.scopes)
	if err != nil {
		return err
	}

	cache := typecache.NewCache(
		typecache.WithShards(a.cfg.Matcher.CacheShards),
		typecache.WithLogger(a.slog()),
	)
	m := matcher.New(matcher.WithCache(cache), matcher.WithLogger(a.slog()))

	results, err := a.matchAll(ctx, m, arts, scopes)
	if err != nil {
		return err
	}
	if err := a.report(results, f.json); err != nil {
		return err
	}

	if f.watch {
		return a.watchScopes(ctx, m, arts, scopes, f.json)
	}
	if failed(results) > 0 {
		return &CommandError{Command: "check", ExitCode: ExitMismatch, Wrapped: errMismatches}
	}
	return nil
}

// loadArtifacts returns the named artifacts, or every stored one.
func (a *app) loadArtifacts(ctx context.Context, units []string) ([]*artifact.Artifact, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		units, err = store.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(units) == 0 {
			return nil, fmt.Errorf("%w: store is empty", artifact.ErrArtifactNotFound)
		}
	}
	arts := make([]*artifact.Artifact, 0, len(units))
	for _, u := range units {
		art, err := store.Get(ctx, u)
		if err != nil {
			return nil, err
		}
		arts = append(arts, art)
	}
	return arts, nil
}

func loadScopes(paths []string) ([]scopeEntry, error) {
	out := make([]scopeEntry, 0, len(paths))
	for _, p := range paths {
		scope, _, err := typecache.LoadScope(p)
		if err != nil {
			return nil, err
		}
		out = append(out, scopeEntry{path: p, scope: scope})
	}
	return out, nil
}

// matchAll checks every artifact against every scope.
//
// # Description
//
// Pairs run on an errgroup bounded by matcher.parallelism. Results keep
// the (artifact, scope) input order regardless of completion order. The
// matcher never fails, so the only error is ctx cancellation.
func (a *app) matchAll(ctx context.Context, m *matcher.Matcher, arts []*artifact.Artifact, scopes []scopeEntry) ([]checkResult, error) {
	results := make([]checkResult, len(arts)*len(scopes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Matcher.Parallelism)
	for i, art := range arts {
		for j, se := range scopes {
			idx := i*len(scopes) + j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				mismatches := m.MatchAll(gctx, art, se.scope)
				results[idx] = newCheckResult(art.Unit, se, mismatches)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newCheckResult(unit string, se scopeEntry, mismatches []references.Mismatch) checkResult {
	r := checkResult{
		Unit:       unit,
		Scope:      se.scope.Name(),
		File:       se.path,
		Mismatches: make([]mismatchEntry, 0, len(mismatches)),
	}
	for _, mm := range mismatches {
		r.Mismatches = append(r.Mismatches, mismatchEntry{
			Kind:    mm.Kind().String(),
			Sources: mm.Sources(),
			Details: mm.Details(),
			Message: mm.String(),
		})
	}
	return r
}

func failed(results []checkResult) int {
	n := 0
	for _, r := range results {
		if len(r.Mismatches) > 0 {
			n++
		}
	}
	return n
}

func (a *app) report(results []checkResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		return nil
	}

	p := a.printer
	p.Title("muzzle check")
	for _, r := range results {
		label := fmt.Sprintf("%s against %s (%s)", r.Unit, r.Scope, r.File)
		if len(r.Mismatches) == 0 {
			p.Success(label)
			continue
		}
		p.Error(fmt.Sprintf("%s: %d mismatches", label, len(r.Mismatches)))
		for _, mm := range r.Mismatches {
			p.Item(mm.Message)
		}
	}
	n := failed(results)
	p.Summary(len(results)-n, n)
	return nil
}

// watchScopes re-checks whenever a scope file changes, until interrupted.
//
// A changed file is reloaded into a new Scope. The old Scope becomes
// unreachable, and the cache drops its entries once it is collected.
func (a *app) watchScopes(ctx context.Context, m *matcher.Matcher, arts []*artifact.Artifact, scopes []scopeEntry, asJSON bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	index := make(map[string]int, len(scopes))
	paths := make([]string, 0, len(scopes))
	for i, se := range scopes {
		abs, err := filepath.Abs(se.path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", se.path, err)
		}
		index[abs] = i
		paths = append(paths, abs)
	}

	handler := func(ctx context.Context, changed []string) {
		for _, p := range changed {
			i, ok := index[p]
			if !ok {
				continue
			}
			scope, _, err := typecache.LoadScope(p)
			if err != nil {
				a.printer.Warning(fmt.Sprintf("reload %s: %v", p, err))
				continue
			}
			scopes[i].scope = scope
		}
		start := time.Now()
		results, err := a.matchAll(ctx, m, arts, scopes)
		if err != nil {
			return
		}
		a.slog().Info("re-checked after scope change", "files", len(changed), "duration", time.Since(start))
		if err := a.report(results, asJSON); err != nil {
			a.printer.Warning(err.Error())
		}
	}

	w, err := watch.New(paths, handler, &watch.Options{Logger: a.slog()})
	if err != nil {
		return err
	}
	defer w.Close()

	a.printer.Muted(fmt.Sprintf("watching %d scope files, Ctrl-C to stop", len(paths)))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
