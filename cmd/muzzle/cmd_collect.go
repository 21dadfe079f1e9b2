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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/artifact"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/collector"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/feed"
)

type collectFlags struct {
	fixture        string
	unit           string
	advice         []string
	helperPrefixes []string
	resources      []string
	out            string
	dryRun         bool
}

func newCollectCmd(a *app) *cobra.Command {
	f := &collectFlags{}
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect the reference artifact of an instrumentation unit",
		Long: `Walk the advice classes of a unit and every helper class they reach,
record the structural requirements on library classes, and store the
result as an artifact keyed by unit name.

Classes are read from a YAML class fixture. Service manifests among the
fixture resources add helper classes; --resource restricts which are read.

Examples:
  muzzle collect --fixture netty.yaml --unit netty --advice com.acme.NettyAdvice
  muzzle collect --fixture netty.yaml --unit netty --advice com.acme.A --advice com.acme.B \
      --helper-prefix com.acme. --out netty.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCollect(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.fixture, "fixture", "", "YAML class fixture to read classes from")
	cmd.Flags().StringVar(&f.unit, "unit", "", "Name of the instrumentation unit")
	cmd.Flags().StringArrayVar(&f.advice, "advice", nil, "Advice class name (repeatable)")
	cmd.Flags().StringArrayVar(&f.helperPrefixes, "helper-prefix", nil,
		"Class name prefix of helper classes (repeatable, added to collector.helper_prefixes)")
	cmd.Flags().StringArrayVar(&f.resources, "resource", nil,
		"Resource path shipped with the unit (repeatable, default: every fixture resource)")
	cmd.Flags().StringVar(&f.out, "out", "", "Also write the encoded artifact to this file")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Collect and report without storing the artifact")
	_ = cmd.MarkFlagRequired("fixture")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("advice")
	return cmd
}

func (a *app) runCollect(cmd *cobra.Command, f *collectFlags) error {
	ctx := cmd.Context()
	logger := a.slog().With("unit", f.unit)

	src, err := feed.LoadFixture(f.fixture)
	if err != nil {
		return err
	}
	resources := f.resources
	if len(resources) == 0 {
		resources = src.ResourcePaths()
	}

	prefixes := append(append([]string(nil), a.cfg.Collector.HelperPrefixes...), f.helperPrefixes...)
	opts := append(a.cfg.CollectorOptions(), collector.WithLogger(logger))
	c := collector.New(src, collector.PrefixClassifier(prefixes...), opts...)

	start := time.Now()
	res, err := c.Collect(ctx, collector.Unit{
		Name:          f.unit,
		AdviceClasses: f.advice,
		Resources:     resources,
	})
	if err != nil {
		return err
	}

	art := artifact.FromResult(res, time.Now())
	art.HelperPrefixes = prefixes
	art.LibraryPrefixes = a.cfg.Collector.LibraryPrefixes

	if f.out != "" {
		data, err := artifact.Encode(art)
		if err != nil {
			return err
		}
		if err := os.WriteFile(f.out, data, 0o644); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
	}
	if !f.dryRun {
		store, err := a.store()
		if err != nil {
			return err
		}
		if err := store.Put(ctx, art); err != nil {
			return err
		}
	}

	logger.Info("unit collected",
		"references", art.References.Len(),
		"helpers", len(art.HelperClasses),
		"duration", time.Since(start),
	)
	a.printer.Success(fmt.Sprintf("collected %s: %d references, %d helper classes, %d virtual fields",
		f.unit, art.References.Len(), len(art.HelperClasses), art.VirtualFields.Len()))
	for _, h := range art.HelperClasses {
		a.printer.Item("helper " + h)
	}
	return nil
}
