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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMuzzle/pkg/logging"
	"github.com/AleutianAI/AleutianMuzzle/pkg/ux"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/artifact"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/config"
	mbadger "github.com/AleutianAI/AleutianMuzzle/services/muzzle/storage/badger"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/telemetry"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	// Global flags.
	configPath string
	dbPath     string
	logLevel   string
	outputMode string

	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	logger   *logging.Logger
	printer  *ux.Printer
	shutdown func(context.Context) error
	db       *mbadger.DB
}

// run executes one CLI invocation with args. Resources acquired by the
// command are released even when it fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.teardown(ctx))
}

// rootCmd builds the command tree.
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "muzzle",
		Short: "Structural compatibility checks for instrumentation code",
		Long: `muzzle records which classes, methods and fields instrumentation code
needs from the library it instruments, and checks those requirements
against the types visible in a target class loader.

Collected artifacts are stored in a local database (--db) so one
collection can be checked against many scopes.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "muzzle.yaml", "Path to the YAML config file (missing file uses defaults)")
	pf.StringVar(&a.dbPath, "db", "", "Artifact database directory (overrides storage.path)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&a.outputMode, "output", "auto", "Output mode: auto, styled, plain, machine")

	root.AddCommand(newCollectCmd(a), newCheckCmd(a), newShowCmd(a), newListCmd(a), newDeleteCmd(a))
	return root
}

// setup loads configuration and starts logging and telemetry.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Storage.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "muzzle",
		JSON:    cfg.Logging.JSON,
		Output:  a.stderr,
	})

	mode, explicit, err := ux.ParseMode(a.outputMode)
	if err != nil {
		return err
	}
	if !explicit {
		mode = ux.ModeFor(a.stdout)
	}
	a.printer = ux.NewPrinter(a.stdout, a.stderr, mode)

	if cfg.Telemetry.Writer == nil {
		cfg.Telemetry.Writer = a.stderr
	}
	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown

	a.slog().Debug("configuration loaded",
		"config", a.configPath,
		"db", cfg.Storage.Path,
		"command", cmd.Name(),
	)
	return nil
}

// teardown releases everything setup and store acquired.
func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	if a.logger != nil {
		errs = append(errs, a.logger.Close())
		a.logger = nil
	}
	return errors.Join(errs...)
}

func (a *app) slog() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger.Slog()
}

// store opens the artifact database on first use.
func (a *app) store() (*artifact.Store, error) {
	if a.db == nil {
		cfg := mbadger.DefaultConfig(a.cfg.Storage.Path)
		cfg.SyncWrites = a.cfg.Storage.SyncWrites
		cfg.GCInterval = a.cfg.Storage.GCInterval
		cfg.Logger = a.slog()
		db, err := mbadger.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open artifact store: %w", err)
		}
		a.db = db
	}
	return artifact.NewStore(a.db, a.slog()), nil
}
