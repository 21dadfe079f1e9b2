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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/artifact"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		unit string
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a stored artifact",
		Long: `Print the requirements, helper classes and virtual fields recorded for
a unit. --json prints the stored encoding unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			art, err := store.Get(cmd.Context(), unit)
			if err != nil {
				return err
			}
			if raw {
				data, err := artifact.Encode(art)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.stdout, string(data))
				return err
			}
			a.showArtifact(art)
			return nil
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "", "Unit to show")
	cmd.Flags().BoolVar(&raw, "json", false, "Print the encoded artifact")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}

func (a *app) showArtifact(art *artifact.Artifact) {
	p := a.printer

	var b strings.Builder
	fmt.Fprintf(&b, "unit:       %s\n", art.Unit)
	fmt.Fprintf(&b, "collected:  %s\n", art.CollectedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "references: %d\n", art.References.Len())
	fmt.Fprintf(&b, "helpers:    %d", len(art.HelperClasses))
	p.Box("Artifact", b.String())

	p.Title("References")
	for _, ref := range art.References.Refs() {
		p.Item(fmt.Sprintf("%s %s", ref.Name, ref.Flags))
		for _, m := range ref.Methods {
			p.Muted(fmt.Sprintf("      method %s %s", m, m.Flags))
		}
		for _, f := range ref.Fields {
			p.Muted(fmt.Sprintf("      field %s %s", f, f.Flags))
		}
	}
	if len(art.HelperClasses) > 0 {
		p.Title("Helper classes")
		for _, h := range art.HelperClasses {
			p.Item(h)
		}
	}
	if art.VirtualFields.Len() > 0 {
		p.Title("Virtual fields")
		for _, vf := range art.VirtualFields.Entries() {
			p.Item(vf.String())
		}
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			units, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range units {
				fmt.Fprintln(a.stdout, u)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	var unit string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stored artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), unit); err != nil {
				return err
			}
			a.printer.Success("deleted " + unit)
			return nil
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "", "Unit to delete")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}
