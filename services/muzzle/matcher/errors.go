// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matcher decides whether an instrumentation unit is safe to
// activate in a resolution scope.
//
// The Matcher checks every reference recorded in a unit's artifact
// against the types the scope can resolve and returns one Mismatch per
// unsatisfied requirement. Helper classes shipped by the unit are checked
// for internal consistency instead: every abstract method they inherit
// must be implemented somewhere in their hierarchy.
//
// Matching is total. Resolution failures and panics inside a scope become
// mismatches; MatchAll never returns an error and never panics.
//
// # Thread Safety
//
// A Matcher may be shared by any number of goroutines. The only shared
// mutable state is its type cache and its per-scope result memo.
package matcher

import (
	"errors"
	"fmt"
)

var (
	// ErrCheckPanic wraps a panic recovered while checking one reference.
	ErrCheckPanic = errors.New("reference check panicked")

	// ErrNilScope is reported when MatchAll is given no scope.
	ErrNilScope = errors.New("no resolution scope")
)

// unresolvedError reports an ancestor that could not be resolved while
// searching a hierarchy.
type unresolvedError struct {
	Name string
	Err  error
}

func (e *unresolvedError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Name, e.Err)
}

func (e *unresolvedError) Unwrap() error {
	return e.Err
}
