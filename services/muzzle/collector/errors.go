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
	"errors"
	"fmt"
)

var (
	// ErrInvalidVirtualField is returned when a virtual field declaration
	// does not pass two literal class references.
	ErrInvalidVirtualField = errors.New("invalid virtual field declaration")

	// ErrNoResourceOpener is returned when a unit lists resources but the
	// feed cannot open them.
	ErrNoResourceOpener = errors.New("feed cannot open resources")

	// ErrEmptyUnit is returned when a unit has neither advice classes nor
	// resources.
	ErrEmptyUnit = errors.New("instrumentation unit has nothing to collect")
)

// BuildError is a fatal collection failure.
//
// Collection errors are never downgraded: a unit whose requirements could
// not be fully cataloged must not produce an artifact.
type BuildError struct {
	// Unit is the instrumentation unit being collected.
	Unit string

	// Class is the class being visited, empty if the failure is not tied
	// to one class.
	Class string

	// Line is the last source line seen in Class, or 0.
	Line int

	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	switch {
	case e.Class == "":
		return fmt.Sprintf("muzzle build failed for %s: %v", e.Unit, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("muzzle build failed for %s in %s:%d: %v", e.Unit, e.Class, e.Line, e.Err)
	default:
		return fmt.Sprintf("muzzle build failed for %s in %s: %v", e.Unit, e.Class, e.Err)
	}
}

// Unwrap returns the cause.
func (e *BuildError) Unwrap() error {
	return e.Err
}
