// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package references provides the structural symbol model used by muzzle.
//
// A ClassRef records that some named class must exist in a resolution
// context, together with the methods and fields instrumentation code touches
// on it and the flags (visibility, staticness, abstractness) each use needs.
//
// # Ownership Model
//
// ClassRef values are produced by a ClassRefBuilder or by Merge and are
// immutable afterwards:
//   - Callers MUST NOT mutate the slices of a built ClassRef
//   - Merge always returns a fresh ClassRef and never aliases its inputs
//
// # Thread Safety
//
// Built references are read-only and safe to share across goroutines.
// ClassRefBuilder and VirtualFieldMappings are NOT safe for concurrent use.
package references

import (
	"errors"
	"fmt"
)

// Sentinel errors for reference operations.
var (
	// ErrMergeNameMismatch is returned when merging two references that name
	// different classes.
	ErrMergeNameMismatch = errors.New("cannot merge references to different classes")

	// ErrContradictoryFlags is returned when a merge produces two mutually
	// exclusive flags of the same category.
	ErrContradictoryFlags = errors.New("contradictory flags")

	// ErrUnknownFlag is returned when parsing a flag name that does not exist.
	ErrUnknownFlag = errors.New("unknown flag")

	// ErrInvalidDescriptor is returned when a type or method descriptor
	// cannot be parsed.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
)

// ContradictionError describes a literal contradiction found while merging.
type ContradictionError struct {
	// ClassName is the class whose requirements contradict.
	ClassName string

	// Member is the "name+descriptor" of the member, empty for class flags.
	Member string

	// First and Second are the mutually exclusive flags.
	First  Flag
	Second Flag
}

// Error implements the error interface.
func (e *ContradictionError) Error() string {
	target := e.ClassName
	if e.Member != "" {
		target += "#" + e.Member
	}
	return fmt.Sprintf("%s: %s requires both %s and %s", ErrContradictoryFlags, target, e.First, e.Second)
}

// Unwrap returns ErrContradictoryFlags so errors.Is works.
func (e *ContradictionError) Unwrap() error {
	return ErrContradictoryFlags
}
