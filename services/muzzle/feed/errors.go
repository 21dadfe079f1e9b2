// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package feed defines the symbol-touch event stream consumed by the
// reference collector.
//
// A class-format reader turns each compiled class into a linear sequence of
// events: the class header, its field and method declarations, and for each
// method body the line markers, calls, field accesses, type checks and class
// literals it contains. The collector never sees bytes, only these events.
//
// Two implementations ship with the package. MemoryFeed holds events built
// in code and is used by tests. LoadFixture reads a YAML description of a
// set of classes and resources, which the muzzle CLI uses.
package feed

import "errors"

var (
	// ErrClassNotFound is returned by Open when the feed has no such class.
	ErrClassNotFound = errors.New("class not found in feed")

	// ErrResourceNotFound is returned by OpenResource for unknown paths.
	ErrResourceNotFound = errors.New("resource not found in feed")

	// ErrInvalidFixture is returned when a fixture file cannot be interpreted.
	ErrInvalidFixture = errors.New("invalid fixture")
)
