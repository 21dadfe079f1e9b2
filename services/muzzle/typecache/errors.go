// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typecache resolves type descriptions inside resolution scopes
// and memoizes the results without keeping any scope alive.
//
// A Scope is everything nameable from one isolated loading context. The
// host creates scopes and owns their lifetime. The Cache keys entries by
// (scope identity, weak scope pointer, type name) so a description
// resolved in one scope is never returned for another, and a scope that
// the host drops can be garbage collected even while entries for it are
// cached. Entries of a collected scope are removed by a runtime cleanup.
//
// # Thread Safety
//
// Cache, Resolver and WeakMap are safe for concurrent use. Unrelated
// scopes hash to independent shards and do not contend.
package typecache

import "errors"

var (
	// ErrTypeNotFound is returned when a scope cannot name a type.
	ErrTypeNotFound = errors.New("type not found")

	// ErrScopeCollected is returned by a Resolver whose scope has been
	// garbage collected.
	ErrScopeCollected = errors.New("resolution scope was collected")

	// ErrSourcePanic wraps a panic raised by a TypeSource.
	ErrSourcePanic = errors.New("type source panicked")
)
