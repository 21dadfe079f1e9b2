// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typecache

import "weak"

// Key identifies a cached description: the scope's identity hash, a weak
// pointer to the scope, and the type name.
//
// Keys are comparable and used directly as map keys. A weak pointer keeps
// comparing equal to pointers made from the same scope even after the
// scope is collected, and the identity hash is unique per scope, so map
// equality agrees with Equal.
type Key struct {
	hash  uint64
	scope weak.Pointer[Scope]
	name  string
}

// NewKey returns the key for name in scope.
func NewKey(scope *Scope, name string) Key {
	return Key{hash: scope.id, scope: weak.Make(scope), name: name}
}

// Hash returns the scope identity hash.
func (k Key) Hash() uint64 {
	return k.hash
}

// Name returns the type name.
func (k Key) Name() string {
	return k.name
}

// Scope returns the scope, or nil once it has been collected.
func (k Key) Scope() *Scope {
	return k.scope.Value()
}

// Equal reports whether both keys name the same type in the same scope.
// Keys whose scopes are both collected are equal when their hashes match.
func (k Key) Equal(o Key) bool {
	if k.name != o.name {
		return false
	}
	a, b := k.scope.Value(), o.scope.Value()
	if a != nil || b != nil {
		return a == b
	}
	return k.hash == o.hash
}
