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

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"weak"

	"golang.org/x/sync/singleflight"
)

// Resolver resolves names within one scope through a Cache.
//
// A Resolver holds only a weak pointer to its scope. Once the scope is
// collected every call returns ErrScopeCollected.
//
// Thread Safety:
//
//	Safe for concurrent use. Concurrent lookups of the same uncached name
//	share one call to the scope's TypeSource.
type Resolver struct {
	cache *Cache
	id    uint64
	name  string
	scope weak.Pointer[Scope]
	group singleflight.Group
}

func newResolver(c *Cache, scope *Scope) *Resolver {
	return &Resolver{
		cache: c,
		id:    scope.id,
		name:  scope.name,
		scope: weak.Make(scope),
	}
}

// ScopeID returns the identity hash of the bound scope.
func (r *Resolver) ScopeID() uint64 {
	return r.id
}

// ScopeName returns the display name of the bound scope.
func (r *Resolver) ScopeName() string {
	return r.name
}

// Scope returns the bound scope, or nil once it has been collected.
func (r *Resolver) Scope() *Scope {
	return r.scope.Value()
}

// Resolve returns the description of name in the bound scope.
//
// Description:
//
//	Found and not-found results are cached. Other failures, including a
//	panic in the TypeSource, are returned but not cached so a later call
//	retries them.
//
// Inputs:
//
//	ctx - Checked for cancellation before the lookup.
//	name - Dotted class name.
//
// Outputs:
//
//	*TypeDescription - The description. Never nil when err is nil.
//	error - Wraps ErrTypeNotFound, ErrScopeCollected, ErrSourcePanic, or
//	the source's own error.
func (r *Resolver) Resolve(ctx context.Context, name string) (*TypeDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := Key{hash: r.id, scope: r.scope, name: name}
	if e, ok := r.cache.load(key); ok {
		recordCacheHit(ctx, e.err != nil)
		return e.desc, e.err
	}
	recordCacheMiss(ctx)

	v, err, _ := r.group.Do(name, func() (any, error) {
		if e, ok := r.cache.load(key); ok {
			return e, nil
		}
		scope := r.scope.Value()
		if scope == nil {
			return nil, fmt.Errorf("%w: %s", ErrScopeCollected, r.name)
		}
		desc, err := scope.describe(name)
		if err != nil && !errors.Is(err, ErrTypeNotFound) {
			return nil, err
		}
		e := r.cache.store(key, &entry{desc: desc, err: err})
		runtime.KeepAlive(scope)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e := v.(*entry)
	return e.desc, e.err
}
