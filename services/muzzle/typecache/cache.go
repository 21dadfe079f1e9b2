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
	"log/slog"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultShards is the shard count used when WithShards is not given.
const DefaultShards = 32

// Option configures a Cache.
type Option func(*options)

type options struct {
	shards int
	logger *slog.Logger
	tracer trace.Tracer
}

// WithShards sets the number of shards. Values below 1 are ignored.
func WithShards(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithLogger sets the logger used for eviction and creation events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracerProvider sets the provider for resolver creation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer("muzzle.typecache")
		}
	}
}

// entry is one cached resolution. err is non-nil only for negative
// results and always wraps ErrTypeNotFound.
type entry struct {
	desc *TypeDescription
	err  error
}

type shard struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// Cache memoizes type descriptions per resolution scope.
//
// Description:
//
//	Entries are keyed by Key and spread over shards by scope identity, so
//	every entry of one scope lives in one shard. The cache never holds a
//	strong reference to a scope. When a scope is collected, a cleanup
//	registered with its resolver removes the scope's entries.
//
// Thread Safety:
//
//	Safe for concurrent use. When two goroutines populate the same key,
//	the first stored entry wins and both observe it.
type Cache struct {
	opts      options
	shards    []*shard
	resolvers *WeakMap[Scope, *Resolver]
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	o := options{
		shards: DefaultShards,
		logger: slog.Default(),
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Cache{
		opts:      o,
		shards:    make([]*shard, o.shards),
		resolvers: NewWeakMap[Scope, *Resolver](),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[Key]*entry)}
	}
	return c
}

// Resolver returns the resolver bound to scope, creating it on first use.
//
// Description:
//
//	The same *Resolver is returned for a scope for as long as the scope is
//	live. Creating a resolver registers the cleanup that evicts the
//	scope's entries once the scope is collected.
//
// Inputs:
//
//	ctx - Parent context for the creation span.
//	scope - The resolution scope. Must not be nil.
//
// Outputs:
//
//	*Resolver - The scope's resolver.
func (c *Cache) Resolver(ctx context.Context, scope *Scope) *Resolver {
	r, created := c.resolvers.LoadOrCompute(scope, func() *Resolver {
		return newResolver(c, scope)
	})
	if created {
		_, span := startResolverSpan(ctx, c.opts.tracer, scope)
		runtime.AddCleanup(scope, c.evict, scope.id)
		recordResolverCreated(ctx)
		c.opts.logger.Debug("typecache: resolver created",
			slog.String("scope", scope.String()),
		)
		span.End()
	}
	return r
}

// Get returns the cached description for key. found is false when the key
// has never been resolved. A cached negative result returns a nil
// description with found set.
func (c *Cache) Get(key Key) (desc *TypeDescription, found bool) {
	e, ok := c.load(key)
	if !ok {
		return nil, false
	}
	return e.desc, true
}

// Len returns the number of cached entries across all shards.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Scopes returns the number of scopes with a live resolver.
func (c *Cache) Scopes() int {
	return c.resolvers.Len()
}

func (c *Cache) shardFor(hash uint64) *shard {
	return c.shards[hash%uint64(len(c.shards))]
}

func (c *Cache) load(key Key) (*entry, bool) {
	s := c.shardFor(key.hash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// store inserts e unless the key is already populated and returns the
// entry that ended up in the cache.
func (c *Cache) store(key Key, e *entry) *entry {
	s := c.shardFor(key.hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok {
		return cur
	}
	s.entries[key] = e
	return e
}

// evict drops every entry of the collected scope with the given identity.
func (c *Cache) evict(id uint64) {
	s := c.shardFor(id)
	s.mu.Lock()
	n := 0
	for k := range s.entries {
		if k.hash == id {
			delete(s.entries, k)
			n++
		}
	}
	s.mu.Unlock()

	recordCacheEviction(n)
	c.opts.logger.Debug("typecache: scope collected",
		slog.Uint64("scope_id", id),
		slog.Int("evicted", n),
	)
}

func spanScopeAttrs(scope *Scope) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("typecache.scope", scope.Name()),
		attribute.Int64("typecache.scope_id", int64(scope.ID())),
	}
}
