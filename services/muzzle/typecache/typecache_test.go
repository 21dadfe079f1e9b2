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
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

func clientType(mods references.Modifiers) *TypeDescription {
	return &TypeDescription{
		Name:      "com.lib.Client",
		Modifiers: mods,
		SuperName: "java.lang.Object",
		Methods: []MemberDescription{
			{Name: "send", Descriptor: "()V", Modifiers: references.AccPublic},
		},
	}
}

func TestResolve_CrossScopeIsolation(t *testing.T) {
	ctx := context.Background()
	c := NewCache()

	srcA := NewMapSource(clientType(references.AccPublic))
	srcB := NewMapSource(clientType(references.AccPublic | references.AccFinal))
	a := NewScope("a", srcA)
	b := NewScope("b", srcB)
	require.NotEqual(t, a.ID(), b.ID())

	da, err := c.Resolver(ctx, a).Resolve(ctx, "com.lib.Client")
	require.NoError(t, err)
	db, err := c.Resolver(ctx, b).Resolve(ctx, "com.lib.Client")
	require.NoError(t, err)

	assert.False(t, da.Modifiers.Has(references.AccFinal))
	assert.True(t, db.Modifiers.Has(references.AccFinal))
	assert.Equal(t, 1, srcA.Lookups("com.lib.Client"))
	assert.Equal(t, 1, srcB.Lookups("com.lib.Client"))
	assert.Equal(t, 2, c.Len())

	// Identical contents still make distinct scopes.
	twin := NewScope("a", srcA)
	_, err = c.Resolver(ctx, twin).Resolve(ctx, "com.lib.Client")
	require.NoError(t, err)
	assert.Equal(t, 2, srcA.Lookups("com.lib.Client"))
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestResolve_Idempotent(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	src := NewMapSource(clientType(references.AccPublic))
	scope := NewScope("host", src)

	r := c.Resolver(ctx, scope)
	assert.Same(t, r, c.Resolver(ctx, scope))

	for range 3 {
		d, err := r.Resolve(ctx, "com.lib.Client")
		require.NoError(t, err)
		assert.Equal(t, "com.lib.Client", d.Name)

		_, err = r.Resolve(ctx, "com.lib.Missing")
		require.ErrorIs(t, err, ErrTypeNotFound)
	}

	assert.Equal(t, 1, src.Lookups("com.lib.Client"))
	assert.Equal(t, 1, src.Lookups("com.lib.Missing"))
	assert.Equal(t, 2, src.TotalLookups())

	d, found := c.Get(NewKey(scope, "com.lib.Client"))
	assert.True(t, found)
	assert.NotNil(t, d)
	d, found = c.Get(NewKey(scope, "com.lib.Missing"))
	assert.True(t, found)
	assert.Nil(t, d)
	_, found = c.Get(NewKey(scope, "com.lib.Other"))
	assert.False(t, found)
}

func TestResolve_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")
	var calls atomic.Int32
	scope := NewScope("flaky", TypeSourceFunc(func(name string) (*TypeDescription, error) {
		calls.Add(1)
		return nil, boom
	}))
	c := NewCache()
	r := c.Resolver(ctx, scope)

	_, err := r.Resolve(ctx, "x.Y")
	require.ErrorIs(t, err, boom)
	_, err = r.Resolve(ctx, "x.Y")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, c.Len())
}

func TestResolve_SourcePanic(t *testing.T) {
	ctx := context.Background()
	scope := NewScope("panicky", TypeSourceFunc(func(name string) (*TypeDescription, error) {
		panic("bad class file")
	}))
	r := NewCache().Resolver(ctx, scope)

	_, err := r.Resolve(ctx, "x.Y")
	require.ErrorIs(t, err, ErrSourcePanic)
	assert.Contains(t, err.Error(), "bad class file")
}

func TestResolve_NilDescriptionIsNotFound(t *testing.T) {
	ctx := context.Background()
	scope := NewScope("nil", TypeSourceFunc(func(string) (*TypeDescription, error) {
		return nil, nil
	}))
	_, err := NewCache().Resolver(ctx, scope).Resolve(ctx, "x.Y")
	require.ErrorIs(t, err, ErrTypeNotFound)
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewMapSource(clientType(references.AccPublic))
	scope := NewScope("host", src)
	r := NewCache().Resolver(context.Background(), scope)
	cancel()

	_, err := r.Resolve(ctx, "com.lib.Client")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.TotalLookups())
}

func TestResolve_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewCache(WithShards(4))
	src := NewMapSource(clientType(references.AccPublic))
	scopes := []*Scope{NewScope("s1", src), NewScope("s2", src), NewScope("s3", src)}

	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := scopes[i%len(scopes)]
			d, err := c.Resolver(ctx, s).Resolve(ctx, "com.lib.Client")
			assert.NoError(t, err)
			assert.Equal(t, "com.lib.Client", d.Name)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, len(scopes), src.Lookups("com.lib.Client"))
	assert.Equal(t, len(scopes), c.Len())
	assert.Equal(t, len(scopes), c.Scopes())
}

func TestCache_ScopeIsWeaklyHeld(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	src := NewMapSource(clientType(references.AccPublic))

	r, wp := func() (*Resolver, weak.Pointer[Scope]) {
		scope := NewScope("transient", src)
		r := c.Resolver(ctx, scope)
		_, err := r.Resolve(ctx, "com.lib.Client")
		require.NoError(t, err)
		_, err = r.Resolve(ctx, "com.lib.Missing")
		require.ErrorIs(t, err, ErrTypeNotFound)
		return r, weak.Make(scope)
	}()
	require.Equal(t, 2, c.Len())

	require.Eventually(t, func() bool {
		runtime.GC()
		return wp.Value() == nil && c.Len() == 0 && c.Scopes() == 0
	}, 5*time.Second, 10*time.Millisecond)

	assert.Nil(t, r.Scope())
	_, err := r.Resolve(ctx, "com.lib.Other")
	require.ErrorIs(t, err, ErrScopeCollected)
}

func TestKey_Equal(t *testing.T) {
	a := NewScope("a", nil)
	b := NewScope("b", nil)

	assert.True(t, NewKey(a, "x.Y").Equal(NewKey(a, "x.Y")))
	assert.Equal(t, NewKey(a, "x.Y"), NewKey(a, "x.Y"))
	assert.False(t, NewKey(a, "x.Y").Equal(NewKey(a, "x.Z")))
	assert.False(t, NewKey(a, "x.Y").Equal(NewKey(b, "x.Y")))
	assert.Equal(t, a.ID(), NewKey(a, "x.Y").Hash())
	assert.Same(t, a, NewKey(a, "x.Y").Scope())
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestWeakMap(t *testing.T) {
	type obj struct{ name string }
	m := NewWeakMap[obj, string]()

	keep := &obj{name: "keep"}
	m.Store(keep, "v1")
	v, ok := m.Load(keep)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	v, computed := m.LoadOrCompute(keep, func() string { return "v2" })
	assert.False(t, computed)
	assert.Equal(t, "v1", v)

	func() {
		tmp := &obj{name: "tmp"}
		_, computed := m.LoadOrCompute(tmp, func() string { return "gone" })
		require.True(t, computed)
	}()
	require.Eventually(t, func() bool {
		runtime.GC()
		return m.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	m.Delete(keep)
	_, ok = m.Load(keep)
	assert.False(t, ok)
	runtime.KeepAlive(keep)
}

func TestCache_ResolverSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	c := NewCache(WithTracerProvider(tp))
	scope := NewScope("traced", NewMapSource())

	c.Resolver(context.Background(), scope)
	c.Resolver(context.Background(), scope)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Cache.Resolver", spans[0].Name())
}

func TestParseScope(t *testing.T) {
	doc := `
name: host-1
types:
  - name: com/lib/Client
    access: [public]
    super: java/lang/Object
    interfaces: [com.lib.Closeable]
    methods:
      - {name: send, desc: "(Ljava/lang/String;)V", access: [public]}
      - {name: open, desc: "()Lcom/lib/Client;", access: [public, static]}
    fields:
      - {name: timeout, desc: "I", access: [protected]}
  - name: com.lib.Closeable
    access: [public, interface, abstract]
`
	scope, src, err := ParseScope([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "host-1", scope.Name())
	assert.Equal(t, 2, src.Len())

	d, err := NewCache().Resolver(context.Background(), scope).Resolve(context.Background(), "com.lib.Client")
	require.NoError(t, err)
	assert.Equal(t, "java.lang.Object", d.SuperName)
	assert.Equal(t, []string{"com.lib.Closeable"}, d.Interfaces)
	m, ok := d.Method("open", "()Lcom/lib/Client;")
	require.True(t, ok)
	assert.True(t, m.Modifiers.Has(references.AccStatic))
	f, ok := d.Field("timeout", "I")
	require.True(t, ok)
	assert.Equal(t, references.AccProtected, f.Modifiers)

	iface, err := src.Describe("com.lib.Closeable")
	require.NoError(t, err)
	assert.True(t, iface.IsInterface())
}

func TestParseScope_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":        "types: [",
		"missing name":    "types:\n  - access: [public]\n",
		"bad modifier":    "types:\n  - name: a.B\n    access: [sealed]\n",
		"bad method desc": "types:\n  - name: a.B\n    methods:\n      - {name: m, desc: \"V\"}\n",
		"bad field desc":  "types:\n  - name: a.B\n    fields:\n      - {name: f, desc: \"Lfoo\"}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseScope([]byte(doc))
			assert.Error(t, err, fmt.Sprintf("document %q", doc))
		})
	}
}
