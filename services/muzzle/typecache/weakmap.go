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
	"runtime"
	"sync"
	"weak"
)

// WeakMap maps objects to values without keeping the objects alive.
//
// Description:
//
//	Keys are held as weak pointers. When a key object is garbage
//	collected its entry is removed by a runtime cleanup. Values are held
//	strongly, so a value MUST NOT reference its own key or the key will
//	never be collected.
//
// Thread Safety:
//
//	Safe for concurrent use.
type WeakMap[K any, V any] struct {
	mu      sync.RWMutex
	entries map[weak.Pointer[K]]V
}

// NewWeakMap creates an empty map.
func NewWeakMap[K any, V any]() *WeakMap[K, V] {
	return &WeakMap[K, V]{entries: make(map[weak.Pointer[K]]V)}
}

// Load returns the value stored for key.
func (m *WeakMap[K, V]) Load(key *K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[weak.Make(key)]
	return v, ok
}

// Store sets the value for key, replacing any previous value.
func (m *WeakMap[K, V]) Store(key *K, value V) {
	wp := weak.Make(key)
	m.mu.Lock()
	_, existed := m.entries[wp]
	m.entries[wp] = value
	m.mu.Unlock()
	if !existed {
		m.watch(key, wp)
	}
}

// LoadOrCompute returns the value for key, calling create to build and
// store it when absent. create runs at most once per key while the key is
// live; concurrent callers for the same key wait and receive the stored
// value. computed reports whether this call created the value.
func (m *WeakMap[K, V]) LoadOrCompute(key *K, create func() V) (value V, computed bool) {
	wp := weak.Make(key)
	m.mu.RLock()
	v, ok := m.entries[wp]
	m.mu.RUnlock()
	if ok {
		return v, false
	}

	m.mu.Lock()
	if v, ok := m.entries[wp]; ok {
		m.mu.Unlock()
		return v, false
	}
	v = create()
	m.entries[wp] = v
	m.mu.Unlock()

	m.watch(key, wp)
	return v, true
}

// Delete removes the entry for key.
func (m *WeakMap[K, V]) Delete(key *K) {
	m.remove(weak.Make(key))
}

// Len returns the number of entries, including entries whose key was
// collected but whose cleanup has not run yet.
func (m *WeakMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *WeakMap[K, V]) watch(key *K, wp weak.Pointer[K]) {
	runtime.AddCleanup(key, m.remove, wp)
}

func (m *WeakMap[K, V]) remove(wp weak.Pointer[K]) {
	m.mu.Lock()
	delete(m.entries, wp)
	m.mu.Unlock()
}
