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
	"log/slog"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// prune returns the graph of requirements checked against a host.
//
// Description:
//
//	References to classes provided by the library are kept. Helper
//	classes that take part in the super type chain of a library type are
//	kept so abstract method satisfaction can be checked, minus the
//	constructors, private and static methods that cannot implement an
//	inherited abstract method. All other helper references are dropped.
//	The pre-prune graph is left untouched.
func (r *run) prune() *references.Graph {
	participating := r.helpersInLibraryHierarchy()
	return r.refs.Filter(func(ref *references.ClassRef) *references.ClassRef {
		if r.c.providedByLibrary(ref.Name) {
			return ref
		}
		if participating[ref.Name] {
			return ref.WithoutMethods(func(m references.MethodRef) bool {
				return m.IsConstructor() ||
					m.Flags.Has(references.FlagPrivate) ||
					m.Flags.Has(references.FlagStatic)
			})
		}
		return nil
	})
}

// helpersInLibraryHierarchy returns the helper classes that extend or
// implement a library type, together with their helper super types.
func (r *run) helpersInLibraryHierarchy() map[string]bool {
	out := make(map[string]bool)
	for _, ref := range r.refs.Refs() {
		if r.c.isHelper(ref.Name) && r.hasLibrarySuperType(ref.Name, make(map[string]bool)) {
			r.addHelperSuperTypes(ref.Name, out)
		}
	}
	return out
}

func (r *run) hasLibrarySuperType(name string, seen map[string]bool) bool {
	if name == "" || r.c.isPlatform(name) || seen[name] {
		return false
	}
	seen[name] = true
	if r.c.providedByLibrary(name) {
		return true
	}
	ref, ok := r.refs.Get(name)
	if !ok {
		return false
	}
	for _, super := range ref.SuperTypeNames() {
		if r.hasLibrarySuperType(super, seen) {
			return true
		}
	}
	return false
}

func (r *run) addHelperSuperTypes(name string, out map[string]bool) {
	if name == "" || out[name] || !r.c.isHelper(name) {
		return
	}
	ref, ok := r.refs.Get(name)
	if !ok {
		return
	}
	out[name] = true
	// interfaces are kept too since they may carry default methods
	for _, super := range ref.SuperTypeNames() {
		r.addHelperSuperTypes(super, out)
	}
}

// sortedHelpers orders helper classes so every helper comes after the
// helper classes it extends or implements. Ties keep discovery order.
func (r *run) sortedHelpers() []string {
	pending := make(map[string]int, len(r.helperOrder))
	subtypes := make(map[string][]string)
	for _, h := range r.helperOrder {
		seen := make(map[string]bool)
		for _, super := range r.helperSupers[h] {
			if seen[super] || !r.helperSet[super] || super == h {
				continue
			}
			seen[super] = true
			pending[h]++
			subtypes[super] = append(subtypes[super], h)
		}
	}

	out := make([]string, 0, len(r.helperOrder))
	var ready []string
	for _, h := range r.helperOrder {
		if pending[h] == 0 {
			ready = append(ready, h)
		}
	}
	for len(ready) > 0 {
		h := ready[0]
		ready = ready[1:]
		out = append(out, h)
		for _, sub := range subtypes[h] {
			pending[sub]--
			if pending[sub] == 0 {
				ready = append(ready, sub)
			}
		}
	}

	if len(out) < len(r.helperOrder) {
		emitted := make(map[string]bool, len(out))
		for _, h := range out {
			emitted[h] = true
		}
		for _, h := range r.helperOrder {
			if !emitted[h] {
				r.logger.Warn("helper class hierarchy has a cycle", slog.String("class", h))
				out = append(out, h)
			}
		}
	}
	return out
}
