// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matcher

import (
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/typecache"
)

// methodBag collects the methods of a hierarchy by identity.
type methodBag struct {
	abstract []references.MemberKey
	isAbs    map[references.MemberKey]bool
	concrete map[references.MemberKey]bool
}

func newMethodBag() *methodBag {
	return &methodBag{
		isAbs:    make(map[references.MemberKey]bool),
		concrete: make(map[references.MemberKey]bool),
	}
}

func (b *methodBag) add(key references.MemberKey, abstract bool) {
	if !abstract {
		b.concrete[key] = true
		return
	}
	if !b.isAbs[key] {
		b.isAbs[key] = true
		b.abstract = append(b.abstract, key)
	}
}

// unimplemented returns the abstract methods with no concrete
// implementation, in discovery order.
func (b *methodBag) unimplemented() []references.MemberKey {
	var out []references.MemberKey
	for _, k := range b.abstract {
		if !b.concrete[k] {
			out = append(out, k)
		}
	}
	return out
}

// checkHelper verifies that a helper class is complete.
//
// Fields the helper uses without declaring must exist somewhere in its
// hierarchy. A concrete helper with super types must implement every
// abstract method it inherits. Live ancestors are resolved only when the
// in-graph chain reaches one.
func (r *matchRun) checkHelper(ref *references.ClassRef) []references.Mismatch {
	if full, ok := r.art.AllReferences.Get(ref.Name); ok {
		ref = full
	}
	w := NewHelperReferenceWrapper(r.helpers, ref)

	var out []references.Mismatch
	var undeclared []references.FieldRef
	for _, f := range ref.Fields {
		if !f.Declared {
			undeclared = append(undeclared, f)
		}
	}
	if len(undeclared) > 0 {
		have := make(map[references.MemberKey]bool)
		if err := r.collectFields(w, have, make(map[string]bool)); err != nil {
			return []references.Mismatch{r.failure(ref, err)}
		}
		for _, f := range undeclared {
			if !have[f.Key()] {
				out = append(out, references.NewMissingField(sourcesOr(f.Sources, ref.Sources), ref.Name, f.Key()))
			}
		}
	}

	if !w.HasSuperTypes() || w.IsAbstract() {
		return out
	}

	bag := newMethodBag()
	if err := r.collectMethods(w, bag, make(map[string]bool)); err != nil {
		return append(out, r.failure(ref, err))
	}
	for _, k := range bag.unimplemented() {
		out = append(out, references.NewMissingMethod(ref.Sources, ref.Name, k))
	}
	return out
}

func (r *matchRun) collectFields(st SuperType, have map[references.MemberKey]bool, seen map[string]bool) error {
	name := st.SuperTypeName()
	if seen[name] {
		return nil
	}
	seen[name] = true

	switch t := st.(type) {
	case *HelperReferenceWrapper:
		for _, f := range t.Fields() {
			have[f.Key()] = true
		}
		for s := range t.SuperTypes() {
			if err := r.collectFields(s, have, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return r.walkLive(name, seen, func(desc *typecache.TypeDescription) {
			for _, f := range desc.Fields {
				have[references.MemberKey{Name: f.Name, Descriptor: f.Descriptor}] = true
			}
		})
	}
}

func (r *matchRun) collectMethods(st SuperType, bag *methodBag, seen map[string]bool) error {
	name := st.SuperTypeName()
	if seen[name] {
		return nil
	}
	seen[name] = true

	switch t := st.(type) {
	case *HelperReferenceWrapper:
		for _, m := range t.Methods() {
			bag.add(m.Key(), m.Abstract)
		}
		for s := range t.SuperTypes() {
			if err := r.collectMethods(s, bag, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return r.walkLive(name, seen, func(desc *typecache.TypeDescription) {
			for _, m := range desc.Methods {
				if m.Name == references.ConstructorName ||
					m.Modifiers&(references.AccPrivate|references.AccStatic) != 0 {
					continue
				}
				bag.add(references.MemberKey{Name: m.Name, Descriptor: m.Descriptor},
					m.Modifiers.Has(references.AccAbstract))
			}
		})
	}
}

// walkLive resolves name in the scope and visits it and every live
// ancestor once. name must already be marked in seen.
func (r *matchRun) walkLive(name string, seen map[string]bool, visit func(*typecache.TypeDescription)) error {
	desc, err := r.resolveAncestor(name)
	if err != nil || desc == nil {
		return err
	}
	visit(desc)

	supers := make([]string, 0, len(desc.Interfaces)+1)
	if desc.SuperName != "" {
		supers = append(supers, desc.SuperName)
	}
	supers = append(supers, desc.Interfaces...)
	for _, s := range supers {
		if seen[s] {
			continue
		}
		seen[s] = true
		if err := r.walkLive(s, seen, visit); err != nil {
			return err
		}
	}
	return nil
}
