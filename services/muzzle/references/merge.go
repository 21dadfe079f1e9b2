// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package references

import "fmt"

// Merge combines two partial references to the same class.
//
// Description:
//
//	Flags are unioned. Methods and fields are unioned by identity, and a
//	member present in both gets the union of both flag sets, the OR of
//	Declared and both source lists. The super class is taken from a, or
//	from b when a has none. Interfaces keep a's order followed by any new
//	ones from b. Neither input is modified.
//
// Inputs:
//
//	a, b - References to merge. Must name the same class.
//
// Outputs:
//
//	*ClassRef - A fresh reference.
//	error - ErrMergeNameMismatch when the names differ, or a
//	        *ContradictionError when the union holds two mutually
//	        exclusive flags.
func Merge(a, b *ClassRef) (*ClassRef, error) {
	if a.Name != b.Name {
		return nil, fmt.Errorf("%w: %s and %s", ErrMergeNameMismatch, a.Name, b.Name)
	}

	builder := NewClassRefBuilder(a.Name)
	for _, r := range []*ClassRef{a, b} {
		builder.AddFlags(r.Flags)
		builder.AddInterfaceNames(r.InterfaceNames...)
		builder.ref.Sources = mergeSources(builder.ref.Sources, r.Sources)
		for _, m := range r.Methods {
			builder.AddMethod(m.Sources, m.Flags, m.Name, m.Descriptor)
		}
		for _, f := range r.Fields {
			builder.AddField(f.Sources, f.Flags, f.Name, f.Descriptor, f.Declared)
		}
	}
	super := a.SuperClassName
	if super == "" {
		super = b.SuperClassName
	}
	builder.SetSuperClassName(super)

	out := builder.Build()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
