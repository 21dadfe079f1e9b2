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

// ClassRefBuilder accumulates requirements for one class.
//
// Description:
//
//	Members are unioned by (name, descriptor) as they are added: adding the
//	same method twice keeps one entry with both flag sets and both source
//	lists. Build returns a copy, so the builder may keep being used.
//
// Thread Safety:
//
//	Not safe for concurrent use.
type ClassRefBuilder struct {
	ref     ClassRef
	methods map[MemberKey]int
	fields  map[MemberKey]int
}

// NewClassRefBuilder creates a builder for the named class.
func NewClassRefBuilder(name string) *ClassRefBuilder {
	return &ClassRefBuilder{
		ref:     ClassRef{Name: name},
		methods: make(map[MemberKey]int),
		fields:  make(map[MemberKey]int),
	}
}

// AddSource records a provenance location for the class itself.
func (b *ClassRefBuilder) AddSource(name string, line int) *ClassRefBuilder {
	b.ref.Sources = mergeSources(b.ref.Sources, []Source{{Name: name, Line: line}})
	return b
}

// AddFlag adds a class-level requirement.
func (b *ClassRefBuilder) AddFlag(f Flag) *ClassRefBuilder {
	b.ref.Flags = b.ref.Flags.With(f)
	return b
}

// AddFlags adds every flag of s as a class-level requirement.
func (b *ClassRefBuilder) AddFlags(s FlagSet) *ClassRefBuilder {
	b.ref.Flags = b.ref.Flags.Union(s)
	return b
}

// SetSuperClassName records the direct super class.
func (b *ClassRefBuilder) SetSuperClassName(name string) *ClassRefBuilder {
	b.ref.SuperClassName = name
	return b
}

// AddInterfaceName appends a directly implemented interface, ignoring repeats.
func (b *ClassRefBuilder) AddInterfaceName(name string) *ClassRefBuilder {
	for _, n := range b.ref.InterfaceNames {
		if n == name {
			return b
		}
	}
	b.ref.InterfaceNames = append(b.ref.InterfaceNames, name)
	return b
}

// AddInterfaceNames appends each name with AddInterfaceName.
func (b *ClassRefBuilder) AddInterfaceNames(names ...string) *ClassRefBuilder {
	for _, n := range names {
		b.AddInterfaceName(n)
	}
	return b
}

// AddMethod records a required method.
//
// Inputs:
//
//	sources - Where the method is referenced from. May be nil.
//	flags - Requirements on the resolved method.
//	name - Method name, ConstructorName for constructors.
//	descriptor - Method descriptor.
//
// Outputs:
//
//	*ClassRefBuilder - The receiver, for chaining.
func (b *ClassRefBuilder) AddMethod(sources []Source, flags FlagSet, name, descriptor string) *ClassRefBuilder {
	key := MemberKey{Name: name, Descriptor: descriptor}
	if i, ok := b.methods[key]; ok {
		m := &b.ref.Methods[i]
		m.Flags = m.Flags.Union(flags)
		m.Sources = mergeSources(m.Sources, sources)
		return b
	}
	b.methods[key] = len(b.ref.Methods)
	b.ref.Methods = append(b.ref.Methods, MethodRef{
		ClassName:  b.ref.Name,
		Name:       name,
		Descriptor: descriptor,
		Flags:      flags,
		Sources:    mergeSources(nil, sources),
	})
	return b
}

// AddField records a required field. declared marks fields that must be
// declared by the resolved class itself.
func (b *ClassRefBuilder) AddField(sources []Source, flags FlagSet, name, descriptor string, declared bool) *ClassRefBuilder {
	key := MemberKey{Name: name, Descriptor: descriptor}
	if i, ok := b.fields[key]; ok {
		f := &b.ref.Fields[i]
		f.Flags = f.Flags.Union(flags)
		f.Declared = f.Declared || declared
		f.Sources = mergeSources(f.Sources, sources)
		return b
	}
	b.fields[key] = len(b.ref.Fields)
	b.ref.Fields = append(b.ref.Fields, FieldRef{
		ClassName:  b.ref.Name,
		Name:       name,
		Descriptor: descriptor,
		Flags:      flags,
		Declared:   declared,
		Sources:    mergeSources(nil, sources),
	})
	return b
}

// Build returns an immutable snapshot of the accumulated reference.
func (b *ClassRefBuilder) Build() *ClassRef {
	return b.ref.Clone()
}
