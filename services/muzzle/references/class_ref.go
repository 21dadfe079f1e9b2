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

// ConstructorName is the internal name of instance initializers.
const ConstructorName = "<init>"

// MemberKey identifies a method or field within one class.
type MemberKey struct {
	Name       string
	Descriptor string
}

// String renders the key as "name+descriptor".
func (k MemberKey) String() string {
	return k.Name + k.Descriptor
}

// MethodRef is a required method on a referenced class.
type MethodRef struct {
	// ClassName is the owning class.
	ClassName string `json:"class"`

	// Name is the method name, "<init>" for constructors.
	Name string `json:"name"`

	// Descriptor is the method descriptor, e.g. "(Ljava/lang/String;)V".
	Descriptor string `json:"descriptor"`

	// Flags are the requirements on the resolved method.
	Flags FlagSet `json:"flags"`

	// Sources are the locations that referenced the method.
	Sources []Source `json:"sources,omitempty"`
}

// Key returns the method identity.
func (m MethodRef) Key() MemberKey {
	return MemberKey{Name: m.Name, Descriptor: m.Descriptor}
}

// String renders the method as "name+descriptor".
func (m MethodRef) String() string {
	return m.Name + m.Descriptor
}

// IsAbstract reports whether the method was declared abstract.
func (m MethodRef) IsAbstract() bool {
	return m.Flags.Has(FlagAbstract)
}

// IsConstructor reports whether this is an instance initializer.
func (m MethodRef) IsConstructor() bool {
	return m.Name == ConstructorName
}

// FieldRef is a required field on a referenced class.
type FieldRef struct {
	// ClassName is the owning class.
	ClassName string `json:"class"`

	// Name is the field name.
	Name string `json:"name"`

	// Descriptor is the field type descriptor.
	Descriptor string `json:"descriptor"`

	// Flags are the requirements on the resolved field.
	Flags FlagSet `json:"flags"`

	// Declared is true when the field must be declared directly by the
	// resolved class rather than merely inherited.
	Declared bool `json:"declared,omitempty"`

	// Sources are the locations that referenced the field.
	Sources []Source `json:"sources,omitempty"`
}

// Key returns the field identity.
func (f FieldRef) Key() MemberKey {
	return MemberKey{Name: f.Name, Descriptor: f.Descriptor}
}

// String renders the field as "name+descriptor".
func (f FieldRef) String() string {
	return f.Name + f.Descriptor
}

// ClassRef is a structural reference to a class.
//
// Description:
//
//	Records that a class with Name must be resolvable, carry Flags, and
//	expose Methods and Fields. SuperClassName and InterfaceNames are only
//	known for classes whose header was visited (helper classes).
//
// Thread Safety:
//
//	Immutable once built; safe for concurrent reads.
type ClassRef struct {
	Name           string      `json:"name"`
	SuperClassName string      `json:"super,omitempty"`
	InterfaceNames []string    `json:"interfaces,omitempty"`
	Flags          FlagSet     `json:"flags"`
	Methods        []MethodRef `json:"methods,omitempty"`
	Fields         []FieldRef  `json:"fields,omitempty"`
	Sources        []Source    `json:"sources,omitempty"`
}

// Method returns the method with the given identity.
func (c *ClassRef) Method(name, descriptor string) (MethodRef, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return MethodRef{}, false
}

// Field returns the field with the given identity.
func (c *ClassRef) Field(name, descriptor string) (FieldRef, bool) {
	for _, f := range c.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f, true
		}
	}
	return FieldRef{}, false
}

// HasSuperTypes reports whether a super class or any interface is known.
func (c *ClassRef) HasSuperTypes() bool {
	return c.SuperClassName != "" || len(c.InterfaceNames) > 0
}

// SuperTypeNames returns the super class (if any) followed by the interfaces.
func (c *ClassRef) SuperTypeNames() []string {
	out := make([]string, 0, len(c.InterfaceNames)+1)
	if c.SuperClassName != "" {
		out = append(out, c.SuperClassName)
	}
	return append(out, c.InterfaceNames...)
}

// Clone returns a deep copy.
func (c *ClassRef) Clone() *ClassRef {
	out := &ClassRef{
		Name:           c.Name,
		SuperClassName: c.SuperClassName,
		InterfaceNames: append([]string(nil), c.InterfaceNames...),
		Flags:          c.Flags,
		Sources:        cloneSources(c.Sources),
	}
	if len(c.Methods) > 0 {
		out.Methods = make([]MethodRef, len(c.Methods))
		for i, m := range c.Methods {
			m.Sources = cloneSources(m.Sources)
			out.Methods[i] = m
		}
	}
	if len(c.Fields) > 0 {
		out.Fields = make([]FieldRef, len(c.Fields))
		for i, f := range c.Fields {
			f.Sources = cloneSources(f.Sources)
			out.Fields[i] = f
		}
	}
	return out
}

// WithoutMethods returns a copy without the methods for which drop is true.
func (c *ClassRef) WithoutMethods(drop func(MethodRef) bool) *ClassRef {
	out := c.Clone()
	kept := out.Methods[:0]
	for _, m := range out.Methods {
		if !drop(m) {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	out.Methods = kept
	return out
}

// Validate returns a *ContradictionError when the class or any member
// carries mutually exclusive flags.
func (c *ClassRef) Validate() error {
	if a, b, ok := c.Flags.Contradiction(); ok {
		return &ContradictionError{ClassName: c.Name, First: a, Second: b}
	}
	for _, m := range c.Methods {
		if a, b, ok := m.Flags.Contradiction(); ok {
			return &ContradictionError{ClassName: c.Name, Member: m.String(), First: a, Second: b}
		}
	}
	for _, f := range c.Fields {
		if a, b, ok := f.Flags.Contradiction(); ok {
			return &ContradictionError{ClassName: c.Name, Member: f.String(), First: a, Second: b}
		}
	}
	return nil
}

// String returns a short description.
func (c *ClassRef) String() string {
	return "ClassRef<" + c.Name + ">"
}
