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
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// MemberDescription is a method or field as declared by a resolved type.
type MemberDescription struct {
	Name       string               `json:"name" yaml:"name"`
	Descriptor string               `json:"descriptor" yaml:"descriptor"`
	Modifiers  references.Modifiers `json:"modifiers" yaml:"-"`
}

// TypeDescription is the resolved shape of a type. Only members declared by
// the type itself are listed; inherited members are found by walking
// SuperName and Interfaces.
//
// Descriptions are immutable once returned by a TypeSource.
type TypeDescription struct {
	Name       string               `json:"name"`
	Modifiers  references.Modifiers `json:"modifiers"`
	SuperName  string               `json:"super,omitempty"`
	Interfaces []string             `json:"interfaces,omitempty"`
	Methods    []MemberDescription  `json:"methods,omitempty"`
	Fields     []MemberDescription  `json:"fields,omitempty"`
}

// Method returns the declared method with the given name and descriptor.
func (t *TypeDescription) Method(name, descriptor string) (MemberDescription, bool) {
	for _, m := range t.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m, true
		}
	}
	return MemberDescription{}, false
}

// Field returns the declared field with the given name and descriptor.
func (t *TypeDescription) Field(name, descriptor string) (MemberDescription, bool) {
	for _, f := range t.Fields {
		if f.Name == name && f.Descriptor == descriptor {
			return f, true
		}
	}
	return MemberDescription{}, false
}

// IsInterface reports whether the type is an interface.
func (t *TypeDescription) IsInterface() bool {
	return t.Modifiers&references.AccInterface != 0
}

// TypeSource looks up type descriptions by dotted class name.
//
// Describe must return an error wrapping ErrTypeNotFound when the name is
// unknown. Any other error is treated as a resolution failure and is not
// cached.
type TypeSource interface {
	Describe(name string) (*TypeDescription, error)
}

// TypeSourceFunc adapts a function to TypeSource.
type TypeSourceFunc func(name string) (*TypeDescription, error)

// Describe implements TypeSource.
func (f TypeSourceFunc) Describe(name string) (*TypeDescription, error) {
	return f(name)
}

var scopeIDs atomic.Uint64

// Scope is a resolution context.
//
// Each scope gets a process-unique identity when created. Two scopes
// with identical contents are still distinct.
type Scope struct {
	id     uint64
	name   string
	source TypeSource
}

// NewScope creates a scope resolving names through source.
func NewScope(name string, source TypeSource) *Scope {
	return &Scope{id: scopeIDs.Add(1), name: name, source: source}
}

// ID returns the identity hash of the scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Name returns the display name given at creation.
func (s *Scope) Name() string {
	return s.name
}

// String returns "name#id".
func (s *Scope) String() string {
	return s.name + "#" + strconv.FormatUint(s.id, 10)
}

// describe calls the source, converting a panic into an error.
func (s *Scope) describe(name string) (desc *TypeDescription, err error) {
	defer func() {
		if r := recover(); r != nil {
			desc = nil
			err = fmt.Errorf("%w: %s: %v", ErrSourcePanic, name, r)
		}
	}()
	if s.source == nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	desc, err = s.source.Describe(name)
	if err == nil && desc == nil {
		err = fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	return desc, err
}
