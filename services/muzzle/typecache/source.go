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
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// MapSource is an in-memory TypeSource that counts lookups.
//
// Thread Safety:
//
//	Safe for concurrent use.
type MapSource struct {
	mu      sync.Mutex
	types   map[string]*TypeDescription
	lookups map[string]int
}

// NewMapSource creates a source holding the given descriptions.
func NewMapSource(types ...*TypeDescription) *MapSource {
	s := &MapSource{
		types:   make(map[string]*TypeDescription, len(types)),
		lookups: make(map[string]int),
	}
	for _, t := range types {
		s.types[t.Name] = t
	}
	return s
}

// Add registers or replaces a description.
func (s *MapSource) Add(t *TypeDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t.Name] = t
}

// Describe implements TypeSource.
func (s *MapSource) Describe(name string) (*TypeDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[name]++
	t, ok := s.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	return t, nil
}

// Lookups returns how many times name was described.
func (s *MapSource) Lookups(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups[name]
}

// TotalLookups returns the number of Describe calls across all names.
func (s *MapSource) TotalLookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.lookups {
		n += c
	}
	return n
}

// Len returns the number of registered types.
func (s *MapSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.types)
}

// ScopeFile is the YAML form of a resolution scope.
type ScopeFile struct {
	Name  string     `yaml:"name"`
	Types []TypeFile `yaml:"types"`
}

// TypeFile is the YAML form of a TypeDescription.
type TypeFile struct {
	Name       string       `yaml:"name"`
	Access     []string     `yaml:"access"`
	Super      string       `yaml:"super"`
	Interfaces []string     `yaml:"interfaces"`
	Methods    []MemberFile `yaml:"methods"`
	Fields     []MemberFile `yaml:"fields"`
}

// MemberFile is the YAML form of a MemberDescription.
type MemberFile struct {
	Name   string   `yaml:"name"`
	Desc   string   `yaml:"desc"`
	Access []string `yaml:"access"`
}

// LoadScope reads a scope file and returns a scope over its types.
func LoadScope(path string) (*Scope, *MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read scope %s: %w", path, err)
	}
	scope, src, err := ParseScope(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parse scope %s: %w", path, err)
	}
	return scope, src, nil
}

// ParseScope decodes a YAML scope document. Class names may be given in
// dotted or internal form.
func ParseScope(data []byte) (*Scope, *MapSource, error) {
	var f ScopeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("decode scope: %w", err)
	}
	if f.Name == "" {
		f.Name = "scope"
	}
	src := NewMapSource()
	for i, tf := range f.Types {
		desc, err := tf.description()
		if err != nil {
			return nil, nil, fmt.Errorf("type %d: %w", i, err)
		}
		src.Add(desc)
	}
	return NewScope(f.Name, src), src, nil
}

func (tf TypeFile) description() (*TypeDescription, error) {
	if tf.Name == "" {
		return nil, fmt.Errorf("missing type name")
	}
	mods, err := references.ParseModifiers(tf.Access)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tf.Name, err)
	}
	desc := &TypeDescription{
		Name:      references.ClassName(tf.Name),
		Modifiers: mods,
		SuperName: references.ClassName(tf.Super),
	}
	for _, in := range tf.Interfaces {
		desc.Interfaces = append(desc.Interfaces, references.ClassName(in))
	}
	for _, mf := range tf.Methods {
		if _, _, err := references.ParseMethodDescriptor(mf.Desc); err != nil {
			return nil, fmt.Errorf("%s#%s: %w", desc.Name, mf.Name, err)
		}
		m, err := mf.member()
		if err != nil {
			return nil, fmt.Errorf("%s#%s: %w", desc.Name, mf.Name, err)
		}
		desc.Methods = append(desc.Methods, m)
	}
	for _, ff := range tf.Fields {
		if !references.ValidTypeDescriptor(ff.Desc) {
			return nil, fmt.Errorf("%s#%s: %w: %q", desc.Name, ff.Name, references.ErrInvalidDescriptor, ff.Desc)
		}
		m, err := ff.member()
		if err != nil {
			return nil, fmt.Errorf("%s#%s: %w", desc.Name, ff.Name, err)
		}
		desc.Fields = append(desc.Fields, m)
	}
	return desc, nil
}

func (mf MemberFile) member() (MemberDescription, error) {
	mods, err := references.ParseModifiers(mf.Access)
	if err != nil {
		return MemberDescription{}, err
	}
	return MemberDescription{Name: mf.Name, Descriptor: mf.Desc, Modifiers: mods}, nil
}
