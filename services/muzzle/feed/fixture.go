// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package feed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// Fixture is the YAML form of a feed.
//
// Example:
//
//	classes:
//	  - name: com.example.Advice
//	    access: [public]
//	    super: java.lang.Object
//	    events:
//	      - method: {name: onEnter, desc: "()V", access: [public, static]}
//	      - line: 12
//	      - call: {kind: virtual, owner: com.lib.Client, name: send, desc: "()V"}
//	resources:
//	  META-INF/services/com.lib.Plugin: |
//	    com.example.PluginImpl
type Fixture struct {
	Classes   []FixtureClass    `yaml:"classes"`
	Resources map[string]string `yaml:"resources,omitempty"`
}

// FixtureClass is one class of a Fixture.
type FixtureClass struct {
	Name       string         `yaml:"name"`
	Access     []string       `yaml:"access,omitempty"`
	Super      string         `yaml:"super,omitempty"`
	Interfaces []string       `yaml:"interfaces,omitempty"`
	Events     []FixtureEvent `yaml:"events,omitempty"`
}

// FixtureEvent holds exactly one of its fields.
type FixtureEvent struct {
	Method  *FixtureMember `yaml:"method,omitempty"`
	Field   *FixtureMember `yaml:"field,omitempty"`
	Line    *int           `yaml:"line,omitempty"`
	Call    *FixtureCall   `yaml:"call,omitempty"`
	Access  *FixtureAccess `yaml:"access,omitempty"`
	Type    *string        `yaml:"type,omitempty"`
	Literal *string        `yaml:"literal,omitempty"`
	Insn    *string        `yaml:"insn,omitempty"`
}

// FixtureMember is a method or field declaration.
type FixtureMember struct {
	Name   string   `yaml:"name"`
	Desc   string   `yaml:"desc"`
	Access []string `yaml:"access,omitempty"`
	Skip   bool     `yaml:"skip,omitempty"`
}

// FixtureCall is a method call.
type FixtureCall struct {
	Kind      string `yaml:"kind"`
	Owner     string `yaml:"owner"`
	Name      string `yaml:"name"`
	Desc      string `yaml:"desc"`
	Interface bool   `yaml:"interface,omitempty"`
}

// FixtureAccess is a field access.
type FixtureAccess struct {
	Owner  string `yaml:"owner"`
	Name   string `yaml:"name"`
	Desc   string `yaml:"desc"`
	Static bool   `yaml:"static,omitempty"`
}

// LoadFixture reads a YAML fixture file into a MemoryFeed.
func LoadFixture(path string) (*MemoryFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML fixture data into a MemoryFeed.
//
// Description:
//
//	Class names may be dotted or in internal ("a/b/C") form. Descriptors
//	are validated, so a malformed fixture fails here instead of deep
//	inside collection.
//
// Outputs:
//
//	*MemoryFeed - The populated feed.
//	error - Wraps ErrInvalidFixture for structural problems.
func ParseFixture(data []byte) (*MemoryFeed, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	f := NewMemoryFeed()
	for _, fc := range fx.Classes {
		def, err := fc.toClassDef()
		if err != nil {
			return nil, err
		}
		f.AddClass(def)
	}
	for path, content := range fx.Resources {
		f.AddResource(path, content)
	}
	return f, nil
}

func (fc FixtureClass) toClassDef() (ClassDef, error) {
	if fc.Name == "" {
		return ClassDef{}, fmt.Errorf("%w: class without name", ErrInvalidFixture)
	}
	access, err := references.ParseModifiers(fc.Access)
	if err != nil {
		return ClassDef{}, fmt.Errorf("%w: class %s: %v", ErrInvalidFixture, fc.Name, err)
	}
	def := ClassDef{
		Name:      references.ClassName(fc.Name),
		Access:    access,
		SuperName: references.ClassName(fc.Super),
	}
	for _, i := range fc.Interfaces {
		def.Interfaces = append(def.Interfaces, references.ClassName(i))
	}
	for i, fe := range fc.Events {
		ev, err := fe.toEvent()
		if err != nil {
			return ClassDef{}, fmt.Errorf("%w: class %s event %d: %v", ErrInvalidFixture, fc.Name, i, err)
		}
		def.Events = append(def.Events, ev)
	}
	return def, nil
}

func (fe FixtureEvent) toEvent() (Event, error) {
	set := 0
	for _, present := range []bool{
		fe.Method != nil, fe.Field != nil, fe.Line != nil, fe.Call != nil,
		fe.Access != nil, fe.Type != nil, fe.Literal != nil, fe.Insn != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return Event{}, fmt.Errorf("expected exactly one event key, got %d", set)
	}

	switch {
	case fe.Method != nil:
		access, err := references.ParseModifiers(fe.Method.Access)
		if err != nil {
			return Event{}, err
		}
		if _, _, err := references.ParseMethodDescriptor(fe.Method.Desc); err != nil {
			return Event{}, err
		}
		ev := Method(access, fe.Method.Name, fe.Method.Desc)
		ev.SkipReferences = fe.Method.Skip
		return ev, nil

	case fe.Field != nil:
		access, err := references.ParseModifiers(fe.Field.Access)
		if err != nil {
			return Event{}, err
		}
		if !references.ValidTypeDescriptor(fe.Field.Desc) {
			return Event{}, fmt.Errorf("%w: %q", references.ErrInvalidDescriptor, fe.Field.Desc)
		}
		return Field(access, fe.Field.Name, fe.Field.Desc), nil

	case fe.Line != nil:
		return Line(*fe.Line), nil

	case fe.Call != nil:
		kind, err := parseCallKind(fe.Call.Kind)
		if err != nil {
			return Event{}, err
		}
		if _, _, err := references.ParseMethodDescriptor(fe.Call.Desc); err != nil {
			return Event{}, err
		}
		ev := Call(kind, references.ClassName(fe.Call.Owner), fe.Call.Name, fe.Call.Desc)
		ev.OwnerInterface = ev.OwnerInterface || fe.Call.Interface
		return ev, nil

	case fe.Access != nil:
		if !references.ValidTypeDescriptor(fe.Access.Desc) {
			return Event{}, fmt.Errorf("%w: %q", references.ErrInvalidDescriptor, fe.Access.Desc)
		}
		return GetField(fe.Access.Static, references.ClassName(fe.Access.Owner), fe.Access.Name, fe.Access.Desc), nil

	case fe.Type != nil:
		if !references.ValidTypeDescriptor(*fe.Type) {
			return Event{}, fmt.Errorf("%w: %q", references.ErrInvalidDescriptor, *fe.Type)
		}
		return TypeCheck(*fe.Type), nil

	case fe.Literal != nil:
		if !references.ValidTypeDescriptor(*fe.Literal) {
			return Event{}, fmt.Errorf("%w: %q", references.ErrInvalidDescriptor, *fe.Literal)
		}
		return Literal(*fe.Literal), nil

	default:
		return Insn(), nil
	}
}

func parseCallKind(s string) (CallKind, error) {
	for k, n := range callKindNames {
		if n == s {
			return k, nil
		}
	}
	if s == "" {
		return CallVirtual, nil
	}
	return 0, fmt.Errorf("unknown call kind %q", s)
}
