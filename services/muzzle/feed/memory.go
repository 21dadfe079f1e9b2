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
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// ClassDef describes one class for an in-memory feed.
type ClassDef struct {
	Name       string
	Access     references.Modifiers
	SuperName  string
	Interfaces []string

	// Events follow the header, in order.
	Events []Event
}

// stream returns the header event followed by the body events.
func (c ClassDef) stream() []Event {
	out := make([]Event, 0, len(c.Events)+1)
	out = append(out, Event{
		Kind:       EventClassHeader,
		Name:       c.Name,
		Access:     c.Access,
		SuperName:  c.SuperName,
		Interfaces: append([]string(nil), c.Interfaces...),
	})
	return append(out, c.Events...)
}

// MemoryFeed is an in-memory Source.
//
// Thread Safety:
//
//	Safe for concurrent use.
type MemoryFeed struct {
	mu        sync.RWMutex
	classes   map[string]ClassDef
	resources map[string]string
	opens     map[string]int
}

// NewMemoryFeed creates a feed holding the given classes.
func NewMemoryFeed(classes ...ClassDef) *MemoryFeed {
	f := &MemoryFeed{
		classes:   make(map[string]ClassDef),
		resources: make(map[string]string),
		opens:     make(map[string]int),
	}
	for _, c := range classes {
		f.AddClass(c)
	}
	return f
}

// AddClass adds or replaces a class.
func (f *MemoryFeed) AddClass(c ClassDef) *MemoryFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[c.Name] = c
	return f
}

// AddResource adds or replaces a resource.
func (f *MemoryFeed) AddResource(path, content string) *MemoryFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources[path] = content
	return f
}

// Open implements ClassFeed.
func (f *MemoryFeed) Open(className string) (EventReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.classes[className]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, className)
	}
	f.opens[className]++
	return NewSliceReader(c.stream()), nil
}

// OpenResource implements ResourceOpener.
func (f *MemoryFeed) OpenResource(path string) (io.ReadCloser, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	content, ok := f.resources[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, path)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// Opens returns how many times a class stream was opened.
func (f *MemoryFeed) Opens(className string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.opens[className]
}

// ClassNames returns the known class names in sorted order.
func (f *MemoryFeed) ClassNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.classes))
	for n := range f.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ResourcePaths returns the known resource paths in sorted order.
func (f *MemoryFeed) ResourcePaths() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	paths := make([]string, 0, len(f.resources))
	for p := range f.resources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Method returns a method declaration event.
func Method(access references.Modifiers, name, descriptor string) Event {
	return Event{Kind: EventMethodDecl, Access: access, Name: name, Descriptor: descriptor}
}

// Field returns a field declaration event.
func Field(access references.Modifiers, name, descriptor string) Event {
	return Event{Kind: EventFieldDecl, Access: access, Name: name, Descriptor: descriptor}
}

// Line returns a line marker event.
func Line(n int) Event {
	return Event{Kind: EventLine, Line: n}
}

// Call returns a method call event. Interface calls set OwnerInterface.
func Call(kind CallKind, owner, name, descriptor string) Event {
	return Event{
		Kind:           EventMethodCall,
		Call:           kind,
		Owner:          owner,
		Name:           name,
		Descriptor:     descriptor,
		OwnerInterface: kind == CallInterface,
	}
}

// GetField returns a field access event.
func GetField(static bool, owner, name, descriptor string) Event {
	return Event{Kind: EventFieldAccess, Static: static, Owner: owner, Name: name, Descriptor: descriptor}
}

// TypeCheck returns a type check event.
func TypeCheck(descriptor string) Event {
	return Event{Kind: EventTypeCheck, Descriptor: descriptor}
}

// Literal returns a class literal event.
func Literal(descriptor string) Event {
	return Event{Kind: EventClassLiteral, Descriptor: descriptor}
}

// Insn returns an opaque instruction event.
func Insn() Event {
	return Event{Kind: EventInstruction}
}
