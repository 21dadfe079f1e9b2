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

import (
	"encoding/json"
	"fmt"
)

// Graph is an insertion-ordered collection of class references keyed by
// class name.
//
// Description:
//
//	Iteration order is the order classes were first added, so anything
//	derived from a graph (artifacts, mismatch lists) is deterministic.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. A graph that is no longer mutated
//	may be read from any number of goroutines.
type Graph struct {
	order []string
	refs  map[string]*ClassRef
}

// NewGraph creates a graph holding refs, merging repeated names.
func NewGraph(refs ...*ClassRef) (*Graph, error) {
	g := &Graph{refs: make(map[string]*ClassRef, len(refs))}
	for _, r := range refs {
		if err := g.Add(r); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Add merges ref into the graph.
func (g *Graph) Add(ref *ClassRef) error {
	if g.refs == nil {
		g.refs = make(map[string]*ClassRef)
	}
	existing, ok := g.refs[ref.Name]
	if !ok {
		g.order = append(g.order, ref.Name)
		g.refs[ref.Name] = ref.Clone()
		return nil
	}
	merged, err := Merge(existing, ref)
	if err != nil {
		return err
	}
	g.refs[ref.Name] = merged
	return nil
}

// Put stores ref, replacing any reference with the same name.
func (g *Graph) Put(ref *ClassRef) {
	if g.refs == nil {
		g.refs = make(map[string]*ClassRef)
	}
	if _, ok := g.refs[ref.Name]; !ok {
		g.order = append(g.order, ref.Name)
	}
	g.refs[ref.Name] = ref
}

// Get returns the reference for name.
func (g *Graph) Get(name string) (*ClassRef, bool) {
	if g == nil {
		return nil, false
	}
	r, ok := g.refs[name]
	return r, ok
}

// Contains reports whether name is in the graph.
func (g *Graph) Contains(name string) bool {
	_, ok := g.Get(name)
	return ok
}

// Len returns the number of classes.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.order)
}

// Names returns the class names in insertion order.
func (g *Graph) Names() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.order...)
}

// Refs returns the references in insertion order.
func (g *Graph) Refs() []*ClassRef {
	if g == nil {
		return nil
	}
	out := make([]*ClassRef, 0, len(g.order))
	for _, n := range g.order {
		out = append(out, g.refs[n])
	}
	return out
}

// Filter returns a new graph with the references keep returns non-nil for.
// keep may return a different reference to replace the original.
func (g *Graph) Filter(keep func(*ClassRef) *ClassRef) *Graph {
	out := &Graph{refs: make(map[string]*ClassRef)}
	for _, r := range g.Refs() {
		if k := keep(r); k != nil {
			out.Put(k)
		}
	}
	return out
}

// MarshalJSON encodes the graph as an ordered array of references.
func (g *Graph) MarshalJSON() ([]byte, error) {
	refs := g.Refs()
	if refs == nil {
		refs = []*ClassRef{}
	}
	return json.Marshal(refs)
}

// UnmarshalJSON decodes an ordered array of references.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var refs []*ClassRef
	if err := json.Unmarshal(data, &refs); err != nil {
		return fmt.Errorf("decode reference graph: %w", err)
	}
	decoded, err := NewGraph(refs...)
	if err != nil {
		return fmt.Errorf("decode reference graph: %w", err)
	}
	*g = *decoded
	return nil
}
