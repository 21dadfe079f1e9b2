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
	"iter"
	"sync"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// rootClassName is the implicit ancestor of every class. It declares no
// abstract methods and is never treated as a real super type of a helper.
const rootClassName = "java.lang.Object"

// HelperMethod is a method declared by a helper class.
type HelperMethod struct {
	Name       string
	Descriptor string
	Abstract   bool
}

// Key returns the method identity.
func (m HelperMethod) Key() references.MemberKey {
	return references.MemberKey{Name: m.Name, Descriptor: m.Descriptor}
}

// HelperField is a field declared by a helper class.
type HelperField struct {
	Name       string
	Descriptor string
}

// Key returns the field identity.
func (f HelperField) Key() references.MemberKey {
	return references.MemberKey{Name: f.Name, Descriptor: f.Descriptor}
}

// SuperType is one ancestor produced by HelperReferenceWrapper.SuperTypes.
// It is either another *HelperReferenceWrapper or an OpaqueAncestor.
type SuperType interface {
	// SuperTypeName returns the ancestor's class name.
	SuperTypeName() string
}

// OpaqueAncestor is an ancestor absent from the graph. It must be
// resolved in the live scope.
type OpaqueAncestor struct {
	Name string
}

// SuperTypeName implements SuperType.
func (o OpaqueAncestor) SuperTypeName() string {
	return o.Name
}

// HelperReferenceWrapper navigates a helper class and its in-graph
// ancestors.
//
// Description:
//
//	Wraps a helper ClassRef together with the graph holding every helper
//	of the unit. Ancestors present in the graph are wrapped in turn;
//	the first ancestor missing from the graph ends that branch as an
//	OpaqueAncestor. The wrapper never touches a live scope.
//
// Thread Safety:
//
//	Safe for concurrent use. Ancestor wrappers are created lazily and
//	memoized.
type HelperReferenceWrapper struct {
	graph *references.Graph
	ref   *references.ClassRef

	mu     sync.Mutex
	supers []SuperType
}

// NewHelperReferenceWrapper wraps ref. graph supplies the in-graph
// ancestors; it should hold helper classes only.
func NewHelperReferenceWrapper(graph *references.Graph, ref *references.ClassRef) *HelperReferenceWrapper {
	return &HelperReferenceWrapper{graph: graph, ref: ref}
}

// Name returns the wrapped class name.
func (w *HelperReferenceWrapper) Name() string {
	return w.ref.Name
}

// SuperTypeName implements SuperType.
func (w *HelperReferenceWrapper) SuperTypeName() string {
	return w.ref.Name
}

// Ref returns the wrapped reference.
func (w *HelperReferenceWrapper) Ref() *references.ClassRef {
	return w.ref
}

// IsAbstract reports whether the class is abstract or an interface.
func (w *HelperReferenceWrapper) IsAbstract() bool {
	return w.ref.Flags.Has(references.FlagAbstract)
}

// Methods returns the non-private instance methods declared by this class
// only, constructors excluded. Methods known only from call sites carry no
// manifestation flag and are skipped.
func (w *HelperReferenceWrapper) Methods() []HelperMethod {
	var out []HelperMethod
	for _, m := range w.ref.Methods {
		if !isDeclaration(m.Flags) || m.IsConstructor() ||
			m.Flags.Has(references.FlagPrivate) || m.Flags.Has(references.FlagStatic) {
			continue
		}
		out = append(out, HelperMethod{Name: m.Name, Descriptor: m.Descriptor, Abstract: m.IsAbstract()})
	}
	return out
}

// Fields returns the fields declared by this class only.
func (w *HelperReferenceWrapper) Fields() []HelperField {
	var out []HelperField
	for _, f := range w.ref.Fields {
		if f.Declared {
			out = append(out, HelperField{Name: f.Name, Descriptor: f.Descriptor})
		}
	}
	return out
}

// HasSuperTypes reports whether the class has an ancestor other than the
// root class.
func (w *HelperReferenceWrapper) HasSuperTypes() bool {
	return len(w.superNames()) > 0
}

// SuperTypes yields the direct ancestors, super class first and then the
// interfaces in declaration order.
func (w *HelperReferenceWrapper) SuperTypes() iter.Seq[SuperType] {
	return func(yield func(SuperType) bool) {
		names := w.superNames()
		for i := range names {
			if !yield(w.superAt(i, names)) {
				return
			}
		}
	}
}

func (w *HelperReferenceWrapper) superNames() []string {
	names := w.ref.SuperTypeNames()
	if len(names) > 0 && names[0] == rootClassName && w.ref.SuperClassName == rootClassName {
		names = names[1:]
	}
	return names
}

func (w *HelperReferenceWrapper) superAt(i int, names []string) SuperType {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.supers == nil {
		w.supers = make([]SuperType, len(names))
	}
	if w.supers[i] == nil {
		if ref, ok := w.graph.Get(names[i]); ok {
			w.supers[i] = NewHelperReferenceWrapper(w.graph, ref)
		} else {
			w.supers[i] = OpaqueAncestor{Name: names[i]}
		}
	}
	return w.supers[i]
}

// isDeclaration reports whether a method's flags come from its declaration.
func isDeclaration(flags references.FlagSet) bool {
	return flags.Has(references.FlagAbstract) || flags.Has(references.FlagFinal) ||
		flags.Has(references.FlagNonFinal)
}
