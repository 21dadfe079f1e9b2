// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/feed"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// classVisitor turns the event stream of one class into references.
type classVisitor struct {
	c      *Collector
	advice bool

	className string
	line      int
	skip      bool

	// literals holds the class literals loaded since the last other
	// instruction, at most two.
	literals []string

	refs          *references.Graph
	helperClasses []string
	helperSeen    map[string]bool
	helperSupers  []string
	virtualFields references.VirtualFieldMappings
}

func newClassVisitor(c *Collector, className string, advice bool) *classVisitor {
	refs, _ := references.NewGraph()
	return &classVisitor{
		c:          c,
		advice:     advice,
		className:  className,
		refs:       refs,
		helperSeen: make(map[string]bool),
	}
}

func (v *classVisitor) visit(r feed.EventReader) error {
	first := true
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			if first {
				return errors.New("empty event stream")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		if first {
			if ev.Kind != feed.EventClassHeader {
				return fmt.Errorf("event stream starts with %s, want class header", ev.Kind)
			}
			if ev.Name != v.className {
				return fmt.Errorf("feed returned class %s", ev.Name)
			}
			first = false
		}
		if err := v.handle(ev); err != nil {
			return err
		}
	}
}

func (v *classVisitor) handle(ev feed.Event) error {
	switch ev.Kind {
	case feed.EventClassHeader:
		return v.visitHeader(ev)
	case feed.EventFieldDecl:
		v.clearLiterals()
		return v.visitFieldDecl(ev)
	case feed.EventMethodDecl:
		v.clearLiterals()
		v.skip = ev.SkipReferences
		return v.visitMethodDecl(ev)
	case feed.EventLine:
		v.line = ev.Line
		return nil
	case feed.EventMethodCall:
		if err := v.checkVirtualField(ev); err != nil {
			return err
		}
		v.clearLiterals()
		if v.skip {
			return nil
		}
		return v.visitCall(ev)
	case feed.EventFieldAccess:
		v.clearLiterals()
		if v.skip {
			return nil
		}
		return v.visitFieldAccess(ev)
	case feed.EventTypeCheck:
		v.clearLiterals()
		if v.skip {
			return nil
		}
		return v.addTypeRef(ev.Descriptor)
	case feed.EventClassLiteral:
		v.pushLiteral(ev.Descriptor)
		if v.skip {
			return nil
		}
		return v.addTypeRef(ev.Descriptor)
	case feed.EventInstruction:
		v.clearLiterals()
		return nil
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

func (v *classVisitor) source() []references.Source {
	return []references.Source{{Name: v.className, Line: v.line}}
}

// add records ref unless it names a platform class, and notes helpers.
func (v *classVisitor) add(ref *references.ClassRef) error {
	if !v.c.isPlatform(ref.Name) {
		if err := v.refs.Add(ref); err != nil {
			return err
		}
	}
	if v.c.isHelper(ref.Name) && !v.helperSeen[ref.Name] {
		v.helperSeen[ref.Name] = true
		v.helperClasses = append(v.helperClasses, ref.Name)
	}
	return nil
}

func (v *classVisitor) addExtends(name string) error {
	ref := references.NewClassRefBuilder(name).AddSource(v.className, 0).Build()
	if err := v.add(ref); err != nil {
		return err
	}
	if v.c.isHelper(name) {
		v.helperSupers = append(v.helperSupers, name)
	}
	return nil
}

// visitHeader records the super types and manifestation of helper
// classes. Advice classes contribute nothing from their header.
func (v *classVisitor) visitHeader(ev feed.Event) error {
	if v.advice {
		return nil
	}
	if ev.SuperName != "" {
		if err := v.addExtends(ev.SuperName); err != nil {
			return err
		}
	}
	for _, iface := range ev.Interfaces {
		if err := v.addExtends(iface); err != nil {
			return err
		}
	}
	return v.add(references.NewClassRefBuilder(v.className).
		AddSource(v.className, 0).
		SetSuperClassName(ev.SuperName).
		AddInterfaceNames(ev.Interfaces...).
		AddFlag(references.ManifestationOf(ev.Access)).
		Build())
}

func (v *classVisitor) visitFieldDecl(ev feed.Event) error {
	if v.advice {
		return nil
	}
	return v.add(references.NewClassRefBuilder(v.className).
		AddSource(v.className, 0).
		AddField(nil, 0, ev.Name, ev.Descriptor, true).
		Build())
}

func (v *classVisitor) visitMethodDecl(ev feed.Event) error {
	if v.advice {
		return nil
	}
	flags := references.NewFlagSet(
		references.VisibilityOf(ev.Access),
		references.OwnershipOf(ev.Access),
		references.ManifestationOf(ev.Access),
	)
	return v.add(references.NewClassRefBuilder(v.className).
		AddSource(v.className, 0).
		AddMethod(nil, flags, ev.Name, ev.Descriptor).
		Build())
}

func (v *classVisitor) visitCall(ev feed.Event) error {
	owner, ok := ownerClass(ev.Owner)
	if !ok {
		// method on a primitive array, e.g. int[].clone()
		return nil
	}

	ret, params, err := references.ParseMethodDescriptor(ev.Descriptor)
	if err != nil {
		return err
	}
	if err := v.addTypeRef(ret); err != nil {
		return err
	}
	for _, p := range params {
		if err := v.addTypeRef(p); err != nil {
			return err
		}
	}

	ownership := references.FlagNonStatic
	if ev.Call == feed.CallStatic {
		ownership = references.FlagStatic
	}
	manifestation := references.FlagNonInterface
	if ev.OwnerInterface {
		manifestation = references.FlagInterface
	}

	return v.add(references.NewClassRefBuilder(owner).
		AddSource(v.className, v.line).
		AddFlag(manifestation).
		AddFlag(minimumClassAccess(v.className, owner)).
		AddMethod(v.source(),
			references.NewFlagSet(ownership, minimumMemberAccess(v.className, owner)),
			ev.Name, ev.Descriptor).
		Build())
}

func (v *classVisitor) visitFieldAccess(ev feed.Event) error {
	owner, ok := ownerClass(ev.Owner)
	if !ok {
		return nil
	}
	ownership := references.FlagNonStatic
	if ev.Static {
		ownership = references.FlagStatic
	}
	if err := v.add(references.NewClassRefBuilder(owner).
		AddSource(v.className, v.line).
		AddFlag(minimumClassAccess(v.className, owner)).
		AddField(v.source(),
			references.NewFlagSet(minimumMemberAccess(v.className, owner), ownership),
			ev.Name, ev.Descriptor, false).
		Build()); err != nil {
		return err
	}
	return v.addTypeRef(ev.Descriptor)
}

// addTypeRef references the class underlying a type descriptor. Primitive
// types and arrays of primitives are ignored.
func (v *classVisitor) addTypeRef(desc string) error {
	name, ok := references.ElementClassName(desc)
	if !ok {
		return nil
	}
	return v.add(references.NewClassRefBuilder(name).
		AddSource(v.className, v.line).
		AddFlag(minimumClassAccess(v.className, name)).
		Build())
}

func (v *classVisitor) pushLiteral(desc string) {
	if len(v.literals) == 2 {
		v.literals = append(v.literals[:0], v.literals[1])
	}
	v.literals = append(v.literals, desc)
}

func (v *classVisitor) clearLiterals() {
	v.literals = v.literals[:0]
}

// checkVirtualField records a virtual field declaration if ev is the
// declaring call. The call must directly follow two class literals.
func (v *classVisitor) checkVirtualField(ev feed.Event) error {
	o := v.c.opts
	if ev.Owner != o.vfOwner || ev.Name != o.vfMethod || ev.Descriptor != o.vfDescriptor {
		return nil
	}
	if len(v.literals) != 2 {
		return fmt.Errorf("%w: %s.%s must be called with two class literals;"+
			" variables, method parameters and computed classes cannot be cataloged",
			ErrInvalidVirtualField, shortName(o.vfOwner), o.vfMethod)
	}
	ownerDesc, fieldDesc := v.literals[0], v.literals[1]
	if !references.IsObjectDescriptor(ownerDesc) {
		return fmt.Errorf("%w: owner type %s must be a class, not an array or primitive",
			ErrInvalidVirtualField, references.TypeName(ownerDesc))
	}
	if !references.IsObjectDescriptor(fieldDesc) && !references.IsArrayDescriptor(fieldDesc) {
		return fmt.Errorf("%w: field type %s cannot be primitive",
			ErrInvalidVirtualField, references.TypeName(fieldDesc))
	}
	v.virtualFields.Add(references.TypeName(ownerDesc), references.TypeName(fieldDesc))
	return nil
}

// ownerClass returns the class a member is looked up on. Array owners
// resolve to their element class.
func ownerClass(owner string) (string, bool) {
	if references.IsArrayDescriptor(owner) {
		return references.ElementClassName(owner)
	}
	return owner, owner != ""
}

func shortName(className string) string {
	if i := strings.LastIndexByte(className, '.'); i >= 0 {
		return className[i+1:]
	}
	return className
}

// minimumClassAccess is the narrowest visibility that lets from use class to.
func minimumClassAccess(from, to string) references.Flag {
	switch {
	case strings.EqualFold(from, to):
		return references.FlagPrivateOrHigher
	case references.PackageName(from) == references.PackageName(to):
		return references.FlagPackageOrHigher
	default:
		return references.FlagPublic
	}
}

// minimumMemberAccess is the narrowest visibility that lets from use a
// member of to. Outside the package a subclass may use protected members,
// so protected is the most that can be required.
func minimumMemberAccess(from, to string) references.Flag {
	switch {
	case strings.EqualFold(from, to):
		return references.FlagPrivateOrHigher
	case references.PackageName(from) == references.PackageName(to):
		return references.FlagPackageOrHigher
	default:
		return references.FlagProtectedOrHigher
	}
}
