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
	"errors"
	"io"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// EventKind identifies the shape of an Event.
type EventKind int

const (
	// EventClassHeader starts every class stream. Uses Name, Access,
	// SuperName and Interfaces.
	EventClassHeader EventKind = iota

	// EventFieldDecl declares a field. Uses Name, Descriptor and Access.
	EventFieldDecl

	// EventMethodDecl declares a method and starts its body. Uses Name,
	// Descriptor, Access and SkipReferences.
	EventMethodDecl

	// EventLine sets the current source line. Uses Line.
	EventLine

	// EventMethodCall is an invocation. Uses Owner, Name, Descriptor, Call
	// and OwnerInterface.
	EventMethodCall

	// EventFieldAccess reads or writes a field. Uses Owner, Name,
	// Descriptor and Static.
	EventFieldAccess

	// EventTypeCheck is an allocation, cast or instance check naming a
	// type. Uses Descriptor.
	EventTypeCheck

	// EventClassLiteral loads a class constant. Uses Descriptor.
	EventClassLiteral

	// EventInstruction is any other instruction. Its only effect is to
	// break a run of class literals.
	EventInstruction
)

var eventKindNames = map[EventKind]string{
	EventClassHeader:  "class",
	EventFieldDecl:    "field",
	EventMethodDecl:   "method",
	EventLine:         "line",
	EventMethodCall:   "call",
	EventFieldAccess:  "access",
	EventTypeCheck:    "type",
	EventClassLiteral: "literal",
	EventInstruction:  "insn",
}

// String returns the fixture name of the kind.
func (k EventKind) String() string {
	if n, ok := eventKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// CallKind is the dispatch mode of a method call.
type CallKind int

const (
	CallVirtual CallKind = iota
	CallStatic
	CallSpecial
	CallInterface
)

var callKindNames = map[CallKind]string{
	CallVirtual:   "virtual",
	CallStatic:    "static",
	CallSpecial:   "special",
	CallInterface: "interface",
}

// String returns the fixture name of the call kind.
func (k CallKind) String() string {
	if n, ok := callKindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Event is one symbol touch. Which fields are meaningful depends on Kind.
//
// Class names (Name on a header, Owner, SuperName, Interfaces) are dotted
// names. Descriptor holds a type descriptor, or a method descriptor for
// method declarations and calls.
type Event struct {
	Kind           EventKind
	Name           string
	Owner          string
	Descriptor     string
	Access         references.Modifiers
	SuperName      string
	Interfaces     []string
	Line           int
	Call           CallKind
	OwnerInterface bool
	Static         bool
	SkipReferences bool
}

// EventReader iterates over the events of one class.
//
// Next returns io.EOF after the last event.
type EventReader interface {
	Next() (Event, error)
	Close() error
}

// ClassFeed opens the event stream for a class by dotted name.
type ClassFeed interface {
	Open(className string) (EventReader, error)
}

// ResourceOpener opens non-class resources such as service manifests.
type ResourceOpener interface {
	OpenResource(path string) (io.ReadCloser, error)
}

// Source is a feed that can serve both classes and resources.
type Source interface {
	ClassFeed
	ResourceOpener
}

// sliceReader serves a fixed slice of events.
type sliceReader struct {
	events []Event
	pos    int
	closed bool
}

func (r *sliceReader) Next() (Event, error) {
	if r.closed || r.pos >= len(r.events) {
		return Event{}, io.EOF
	}
	ev := r.events[r.pos]
	r.pos++
	return ev, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

// NewSliceReader returns an EventReader over events.
func NewSliceReader(events []Event) EventReader {
	return &sliceReader{events: events}
}

// ReadAll drains r and closes it.
func ReadAll(r EventReader) ([]Event, error) {
	defer r.Close()
	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
