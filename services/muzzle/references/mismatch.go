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

import "fmt"

// MismatchKind tags the variant of a Mismatch.
type MismatchKind int

const (
	KindMissingClass MismatchKind = iota
	KindMissingMethod
	KindMissingField
	KindMissingFlag
	KindReferenceCheckError
)

// String returns the kind name.
func (k MismatchKind) String() string {
	switch k {
	case KindMissingClass:
		return "missing_class"
	case KindMissingMethod:
		return "missing_method"
	case KindMissingField:
		return "missing_field"
	case KindMissingFlag:
		return "missing_flag"
	case KindReferenceCheckError:
		return "reference_check_error"
	default:
		return "unknown"
	}
}

// Mismatch is one unsatisfied structural requirement.
//
// String renders "<first source> <details>", or "<no-source> <details>" when
// the requirement carries no provenance.
type Mismatch interface {
	Kind() MismatchKind
	Sources() []Source
	Details() string
	String() string
}

// mismatchBase carries the provenance shared by all variants.
type mismatchBase struct {
	sources []Source
}

func (b mismatchBase) Sources() []Source { return b.sources }

func render(sources []Source, details string) string {
	if len(sources) == 0 {
		return "<no-source> " + details
	}
	return sources[0].String() + " " + details
}

// MissingClass reports a class that could not be resolved.
type MissingClass struct {
	mismatchBase
	ClassName string
}

// NewMissingClass creates a MissingClass mismatch.
func NewMissingClass(sources []Source, className string) *MissingClass {
	return &MissingClass{mismatchBase: mismatchBase{sources: cloneSources(sources)}, ClassName: className}
}

func (m *MissingClass) Kind() MismatchKind { return KindMissingClass }
func (m *MissingClass) Details() string    { return "Missing class " + m.ClassName }
func (m *MissingClass) String() string     { return render(m.sources, m.Details()) }

// MissingMethod reports a method absent from the resolved type and its ancestors.
type MissingMethod struct {
	mismatchBase
	ClassName string
	Method    MemberKey
}

// NewMissingMethod creates a MissingMethod mismatch.
func NewMissingMethod(sources []Source, className string, method MemberKey) *MissingMethod {
	return &MissingMethod{mismatchBase: mismatchBase{sources: cloneSources(sources)}, ClassName: className, Method: method}
}

func (m *MissingMethod) Kind() MismatchKind { return KindMissingMethod }
func (m *MissingMethod) Details() string {
	return "Missing method " + m.ClassName + "#" + m.Method.String()
}
func (m *MissingMethod) String() string { return render(m.sources, m.Details()) }

// MissingField reports a field absent from the resolved type, or only
// inherited where a declared field was required.
type MissingField struct {
	mismatchBase
	ClassName string
	Field     MemberKey
}

// NewMissingField creates a MissingField mismatch.
func NewMissingField(sources []Source, className string, field MemberKey) *MissingField {
	return &MissingField{mismatchBase: mismatchBase{sources: cloneSources(sources)}, ClassName: className, Field: field}
}

func (m *MissingField) Kind() MismatchKind { return KindMissingField }
func (m *MissingField) Details() string {
	return "Missing field " + m.ClassName + "#" + m.Field.String()
}
func (m *MissingField) String() string { return render(m.sources, m.Details()) }

// MissingFlag reports a resolved symbol whose modifiers do not satisfy a
// required flag.
type MissingFlag struct {
	mismatchBase

	// Target is the class name, or "class#name+descriptor" for members.
	Target string

	Expected Flag
	Found    Modifiers
}

// NewMissingFlag creates a MissingFlag mismatch.
func NewMissingFlag(sources []Source, target string, expected Flag, found Modifiers) *MissingFlag {
	return &MissingFlag{
		mismatchBase: mismatchBase{sources: cloneSources(sources)},
		Target:       target,
		Expected:     expected,
		Found:        found,
	}
}

func (m *MissingFlag) Kind() MismatchKind { return KindMissingFlag }
func (m *MissingFlag) Details() string {
	return fmt.Sprintf("%s requires flag %s found %s", m.Target, m.Expected, m.Found)
}
func (m *MissingFlag) String() string { return render(m.sources, m.Details()) }

// ReferenceCheckError reports an unexpected failure while checking a
// reference. The matcher converts such failures instead of propagating them.
type ReferenceCheckError struct {
	mismatchBase
	ClassName string
	Scope     string
	Err       error
}

// NewReferenceCheckError creates a ReferenceCheckError mismatch.
func NewReferenceCheckError(sources []Source, className, scope string, err error) *ReferenceCheckError {
	return &ReferenceCheckError{
		mismatchBase: mismatchBase{sources: cloneSources(sources)},
		ClassName:    className,
		Scope:        scope,
		Err:          err,
	}
}

func (m *ReferenceCheckError) Kind() MismatchKind { return KindReferenceCheckError }
func (m *ReferenceCheckError) Details() string {
	return fmt.Sprintf("Failed to handle reference %s in scope %s: %v", m.ClassName, m.Scope, m.Err)
}
func (m *ReferenceCheckError) String() string { return render(m.sources, m.Details()) }

// Error returns the details so the mismatch can be used as an error.
func (m *ReferenceCheckError) Error() string { return m.Details() }

// Unwrap returns the underlying failure.
func (m *ReferenceCheckError) Unwrap() error { return m.Err }
