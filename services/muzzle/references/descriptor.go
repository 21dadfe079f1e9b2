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
	"fmt"
	"strings"
)

// Primitive type descriptors.
const (
	DescVoid    = "V"
	DescBoolean = "Z"
	DescByte    = "B"
	DescChar    = "C"
	DescShort   = "S"
	DescInt     = "I"
	DescLong    = "J"
	DescFloat   = "F"
	DescDouble  = "D"
)

// ClassName converts an internal name ("a/b/C") to a dotted class name.
func ClassName(internalName string) string {
	return strings.ReplaceAll(internalName, "/", ".")
}

// InternalName converts a dotted class name to its internal form.
func InternalName(className string) string {
	return strings.ReplaceAll(className, ".", "/")
}

// PackageName returns the package part of a dotted class name, or "" for
// classes in the unnamed package.
func PackageName(className string) string {
	i := strings.LastIndexByte(className, '.')
	if i < 0 {
		return ""
	}
	return className[:i]
}

// ObjectDescriptor returns the type descriptor for a class ("La/b/C;").
func ObjectDescriptor(className string) string {
	return "L" + InternalName(className) + ";"
}

// ArrayDescriptor returns the descriptor for an array of elem with the
// given number of dimensions.
func ArrayDescriptor(elem string, dims int) string {
	return strings.Repeat("[", dims) + elem
}

// MethodDescriptor builds a method descriptor from a return descriptor and
// parameter descriptors.
func MethodDescriptor(ret string, params ...string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(p)
	}
	b.WriteByte(')')
	b.WriteString(ret)
	return b.String()
}

// ParseMethodDescriptor splits a method descriptor into its return and
// parameter type descriptors.
func ParseMethodDescriptor(desc string) (ret string, params []string, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return "", nil, fmt.Errorf("%w: method %q", ErrInvalidDescriptor, desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, err := typeLen(desc[i:])
		if err != nil {
			return "", nil, fmt.Errorf("%w: method %q", ErrInvalidDescriptor, desc)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return "", nil, fmt.Errorf("%w: method %q", ErrInvalidDescriptor, desc)
	}
	ret = desc[i+1:]
	if ret != DescVoid {
		n, err := typeLen(ret)
		if err != nil || n != len(ret) {
			return "", nil, fmt.Errorf("%w: method %q", ErrInvalidDescriptor, desc)
		}
	}
	return ret, params, nil
}

// ValidTypeDescriptor reports whether desc is exactly one field type descriptor.
func ValidTypeDescriptor(desc string) bool {
	n, err := typeLen(desc)
	return err == nil && n == len(desc)
}

// typeLen returns the length of the first field type descriptor in s.
func typeLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, ErrInvalidDescriptor
	}
	switch s[i] {
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end <= 1 {
			return 0, ErrInvalidDescriptor
		}
		return i + end + 1, nil
	default:
		return 0, ErrInvalidDescriptor
	}
}

// IsArrayDescriptor reports whether desc describes an array type.
func IsArrayDescriptor(desc string) bool {
	return strings.HasPrefix(desc, "[")
}

// IsObjectDescriptor reports whether desc describes a (non-array) class type.
func IsObjectDescriptor(desc string) bool {
	return strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";")
}

// ElementClassName returns the class name underlying a type descriptor,
// unwrapping array dimensions. It returns false for primitive types and
// arrays of primitives.
func ElementClassName(desc string) (string, bool) {
	elem := strings.TrimLeft(desc, "[")
	if !IsObjectDescriptor(elem) {
		return "", false
	}
	return ClassName(elem[1 : len(elem)-1]), true
}

// TypeName renders a descriptor in source form ("java.lang.String[]").
func TypeName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	elem := desc[dims:]
	var name string
	switch elem {
	case DescVoid:
		name = "void"
	case DescBoolean:
		name = "boolean"
	case DescByte:
		name = "byte"
	case DescChar:
		name = "char"
	case DescShort:
		name = "short"
	case DescInt:
		name = "int"
	case DescLong:
		name = "long"
	case DescFloat:
		name = "float"
	case DescDouble:
		name = "double"
	default:
		if cn, ok := ElementClassName(elem); ok {
			name = cn
		} else {
			name = elem
		}
	}
	return name + strings.Repeat("[]", dims)
}
