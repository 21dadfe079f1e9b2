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
	"math/bits"
	"strings"
)

// Modifiers is an access-flag bitmask as found in compiled class files.
type Modifiers uint16

// Access flag bits. Values follow the class-file layout so modifiers read
// by a class-format reader can be used unchanged.
const (
	AccPublic    Modifiers = 0x0001
	AccPrivate   Modifiers = 0x0002
	AccProtected Modifiers = 0x0004
	AccStatic    Modifiers = 0x0008
	AccFinal     Modifiers = 0x0010
	AccInterface Modifiers = 0x0200
	AccAbstract  Modifiers = 0x0400
)

var modifierNames = []struct {
	bit  Modifiers
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
}

// Has reports whether every bit in m2 is set.
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

// String renders the modifiers as a space separated keyword list.
func (m Modifiers) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m&mn.bit != 0 {
			parts = append(parts, mn.name)
		}
	}
	if len(parts) == 0 {
		return "package-private"
	}
	return strings.Join(parts, " ")
}

// ParseModifiers converts keyword names ("public", "static", ...) into a
// bitmask. Unknown names are rejected.
func ParseModifiers(names []string) (Modifiers, error) {
	var m Modifiers
	for _, n := range names {
		found := false
		for _, mn := range modifierNames {
			if strings.EqualFold(strings.TrimSpace(n), mn.name) {
				m |= mn.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown modifier %q", n)
		}
	}
	return m, nil
}

// FlagCategory groups flags into orthogonal requirement kinds.
type FlagCategory int

const (
	// CategoryManifestation covers interface/abstract/final requirements.
	CategoryManifestation FlagCategory = iota

	// CategoryVisibility covers exact visibility requirements.
	CategoryVisibility

	// CategoryMinimumVisibility covers relaxed, use-site inferred access.
	CategoryMinimumVisibility

	// CategoryOwnership covers static versus instance members.
	CategoryOwnership
)

// String returns the category name.
func (c FlagCategory) String() string {
	switch c {
	case CategoryManifestation:
		return "manifestation"
	case CategoryVisibility:
		return "visibility"
	case CategoryMinimumVisibility:
		return "minimum_visibility"
	case CategoryOwnership:
		return "ownership"
	default:
		return "unknown"
	}
}

// Flag is a single structural requirement on a class, method or field.
type Flag uint8

const (
	FlagInterface Flag = iota
	FlagNonInterface
	FlagAbstract
	FlagFinal
	FlagNonFinal

	FlagPublic
	FlagProtected
	FlagPackage
	FlagPrivate

	FlagPackageOrHigher
	FlagProtectedOrHigher
	FlagPrivateOrHigher

	FlagStatic
	FlagNonStatic

	flagCount
)

var flagNames = [flagCount]string{
	FlagInterface:         "INTERFACE",
	FlagNonInterface:      "NON_INTERFACE",
	FlagAbstract:          "ABSTRACT",
	FlagFinal:             "FINAL",
	FlagNonFinal:          "NON_FINAL",
	FlagPublic:            "PUBLIC",
	FlagProtected:         "PROTECTED",
	FlagPackage:           "PACKAGE",
	FlagPrivate:           "PRIVATE",
	FlagPackageOrHigher:   "PACKAGE_OR_HIGHER",
	FlagProtectedOrHigher: "PROTECTED_OR_HIGHER",
	FlagPrivateOrHigher:   "PRIVATE_OR_HIGHER",
	FlagStatic:            "STATIC",
	FlagNonStatic:         "NON_STATIC",
}

// String returns the canonical upper-case flag name.
func (f Flag) String() string {
	if f < flagCount {
		return flagNames[f]
	}
	return fmt.Sprintf("Flag(%d)", uint8(f))
}

// ParseFlag parses a canonical flag name. Matching is case-insensitive.
func ParseFlag(s string) (Flag, error) {
	for i, n := range flagNames {
		if strings.EqualFold(n, s) {
			return Flag(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, s)
}

// Category returns the category this flag belongs to.
func (f Flag) Category() FlagCategory {
	switch {
	case f <= FlagNonFinal:
		return CategoryManifestation
	case f <= FlagPrivate:
		return CategoryVisibility
	case f <= FlagPrivateOrHigher:
		return CategoryMinimumVisibility
	default:
		return CategoryOwnership
	}
}

// Matches reports whether a symbol with the given modifiers satisfies the flag.
//
// Description:
//
//	Matching is satisfaction, not equality. PROTECTED_OR_HIGHER accepts
//	public and protected symbols; NON_FINAL accepts only symbols that are
//	neither final nor abstract; PRIVATE_OR_HIGHER accepts everything.
func (f Flag) Matches(m Modifiers) bool {
	switch f {
	case FlagPublic:
		return m&AccPublic != 0
	case FlagProtected:
		return m&AccProtected != 0
	case FlagPackage:
		return m&(AccPublic|AccProtected|AccPrivate) == 0
	case FlagPrivate:
		return m&AccPrivate != 0
	case FlagProtectedOrHigher:
		return m&(AccPublic|AccProtected) != 0
	case FlagPackageOrHigher:
		return m&AccPrivate == 0
	case FlagPrivateOrHigher:
		return true
	case FlagFinal:
		return m&AccFinal != 0
	case FlagNonFinal:
		return m&(AccAbstract|AccFinal) == 0
	case FlagAbstract:
		return m&AccAbstract != 0
	case FlagStatic:
		return m&AccStatic != 0
	case FlagNonStatic:
		return m&AccStatic == 0
	case FlagInterface:
		return m&AccInterface != 0
	case FlagNonInterface:
		return m&AccInterface == 0
	default:
		return false
	}
}

// VisibilityOf returns the exact visibility flag for the given modifiers.
func VisibilityOf(m Modifiers) Flag {
	switch {
	case m&AccPublic != 0:
		return FlagPublic
	case m&AccProtected != 0:
		return FlagProtected
	case m&AccPrivate != 0:
		return FlagPrivate
	default:
		return FlagPackage
	}
}

// OwnershipOf returns STATIC or NON_STATIC for the given modifiers.
func OwnershipOf(m Modifiers) Flag {
	if m&AccStatic != 0 {
		return FlagStatic
	}
	return FlagNonStatic
}

// ManifestationOf returns ABSTRACT, FINAL or NON_FINAL for the given
// modifiers. An interface is abstract whether or not ACC_ABSTRACT is set.
func ManifestationOf(m Modifiers) Flag {
	switch {
	case m&(AccAbstract|AccInterface) != 0:
		return FlagAbstract
	case m&AccFinal != 0:
		return FlagFinal
	default:
		return FlagNonFinal
	}
}

// exclusive lists flag pairs that can never be satisfied together.
var exclusive = [][2]Flag{
	{FlagStatic, FlagNonStatic},
	{FlagInterface, FlagNonInterface},
	{FlagFinal, FlagNonFinal},
	{FlagFinal, FlagAbstract},
	{FlagAbstract, FlagNonFinal},
	{FlagPublic, FlagProtected},
	{FlagPublic, FlagPackage},
	{FlagPublic, FlagPrivate},
	{FlagProtected, FlagPackage},
	{FlagProtected, FlagPrivate},
	{FlagPackage, FlagPrivate},
}

// FlagSet is an unordered set of flags stored as a bitset.
//
// The zero value is an empty set.
type FlagSet uint32

// NewFlagSet returns a set holding the given flags.
func NewFlagSet(flags ...Flag) FlagSet {
	var s FlagSet
	for _, f := range flags {
		s = s.With(f)
	}
	return s
}

// With returns a copy of the set with f added.
func (s FlagSet) With(f Flag) FlagSet {
	return s | 1<<f
}

// Has reports whether f is in the set.
func (s FlagSet) Has(f Flag) bool {
	return s&(1<<f) != 0
}

// Union returns the union of both sets.
func (s FlagSet) Union(o FlagSet) FlagSet {
	return s | o
}

// Len returns the number of flags in the set.
func (s FlagSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// IsEmpty reports whether the set has no flags.
func (s FlagSet) IsEmpty() bool {
	return s == 0
}

// Flags returns the flags in declaration order.
func (s FlagSet) Flags() []Flag {
	out := make([]Flag, 0, s.Len())
	for f := Flag(0); f < flagCount; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Contradiction returns the first pair of mutually exclusive flags in the set.
func (s FlagSet) Contradiction() (Flag, Flag, bool) {
	for _, pair := range exclusive {
		if s.Has(pair[0]) && s.Has(pair[1]) {
			return pair[0], pair[1], true
		}
	}
	return 0, 0, false
}

// String renders the set as "[A B]".
func (s FlagSet) String() string {
	names := make([]string, 0, s.Len())
	for _, f := range s.Flags() {
		names = append(names, f.String())
	}
	return "[" + strings.Join(names, " ") + "]"
}

// MarshalJSON encodes the set as an array of flag names.
func (s FlagSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, s.Len())
	for _, f := range s.Flags() {
		names = append(names, f.String())
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes an array of flag names.
func (s *FlagSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("decode flag set: %w", err)
	}
	var out FlagSet
	for _, n := range names {
		f, err := ParseFlag(n)
		if err != nil {
			return err
		}
		out = out.With(f)
	}
	*s = out
	return nil
}
