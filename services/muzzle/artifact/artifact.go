// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package artifact holds the build-time output of reference collection
// and persists it between the collect and check steps.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/collector"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

// FormatVersion is written into every encoded artifact.
const FormatVersion = 1

var (
	// ErrArtifactNotFound is returned when no artifact is stored for a unit.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrUnsupportedVersion is returned when decoding an artifact written
	// by an incompatible format version.
	ErrUnsupportedVersion = errors.New("unsupported artifact version")

	// ErrInvalidArtifact is returned for artifacts missing required parts.
	ErrInvalidArtifact = errors.New("invalid artifact")
)

// Artifact is everything the matcher needs to verify one unit.
type Artifact struct {
	Version int    `json:"version"`
	Unit    string `json:"unit"`

	// References are checked against the host.
	References *references.Graph `json:"references"`

	// HelperClasses lists the registered helpers, supertypes first.
	HelperClasses []string `json:"helper_classes,omitempty"`

	// HelperPrefixes classify class names as helpers at match time. A
	// class they match that is not in HelperClasses is reported missing.
	HelperPrefixes []string `json:"helper_prefixes,omitempty"`

	// LibraryClasses and LibraryPrefixes name library instrumentation.
	// Such classes are shipped with the unit but are matched against the
	// host as ordinary library types, never as helpers.
	LibraryClasses  []string `json:"library_classes,omitempty"`
	LibraryPrefixes []string `json:"library_prefixes,omitempty"`

	VirtualFields references.VirtualFieldMappings `json:"virtual_fields"`

	// AllReferences is the graph before helpers were pruned. Helper
	// hierarchies are walked through it.
	AllReferences *references.Graph `json:"all_references"`

	CollectedAt time.Time `json:"collected_at"`
}

// FromResult packages a collection result.
func FromResult(r *collector.Result, at time.Time) *Artifact {
	return &Artifact{
		Version:        FormatVersion,
		Unit:           r.Unit,
		References:     r.References,
		HelperClasses:  append([]string(nil), r.HelperClasses...),
		LibraryClasses: append([]string(nil), r.LibraryClasses...),
		VirtualFields:  r.VirtualFields,
		AllReferences:  r.AllReferences,
		CollectedAt:    at.UTC(),
	}
}

// IsHelper reports whether className is a helper of this unit, either
// registered or matched by a helper prefix. Library instrumentation is
// never a helper.
func (a *Artifact) IsHelper(className string) bool {
	if a.IsLibrary(className) {
		return false
	}
	return a.IsRegisteredHelper(className) || hasPrefix(className, a.HelperPrefixes)
}

// IsLibrary reports whether className is library instrumentation.
func (a *Artifact) IsLibrary(className string) bool {
	for _, l := range a.LibraryClasses {
		if l == className {
			return true
		}
	}
	return hasPrefix(className, a.LibraryPrefixes)
}

func hasPrefix(className string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(className, p) {
			return true
		}
	}
	return false
}

// IsRegisteredHelper reports whether className is in HelperClasses.
func (a *Artifact) IsRegisteredHelper(className string) bool {
	for _, h := range a.HelperClasses {
		if h == className {
			return true
		}
	}
	return false
}

// Validate checks that the artifact can be matched.
func (a *Artifact) Validate() error {
	if a.Unit == "" {
		return fmt.Errorf("%w: missing unit name", ErrInvalidArtifact)
	}
	if a.References == nil || a.AllReferences == nil {
		return fmt.Errorf("%w: %s: missing reference graph", ErrInvalidArtifact, a.Unit)
	}
	return nil
}

// Encode serializes an artifact as indented JSON.
func Encode(a *Artifact) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.Version == 0 {
		a.Version = FormatVersion
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact %s: %w", a.Unit, err)
	}
	return data, nil
}

// Decode parses an encoded artifact.
func Decode(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, a.Version)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
