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

import "strconv"

// Source is the instrumentation code location that produced a requirement.
//
// Sources are for diagnostics only and never take part in reference
// identity or matching.
type Source struct {
	// Name is the class that made the reference.
	Name string `json:"name"`

	// Line is the source line, or 0 when unknown.
	Line int `json:"line,omitempty"`
}

// String renders the source as "name:line".
func (s Source) String() string {
	return s.Name + ":" + strconv.Itoa(s.Line)
}

// mergeSources appends the sources of b missing from a, keeping order.
func mergeSources(a, b []Source) []Source {
	if len(b) == 0 {
		return cloneSources(a)
	}
	out := make([]Source, 0, len(a)+len(b))
	seen := make(map[Source]struct{}, len(a)+len(b))
	for _, list := range [][]Source{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func cloneSources(s []Source) []Source {
	if len(s) == 0 {
		return nil
	}
	return append([]Source(nil), s...)
}
