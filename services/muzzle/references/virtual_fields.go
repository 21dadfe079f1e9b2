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

// VirtualField is one (owner type, field type) storage slot declaration.
type VirtualField struct {
	OwnerType string `json:"owner"`
	FieldType string `json:"field"`
}

// String renders the slot as "owner->field".
func (v VirtualField) String() string {
	return v.OwnerType + "->" + v.FieldType
}

// VirtualFieldMappings is an insertion-ordered set of virtual field slots.
//
// The same owner type may appear with several field types. Adding a pair
// that is already present is a no-op. The zero value is ready to use.
type VirtualFieldMappings struct {
	entries []VirtualField
	index   map[VirtualField]struct{}
}

// Add records a slot. It reports whether the pair was new.
func (m *VirtualFieldMappings) Add(ownerType, fieldType string) bool {
	vf := VirtualField{OwnerType: ownerType, FieldType: fieldType}
	if m.index == nil {
		m.index = make(map[VirtualField]struct{})
	}
	if _, ok := m.index[vf]; ok {
		return false
	}
	m.index[vf] = struct{}{}
	m.entries = append(m.entries, vf)
	return true
}

// Contains reports whether the pair was added.
func (m *VirtualFieldMappings) Contains(ownerType, fieldType string) bool {
	_, ok := m.index[VirtualField{OwnerType: ownerType, FieldType: fieldType}]
	return ok
}

// Entries returns the slots in insertion order.
func (m *VirtualFieldMappings) Entries() []VirtualField {
	return append([]VirtualField(nil), m.entries...)
}

// Len returns the number of distinct slots.
func (m *VirtualFieldMappings) Len() int {
	return len(m.entries)
}

// MarshalJSON encodes the slots as an ordered array.
func (m VirtualFieldMappings) MarshalJSON() ([]byte, error) {
	if m.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.entries)
}

// UnmarshalJSON decodes an ordered array, collapsing duplicates.
func (m *VirtualFieldMappings) UnmarshalJSON(data []byte) error {
	var entries []VirtualField
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("decode virtual fields: %w", err)
	}
	*m = VirtualFieldMappings{}
	for _, e := range entries {
		m.Add(e.OwnerType, e.FieldType)
	}
	return nil
}
