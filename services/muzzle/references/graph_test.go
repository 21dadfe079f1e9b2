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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph(t *testing.T) {
	g, err := NewGraph(
		NewClassRefBuilder("b.Second").AddFlag(FlagPublic).Build(),
		NewClassRefBuilder("a.First").Build(),
		NewClassRefBuilder("b.Second").AddMethod(nil, NewFlagSet(FlagStatic), "m", "()V").Build(),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"b.Second", "a.First"}, g.Names())
	assert.Equal(t, 2, g.Len())

	second, ok := g.Get("b.Second")
	require.True(t, ok)
	assert.True(t, second.Flags.Has(FlagPublic))
	assert.Len(t, second.Methods, 1)
	assert.False(t, g.Contains("c.Third"))

	err = g.Add(NewClassRefBuilder("b.Second").AddMethod(nil, NewFlagSet(FlagNonStatic), "m", "()V").Build())
	assert.ErrorIs(t, err, ErrContradictoryFlags)

	filtered := g.Filter(func(r *ClassRef) *ClassRef {
		if r.Name == "a.First" {
			return nil
		}
		return r
	})
	assert.Equal(t, []string{"b.Second"}, filtered.Names())
	assert.Equal(t, 2, g.Len())
}

func TestGraph_JSONKeepsOrder(t *testing.T) {
	g, err := NewGraph(
		NewClassRefBuilder("z.Z").Build(),
		NewClassRefBuilder("a.A").SetSuperClassName("z.Z").Build(),
	)
	require.NoError(t, err)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded Graph
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"z.Z", "a.A"}, decoded.Names())

	a, ok := decoded.Get("a.A")
	require.True(t, ok)
	assert.Equal(t, "z.Z", a.SuperClassName)

	var empty *Graph
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Refs())
}
