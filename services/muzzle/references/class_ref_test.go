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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassRefBuilder_UnionsMembers(t *testing.T) {
	ref := NewClassRefBuilder("com.example.Client").
		AddSource("com.example.Advice", 10).
		AddFlag(FlagPublic).
		AddMethod([]Source{{Name: "com.example.Advice", Line: 11}}, NewFlagSet(FlagNonStatic), "send", "()V").
		AddMethod([]Source{{Name: "com.example.Advice", Line: 12}}, NewFlagSet(FlagProtectedOrHigher), "send", "()V").
		AddField(nil, NewFlagSet(FlagStatic), "DEFAULT", "I", false).
		AddField(nil, NewFlagSet(), "DEFAULT", "I", true).
		Build()

	require.Len(t, ref.Methods, 1)
	m := ref.Methods[0]
	assert.Equal(t, "com.example.Client", m.ClassName)
	assert.True(t, m.Flags.Has(FlagNonStatic))
	assert.True(t, m.Flags.Has(FlagProtectedOrHigher))
	assert.Len(t, m.Sources, 2)

	require.Len(t, ref.Fields, 1)
	assert.True(t, ref.Fields[0].Declared)
	assert.True(t, ref.Fields[0].Flags.Has(FlagStatic))
	assert.Equal(t, NewFlagSet(FlagPublic), ref.Flags)
}

func TestClassRefBuilder_BuildIsSnapshot(t *testing.T) {
	b := NewClassRefBuilder("a.B").AddMethod(nil, NewFlagSet(FlagStatic), "m", "()V")
	first := b.Build()

	b.AddMethod(nil, NewFlagSet(FlagPublic), "m", "()V").AddMethod(nil, 0, "n", "()V")

	require.Len(t, first.Methods, 1)
	assert.Equal(t, NewFlagSet(FlagStatic), first.Methods[0].Flags)
	assert.Len(t, b.Build().Methods, 2)
}

func TestClassRefBuilder_InterfacesDeduplicated(t *testing.T) {
	ref := NewClassRefBuilder("a.B").
		AddInterfaceNames("a.I", "a.J").
		AddInterfaceName("a.I").
		SetSuperClassName("a.Base").
		Build()

	assert.Equal(t, []string{"a.I", "a.J"}, ref.InterfaceNames)
	assert.Equal(t, []string{"a.Base", "a.I", "a.J"}, ref.SuperTypeNames())
	assert.True(t, ref.HasSuperTypes())
}

func TestMerge(t *testing.T) {
	t.Run("unions flags and members", func(t *testing.T) {
		a := NewClassRefBuilder("a.B").
			AddFlag(FlagNonInterface).
			AddInterfaceName("a.I").
			AddMethod([]Source{{Name: "x.Advice1", Line: 1}}, NewFlagSet(FlagNonStatic), "m", "()V").
			Build()
		b := NewClassRefBuilder("a.B").
			AddFlag(FlagPublic).
			SetSuperClassName("a.Base").
			AddInterfaceNames("a.J", "a.I").
			AddMethod([]Source{{Name: "x.Advice2", Line: 5}}, NewFlagSet(FlagProtectedOrHigher), "m", "()V").
			AddField(nil, NewFlagSet(FlagStatic), "f", "I", true).
			Build()

		merged, err := Merge(a, b)
		require.NoError(t, err)

		assert.Equal(t, NewFlagSet(FlagNonInterface, FlagPublic), merged.Flags)
		assert.Equal(t, "a.Base", merged.SuperClassName)
		assert.Equal(t, []string{"a.I", "a.J"}, merged.InterfaceNames)
		require.Len(t, merged.Methods, 1)
		assert.Equal(t, NewFlagSet(FlagNonStatic, FlagProtectedOrHigher), merged.Methods[0].Flags)
		assert.Equal(t, []Source{{Name: "x.Advice1", Line: 1}, {Name: "x.Advice2", Line: 5}}, merged.Methods[0].Sources)
		require.Len(t, merged.Fields, 1)
		assert.True(t, merged.Fields[0].Declared)
	})

	t.Run("does not alias inputs", func(t *testing.T) {
		a := NewClassRefBuilder("a.B").AddMethod(nil, NewFlagSet(FlagStatic), "m", "()V").Build()
		b := NewClassRefBuilder("a.B").AddMethod(nil, NewFlagSet(FlagPublic), "m", "()V").Build()

		merged, err := Merge(a, b)
		require.NoError(t, err)
		merged.Methods[0].Flags = 0

		assert.Equal(t, NewFlagSet(FlagStatic), a.Methods[0].Flags)
		assert.Equal(t, NewFlagSet(FlagPublic), b.Methods[0].Flags)
	})

	t.Run("name mismatch", func(t *testing.T) {
		_, err := Merge(NewClassRefBuilder("a.B").Build(), NewClassRefBuilder("a.C").Build())
		assert.ErrorIs(t, err, ErrMergeNameMismatch)
	})

	t.Run("static against non static on the same member", func(t *testing.T) {
		a := NewClassRefBuilder("a.B").AddMethod(nil, NewFlagSet(FlagNonStatic), "m", "()V").Build()
		b := NewClassRefBuilder("a.B").AddMethod(nil, NewFlagSet(FlagStatic), "m", "()V").Build()

		_, err := Merge(a, b)
		require.ErrorIs(t, err, ErrContradictoryFlags)

		var ce *ContradictionError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "a.B", ce.ClassName)
		assert.Equal(t, "m()V", ce.Member)
		assert.Equal(t, FlagStatic, ce.First)
		assert.Equal(t, FlagNonStatic, ce.Second)
	})

	t.Run("minimum visibility never conflicts", func(t *testing.T) {
		a := NewClassRefBuilder("a.B").AddFlag(FlagPackageOrHigher).AddFlag(FlagPublic).Build()
		b := NewClassRefBuilder("a.B").AddFlag(FlagProtectedOrHigher).AddFlag(FlagPrivateOrHigher).Build()

		merged, err := Merge(a, b)
		require.NoError(t, err)
		assert.Equal(t, 4, merged.Flags.Len())
	})

	t.Run("class level interface contradiction", func(t *testing.T) {
		a := NewClassRefBuilder("a.B").AddFlag(FlagInterface).Build()
		b := NewClassRefBuilder("a.B").AddFlag(FlagNonInterface).Build()

		_, err := Merge(a, b)
		assert.ErrorIs(t, err, ErrContradictoryFlags)
	})
}

func TestClassRef_WithoutMethods(t *testing.T) {
	ref := NewClassRefBuilder("a.B").
		AddMethod(nil, 0, ConstructorName, "()V").
		AddMethod(nil, NewFlagSet(FlagAbstract), "run", "()V").
		Build()

	out := ref.WithoutMethods(MethodRef.IsConstructor)

	require.Len(t, out.Methods, 1)
	assert.Equal(t, "run", out.Methods[0].Name)
	assert.True(t, out.Methods[0].IsAbstract())
	assert.Len(t, ref.Methods, 2)
}

func TestClassRef_JSON(t *testing.T) {
	ref := NewClassRefBuilder("a.B").
		AddFlag(FlagPublic).
		AddFlag(FlagNonFinal).
		AddSource("x.Advice", 3).
		AddField(nil, NewFlagSet(FlagNonStatic), "f", "Ljava/lang/String;", true).
		Build()

	data, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"flags":["NON_FINAL","PUBLIC"]`)

	var decoded ClassRef
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ref, &decoded)
}
