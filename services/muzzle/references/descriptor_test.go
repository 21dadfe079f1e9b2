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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethodDescriptor(t *testing.T) {
	ret, params, err := ParseMethodDescriptor("(I[Ljava/lang/String;J)Lcom/example/Result;")
	require.NoError(t, err)
	assert.Equal(t, "Lcom/example/Result;", ret)
	assert.Equal(t, []string{"I", "[Ljava/lang/String;", "J"}, params)

	ret, params, err = ParseMethodDescriptor("()V")
	require.NoError(t, err)
	assert.Equal(t, DescVoid, ret)
	assert.Empty(t, params)

	for _, bad := range []string{"", "V", "(I", "(Q)V", "(L;)V", "()II"} {
		_, _, err := ParseMethodDescriptor(bad)
		assert.ErrorIs(t, err, ErrInvalidDescriptor, bad)
	}
}

func TestDescriptorHelpers(t *testing.T) {
	assert.Equal(t, "Lcom/example/A;", ObjectDescriptor("com.example.A"))
	assert.Equal(t, "[[I", ArrayDescriptor(DescInt, 2))
	assert.Equal(t, "(ILa/B;)V", MethodDescriptor(DescVoid, DescInt, "La/B;"))
	assert.Equal(t, "a.b.C", ClassName("a/b/C"))
	assert.Equal(t, "a.b", PackageName("a.b.C"))
	assert.Equal(t, "", PackageName("C"))

	name, ok := ElementClassName("[[Lcom/example/A;")
	assert.True(t, ok)
	assert.Equal(t, "com.example.A", name)

	_, ok = ElementClassName("[I")
	assert.False(t, ok)

	assert.True(t, ValidTypeDescriptor("[La/B;"))
	assert.False(t, ValidTypeDescriptor("La/B;I"))
	assert.Equal(t, "java.lang.String[]", TypeName("[Ljava/lang/String;"))
	assert.Equal(t, "int[][]", TypeName("[[I"))
}
