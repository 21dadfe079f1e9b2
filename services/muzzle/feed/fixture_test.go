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
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

const sampleFixture = `
classes:
  - name: com/example/Advice
    access: [public]
    super: java.lang.Object
    events:
      - method: {name: onEnter, desc: "(Lcom/lib/Request;)V", access: [public, static]}
      - line: 12
      - call: {kind: interface, owner: com.lib.Request, name: header, desc: "(Ljava/lang/String;)Ljava/lang/String;"}
      - access: {owner: com.lib.Config, name: DEFAULT, desc: "I", static: true}
      - literal: "Lcom/lib/Request;"
      - insn: aload
      - type: "[Lcom/lib/Response;"
resources:
  META-INF/services/com.lib.Plugin: |
    com.example.PluginImpl
`

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"com.example.Advice"}, f.ClassNames())
	assert.Equal(t, []string{"META-INF/services/com.lib.Plugin"}, f.ResourcePaths())

	r, err := f.Open("com.example.Advice")
	require.NoError(t, err)
	events, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, events, 8)

	assert.Equal(t, EventClassHeader, events[0].Kind)
	assert.Equal(t, references.AccPublic, events[0].Access)
	assert.Equal(t, "java.lang.Object", events[0].SuperName)

	assert.Equal(t, EventMethodDecl, events[1].Kind)
	assert.Equal(t, references.AccPublic|references.AccStatic, events[1].Access)

	assert.Equal(t, 12, events[2].Line)

	call := events[3]
	assert.Equal(t, EventMethodCall, call.Kind)
	assert.Equal(t, CallInterface, call.Call)
	assert.True(t, call.OwnerInterface)
	assert.Equal(t, "com.lib.Request", call.Owner)

	assert.True(t, events[4].Static)
	assert.Equal(t, EventClassLiteral, events[5].Kind)
	assert.Equal(t, EventInstruction, events[6].Kind)
	assert.Equal(t, EventTypeCheck, events[7].Kind)

	rc, err := f.OpenResource("META-INF/services/com.lib.Plugin")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "com.example.PluginImpl\n", string(body))
}

func TestParseFixture_InterfaceIsAbstract(t *testing.T) {
	f, err := ParseFixture([]byte(`
classes:
  - name: com.acme.TracingListener
    access: [public, interface]
    super: java.lang.Object
    interfaces: [com.lib.Listener]
`))
	require.NoError(t, err)

	r, err := f.Open("com.acme.TracingListener")
	require.NoError(t, err)
	events, err := ReadAll(r)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, references.AccPublic|references.AccInterface, events[0].Access)
	assert.Equal(t, []string{"com.lib.Listener"}, events[0].Interfaces)
	assert.Equal(t, references.FlagAbstract, references.ManifestationOf(events[0].Access))
}

func TestParseFixture_Invalid(t *testing.T) {
	tests := map[string]string{
		"two keys":        "classes: [{name: A, events: [{line: 1, insn: nop}]}]",
		"bad descriptor":  "classes: [{name: A, events: [{literal: \"Lfoo\"}]}]",
		"bad call kind":   "classes: [{name: A, events: [{call: {kind: dynamic, owner: B, name: m, desc: \"()V\"}}]}]",
		"bad modifier":    "classes: [{name: A, access: [sealed]}]",
		"missing name":    "classes: [{access: [public]}]",
		"not yaml at all": "classes: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFixture([]byte(data))
			assert.ErrorIs(t, err, ErrInvalidFixture)
		})
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0o644))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.ClassNames(), 1)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMemoryFeed(t *testing.T) {
	f := NewMemoryFeed(ClassDef{
		Name:   "a.B",
		Events: []Event{Method(references.AccPublic, "m", "()V"), Insn()},
	})

	_, err := f.Open("a.Missing")
	assert.ErrorIs(t, err, ErrClassNotFound)

	_, err = f.OpenResource("nope")
	assert.ErrorIs(t, err, ErrResourceNotFound)

	r, err := f.Open("a.B")
	require.NoError(t, err)
	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "a.B", first.Name)
	require.NoError(t, r.Close())

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, f.Opens("a.B"))
}
