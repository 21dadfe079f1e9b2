// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/feed"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/references"
)

const (
	pkg    = "io.example.instrumentation."
	advice = pkg + "ClientAdvice"
)

var isHelper = PrefixClassifier(pkg)

func adviceClass(events ...feed.Event) feed.ClassDef {
	return feed.ClassDef{
		Name:      advice,
		Access:    references.AccPublic,
		SuperName: "java.lang.Object",
		Events: append([]feed.Event{
			feed.Method(references.AccPublic|references.AccStatic, "onEnter", "()V"),
		}, events...),
	}
}

func collect(t *testing.T, src feed.ClassFeed, unit Unit, opts ...Option) (*Result, error) {
	t.Helper()
	return New(src, isHelper, opts...).Collect(context.Background(), unit)
}

func TestCollect_AdviceReferences(t *testing.T) {
	src := feed.NewMemoryFeed(adviceClass(
		feed.Line(10),
		feed.Call(feed.CallVirtual, "com.lib.Client", "send", "(Lcom/lib/Request;)Lcom/lib/Response;"),
		feed.Line(11),
		feed.GetField(true, "com.lib.Client", "TIMEOUT", "I"),
		feed.Call(feed.CallStatic, "java.lang.String", "valueOf", "(I)Ljava/lang/String;"),
		feed.TypeCheck("[Lcom/lib/Header;"),
	))

	res, err := collect(t, src, Unit{Name: "client", AdviceClasses: []string{advice}})
	require.NoError(t, err)

	assert.Equal(t, []string{"com.lib.Response", "com.lib.Request", "com.lib.Client", "com.lib.Header"},
		res.References.Names())
	assert.Empty(t, res.HelperClasses)
	assert.Equal(t, 0, res.VirtualFields.Len())

	client, ok := res.References.Get("com.lib.Client")
	require.True(t, ok)
	assert.Equal(t, references.NewFlagSet(references.FlagNonInterface, references.FlagPublic), client.Flags)

	send, ok := client.Method("send", "(Lcom/lib/Request;)Lcom/lib/Response;")
	require.True(t, ok)
	assert.Equal(t, references.NewFlagSet(references.FlagNonStatic, references.FlagProtectedOrHigher), send.Flags)
	assert.Equal(t, []references.Source{{Name: advice, Line: 10}}, send.Sources)

	timeout, ok := client.Field("TIMEOUT", "I")
	require.True(t, ok)
	assert.False(t, timeout.Declared)
	assert.Equal(t, references.NewFlagSet(references.FlagStatic, references.FlagProtectedOrHigher), timeout.Flags)
	assert.Equal(t, []references.Source{{Name: advice, Line: 11}}, timeout.Sources)
}

func TestCollect_HelperClosure(t *testing.T) {
	src := feed.NewMemoryFeed(
		adviceClass(
			feed.Line(5),
			feed.Call(feed.CallSpecial, pkg+"TracingListener", "<init>", "()V"),
			feed.Call(feed.CallStatic, pkg+"Util", "now", "()J"),
			feed.Call(feed.CallVirtual, "com.lib.Client", "addListener", "(Lcom/lib/Listener;)V"),
		),
		feed.ClassDef{
			Name:       pkg + "TracingListener",
			Access:     references.AccPublic,
			SuperName:  pkg + "BaseListener",
			Interfaces: []string{"com.lib.Listener"},
			Events: []feed.Event{
				feed.Field(references.AccPrivate, "count", "I"),
				feed.Method(references.AccPublic, "<init>", "()V"),
				feed.Method(references.AccPublic, "onEvent", "(Lcom/lib/Event;)V"),
				feed.Method(references.AccPrivate|references.AccStatic, "log", "()V"),
			},
		},
		feed.ClassDef{
			Name:      pkg + "BaseListener",
			Access:    references.AccPublic | references.AccAbstract,
			SuperName: "java.lang.Object",
			Events: []feed.Event{
				feed.Method(references.AccPublic, "<init>", "()V"),
				feed.Method(references.AccPublic|references.AccAbstract, "onClose", "()V"),
			},
		},
		feed.ClassDef{
			Name:      pkg + "Util",
			Access:    references.AccPublic,
			SuperName: "java.lang.Object",
			Events: []feed.Event{
				feed.Method(references.AccPublic|references.AccStatic, "now", "()J"),
			},
		},
	)

	res, err := collect(t, src, Unit{Name: "listener", AdviceClasses: []string{advice}})
	require.NoError(t, err)

	assert.Equal(t, []string{pkg + "Util", pkg + "BaseListener", pkg + "TracingListener"}, res.HelperClasses)
	assert.Equal(t,
		[]string{pkg + "TracingListener", pkg + "Util", "com.lib.Listener", "com.lib.Client", pkg + "BaseListener"},
		res.AllReferences.Names())
	assert.Equal(t,
		[]string{pkg + "TracingListener", "com.lib.Listener", "com.lib.Client", pkg + "BaseListener"},
		res.References.Names())

	listener, ok := res.References.Get(pkg + "TracingListener")
	require.True(t, ok)
	assert.Equal(t, pkg+"BaseListener", listener.SuperClassName)
	assert.Equal(t, []string{"com.lib.Listener"}, listener.InterfaceNames)
	require.Len(t, listener.Methods, 1)
	assert.Equal(t, "onEvent", listener.Methods[0].Name)
	require.Len(t, listener.Fields, 1)
	assert.True(t, listener.Fields[0].Declared)

	base, ok := res.References.Get(pkg + "BaseListener")
	require.True(t, ok)
	assert.True(t, base.Flags.Has(references.FlagAbstract))
	require.Len(t, base.Methods, 1)
	assert.True(t, base.Methods[0].IsAbstract())

	full, ok := res.AllReferences.Get(pkg + "TracingListener")
	require.True(t, ok)
	assert.Len(t, full.Methods, 3)

	ctor, ok := full.Method("<init>", "()V")
	require.True(t, ok)
	assert.True(t, ctor.Flags.Has(references.FlagPublic))
	assert.True(t, ctor.Flags.Has(references.FlagPackageOrHigher))
}

func TestCollect_VirtualFields(t *testing.T) {
	find := func() feed.Event {
		return feed.Call(feed.CallStatic, DefaultVirtualFieldOwner, DefaultVirtualFieldMethod, DefaultVirtualFieldDescriptor)
	}

	t.Run("duplicate declarations collapse", func(t *testing.T) {
		src := feed.NewMemoryFeed(adviceClass(
			feed.Literal("Ljava/sql/Statement;"), feed.Literal("Ljava/lang/String;"), find(),
			feed.Insn(),
			feed.Literal("Ljava/sql/Statement;"), feed.Literal("Ljava/lang/String;"), find(),
		))

		res, err := collect(t, src, Unit{Name: "jdbc", AdviceClasses: []string{advice}})
		require.NoError(t, err)
		assert.Equal(t, []references.VirtualField{
			{OwnerType: "java.sql.Statement", FieldType: "java.lang.String"},
		}, res.VirtualFields.Entries())
	})

	t.Run("same owner with several field types", func(t *testing.T) {
		src := feed.NewMemoryFeed(adviceClass(
			feed.Literal("Ljava/sql/Statement;"), feed.Literal("Ljava/lang/String;"), find(),
			feed.Literal("Ljava/sql/Statement;"), feed.Literal("[Ljava/lang/Integer;"), find(),
		))

		res, err := collect(t, src, Unit{Name: "jdbc", AdviceClasses: []string{advice}})
		require.NoError(t, err)
		assert.Equal(t, []references.VirtualField{
			{OwnerType: "java.sql.Statement", FieldType: "java.lang.String"},
			{OwnerType: "java.sql.Statement", FieldType: "java.lang.Integer[]"},
		}, res.VirtualFields.Entries())
	})

	t.Run("declarations in skipped methods still count", func(t *testing.T) {
		skipped := feed.Method(references.AccPublic|references.AccStatic, "init", "()V")
		skipped.SkipReferences = true
		src := feed.NewMemoryFeed(adviceClass(
			skipped,
			feed.Call(feed.CallVirtual, "com.lib.Unchecked", "touch", "()V"),
			feed.Literal("Lcom/lib/Request;"), feed.Literal("Lcom/lib/Span;"), find(),
		))

		res, err := collect(t, src, Unit{Name: "skip", AdviceClasses: []string{advice}})
		require.NoError(t, err)
		assert.True(t, res.VirtualFields.Contains("com.lib.Request", "com.lib.Span"))
		assert.False(t, res.References.Contains("com.lib.Unchecked"))
		assert.False(t, res.References.Contains("com.lib.Request"))
	})

	invalid := map[string][]feed.Event{
		"variable owner":         {feed.Line(42), feed.Insn(), feed.Literal("Ljava/lang/String;"), find()},
		"literal window broken":  {feed.Line(42), feed.Literal("Ljava/sql/Statement;"), feed.Insn(), feed.Literal("Ljava/lang/String;"), find()},
		"array owner":            {feed.Line(42), feed.Literal("[Ljava/sql/Statement;"), feed.Literal("Ljava/lang/String;"), find()},
		"primitive field":        {feed.Line(42), feed.Literal("Ljava/sql/Statement;"), feed.Literal("I"), find()},
		"no arguments collected": {feed.Line(42), find()},
	}
	for name, events := range invalid {
		t.Run(name, func(t *testing.T) {
			src := feed.NewMemoryFeed(adviceClass(events...))

			res, err := collect(t, src, Unit{Name: "jdbc", AdviceClasses: []string{advice}})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidVirtualField)

			var be *BuildError
			require.True(t, errors.As(err, &be))
			assert.Equal(t, "jdbc", be.Unit)
			assert.Equal(t, advice, be.Class)
			assert.Equal(t, 42, be.Line)
			assert.Contains(t, be.Error(), "jdbc")
		})
	}
}

func TestCollect_ServiceManifest(t *testing.T) {
	const manifest = "META-INF/services/com.lib.Plugin"
	src := feed.NewMemoryFeed(feed.ClassDef{
		Name:       pkg + "PluginImpl",
		Access:     references.AccPublic,
		SuperName:  "java.lang.Object",
		Interfaces: []string{"com.lib.Plugin"},
		Events: []feed.Event{
			feed.Method(references.AccPublic, "<init>", "()V"),
			feed.Method(references.AccPublic, "start", "()V"),
		},
	})
	src.AddResource(manifest, "# registered plugins\n"+pkg+"PluginImpl\n\n")
	src.AddResource("META-INF/notes.txt", "not a manifest")

	res, err := collect(t, src, Unit{Name: "plugin", Resources: []string{manifest, "META-INF/notes.txt"}})
	require.NoError(t, err)

	assert.Equal(t, []string{pkg + "PluginImpl"}, res.HelperClasses)
	assert.True(t, res.References.Contains("com.lib.Plugin"))

	impl, ok := res.References.Get(pkg + "PluginImpl")
	require.True(t, ok)
	require.Len(t, impl.Methods, 1)
	assert.Equal(t, "start", impl.Methods[0].Name)
}

func TestCollect_LibraryInstrumentationKept(t *testing.T) {
	wrapper := pkg + "library.TracingWrapper"
	src := feed.NewMemoryFeed(
		adviceClass(feed.Call(feed.CallStatic, wrapper, "wrap", "()V")),
		feed.ClassDef{
			Name:      wrapper,
			Access:    references.AccPublic,
			SuperName: "java.lang.Object",
			Events: []feed.Event{
				feed.Method(references.AccPublic, "<init>", "()V"),
				feed.Method(references.AccPublic|references.AccStatic, "wrap", "()V"),
			},
		},
	)

	res, err := collect(t, src, Unit{Name: "lib", AdviceClasses: []string{advice}},
		WithLibraryClassifier(PrefixClassifier(pkg+"library.")))
	require.NoError(t, err)

	ref, ok := res.References.Get(wrapper)
	require.True(t, ok)
	assert.Len(t, ref.Methods, 2)
	assert.Equal(t, []string{wrapper}, res.HelperClasses)
	assert.Equal(t, []string{wrapper}, res.LibraryClasses)
}

func TestCollect_Failures(t *testing.T) {
	t.Run("helper missing from feed", func(t *testing.T) {
		src := feed.NewMemoryFeed(adviceClass(feed.Call(feed.CallStatic, pkg+"Gone", "run", "()V")))

		_, err := collect(t, src, Unit{Name: "gone", AdviceClasses: []string{advice}})
		assert.ErrorIs(t, err, feed.ErrClassNotFound)

		var be *BuildError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, pkg+"Gone", be.Class)
	})

	t.Run("empty unit", func(t *testing.T) {
		_, err := collect(t, feed.NewMemoryFeed(), Unit{Name: "empty"})
		assert.ErrorIs(t, err, ErrEmptyUnit)
	})

	t.Run("contradictory ownership", func(t *testing.T) {
		src := feed.NewMemoryFeed(adviceClass(
			feed.Call(feed.CallStatic, "com.lib.Client", "create", "()V"),
			feed.Call(feed.CallVirtual, "com.lib.Client", "create", "()V"),
		))

		_, err := collect(t, src, Unit{Name: "bad", AdviceClasses: []string{advice}})
		assert.ErrorIs(t, err, references.ErrContradictoryFlags)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := feed.NewMemoryFeed(adviceClass())

		_, err := New(src, isHelper).Collect(ctx, Unit{Name: "c", AdviceClasses: []string{advice}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCollect_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	src := feed.NewMemoryFeed(adviceClass(feed.Call(feed.CallVirtual, "com.lib.Client", "send", "()V")))
	_, err := collect(t, src, Unit{Name: "traced", AdviceClasses: []string{advice}}, WithTracerProvider(tp))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "collector.Collect", spans[0].Name())

	var unit string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "unit" {
			unit = kv.Value.AsString()
		}
	}
	assert.Equal(t, "traced", unit)
}

func TestIsServiceManifest(t *testing.T) {
	tests := map[string]bool{
		"META-INF/services/com.lib.Plugin":                                       true,
		"software/amazon/awssdk/global/handlers/execution.interceptors":          true,
		"com/amazonaws/global/handlers/request.handler2s":                        true,
		"software/amazon/awssdk/services/s3/execution.interceptors":              true,
		"software/amazon/awssdk/services/dynamodb/v2/execution.interceptors":     true,
		"com/amazonaws/services/sqs/request.handler2s":                           true,
		"com/amazonaws/services/sqs/a/b/request.handler2s":                       false,
		"META-INF/MANIFEST.MF":                                                   false,
		"software/amazon/awssdk/services/s3/execution_interceptors":              false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsServiceManifest(path), path)
	}
}
