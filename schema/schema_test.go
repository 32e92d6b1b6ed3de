package schema

import (
	"errors"
	"testing"

	"github.com/hupe1980/agentgraph/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"str":      KindText,
		"String":   KindText,
		"int":      KindInteger,
		"integer":  KindInteger,
		"float":    KindFloat,
		"number":   KindFloat,
		"bool":     KindFlag,
		"boolean":  KindFlag,
		"list":     KindSequence,
		"array":    KindSequence,
		"dict":     KindRecord,
		"object":   KindRecord,
		"datetime": KindAny,
		"":         KindAny,
	}
	for name, want := range cases {
		assert.Equal(t, want, KindOf(name), name)
	}
}

func TestCompile_Idempotent(t *testing.T) {
	fields := map[string]any{"x": "integer", "y": "string"}

	a := Compile("t", fields, nil)
	b := Compile("t", fields, nil)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"x", "y"}, a.Names())
	assert.Equal(t, []string{"x", "y"}, a.Required())
	assert.Equal(t, KindInteger, a.Fields[0].Kind)
	assert.Equal(t, KindText, a.Fields[1].Kind)
}

func TestCompile_BareListDefaultsToText(t *testing.T) {
	d := Compile("t", []any{"query", "locale"}, nil)

	require.Len(t, d.Fields, 2)
	for _, f := range d.Fields {
		assert.Equal(t, KindText, f.Kind)
		assert.True(t, f.Required)
	}
}

func TestCompile_MalformedNeverFails(t *testing.T) {
	d := Compile("t", map[string]any{"a": 42, "b": "whatever"}, nil)

	require.Len(t, d.Fields, 2)
	assert.Equal(t, KindAny, d.Fields[0].Kind)
	assert.Equal(t, KindAny, d.Fields[1].Kind)

	assert.Empty(t, Compile("t", 3.14, nil).Fields)
}

func TestCompile_ExplicitRequired(t *testing.T) {
	d := Compile("t", map[string]any{"output": "string", "summary": "string"}, []string{"output", "extra"})

	assert.Equal(t, []string{"extra", "output"}, d.Required())
	f, ok := d.Field("extra")
	require.True(t, ok)
	assert.Equal(t, KindAny, f.Kind)
}

func TestCompile_NestedRecord(t *testing.T) {
	d := Compile("t", map[string]any{
		"profile": map[string]any{"age": "int", "name": "str"},
	}, nil)

	f, ok := d.Field("profile")
	require.True(t, ok)
	assert.Equal(t, KindRecord, f.Kind)
	require.NotNil(t, f.Nested)
	assert.Equal(t, []string{"age", "name"}, f.Nested.Names())

	rec, err := d.Coerce(map[string]any{"profile": map[string]any{"age": "7", "name": "x"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": 7, "name": "x"}, rec["profile"])

	_, err = d.Coerce(map[string]any{"profile": map[string]any{"name": "x"}})
	require.Error(t, err)
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "profile.age", ve[0].Field)
}

func TestCompileJSONSchema(t *testing.T) {
	d := CompileJSONSchema("supervisor", map[string]any{
		"properties": map[string]any{
			"answer":    map[string]any{"type": "string"},
			"escalate":  map[string]any{"type": "boolean"},
			"steps":     map[string]any{"type": "array"},
			"score":     map[string]any{"type": "integer"},
			"meta":      map[string]any{"type": "object"},
			"anything":  map[string]any{"type": "null"},
		},
		"required": []any{"answer", "escalate"},
	})

	assert.ElementsMatch(t, []string{"answer", "escalate"}, d.Required())
	f, _ := d.Field("anything")
	assert.Equal(t, KindAny, f.Kind)
	assert.False(t, f.Required)
}

func TestCompileOutput_DetectsShape(t *testing.T) {
	flat := CompileOutput("t", map[string]any{"output": "string"}, nil)
	assert.Equal(t, []string{"output"}, flat.Required())

	js := CompileOutput("t", map[string]any{
		"properties": map[string]any{"a": map[string]any{"type": "string"}, "b": map[string]any{"type": "string"}},
	}, []string{"b"})
	assert.Equal(t, []string{"b"}, js.Required())
}

func TestCompileContract_RequiredIsExactlyDeclared(t *testing.T) {
	structure := map[string]any{"answer": "string", "note": "string"}

	none := CompileContract("sup", structure, nil)
	assert.Empty(t, none.Required())
	assert.Equal(t, []string{"answer", "note"}, none.Names())
	assert.Equal(t, map[string]any{"answer": nil, "note": nil}, none.Null())

	rec, err := none.Coerce(map[string]any{"answer": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"answer": "hi", "note": nil}, rec)

	some := CompileContract("sup", structure, []string{"answer"})
	assert.Equal(t, []string{"answer"}, some.Required())

	js := CompileContract("sup", map[string]any{
		"properties": map[string]any{"answer": map[string]any{"type": "string"}},
	}, nil)
	assert.Empty(t, js.Required())
}

func TestCoerce(t *testing.T) {
	d := Compile("t", map[string]any{
		"count":   "integer",
		"ratio":   "float",
		"ok":      "bool",
		"tags":    "list",
		"payload": "dict",
		"name":    "str",
		"free":    "any",
	}, nil)

	rec, err := d.Coerce(map[string]any{
		"count":   "3",
		"ratio":   2,
		"ok":      "true",
		"tags":    "solo",
		"payload": `{"k":"v"}`,
		"name":    12,
		"free":    struct{}{},
		"ignored": 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, rec["count"])
	assert.Equal(t, 2.0, rec["ratio"])
	assert.Equal(t, true, rec["ok"])
	assert.Equal(t, []any{"solo"}, rec["tags"])
	assert.Equal(t, map[string]any{"k": "v"}, rec["payload"])
	assert.Equal(t, "12", rec["name"])
	assert.NotContains(t, rec, "ignored")
}

func TestCoerce_FailuresBecomeNil(t *testing.T) {
	d := Compile("t", map[string]any{"count": "integer", "name": "string"}, nil)

	rec, err := d.Coerce(map[string]any{"count": 1.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrValidation))

	assert.Equal(t, map[string]any{"count": nil, "name": nil}, rec)

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve, 2)
}

func TestDescriptor_MergeAndNull(t *testing.T) {
	base := Compile("state", map[string]any{"messages": "list"}, nil)
	merged := base.Merge(Compile("in", map[string]any{"messages": "string", "user_id": "string"}, nil))

	assert.Equal(t, []string{"messages", "user_id"}, merged.Names())
	f, _ := merged.Field("messages")
	assert.Equal(t, KindSequence, f.Kind)
	assert.Len(t, base.Fields, 1)

	assert.Equal(t, map[string]any{"messages": nil, "user_id": nil}, merged.Null())
}

func TestDescriptor_JSONSchema(t *testing.T) {
	d := Compile("t", map[string]any{"q": "string", "n": "int", "x": "unknown"}, []string{"q"})

	js := d.JSONSchema()
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, []string{"q"}, js["required"])

	props := js["properties"].(map[string]any)
	assert.Equal(t, "string", props["q"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["n"].(map[string]any)["type"])
	assert.NotContains(t, props["x"].(map[string]any), "type")
}

func TestCoerce_IntegerOutOfRange(t *testing.T) {
	d := Compile("t", map[string]any{"count": "integer"}, nil)

	for _, v := range []any{uint64(1) << 63, uint64(18446744073709551615), 1e20, -1e20, float32(1e19)} {
		rec, err := d.Coerce(map[string]any{"count": v})
		require.Error(t, err, "%v", v)
		assert.Nil(t, rec["count"], "%v", v)
	}

	for v, want := range map[any]int{uint64(42): 42, uint8(7): 7, int64(-3): -3, 9.007199254740992e15: 9007199254740992} {
		rec, err := d.Coerce(map[string]any{"count": v})
		require.NoError(t, err, "%v", v)
		assert.Equal(t, want, rec["count"])
	}
}
