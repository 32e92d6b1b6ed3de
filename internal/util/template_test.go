package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate_FastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplate_JinjaAndGoSyntax(t *testing.T) {
	state := map[string]any{
		"user_id":  "42",
		"profile":  map[string]any{"name": "ada"},
		"tags":     []string{"a", "b"},
		"schema":   map[string]any{"output": "string"},
		"optional": "",
	}

	out, err := RenderTemplate(
		`User {{ user_id }} ({{ upper .profile.name }}) tags={{ join ", " .tags }} `+
			`opt={{ default "none" .optional }} schema={{ json .schema }} name={{ profile.name }}`,
		state,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "User 42 (ADA)")
	assert.Contains(t, out, "tags=a, b")
	assert.Contains(t, out, "opt=none")
	assert.Contains(t, out, `"output": "string"`)
	assert.Contains(t, out, "name=ada")
	assert.NotContains(t, out, "{{")
	assert.NotContains(t, out, "}}")
}

func TestRenderTemplate_NoHTMLEscaping(t *testing.T) {
	out, err := RenderTemplate(`{{ schema }}`, map[string]any{"schema": `{"a": "<b>"}`})
	require.NoError(t, err)
	assert.Equal(t, `{"a": "<b>"}`, out)
}

func TestRenderTemplate_MissingVariableFails(t *testing.T) {
	_, err := RenderTemplate(`Hello {{ name }}`, map[string]any{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "name"))
}

func TestRenderTemplate_AllReferencedVariablesResolve(t *testing.T) {
	tmpl := `{{ a }} and {{ .b }} then {{ upper .c }}`
	vars := TemplateVariables(tmpl)
	assert.Equal(t, []string{"a", "b", "c"}, vars)

	state := map[string]any{}
	for _, v := range vars {
		state[v] = "x"
	}

	out, err := RenderTemplate(tmpl, state)
	require.NoError(t, err)
	assert.NotContains(t, out, "{{")
}

func TestNormalizeTemplate(t *testing.T) {
	assert.Equal(t, "{{ .name }}", NormalizeTemplate("{{ name }}"))
	assert.Equal(t, "{{- .a.b -}}", NormalizeTemplate("{{- a.b -}}"))
	assert.Equal(t, "{{ end }}", NormalizeTemplate("{{ end }}"))
	assert.Equal(t, "{{ .already }}", NormalizeTemplate("{{ .already }}"))
}
