package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"text/template"
)

// bareVar matches Jinja style placeholders such as {{ user_id }} or
// {{ profile.name }} that lack the leading dot text/template expects.
var bareVar = regexp.MustCompile(`\{\{(-?)\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\s*(-?)\}\}`)

// reserved identifiers are template keywords or helper funcs and must not be
// rewritten into field lookups.
var reserved = map[string]bool{
	"end": true, "else": true, "nil": true, "true": true, "false": true,
	"break": true, "continue": true,
	"default": true, "upper": true, "lower": true, "title": true, "join": true, "json": true,
}

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	},
	"join": func(sep string, items any) string {
		rv := reflect.ValueOf(items)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return fmt.Sprintf("%v", items)
		}
		strItems := make([]string, rv.Len())
		for i := range strItems {
			strItems[i] = fmt.Sprintf("%v", rv.Index(i).Interface())
		}
		return strings.Join(strItems, sep)
	},
	"json": func(v any) (string, error) {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
}

// NormalizeTemplate rewrites bare Jinja style placeholders into text/template
// field lookups ({{ name }} becomes {{ .name }}).
func NormalizeTemplate(text string) string {
	return bareVar.ReplaceAllStringFunc(text, func(m string) string {
		sub := bareVar.FindStringSubmatch(m)
		root := strings.SplitN(sub[2], ".", 2)[0]
		if reserved[root] {
			return m
		}
		return "{{" + sub[1] + " ." + sub[2] + " " + sub[3] + "}}"
	})
}

// TemplateVariables returns the sorted, de-duplicated top-level variable
// names a template references through bare placeholders or dotted lookups.
func TemplateVariables(text string) []string {
	normalized := NormalizeTemplate(text)
	seen := map[string]bool{}
	for _, m := range fieldRef.FindAllStringSubmatch(normalized, -1) {
		seen[m[1]] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var fieldRef = regexp.MustCompile(`\{\{-?[^}]*?[\s(]?\.([A-Za-z_][A-Za-z0-9_]*)`)

// RenderTemplate renders text against state using text/template with helper
// funcs. Bare Jinja style placeholders are accepted. Rendering fails when a
// referenced variable is absent from state.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").
		Option("missingkey=error").
		Funcs(funcs).
		Parse(NormalizeTemplate(text))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}
