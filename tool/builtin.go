package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Builtins returns native functions that ship with the module. They back the
// sample configuration and are handy in tests.
func Builtins() Catalog {
	return Catalog{
		"builtin.echo":      Echo,
		"builtin.planning":  Plan,
		"builtin.summarize": Summarize,
	}
}

// Echo returns its inputs as the output field.
func Echo(_ context.Context, inputs map[string]any) (any, error) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, inputs[k]))
	}
	return map[string]any{"output": strings.Join(parts, " ")}, nil
}

// Plan turns a user's context into a numbered list of steps, one per
// sentence.
func Plan(_ context.Context, inputs map[string]any) (any, error) {
	user, _ := inputs["user_id"].(string)
	text, _ := inputs["context"].(string)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to plan: context is empty")
	}

	var steps []string
	for _, s := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '\n' || r == ';' }) {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, fmt.Sprintf("%d. %s", len(steps)+1, s))
		}
	}

	return map[string]any{
		"output":      strings.Join(steps, "\n"),
		"explanation": fmt.Sprintf("Split the request of user %q into %d steps.", user, len(steps)),
		"summary":     fmt.Sprintf("%d step plan", len(steps)),
	}, nil
}

// Summarize reports simple statistics about a text.
func Summarize(_ context.Context, inputs map[string]any) (any, error) {
	text, _ := inputs["text"].(string)
	words := strings.Fields(text)

	summary := text
	if len(words) > 12 {
		summary = strings.Join(words[:12], " ") + " ..."
	}

	return map[string]any{
		"summary":    summary,
		"word_count": len(words),
	}, nil
}
