package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/internal/util"
	"github.com/hupe1980/agentgraph/model"
)

// PromptFunc returns a Func backed by a language model instead of native
// code. The template is rendered against the inputs plus
// expected_output_schema (the indented JSON of outputStructure); the model
// answer is parsed as a JSON object, fenced or not.
func PromptFunc(p model.Provider, template string, outputStructure map[string]any) Func {
	expected := ""
	if len(outputStructure) > 0 {
		if data, err := json.MarshalIndent(outputStructure, "", "  "); err == nil {
			expected = string(data)
		}
	}

	return func(ctx context.Context, inputs map[string]any) (any, error) {
		vars := make(map[string]any, len(inputs)+1)
		for k, v := range inputs {
			vars[k] = v
		}
		vars[core.KeyExpectedOutputSchema] = expected

		instructions, err := util.RenderTemplate(template, vars)
		if err != nil {
			return nil, fmt.Errorf("render tool prompt: %w", err)
		}

		message, _ := inputs[core.KeyMessage].(string)
		if message == "" {
			message = "Respond with a JSON object matching the expected output schema."
		}

		resp, err := p.Complete(ctx, model.Request{
			Instructions: instructions,
			Messages:     []core.Message{core.NewUserMessage(message)},
		})
		if err != nil {
			return nil, err
		}
		if calls := resp.Message.FunctionCalls(); len(calls) > 0 {
			return nil, fmt.Errorf("prompt tool model requested %d tool calls", len(calls))
		}

		out, err := util.ExtractJSON(resp.Message.Text())
		if err != nil {
			return nil, &core.ParseError{Err: err}
		}
		return out, nil
	}
}
