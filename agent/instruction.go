package agent

import (
	"context"

	"github.com/hupe1980/agentgraph/internal/util"
)

// Instruction is the system prompt of an agent. It is either fixed text
// (builders render prompts once, at construction) or resolved per
// invocation from the state.
type Instruction struct {
	text    string
	resolve func(ctx context.Context, state State) (string, error)
}

// NewInstructionFromText creates a fixed instruction.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromTemplate creates an instruction rendered against the
// state values on every invocation. Missing variables fail the invocation.
func NewInstructionFromTemplate(tpl string) Instruction {
	return Instruction{
		text: tpl,
		resolve: func(_ context.Context, state State) (string, error) {
			return util.RenderTemplate(tpl, state.Values)
		},
	}
}

// NewInstructionFromFunc creates an instruction computed by f.
func NewInstructionFromFunc(f func(ctx context.Context, state State) (string, error)) Instruction {
	return Instruction{resolve: f}
}

// IsStatic reports whether the instruction is fixed text.
func (i Instruction) IsStatic() bool { return i.resolve == nil }

// Resolve returns the instruction text for state.
func (i Instruction) Resolve(ctx context.Context, state State) (string, error) {
	if i.resolve == nil {
		return i.text, nil
	}
	return i.resolve(ctx, state)
}
