package core

import (
	"errors"
	"sync"
)

// DefaultRemainingSteps is the reasoning step budget of a freshly invoked agent.
const DefaultRemainingSteps = 5

// ErrStepsExhausted is returned by StepBudget.Take once the budget is spent.
var ErrStepsExhausted = errors.New("reasoning step budget exhausted")

// StepBudget counts the reasoning steps (model calls) an agent may still take.
type StepBudget struct {
	mu        sync.Mutex
	remaining int
	taken     int
}

// NewStepBudget creates a budget of n steps. Non-positive n selects
// DefaultRemainingSteps.
func NewStepBudget(n int) *StepBudget {
	if n <= 0 {
		n = DefaultRemainingSteps
	}
	return &StepBudget{remaining: n}
}

// Take consumes one step or returns ErrStepsExhausted.
func (b *StepBudget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.remaining <= 0 {
		return ErrStepsExhausted
	}
	b.remaining--
	b.taken++

	return nil
}

// Remaining returns how many steps are left.
func (b *StepBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.remaining
}

// Taken returns how many steps have been consumed.
func (b *StepBudget) Taken() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.taken
}
