package agent

import (
	"fmt"
	"sync"
)

// BaseAgent bundles identity and hierarchy helpers. Embed it in concrete
// agent implementations and supply Invoke. All exported methods are
// goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	mu          sync.Mutex
	subAgents   []Agent
}

// NewBaseAgent constructs a BaseAgent with a generated description.
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the agent name (the node id it was built from).
func (b *BaseAgent) Name() string { return b.name }

// Description returns a description of this agent's purpose.
func (b *BaseAgent) Description() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.description
}

// SetDescription updates the agent's description. Empty values are ignored.
func (b *BaseAgent) SetDescription(desc string) {
	if desc == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.description = desc
}

// SetSubAgents replaces the child set.
func (b *BaseAgent) SetSubAgents(children ...Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subAgents = append([]Agent(nil), children...)
}

// SubAgents returns a shallow copy of the current child agents.
func (b *BaseAgent) SubAgents() []Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// SubAgent returns the direct child with the given name.
func (b *BaseAgent) SubAgent(name string) (Agent, bool) {
	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child, true
		}
	}
	return nil, false
}

// FindAgent performs a depth-first search over the sub-agent tree and
// returns the first descendant whose Name matches, or nil.
func (b *BaseAgent) FindAgent(name string) Agent {
	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child
		}
		if finder, ok := child.(interface{ FindAgent(string) Agent }); ok {
			if found := finder.FindAgent(name); found != nil {
				return found
			}
		}
	}
	return nil
}
