// Package registry holds the immutable tool, node and prompt definitions that
// agent graphs are built from, and loads them from JSON or YAML documents.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/schema"
)

// Options configures registry construction.
type Options struct {
	// StrictTools turns references to undeclared tools into errors instead
	// of warnings. Builders skip unknown tools either way.
	StrictTools bool
	Logger      logging.Logger
}

// Registry is a read-only view of the configured definitions. It is safe for
// concurrent use.
type Registry struct {
	tools   map[string]ToolDefinition
	nodes   map[string]NodeDefinition
	prompts map[string]PromptDefinition

	toolOrder []string
	nodeOrder []string
}

// New validates the definitions and returns a Registry. It checks that names
// are unique, that every sub-agent id exists and is a dispatchable node, and
// that the delegation graph has no self references or cycles.
func New(
	tools []ToolDefinition,
	nodes []NodeDefinition,
	prompts map[string]PromptDefinition,
	optFns ...func(o *Options),
) (*Registry, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	r := &Registry{
		tools:   make(map[string]ToolDefinition, len(tools)),
		nodes:   make(map[string]NodeDefinition, len(nodes)),
		prompts: make(map[string]PromptDefinition, len(prompts)),
	}

	var errs []error

	for _, t := range tools {
		if t.Name == "" {
			errs = append(errs, core.NewConfigError("tool", "", "missing name"))
			continue
		}
		if _, dup := r.tools[t.Name]; dup {
			errs = append(errs, core.NewConfigError("tool", t.Name, "duplicate definition"))
			continue
		}
		r.tools[t.Name] = t
		r.toolOrder = append(r.toolOrder, t.Name)
	}

	for _, n := range nodes {
		if n.ID == "" {
			errs = append(errs, core.NewConfigError("node", "", "missing id"))
			continue
		}
		if _, dup := r.nodes[n.ID]; dup {
			errs = append(errs, core.NewConfigError("node", n.ID, "duplicate definition"))
			continue
		}
		n.Type = normalizeKind(n.Type)
		r.nodes[n.ID] = n
		r.nodeOrder = append(r.nodeOrder, n.ID)
	}

	for id, p := range prompts {
		r.prompts[id] = p
	}

	for _, id := range r.nodeOrder {
		n := r.nodes[id]
		for _, tn := range n.Tools {
			if _, ok := r.tools[tn]; ok {
				continue
			}
			if opts.StrictTools {
				errs = append(errs, core.NewConfigError("node", id, "references unknown tool %q", tn))
				continue
			}
			logger.Warn("registry.tool.unknown", "node", id, "tool", tn)
		}
		for _, sub := range n.Agents {
			if sub == id {
				errs = append(errs, core.NewConfigError("node", id, "references itself as sub-agent"))
				continue
			}
			target, ok := r.nodes[sub]
			if !ok {
				errs = append(errs, core.NewConfigError("node", id, "references unknown sub-agent %q", sub))
				continue
			}
			if !target.Type.Dispatchable() {
				errs = append(errs, core.NewConfigError("node", id, "sub-agent %q has non-dispatchable type %q", sub, target.Type))
			}
		}
	}

	if len(errs) == 0 {
		if err := r.checkCycles(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return r, nil
}

// checkCycles runs a depth-first search over the delegation edges.
func (r *Registry) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(r.nodes))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case visiting:
			return core.NewConfigError("node", id, "delegation cycle %v", append(path, id))
		case done:
			return nil
		}
		state[id] = visiting
		for _, sub := range r.nodes[id].Agents {
			if err := visit(sub, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, id := range r.nodeOrder {
		if err := visit(id, nil); err != nil {
			return err
		}
	}
	return nil
}

// Tool returns the tool definition with the given name.
func (r *Registry) Tool(name string) (ToolDefinition, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Node returns the node definition with the given id.
func (r *Registry) Node(id string) (NodeDefinition, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Prompt returns the prompt definition keyed by node id.
func (r *Registry) Prompt(id string) (PromptDefinition, bool) {
	p, ok := r.prompts[id]
	return p, ok
}

// Tools returns all tool definitions in declaration order.
func (r *Registry) Tools() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name])
	}
	return out
}

// Nodes returns all node definitions in declaration order.
func (r *Registry) Nodes() []NodeDefinition {
	out := make([]NodeDefinition, 0, len(r.nodeOrder))
	for _, id := range r.nodeOrder {
		out = append(out, r.nodes[id])
	}
	return out
}

// DispatchableIDs returns the sorted ids of every leaf and supervisor node.
func (r *Registry) DispatchableIDs() []string {
	var ids []string
	for id, n := range r.nodes {
		if n.Type.Dispatchable() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// OutputStructures returns the output structure of each named tool keyed by
// tool name. Unknown names are skipped.
func (r *Registry) OutputStructures(names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		structure := t.OutputSchema.Structure
		if structure == nil {
			structure = map[string]any{}
		}
		out[name] = structure
	}
	return out
}

// AgentOutputSchema returns the raw declared output structure of a node and
// its compiled contract, whose required fields are exactly the declared
// ones. The node's own output_schema wins; otherwise a tool
// entry named after the node is consulted. ok is false when neither exists.
func (r *Registry) AgentOutputSchema(id string) (structure map[string]any, d *schema.Descriptor, ok bool) {
	if n, found := r.nodes[id]; found && n.OutputSchema != nil {
		return n.OutputSchema.Structure, schema.CompileContract(id+"Output", n.OutputSchema.Structure, n.OutputSchema.Required), true
	}
	if t, found := r.tools[id]; found {
		return t.OutputSchema.Structure, schema.CompileContract(id+"Output", t.OutputSchema.Structure, t.OutputSchema.Required), true
	}
	return nil, nil, false
}

// String summarizes the registry contents.
func (r *Registry) String() string {
	return fmt.Sprintf("registry(tools=%d nodes=%d prompts=%d)", len(r.tools), len(r.nodes), len(r.prompts))
}
