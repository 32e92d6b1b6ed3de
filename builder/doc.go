// Package builder turns registry definitions into runnable agents.
//
// A Factory builds a fresh agent graph per dispatch: leaf nodes become
// agent.ModelAgent instances bound to their tools, supervisors become
// agent.Supervisor instances owning their recursively built sub-agents, and
// every prompt is rendered against the dispatch context first. The context
// gains two variables before rendering:
//
//   - expected_output_schema: the output structures of the node's tools,
//     keyed by tool name, as indented JSON.
//   - agent_output_schema: the node's own declared output structure, keyed
//     by node id.
//
// Supervisors additionally see user_input (from message) and user_id (from
// identifier or customer_id).
package builder
