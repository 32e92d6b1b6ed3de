// Package agent implements the agents built from node definitions.
//
// ModelAgent is a leaf: it runs a ReAct loop over its tools until the model
// answers or the step budget is spent. Supervisor composes tools and
// sub-agents; tool calls of one step run concurrently, delegations run one
// at a time and are recorded as handoff pairs so the transcript stays a
// total order. A Supervisor with a contract finishes with a structured
// response coerced against it.
package agent
