// Package core provides the foundational domain types shared by every
// agentgraph package:
//
//   - Message / Part (role based transcript entries with text, data and tool call parts)
//   - DispatchContext (the free-form key/value bag carried through a dispatch)
//   - StepBudget (bounded reasoning steps per agent invocation)
//   - The error taxonomy (missing field, unknown agent, config, validation,
//     backend and parse failures) matched via errors.Is
//
// The package keeps construction, orchestration and I/O concerns out of scope
// so it can be imported from anywhere without cycles.
package core
