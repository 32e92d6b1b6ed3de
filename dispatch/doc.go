// Package dispatch is the single public operation of the runtime: resolve an
// agent id, build its graph from the current registry, run one turn for a
// user message and record the outcome as one telemetry event.
//
// Every failure past the empty field guard (unknown agent, construction
// error, backend error, panic) is returned as Result.Error and still logged
// to the sink.
package dispatch
