// Package server exposes a Dispatcher over HTTP.
//
// Routes:
//
//	POST /api/agent   {"agent_name", "message", "identifier"} -> JSON object from the agent reply
//	GET  /api/agents  dispatchable agent ids (when configured)
//	GET  /healthz     liveness
//
// The agent reply is searched for a fenced json block first, then for the
// span between the first "{" and the last "}". A reply without a JSON object
// yields {"error": "Could not parse agent response"}.
package server
