// Package model defines the provider-agnostic abstractions for talking to
// language models.
//
// A Provider completes one Request (instructions, transcript, tool
// definitions, an optional JSON Schema response format) into one Response.
// Vendor adapters live in the openai and anthropic sub-packages. Resolver
// picks a Provider per agent from Settings, LoggingProvider records raw
// output, and ScriptedProvider replays canned turns in tests.
package model
