// Package tool defines the protocol-agnostic tool contract and registry.
//
// A [Definition] declares one capability: a stable name, a description,
// a declarative input schema, and a handler. Definitions are registered
// once at startup and never mutated. The [Registry] is the single entry
// point every protocol adapter dispatches through, guaranteeing
// identical validation and error semantics across MCP, REST, and the
// OpenAI-compatible API.
//
// Handlers communicate exclusively through [Result], a tagged
// success/error value. Nothing a handler does (bad input, provider
// failures, even panics) escapes [Registry.Invoke] as anything other
// than a Result, so one failing request can never take the process down.
package tool
