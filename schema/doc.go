// Package schema provides declarative input schemas for tools.
//
// A [Spec] describes the accepted input of a single tool: per-field type,
// required/optional, numeric bounds, enumerated values, and defaults. The
// same Spec drives both runtime validation and capability advertisement,
// so the three protocol adapters (MCP, REST, OpenAI function calling)
// never duplicate validation logic.
//
// # Defining a Spec
//
//	spec := schema.Spec{
//	    Fields: map[string]schema.Field{
//	        "query": {Kind: schema.KindString, Required: true, Description: "Search query"},
//	        "limit": {Kind: schema.KindNumber, Min: schema.Float(1), Max: schema.Float(20), Default: 5, Clamp: true},
//	    },
//	}
//
// # Validation
//
// [Spec.Validate] returns a normalized copy of the input with defaults
// applied. Fields marked Clamp have out-of-range numeric values pulled
// into bounds rather than rejected; all other violations produce a
// field-level error message.
//
// # Advertisement
//
// [Spec.JSONSchema] renders the Spec as a JSON-Schema-shaped map suitable
// for MCP tool specs and OpenAI function parameter schemas.
package schema
