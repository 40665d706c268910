package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Kind identifies the type of a schema field.
type Kind string

// Supported field kinds. The set is closed: every adapter knows how to
// advertise each kind, and the validator knows how to check it.
const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
)

// Field describes one input field of a tool.
type Field struct {
	Kind        Kind
	Description string
	Required    bool

	// Default is applied when the field is absent from the input.
	// Ignored for required fields.
	Default any

	// Min and Max bound numeric fields (inclusive). Nil means unbounded.
	Min *float64
	Max *float64

	// Clamp pulls out-of-range numeric values into [Min, Max] instead of
	// rejecting them. It must be opted into per field.
	Clamp bool

	// MinLen is the minimum length for string fields.
	MinLen int

	// Values enumerates the accepted values for KindEnum fields.
	Values []string
}

// Spec is a declarative description of a tool's accepted input.
type Spec struct {
	Fields map[string]Field
}

// Float returns a pointer to v, for use in Field bounds.
func Float(v float64) *float64 { return &v }

// Validate checks input against the spec and returns a normalized copy:
// defaults applied, clamped numbers pulled into bounds, unknown keys
// dropped. Violations are reported as field-level errors; Validate never
// panics on malformed input.
func (s Spec) Validate(input map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))

	for _, name := range s.fieldNames() {
		field := s.Fields[name]
		raw, present := input[name]
		if !present || raw == nil {
			if field.Required {
				return nil, fmt.Errorf("field %q is required", name)
			}
			if field.Default != nil {
				out[name] = field.Default
			}
			continue
		}

		value, err := field.normalize(name, raw)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}

	return out, nil
}

func (f Field) normalize(name string, raw any) (any, error) {
	switch f.Kind {
	case KindString:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string, got %T", name, raw)
		}
		if len(str) < f.MinLen {
			return nil, fmt.Errorf("field %q must be at least %d characters", name, f.MinLen)
		}
		return str, nil

	case KindNumber:
		num, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("field %q must be a number, got %T", name, raw)
		}
		if f.Clamp {
			if f.Min != nil && num < *f.Min {
				num = *f.Min
			}
			if f.Max != nil && num > *f.Max {
				num = *f.Max
			}
		} else {
			if f.Min != nil && num < *f.Min {
				return nil, fmt.Errorf("field %q must be >= %v", name, *f.Min)
			}
			if f.Max != nil && num > *f.Max {
				return nil, fmt.Errorf("field %q must be <= %v", name, *f.Max)
			}
		}
		return num, nil

	case KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q must be a boolean, got %T", name, raw)
		}
		return b, nil

	case KindEnum:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string, got %T", name, raw)
		}
		for _, v := range f.Values {
			if str == v {
				return str, nil
			}
		}
		return nil, fmt.Errorf("field %q must be one of %v", name, f.Values)

	default:
		return nil, fmt.Errorf("field %q has unsupported kind %q", name, f.Kind)
	}
}

// toFloat accepts the numeric representations JSON decoding produces.
func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int reads a normalized numeric field from validated input as an int.
// Returns fallback when the field is absent.
func Int(input map[string]any, name string, fallback int) int {
	raw, ok := input[name]
	if !ok {
		return fallback
	}
	num, ok := toFloat(raw)
	if !ok {
		return fallback
	}
	return int(math.Round(num))
}

// String reads a string field from validated input, or "" when absent.
func String(input map[string]any, name string) string {
	str, _ := input[name].(string)
	return str
}

// JSONSchema renders the spec as a JSON-Schema-shaped map usable for MCP
// tool advertisement and OpenAI function parameter schemas.
func (s Spec) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Fields))
	required := make([]string, 0)

	for _, name := range s.fieldNames() {
		field := s.Fields[name]
		prop := map[string]any{}
		switch field.Kind {
		case KindEnum:
			prop["type"] = "string"
			values := make([]any, len(field.Values))
			for i, v := range field.Values {
				values[i] = v
			}
			prop["enum"] = values
		default:
			prop["type"] = string(field.Kind)
		}
		if field.Description != "" {
			prop["description"] = field.Description
		}
		if field.Min != nil {
			prop["minimum"] = *field.Min
		}
		if field.Max != nil {
			prop["maximum"] = *field.Max
		}
		if field.Default != nil {
			prop["default"] = field.Default
		}
		properties[name] = prop

		if field.Required {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// fieldNames returns field names in stable sorted order so validation
// errors and advertised schemas are deterministic.
func (s Spec) fieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
