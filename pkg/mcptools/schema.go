// Package mcptools implements the tool registry & dispatcher (component I):
// the fixed catalog of MCP tools, their declarative input schemas, and the
// dispatch pipeline that validates, times, retries, and recovers around
// each handler. It is deliberately transport-agnostic — nothing here
// imports mark3labs/mcp-go — so the package can be exercised directly in
// tests and wrapped by a thin adapter (pkg/mcp) for the stdio JSON-RPC
// transport. Grounded in the teacher's pkg/mcp tool set for the overall
// "one func(Config) (context, request) -> CallToolResult" shape, but the
// schema/validation/retry/metrics machinery around it is new: the teacher
// reads arguments ad hoc per tool with no shared schema or policy layer.
package mcptools

import (
	"fmt"
	"strings"

	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// FieldType enumerates the primitive shapes a tool input field can take.
type FieldType string

const (
	TString      FieldType = "string"
	TBoolean     FieldType = "boolean"
	TInteger     FieldType = "integer"
	TNumber      FieldType = "number"
	TStringArray FieldType = "array"
)

// Field describes one named input to a tool: its type, whether it is
// required, an optional enum of accepted string values, optional numeric
// bounds, and a literal-value constraint (used by delete_note's confirm=true
// requirement).
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	Enum        []string
	Default     any
	Min         *float64
	Max         *float64
	// Const, when set, requires the field (if present) to equal this exact
	// value. Combined with Required, this implements "a literal true is
	// mandatory" constraints without a bespoke validator per tool.
	Const any
}

// Schema is a tool's full set of accepted input fields. Validation against
// a Schema and the JSON-Schema-draft-7 rendering of a Schema are derived
// from the same field list, so the two views cannot drift (per the design
// notes).
type Schema struct {
	Fields []Field
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ValidationError is returned when raw arguments fail schema validation.
// It always carries the SCHEMA_VALIDATION_ERROR code plus the offending
// tool name and field, per §7's propagation policy.
type ValidationError = vaulterr.Error

func newValidationError(tool, field, message string) *ValidationError {
	return vaulterr.New(vaulterr.SchemaValidation, message).
		WithMetadata(map[string]any{"tool": tool, "field": field})
}

// Validate checks raw against schema, returning a typed record (a plain
// map with values coerced to their declared Go types) or a
// ValidationError. Unknown keys in raw are ignored: schemas are additive,
// not closed-world, matching the teacher's permissive argument handling.
func Validate(tool string, schema Schema, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(schema.Fields))

	for _, f := range schema.Fields {
		v, present := raw[f.Name]
		if !present {
			if f.Required {
				return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q is required", f.Name))
			}
			if f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}

		coerced, err := coerce(tool, f, v)
		if err != nil {
			return nil, err
		}

		if f.Const != nil && coerced != f.Const {
			return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be the literal value %v", f.Name, f.Const))
		}

		if f.Type == TString && len(f.Enum) > 0 {
			s := coerced.(string)
			if !containsString(f.Enum, s) {
				return nil, newValidationError(tool, f.Name,
					fmt.Sprintf("%q must be one of %s, got %q", f.Name, strings.Join(f.Enum, ", "), s))
			}
		}

		if num, ok := asFloat(coerced); ok {
			if f.Min != nil && num < *f.Min {
				return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be >= %v", f.Name, *f.Min))
			}
			if f.Max != nil && num > *f.Max {
				return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be <= %v", f.Name, *f.Max))
			}
		}

		out[f.Name] = coerced
	}

	return out, nil
}

func coerce(tool string, f Field, v any) (any, error) {
	switch f.Type {
	case TString:
		s, ok := v.(string)
		if !ok {
			return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be a string", f.Name))
		}
		return s, nil
	case TBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be a boolean", f.Name))
		}
		return b, nil
	case TInteger, TNumber:
		n, ok := asFloat(v)
		if !ok {
			return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be a number", f.Name))
		}
		if f.Type == TInteger {
			return int(n), nil
		}
		return n, nil
	case TStringArray:
		items, ok := v.([]any)
		if !ok {
			if s, isStr := v.([]string); isStr {
				return s, nil
			}
			return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be an array of strings", f.Name))
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, newValidationError(tool, f.Name, fmt.Sprintf("%q must be an array of strings", f.Name))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return v, nil
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// JSONSchema renders schema as a JSON-Schema-draft-7 object, inlined
// without $ref, matching the listing contract in §4.6.
func JSONSchema(schema Schema) map[string]any {
	properties := make(map[string]any, len(schema.Fields))
	var required []string

	for _, f := range schema.Fields {
		properties[f.Name] = fieldJSONSchema(f)
		if f.Required {
			required = append(required, f.Name)
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

func fieldJSONSchema(f Field) map[string]any {
	out := map[string]any{}
	switch f.Type {
	case TString:
		out["type"] = "string"
		if len(f.Enum) > 0 {
			enumVals := make([]any, len(f.Enum))
			for i, e := range f.Enum {
				enumVals[i] = e
			}
			out["enum"] = enumVals
		}
	case TBoolean:
		out["type"] = "boolean"
	case TInteger:
		out["type"] = "integer"
	case TNumber:
		out["type"] = "number"
	case TStringArray:
		out["type"] = "array"
		out["items"] = map[string]any{"type": "string"}
	}
	if f.Description != "" {
		out["description"] = f.Description
	}
	if f.Default != nil {
		out["default"] = f.Default
	}
	if f.Min != nil {
		out["minimum"] = *f.Min
	}
	if f.Max != nil {
		out["maximum"] = *f.Max
	}
	if f.Const != nil {
		out["const"] = f.Const
	}
	return out
}

// ApplyClaudeShim implements §6's "Claude compatibility shim": if tags or
// links arrives as a JSON-encoded string, parse it and substitute the
// array on success. Any other shape is left alone so schema validation can
// reject it with a clear message. Applied once, at the top of the
// dispatcher, before Validate.
func ApplyClaudeShim(raw map[string]any) map[string]any {
	for _, key := range []string{"tags", "links"} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		if arr, ok := tryParseJSONArray(s); ok {
			raw[key] = arr
		}
	}
	return raw
}
