package mcptools

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/atomicobject/vaultmcp/pkg/execpolicy"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// Handler is a tool's business logic: it consumes validated, typed
// arguments plus the shared execution context and produces a Result.
type Handler func(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error)

// Tool is one entry in the catalog: its name, human description, input
// schema, and handler.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Handler     Handler
}

// ToolInfo is the catalog listing shape: name, description, and the
// JSON-Schema-draft-7 rendering of the input schema.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Dispatcher resolves tool calls against a fixed catalog, validates their
// arguments, and wraps every invocation in the execution policy and the
// metrics collector, per component I.
type Dispatcher struct {
	EC      *ExecutionContext
	catalog map[string]Tool
	order   []string
}

// NewDispatcher builds a Dispatcher over catalog, bound to ec's shared
// state.
func NewDispatcher(ec *ExecutionContext, catalog []Tool) *Dispatcher {
	d := &Dispatcher{EC: ec, catalog: make(map[string]Tool, len(catalog))}
	for _, t := range catalog {
		d.catalog[t.Name] = t
		d.order = append(d.order, t.Name)
	}
	return d
}

// List renders the full tool catalog for the MCP tools/list response.
func (d *Dispatcher) List() []ToolInfo {
	out := make([]ToolInfo, 0, len(d.order))
	for _, name := range d.order {
		t := d.catalog[name]
		out = append(out, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: JSONSchema(t.Schema)})
	}
	return out
}

// Execute runs the named tool: it resolves the tool, applies the Claude
// compatibility shim, validates arguments against the schema, logs and
// times the call, and invokes the handler under the execution policy.
// Errors are propagated unmodified, per §4.6 step 8 — callers translate
// vaulterr.Error codes into the wire error shape.
func (d *Dispatcher) Execute(ctx context.Context, name string, rawArgs map[string]any) (Result, error) {
	tool, ok := d.catalog[name]
	if !ok {
		return Result{}, vaulterr.New(vaulterr.MCPInvalidRequest, "unknown tool").
			WithMetadata(map[string]any{"tool": name})
	}

	if rawArgs == nil {
		rawArgs = map[string]any{}
	}
	rawArgs = ApplyClaudeShim(rawArgs)

	args, err := Validate(name, tool.Schema, rawArgs)
	if err != nil {
		return Result{}, err
	}

	done := d.EC.Metrics().Start(name)

	policy := d.EC.Policy
	policy.OnRetry = func(info execpolicy.RetryInfo) {
		d.EC.Logger.Debug().
			Str("tool", name).
			Int("attempt", info.Attempt).
			Err(info.Error).
			Msg("tool.retry")
	}

	d.EC.Logger.Debug().
		Str("tool", name).
		Str("input", previewArgs(args)).
		Msg("tool.start")

	raw, execErr := policy.Run(ctx, func(ctx context.Context) (any, error) {
		return tool.Handler(ctx, d.EC, args)
	})

	if execErr != nil {
		done(false, string(vaulterr.CodeOf(execErr)))
		d.EC.Logger.Error().
			Str("tool", name).
			Str("code", string(vaulterr.CodeOf(execErr))).
			Err(execErr).
			Msg("tool.failure")
		return Result{}, execErr
	}

	done(true, "")
	d.EC.Logger.Debug().Str("tool", name).Msg("tool.success")

	result, ok := raw.(Result)
	if !ok {
		return Result{}, vaulterr.New(vaulterr.InternalError, "handler returned an unexpected result type").
			WithMetadata(map[string]any{"tool": name})
	}
	return result, nil
}

const previewMaxLen = 200

var sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|secret|token|apikey|api_key|authorization)`)

// previewArgs renders args as JSON with sensitive-looking keys masked,
// truncated to 200 characters, for the tool.start debug log line.
func previewArgs(args map[string]any) string {
	masked := make(map[string]any, len(args))
	for k, v := range args {
		if sensitiveKeyPattern.MatchString(k) {
			masked[k] = "***"
			continue
		}
		masked[k] = v
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return "<unmarshalable input>"
	}
	s := string(data)
	if len(s) > previewMaxLen {
		s = s[:previewMaxLen] + "..."
	}
	return s
}

// argString/argStringSlice/argBool/argInt/argFloat read a validated
// argument map with the defaulting handlers need; Validate has already
// guaranteed the declared type for present keys.

func argString(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return def
}

func argStringSlice(args map[string]any, key string) []string {
	if v, ok := args[key].([]string); ok {
		return v
	}
	return nil
}

func argBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func argInt(args map[string]any, key string, def int) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return def
}

func argFloat(args map[string]any, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func trimmedOrEmpty(s string) string {
	return strings.TrimSpace(s)
}
