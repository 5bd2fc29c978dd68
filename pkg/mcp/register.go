package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/atomicobject/vaultmcp/pkg/mcptools"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// RegisterAll builds an mcp-go tool definition for every entry in the
// dispatcher's catalog and wires it to a single handler that forwards the
// call to Dispatcher.Execute. The schema sent to clients carries each
// field's type, description, required flag and numeric minimum; Enum,
// Const and Max are not advertised (enum fields appear as plain strings).
// mcptools.Validate remains the single source of truth for enforcement
// regardless of what the client-facing schema advertises.
func RegisterAll(s *server.MCPServer, config Config) error {
	for _, tool := range config.Dispatcher.List() {
		def := mcp.NewTool(tool.Name, toolOptions(tool)...)
		s.AddTool(def, dispatchHandler(config.Dispatcher, tool.Name))
	}
	return nil
}

// dispatchHandler adapts one dispatcher call into the mcp-go handler shape,
// translating mcptools.Result into a *mcp.CallToolResult and surfacing
// vaulterr codes as tool-level errors rather than protocol failures.
func dispatchHandler(d *mcptools.Dispatcher, name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := d.Execute(ctx, name, req.GetArguments())
		if err != nil {
			code := vaulterr.CodeOf(err)
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", code, err.Error())), nil
		}
		if result.IsError {
			return mcp.NewToolResultError(result.Text), nil
		}
		return mcp.NewToolResultText(result.Text), nil
	}
}

// toolOptions renders a mcptools.ToolInfo's JSON-Schema-draft-7 input
// schema into mcp-go tool-builder options, field by field.
func toolOptions(tool mcptools.ToolInfo) []mcp.ToolOption {
	opts := []mcp.ToolOption{mcp.WithDescription(tool.Description)}

	properties, _ := tool.InputSchema["properties"].(map[string]any)
	required := map[string]bool{}
	if req, ok := tool.InputSchema["required"].([]string); ok {
		for _, r := range req {
			required[r] = true
		}
	}

	for name, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		opts = append(opts, fieldOption(name, prop, required[name]))
	}
	return opts
}

func fieldOption(name string, prop map[string]any, required bool) mcp.ToolOption {
	desc, _ := prop["description"].(string)
	typ, _ := prop["type"].(string)

	switch typ {
	case "boolean":
		return mcp.WithBoolean(name, fieldPropOptions(desc, required)...)
	case "integer", "number":
		numOpts := fieldPropOptions(desc, required)
		if min, ok := prop["minimum"].(float64); ok {
			numOpts = append(numOpts, mcp.Min(min))
		}
		return mcp.WithNumber(name, numOpts...)
	case "array":
		return mcp.WithArray(name, append(fieldPropOptions(desc, required), mcp.WithStringItems())...)
	default:
		return mcp.WithString(name, fieldPropOptions(desc, required)...)
	}
}

func fieldPropOptions(desc string, required bool) []mcp.PropertyOption {
	opts := []mcp.PropertyOption{}
	if desc != "" {
		opts = append(opts, mcp.Description(desc))
	}
	if required {
		opts = append(opts, mcp.Required())
	}
	return opts
}
