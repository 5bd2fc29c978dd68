package mcptools

// Result is the transport-agnostic shape every handler returns. The
// stdio/mcp-go adapter (pkg/mcp) translates this into an MCP
// CallToolResult: Text becomes content[0].text, Metadata becomes
// _meta.metadata, and IsError flags the result as a tool-level failure
// rather than a protocol error.
type Result struct {
	Text     string
	Metadata map[string]any
	IsError  bool
}

func textResult(text string, metadata map[string]any) Result {
	return Result{Text: text, Metadata: metadata}
}
