// Package mcp adapts the transport-agnostic tool registry in pkg/mcptools
// to the stdio/JSON-RPC transport provided by mark3labs/mcp-go. Grounded in
// the teacher's pkg/mcp: the same "config struct + RegisterAll + static
// resource" shape, but rebuilt around a single Dispatcher instead of one
// handler function per tool, since the domain tool set is now declarative
// (pkg/mcptools.Catalog) rather than hand-wired per command.
package mcp

import "github.com/atomicobject/vaultmcp/pkg/mcptools"

// Config holds what the adapter needs to build and serve the MCP server:
// the dispatcher that owns the tool catalog and execution context, plus
// the server's advertised name/version/instructions.
type Config struct {
	Dispatcher    *mcptools.Dispatcher
	ServerName    string
	ServerVersion string
	Instructions  string
}
