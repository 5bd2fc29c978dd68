package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AddBuiltinResources registers the static agent-guide resource describing
// the 14-tool catalog, grounded in the teacher's single static-resource
// registration pattern (one mcp.Resource + handler returning its text).
func AddBuiltinResources(s *server.MCPServer) {
	const uri = "vaultmcp/docs/agent-guide"
	const name = "Personal Knowledge Base Agent Guide"
	const mime = "text/markdown"

	body := `# Personal Knowledge Base – Agent Guide

This MCP server exposes a PARA-organized markdown vault to AI agents. Tools are preferred for dynamic queries; this resource is static reference.

## Note Lifecycle

- **create_note**: mint a new note. Supply ` + "`" + `title` + "`" + `, optional ` + "`" + `content` + "`" + `, ` + "`" + `category` + "`" + ` (Projects/Areas/Resources/Archives), ` + "`" + `tags` + "`" + `, ` + "`" + `project` + "`" + `, ` + "`" + `links` + "`" + `.
- **read_note**: load a note by ` + "`" + `uid` + "`" + `. Set ` + "`" + `includeMetadata` + "`" + ` for timestamps or ` + "`" + `includeLinks` + "`" + ` for a link-graph summary.
- **update_note**: partial update by ` + "`" + `uid` + "`" + `; at least one field besides uid must change.
- **delete_note**: remove a note by ` + "`" + `uid` + "`" + `. Requires literal ` + "`" + `confirm: true` + "`" + `.

## Browsing and Search

- **list_notes**: filter by category/project/tags, sort, and paginate.
- **search_memory**: full-text search (BM25-ranked) with category/tag filters.
- **get_backlinks**: notes that link to a given uid, with context snippets.

## Vault Health

- **get_vault_stats**: roll-up counts, top tags, link totals.
- **find_orphan_notes**: notes with no inbound or outbound links.
- **find_stale_notes**: notes not updated within a window of days.
- **get_organization_health**: a composite A–F score with recommendations.
- **suggest_links**: rank candidate link targets for a note by overlap.

## Maintenance

- **archive_notes**: bulk re-categorize notes to Archives. Use ` + "`" + `dryRun: true` + "`" + ` to preview; otherwise requires ` + "`" + `confirm: true` + "`" + `.
- **get_metrics**: per-tool latency/error counts and recovery-queue status, as JSON or Prometheus text.

## Safe Usage Notes

- ` + "`" + `delete_note` + "`" + ` and non-dry-run ` + "`" + `archive_notes` + "`" + ` require an explicit literal ` + "`" + `confirm: true` + "`" + `; there is no implicit confirmation.
- Index updates after a write are best-effort: a tool call can succeed with a ` + "`" + `warning` + "`" + ` field when the index update was deferred to the background recovery queue.
- ` + "`" + `tags` + "`" + ` and ` + "`" + `links` + "`" + ` also accept a JSON-encoded string (e.g. ` + "`" + `"[\"a\",\"b\"]"` + "`" + `) for clients that cannot emit native arrays.
`

	res := mcp.Resource{
		URI:      uri,
		Name:     name,
		MIMEType: mime,
	}

	handler := func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mime,
			Text:     body,
		}}, nil
	}

	s.AddResource(res, handler)
}
