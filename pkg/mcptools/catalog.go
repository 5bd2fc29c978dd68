package mcptools

import "github.com/atomicobject/vaultmcp/pkg/frontmatter"

func categoryEnum() []string {
	out := make([]string, len(frontmatter.ValidCategories))
	for i, c := range frontmatter.ValidCategories {
		out[i] = string(c)
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }

// Catalog returns the fixed set of 14 tools the server exposes, per §4.6.
func Catalog() []Tool {
	return []Tool{
		{
			Name:        "create_note",
			Description: "Mint a new note UID and write it to the vault.",
			Schema: Schema{Fields: []Field{
				{Name: "title", Type: TString, Required: true, Description: "Note title"},
				{Name: "content", Type: TString, Description: "Markdown body", Default: ""},
				{Name: "category", Type: TString, Enum: categoryEnum(), Description: "PARA category"},
				{Name: "tags", Type: TStringArray, Description: "Tags"},
				{Name: "project", Type: TString, Description: "Associated project"},
				{Name: "links", Type: TStringArray, Description: "UIDs of notes this note links to"},
			}},
			Handler: handleCreateNote,
		},
		{
			Name:        "read_note",
			Description: "Load a single note by UID.",
			Schema: Schema{Fields: []Field{
				{Name: "uid", Type: TString, Required: true, Description: "Note UID"},
				{Name: "includeMetadata", Type: TBoolean, Default: false, Description: "Include created/updated timestamps in the response"},
				{Name: "includeLinks", Type: TBoolean, Default: false, Description: "Include link-graph analysis in the response"},
			}},
			Handler: handleReadNote,
		},
		{
			Name:        "update_note",
			Description: "Apply a partial update to an existing note; at least one field besides uid must change.",
			Schema: Schema{Fields: []Field{
				{Name: "uid", Type: TString, Required: true, Description: "Note UID"},
				{Name: "title", Type: TString, Description: "New title"},
				{Name: "content", Type: TString, Description: "New body"},
				{Name: "category", Type: TString, Enum: categoryEnum(), Description: "New PARA category"},
				{Name: "tags", Type: TStringArray, Description: "New tag set"},
				{Name: "project", Type: TString, Description: "New project"},
				{Name: "links", Type: TStringArray, Description: "New outbound link UIDs"},
			}},
			Handler: handleUpdateNote,
		},
		{
			Name:        "delete_note",
			Description: "Remove a note from the vault. Requires a literal confirm=true.",
			Schema: Schema{Fields: []Field{
				{Name: "uid", Type: TString, Required: true, Description: "Note UID"},
				{Name: "confirm", Type: TBoolean, Required: true, Const: true, Description: "Must be literal true"},
			}},
			Handler: handleDeleteNote,
		},
		{
			Name:        "list_notes",
			Description: "Filter and paginate notes.",
			Schema: Schema{Fields: []Field{
				{Name: "category", Type: TString, Enum: categoryEnum(), Description: "Filter by PARA category"},
				{Name: "tags", Type: TStringArray, Description: "Filter by tags (any-match)"},
				{Name: "project", Type: TString, Description: "Filter by project"},
				{Name: "limit", Type: TInteger, Default: 100, Min: floatPtr(1), Max: floatPtr(1000), Description: "Page size"},
				{Name: "offset", Type: TInteger, Default: 0, Min: floatPtr(0), Description: "Page offset"},
				{Name: "sortBy", Type: TString, Enum: []string{"created", "updated", "title"}, Default: "updated", Description: "Sort field"},
				{Name: "sortOrder", Type: TString, Enum: []string{"asc", "desc"}, Default: "desc", Description: "Sort direction"},
			}},
			Handler: handleListNotes,
		},
		{
			Name:        "search_memory",
			Description: "Full-text search over the vault.",
			Schema: Schema{Fields: []Field{
				{Name: "query", Type: TString, Required: true, Description: "Search query"},
				{Name: "category", Type: TString, Enum: categoryEnum(), Description: "Filter by PARA category"},
				{Name: "tags", Type: TStringArray, Description: "Filter by tags (any-match)"},
				{Name: "limit", Type: TInteger, Default: 20, Min: floatPtr(1), Max: floatPtr(100), Description: "Maximum results"},
			}},
			Handler: handleSearchMemory,
		},
		{
			Name:        "get_vault_stats",
			Description: "Compute vault-wide roll-up statistics.",
			Schema: Schema{Fields: []Field{
				{Name: "includeCategory", Type: TBoolean, Default: true, Description: "Include category histogram"},
				{Name: "includeTags", Type: TBoolean, Default: true, Description: "Include tag histogram"},
				{Name: "includeLinks", Type: TBoolean, Default: true, Description: "Include link totals and orphan count"},
			}},
			Handler: handleGetVaultStats,
		},
		{
			Name:        "get_backlinks",
			Description: "List notes that link to the given UID, with context snippets.",
			Schema: Schema{Fields: []Field{
				{Name: "uid", Type: TString, Required: true, Description: "Target note UID"},
				{Name: "limit", Type: TInteger, Default: 20, Min: floatPtr(1), Max: floatPtr(100), Description: "Maximum referring notes"},
			}},
			Handler: handleGetBacklinks,
		},
		{
			Name:        "get_metrics",
			Description: "Introspect per-tool and recovery-queue metrics.",
			Schema: Schema{Fields: []Field{
				{Name: "format", Type: TString, Enum: []string{"json", "prometheus"}, Default: "json", Description: "Rendering format"},
				{Name: "reset", Type: TBoolean, Default: false, Description: "Clear the sample buffers after rendering"},
			}},
			Handler: handleGetMetrics,
		},
		{
			Name:        "find_orphan_notes",
			Description: "List notes with no inbound or outbound links.",
			Schema: Schema{Fields: []Field{
				{Name: "limit", Type: TInteger, Default: 100, Min: floatPtr(1), Description: "Maximum notes returned"},
				{Name: "category", Type: TString, Enum: categoryEnum(), Description: "Filter by PARA category"},
				{Name: "sort", Type: TString, Enum: []string{"title", "updated"}, Default: "title", Description: "Sort field"},
			}},
			Handler: handleFindOrphanNotes,
		},
		{
			Name:        "find_stale_notes",
			Description: "List notes not updated within a given window.",
			Schema: Schema{Fields: []Field{
				{Name: "staleDays", Type: TInteger, Required: true, Min: floatPtr(1), Description: "Age threshold in days"},
				{Name: "category", Type: TString, Enum: categoryEnum(), Description: "Filter by PARA category"},
				{Name: "excludeArchives", Type: TBoolean, Default: true, Description: "Exclude notes already categorized Archives"},
				{Name: "sort", Type: TString, Enum: []string{"daysAgo", "title"}, Default: "daysAgo", Description: "Sort field"},
			}},
			Handler: handleFindStaleNotes,
		},
		{
			Name:        "get_organization_health",
			Description: "Compute the composite organization-health score.",
			Schema: Schema{Fields: []Field{
				{Name: "includeRecommendations", Type: TBoolean, Default: true, Description: "Include derived recommendations"},
			}},
			Handler: handleGetOrganizationHealth,
		},
		{
			Name:        "archive_notes",
			Description: "Bulk re-categorize notes to Archives. Requires confirm=true unless dryRun.",
			Schema: Schema{Fields: []Field{
				{Name: "uids", Type: TStringArray, Required: true, Description: "Note UIDs to archive"},
				{Name: "dryRun", Type: TBoolean, Default: false, Description: "Plan only, do not mutate anything"},
				{Name: "confirm", Type: TBoolean, Description: "Must be literal true when dryRun is false"},
				{Name: "reason", Type: TString, Description: "Optional audit note"},
			}},
			Handler: handleArchiveNotes,
		},
		{
			Name:        "suggest_links",
			Description: "Rank candidate link targets for a note by tag/category/project/keyword overlap.",
			Schema: Schema{Fields: []Field{
				{Name: "uid", Type: TString, Required: true, Description: "Source note UID"},
				{Name: "limit", Type: TInteger, Default: 10, Min: floatPtr(1), Description: "Maximum candidates"},
				{Name: "minScore", Type: TNumber, Default: 0.3, Min: floatPtr(0), Max: floatPtr(1), Description: "Minimum composite score"},
				{Name: "excludeExisting", Type: TBoolean, Default: true, Description: "Exclude notes already linked"},
			}},
			Handler: handleSuggestLinks,
		},
	}
}
