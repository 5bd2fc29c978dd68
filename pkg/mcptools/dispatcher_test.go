package mcptools

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/execpolicy"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	dir := t.TempDir()
	ec := NewExecutionContext(
		dir,
		filepath.Join(dir, "index.db"),
		execpolicy.Policy{Timeout: 5 * time.Second, MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		zerolog.Nop(),
		recovery.Options{WorkerInterval: time.Hour},
	)
	t.Cleanup(ec.Close)
	return NewDispatcher(ec, Catalog())
}

func mustExecute(t *testing.T, d *Dispatcher, tool string, args map[string]any) Result {
	t.Helper()
	res, err := d.Execute(context.Background(), tool, args)
	require.NoError(t, err)
	return res
}

func TestExecute_UnknownToolIsInvalidRequest(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Execute(context.Background(), "does_not_exist", nil)
	require.Error(t, err)
	assert.Equal(t, vaulterr.MCPInvalidRequest, vaulterr.CodeOf(err))
}

func TestExecute_CreateReadUpdateDelete(t *testing.T) {
	d := newTestDispatcher(t)

	created := mustExecute(t, d, "create_note", map[string]any{
		"title":    "Integration",
		"content":  "v1",
		"category": "Resources",
		"tags":     []any{"t"},
	})
	uid := created.Metadata["uid"].(string)
	require.NotEmpty(t, uid)

	read := mustExecute(t, d, "read_note", map[string]any{"uid": uid})
	assert.Equal(t, "v1", read.Metadata["content"])

	updated := mustExecute(t, d, "update_note", map[string]any{"uid": uid, "content": "v2"})
	assert.Contains(t, updated.Metadata["changed"], "content")

	read2 := mustExecute(t, d, "read_note", map[string]any{"uid": uid, "includeMetadata": true})
	assert.Equal(t, "v2", read2.Metadata["content"])

	_, err := d.Execute(context.Background(), "delete_note", map[string]any{"uid": uid})
	require.Error(t, err)
	assert.Equal(t, vaulterr.SchemaValidation, vaulterr.CodeOf(err))

	mustExecute(t, d, "delete_note", map[string]any{"uid": uid, "confirm": true})

	_, err = d.Execute(context.Background(), "read_note", map[string]any{"uid": uid})
	require.Error(t, err)
	assert.Equal(t, vaulterr.ResourceNotFound, vaulterr.CodeOf(err))
}

func TestExecute_PARATransition(t *testing.T) {
	d := newTestDispatcher(t)

	a := mustExecute(t, d, "create_note", map[string]any{"title": "A", "category": "Projects"})
	aUID := a.Metadata["uid"].(string)
	mustExecute(t, d, "create_note", map[string]any{"title": "B", "category": "Resources"})
	mustExecute(t, d, "create_note", map[string]any{"title": "C", "category": "Areas"})

	listed := mustExecute(t, d, "list_notes", map[string]any{"category": "Projects"})
	notes := listed.Metadata["notes"].([]any)
	require.Len(t, notes, 1)

	mustExecute(t, d, "update_note", map[string]any{"uid": aUID, "category": "Archives"})

	empty := mustExecute(t, d, "list_notes", map[string]any{"category": "Projects"})
	assert.Empty(t, empty.Metadata["notes"])

	archived := mustExecute(t, d, "list_notes", map[string]any{"category": "Archives"})
	archivedNotes := archived.Metadata["notes"].([]any)
	require.Len(t, archivedNotes, 1)
}

func TestExecute_Backlinks(t *testing.T) {
	d := newTestDispatcher(t)

	r := mustExecute(t, d, "create_note", map[string]any{"title": "R", "category": "Resources"})
	rUID := r.Metadata["uid"].(string)

	p1 := mustExecute(t, d, "create_note", map[string]any{
		"title": "P1", "category": "Projects", "links": []any{rUID},
	})
	p1UID := p1.Metadata["uid"].(string)
	mustExecute(t, d, "create_note", map[string]any{
		"title": "P2", "category": "Projects", "links": []any{rUID},
	})

	back := mustExecute(t, d, "get_backlinks", map[string]any{"uid": rUID})
	assert.Len(t, back.Metadata["backlinks"], 2)

	mustExecute(t, d, "delete_note", map[string]any{"uid": p1UID, "confirm": true})

	back2 := mustExecute(t, d, "get_backlinks", map[string]any{"uid": rUID})
	assert.Len(t, back2.Metadata["backlinks"], 1)
}

func TestExecute_OrganizationHealthOnEmptyVault(t *testing.T) {
	d := newTestDispatcher(t)
	health := mustExecute(t, d, "get_organization_health", map[string]any{})
	assert.InDelta(t, 100, health.Metadata["score"], 0.001)
	assert.Equal(t, "A", health.Metadata["grade"])
}

func TestExecute_ArchiveDryRunLeavesCategoryUnchanged(t *testing.T) {
	d := newTestDispatcher(t)
	p := mustExecute(t, d, "create_note", map[string]any{"title": "P", "category": "Projects"})
	uid := p.Metadata["uid"].(string)

	mustExecute(t, d, "archive_notes", map[string]any{"uids": []any{uid}, "dryRun": true})

	read := mustExecute(t, d, "read_note", map[string]any{"uid": uid})
	assert.Equal(t, "Projects", read.Metadata["category"])

	_, err := d.Execute(context.Background(), "archive_notes", map[string]any{"uids": []any{uid}, "dryRun": false})
	require.Error(t, err)
	assert.Equal(t, vaulterr.SchemaValidation, vaulterr.CodeOf(err))

	mustExecute(t, d, "archive_notes", map[string]any{"uids": []any{uid}, "dryRun": false, "confirm": true})
	read2 := mustExecute(t, d, "read_note", map[string]any{"uid": uid})
	assert.Equal(t, "Archives", read2.Metadata["category"])
}

func TestExecute_ClaudeShimParsesStringEncodedArrays(t *testing.T) {
	d := newTestDispatcher(t)
	created := mustExecute(t, d, "create_note", map[string]any{
		"title": "Shimmed",
		"tags":  `["a","b"]`,
	})
	assert.Equal(t, []any{"a", "b"}, created.Metadata["tags"])
}

func TestExecute_SearchRankingMonotonicity(t *testing.T) {
	d := newTestDispatcher(t)
	mustExecute(t, d, "create_note", map[string]any{"title": "Three", "content": "JavaScript JavaScript JavaScript"})
	mustExecute(t, d, "create_note", map[string]any{"title": "One", "content": "JavaScript"})
	mustExecute(t, d, "create_note", map[string]any{"title": "None", "content": "nothing relevant here"})

	res := mustExecute(t, d, "search_memory", map[string]any{"query": "JavaScript"})
	hits := res.Metadata["hits"].([]any)
	require.Len(t, hits, 2)
	first := hits[0].(map[string]any)
	assert.Equal(t, "Three", first["title"])

	limited := mustExecute(t, d, "search_memory", map[string]any{"query": "JavaScript", "limit": 1})
	assert.Len(t, limited.Metadata["hits"], 1)
}
