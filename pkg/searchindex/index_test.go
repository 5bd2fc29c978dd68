package searchindex_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/searchindex"
)

func openTestIndex(t *testing.T) *searchindex.Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	ix, err := searchindex.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func sampleRecord(uid, title, category string, tags []string, outbound ...searchindex.LinkRef) searchindex.Record {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	return searchindex.Record{
		UID:      uid,
		Title:    title,
		Category: category,
		FilePath: title + "-" + uid + ".md",
		Tags:     tags,
		Content:  "content body for " + title,
		Created:  now,
		Updated:  now,
		Outbound: outbound,
	}
}

func TestIndexNote_ThenSearch(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexNote(ctx, sampleRecord("20260731T120000000001Z", "Alpha Project", "Projects", []string{"go"})))

	resp, err := ix.Search(ctx, searchindex.SearchOptions{Query: "Alpha"})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "20260731T120000000001Z", resp.Hits[0].UID)
	assert.Equal(t, 1, resp.Timing.TotalCount)
}

func TestSearch_FiltersByCategoryAndTags(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.IndexNote(ctx, sampleRecord("20260731T120000000001Z", "Widget design", "Projects", []string{"design"})))
	require.NoError(t, ix.IndexNote(ctx, sampleRecord("20260731T120000000002Z", "Widget research", "Resources", []string{"research"})))

	resp, err := ix.Search(ctx, searchindex.SearchOptions{Query: "Widget", Category: "Projects"})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "20260731T120000000001Z", resp.Hits[0].UID)

	resp, err = ix.Search(ctx, searchindex.SearchOptions{Query: "Widget", Tags: []string{"research"}})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "20260731T120000000002Z", resp.Hits[0].UID)
}

func TestRemoveNote(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	uid := "20260731T120000000001Z"
	require.NoError(t, ix.IndexNote(ctx, sampleRecord(uid, "Alpha", "Projects", nil)))

	require.NoError(t, ix.RemoveNote(ctx, uid))

	resp, err := ix.Search(ctx, searchindex.SearchOptions{Query: "Alpha"})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.NoteCount)
}

func TestBatchIndex(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	records := []searchindex.Record{
		sampleRecord("20260731T120000000001Z", "One", "Projects", nil),
		sampleRecord("20260731T120000000002Z", "Two", "Areas", nil),
	}
	require.NoError(t, ix.BatchIndex(ctx, records))

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.NoteCount)
}

func TestLinkGraphTraversals(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	a := "20260731T120000000001Z"
	b := "20260731T120000000002Z"
	c := "20260731T120000000003Z"

	require.NoError(t, ix.IndexNote(ctx, sampleRecord(a, "A", "", nil, searchindex.LinkRef{TargetUID: b, LinkType: "wiki"})))
	require.NoError(t, ix.IndexNote(ctx, sampleRecord(b, "B", "", nil)))
	require.NoError(t, ix.IndexNote(ctx, sampleRecord(c, "C", "", nil)))

	outgoing, err := ix.GetOutgoingLinks(ctx, a)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, b, outgoing[0].TargetUID)

	backlinks, err := ix.GetBacklinks(ctx, b)
	require.NoError(t, err)
	require.Len(t, backlinks, 1)
	assert.Equal(t, a, backlinks[0].SourceUID)

	connected, err := ix.GetConnectedNodes(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, connected)

	orphans, err := ix.GetOrphanNotes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c}, orphans)
}

func TestOptimizeAndIntegrityCheck(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, ix.IndexNote(ctx, sampleRecord("20260731T120000000001Z", "Alpha", "Projects", nil)))

	require.NoError(t, ix.Optimize(ctx))
	require.NoError(t, ix.IntegrityCheck(ctx))

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats.LastVacuum)
}

func TestIndexNote_Reindex_ReplacesOutboundLinks(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	a := "20260731T120000000001Z"
	b := "20260731T120000000002Z"
	c := "20260731T120000000003Z"
	require.NoError(t, ix.IndexNote(ctx, sampleRecord(b, "B", "", nil)))
	require.NoError(t, ix.IndexNote(ctx, sampleRecord(c, "C", "", nil)))
	require.NoError(t, ix.IndexNote(ctx, sampleRecord(a, "A", "", nil, searchindex.LinkRef{TargetUID: b})))

	outgoing, err := ix.GetOutgoingLinks(ctx, a)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, b, outgoing[0].TargetUID)

	require.NoError(t, ix.IndexNote(ctx, sampleRecord(a, "A", "", nil, searchindex.LinkRef{TargetUID: c})))
	outgoing, err = ix.GetOutgoingLinks(ctx, a)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, c, outgoing[0].TargetUID)
}
