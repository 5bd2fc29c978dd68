package graph_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/frontmatter"
	"github.com/atomicobject/vaultmcp/pkg/graph"
	"github.com/atomicobject/vaultmcp/pkg/notestore"
)

func note(uid, title string, links []string, body string) notestore.Note {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	return notestore.Note{
		FrontMatter: frontmatter.FrontMatter{
			ID:      uid,
			Title:   title,
			Created: now,
			Updated: now,
			Links:   links,
		},
		Body: body,
		Path: title + "-" + uid + ".md",
	}
}

func TestAnalyze_OutboundInboundBroken(t *testing.T) {
	a := note("20260731T120000000001Z", "A", []string{"20260731T120000000002Z", "missing-uid"}, "")
	b := note("20260731T120000000002Z", "B", nil, "")

	c := graph.NewCorpus([]notestore.Note{a, b})

	analysisA := c.Analyze(a.ID)
	assert.ElementsMatch(t, []string{"20260731T120000000002Z", "missing-uid"}, analysisA.Outbound)
	assert.ElementsMatch(t, []string{"missing-uid"}, analysisA.Broken)
	assert.Empty(t, analysisA.Inbound)
	assert.False(t, analysisA.Orphan)

	analysisB := c.Analyze(b.ID)
	assert.ElementsMatch(t, []string{a.ID}, analysisB.Inbound)
	assert.Empty(t, analysisB.Outbound)
	assert.False(t, analysisB.Orphan)
}

func TestAnalyze_UnknownUIDIsOrphan(t *testing.T) {
	a := note("20260731T120000000001Z", "A", nil, "")
	c := graph.NewCorpus([]notestore.Note{a})

	analysis := c.Analyze("does-not-exist")
	assert.True(t, analysis.Orphan)
}

func TestOrphans(t *testing.T) {
	a := note("20260731T120000000001Z", "A", []string{"20260731T120000000002Z"}, "")
	b := note("20260731T120000000002Z", "B", nil, "")
	isolated := note("20260731T120000000003Z", "Isolated", nil, "")

	c := graph.NewCorpus([]notestore.Note{a, b, isolated})

	assert.ElementsMatch(t, []string{isolated.ID}, c.Orphans())
}

func TestAnalyzeAll_UnlinkedNotesAreAllOrphans(t *testing.T) {
	notes := make([]notestore.Note, 0, 50)
	for i := 0; i < 50; i++ {
		uid := fmt.Sprintf("20260731T12%08dZ", i)
		notes = append(notes, note(uid, "Note", nil, ""))
	}
	c := graph.NewCorpus(notes)

	all := c.AnalyzeAll()
	require.Len(t, all, 50)
	for _, a := range all {
		assert.True(t, a.Orphan)
	}
}
