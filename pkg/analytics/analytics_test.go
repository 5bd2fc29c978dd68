package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/frontmatter"
	"github.com/atomicobject/vaultmcp/pkg/graph"
	"github.com/atomicobject/vaultmcp/pkg/notestore"
)

func note(uid, title string, cat frontmatter.Category, tags []string, updated time.Time, body string) notestore.Note {
	return notestore.Note{
		FrontMatter: frontmatter.FrontMatter{
			ID:       uid,
			Title:    title,
			Category: cat,
			Tags:     tags,
			Updated:  updated,
		},
		Body: body,
	}
}

func TestComputeVaultStats_CountsCategoriesAndTags(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	notes := []notestore.Note{
		note("1", "One", frontmatter.CategoryProjects, []string{"go", "mcp"}, now, "one two three"),
		note("2", "Two", frontmatter.CategoryAreas, []string{"go"}, now, "four five"),
	}
	stats := ComputeVaultStats(notes, nil, StatsOptions{IncludeCategory: true, IncludeTags: true})

	assert.Equal(t, 2, stats.NoteCount)
	assert.Equal(t, 5, stats.WordCount)
	assert.Equal(t, 1, stats.CategoryCounts["Projects"])
	assert.Equal(t, 1, stats.CategoryCounts["Areas"])
	require.Len(t, stats.TagCounts, 2)
	assert.Equal(t, "go", stats.TagCounts[0].Tag)
	assert.Equal(t, 2, stats.TagCounts[0].Count)
}

func TestComputeVaultStats_LinksRequireCorpus(t *testing.T) {
	now := time.Now()
	notes := []notestore.Note{
		note("1", "One", frontmatter.CategoryProjects, nil, now, "see [[2]]"),
		note("2", "Two", frontmatter.CategoryProjects, nil, now, "no links here"),
	}
	corpus := graph.NewCorpus(notes)
	stats := ComputeVaultStats(notes, corpus, StatsOptions{IncludeLinks: true})

	assert.Equal(t, 1, stats.LinkCount)
	assert.Equal(t, 0, stats.OrphanCount)
}

func TestFindStale_ExcludesArchivesWhenRequested(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -60)
	notes := []notestore.Note{
		note("1", "Old project", frontmatter.CategoryProjects, nil, old, ""),
		note("2", "Old archive", frontmatter.CategoryArchives, nil, old, ""),
		note("3", "Fresh", frontmatter.CategoryProjects, nil, now, ""),
	}

	stale := FindStale(notes, 30, true, now)
	require.Len(t, stale, 1)
	assert.Equal(t, "1", stale[0].Note.ID)
	assert.GreaterOrEqual(t, stale[0].DaysAgo, 30)
}

func TestComputeOrgHealth_EmptyVaultScoresPerfect(t *testing.T) {
	health := ComputeOrgHealth(nil, nil, time.Now())
	assert.Equal(t, 100, health.Score)
	assert.Equal(t, "A", health.Grade)
}

func TestComputeOrgHealth_OrphansAndStaleLowerScore(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -90)
	notes := []notestore.Note{
		note("1", "Isolated", frontmatter.CategoryProjects, nil, old, "no links"),
		note("2", "Also isolated", frontmatter.CategoryProjects, nil, old, "no links either"),
	}
	corpus := graph.NewCorpus(notes)

	health := ComputeOrgHealth(notes, corpus, now)
	assert.Equal(t, 1.0, health.OrphanRatio)
	assert.Equal(t, 1.0, health.StaleRatio)
	assert.Less(t, health.Score, 60)
	assert.NotEmpty(t, health.Recommendations)
}

func TestPlanArchive_ClassifiesEachUID(t *testing.T) {
	notes := []notestore.Note{
		note("1", "Active", frontmatter.CategoryProjects, nil, time.Now(), ""),
		note("2", "Already archived", frontmatter.CategoryArchives, nil, time.Now(), ""),
	}

	results := PlanArchive(notes, []string{"1", "2", "missing"})
	require.Len(t, results, 3)
	assert.Equal(t, ArchiveSuccess, results[0].Status)
	assert.Equal(t, ArchiveSkipped, results[1].Status)
	assert.Equal(t, ArchiveNotFound, results[2].Status)
}
