package frontmatter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/frontmatter"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

func TestParse(t *testing.T) {
	t.Run("parses full frontmatter", func(t *testing.T) {
		content := "---\nid: 20260731T123045123001Z\ntitle: Test\ntags:\n  - a\n  - b\ncreated: 2026-07-31T12:30:45Z\nupdated: 2026-07-31T12:30:45Z\nlinks: []\n---\nBody content"
		fm, body, err := frontmatter.Parse(content)
		require.NoError(t, err)
		assert.Equal(t, "20260731T123045123001Z", fm.ID)
		assert.Equal(t, "Test", fm.Title)
		assert.Equal(t, []string{"a", "b"}, fm.Tags)
		assert.Equal(t, "Body content", body)
	})

	t.Run("missing tags/links come back as empty slices, not nil", func(t *testing.T) {
		content := "---\nid: 20260731T123045123001Z\ntitle: Test\n---\nBody"
		fm, _, err := frontmatter.Parse(content)
		require.NoError(t, err)
		assert.NotNil(t, fm.Tags)
		assert.NotNil(t, fm.Links)
		assert.Empty(t, fm.Tags)
		assert.Empty(t, fm.Links)
	})

	t.Run("invalid yaml returns a typed frontmatter error", func(t *testing.T) {
		content := "---\ninvalid: [unclosed\n---\nBody"
		_, _, err := frontmatter.Parse(content)
		require.Error(t, err)
		assert.Equal(t, vaulterr.InvalidFrontMatter, vaulterr.CodeOf(err))
	})
}

func TestFormat(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	fm := frontmatter.FrontMatter{
		ID:      "20260731T123045123001Z",
		Title:   "Test",
		Created: fixed,
		Updated: fixed,
	}

	out, err := frontmatter.Format(fm, "Body content")
	require.NoError(t, err)
	assert.Contains(t, out, "id: 20260731T123045123001Z")
	assert.Contains(t, out, "title: Test")
	assert.Contains(t, out, "tags: []")
	assert.Contains(t, out, "links: []")
	assert.Contains(t, out, "Body content")
	assert.NotContains(t, out, "undefined")
	assert.NotContains(t, out, "category")
	assert.NotContains(t, out, "project")
}

func TestFormat_EmptyTagsAndLinksRoundTrip(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	fm := frontmatter.FrontMatter{
		ID:      "20260731T123045123001Z",
		Title:   "Roundtrip",
		Tags:    []string{},
		Links:   []string{},
		Created: fixed,
		Updated: fixed,
	}
	out, err := frontmatter.Format(fm, "body")
	require.NoError(t, err)

	reparsed, body, err := frontmatter.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, []string{}, reparsed.Tags)
	assert.Equal(t, []string{}, reparsed.Links)
	assert.Equal(t, "body", body)
}

func TestValidate(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	valid := frontmatter.FrontMatter{
		ID:      "20260731T123045123001Z",
		Title:   "Test",
		Created: fixed,
		Updated: fixed,
	}
	assert.NoError(t, frontmatter.Validate(valid))

	t.Run("rejects malformed id", func(t *testing.T) {
		fm := valid
		fm.ID = "not-a-uid"
		err := frontmatter.Validate(fm)
		require.Error(t, err)
		assert.Equal(t, vaulterr.InvalidUID, vaulterr.CodeOf(err))
	})

	t.Run("rejects empty title", func(t *testing.T) {
		fm := valid
		fm.Title = "  "
		err := frontmatter.Validate(fm)
		require.Error(t, err)
		assert.Equal(t, vaulterr.InvalidFrontMatter, vaulterr.CodeOf(err))
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		fm := valid
		fm.Category = "Nonsense"
		err := frontmatter.Validate(fm)
		require.Error(t, err)
	})

	t.Run("accepts known categories", func(t *testing.T) {
		for _, c := range frontmatter.ValidCategories {
			fm := valid
			fm.Category = c
			assert.NoError(t, frontmatter.Validate(fm))
		}
	})

	t.Run("rejects blank tags", func(t *testing.T) {
		fm := valid
		fm.Tags = []string{"ok", "  "}
		err := frontmatter.Validate(fm)
		require.Error(t, err)
	})

	t.Run("rejects updated before created", func(t *testing.T) {
		fm := valid
		fm.Updated = fixed.Add(-time.Hour)
		err := frontmatter.Validate(fm)
		require.Error(t, err)
	})
}

func TestDefaultFill(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	fm := frontmatter.FrontMatter{Title: ""}

	filled, changed := frontmatter.DefaultFill(fm, "20260731T123045123001Z", now)
	assert.True(t, changed)
	assert.Equal(t, "20260731T123045123001Z", filled.ID)
	assert.Equal(t, "Untitled", filled.Title)
	assert.Equal(t, now, filled.Created)
	assert.Equal(t, now, filled.Updated)
	assert.Empty(t, filled.Tags)
	assert.Empty(t, filled.Links)
	assert.NoError(t, frontmatter.Validate(filled))
}

func TestDefaultFill_LeavesValidFieldsUntouched(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	fm := frontmatter.FrontMatter{
		ID:      "20260731T123045123001Z",
		Title:   "Already set",
		Tags:    []string{"a"},
		Links:   []string{"b"},
		Created: now.Add(-time.Hour),
		Updated: now,
	}
	filled, changed := frontmatter.DefaultFill(fm, "ignored", now)
	assert.False(t, changed)
	assert.Equal(t, fm, filled)
}

func TestMerge(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	base := frontmatter.FrontMatter{
		ID:      "20260731T123045123001Z",
		Title:   "Old title",
		Tags:    []string{"a"},
		Created: fixed,
		Updated: fixed,
	}

	updated, changed := frontmatter.Merge(base, map[string]any{
		"title": "New title",
		"tags":  []string{"a", "a", "b"},
	})

	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, []string{"a", "b"}, updated.Tags, "duplicates are removed on write")
	assert.ElementsMatch(t, []string{"title", "tags"}, changed)
}

func TestMerge_NoChangesReportsNoFields(t *testing.T) {
	fixed := time.Date(2026, 7, 31, 12, 30, 45, 0, time.UTC)
	base := frontmatter.FrontMatter{
		ID:      "20260731T123045123001Z",
		Title:   "Same",
		Created: fixed,
		Updated: fixed,
	}
	_, changed := frontmatter.Merge(base, map[string]any{"title": "Same"})
	assert.Empty(t, changed)
}
