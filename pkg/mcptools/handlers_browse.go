package mcptools

import (
	"context"
	"sort"
	"strings"

	"github.com/atomicobject/vaultmcp/pkg/notestore"
	"github.com/atomicobject/vaultmcp/pkg/searchindex"
)

// listNoteSummary is one note's listing-row projection.
type listNoteSummary struct {
	UID      string   `json:"uid"`
	Title    string   `json:"title"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Project  string   `json:"project,omitempty"`
	Updated  string   `json:"updated"`
	Created  string   `json:"created"`
}

// listNotesResponse is the JSON payload for list_notes.
type listNotesResponse struct {
	Notes      []listNoteSummary `json:"notes"`
	TotalCount int               `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

func handleListNotes(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}

	category := argString(args, "category", "")
	project := argString(args, "project", "")
	tags := argStringSlice(args, "tags")

	var filtered []notestore.Note
	for _, n := range notes {
		if category != "" && string(n.Category) != category {
			continue
		}
		if project != "" && n.Project != project {
			continue
		}
		if len(tags) > 0 && !anyTagMatch(n.Tags, tags) {
			continue
		}
		filtered = append(filtered, n)
	}

	sortBy := argString(args, "sortBy", "updated")
	sortOrder := argString(args, "sortOrder", "desc")
	sort.SliceStable(filtered, func(i, j int) bool {
		less := compareNotes(filtered[i], filtered[j], sortBy)
		if sortOrder == "asc" {
			return less
		}
		return !less
	})

	total := len(filtered)
	limit := argInt(args, "limit", 100)
	offset := argInt(args, "offset", 0)

	page := paginate(filtered, offset, limit)
	summaries := make([]listNoteSummary, 0, len(page))
	for _, n := range page {
		summaries = append(summaries, listNoteSummary{
			UID:      n.ID,
			Title:    n.Title,
			Category: string(n.Category),
			Tags:     n.Tags,
			Project:  n.Project,
			Updated:  n.Updated.UTC().Format(rfc3339Milli),
			Created:  n.Created.UTC().Format(rfc3339Milli),
		})
	}

	return jsonResult(listNotesResponse{Notes: summaries, TotalCount: total, Limit: limit, Offset: offset})
}

func anyTagMatch(noteTags, want []string) bool {
	set := make(map[string]bool, len(noteTags))
	for _, t := range noteTags {
		set[t] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

func compareNotes(a, b notestore.Note, sortBy string) bool {
	switch sortBy {
	case "created":
		return a.Created.Before(b.Created)
	case "title":
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	default:
		return a.Updated.Before(b.Updated)
	}
}

func paginate(notes []notestore.Note, offset, limit int) []notestore.Note {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(notes) {
		return nil
	}
	end := offset + limit
	if end > len(notes) || limit <= 0 {
		end = len(notes)
	}
	return notes[offset:end]
}

// searchHitPayload is one ranked search result.
type searchHitPayload struct {
	UID      string  `json:"uid"`
	Title    string  `json:"title"`
	Category string  `json:"category,omitempty"`
	Project  string  `json:"project,omitempty"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
}

// searchMemoryResponse is the JSON payload for search_memory.
type searchMemoryResponse struct {
	Hits         []searchHitPayload `json:"hits"`
	TotalCount   int                `json:"totalCount"`
	QueryMs      float64            `json:"queryMs"`
	ProcessingMs float64            `json:"processingMs"`
	TotalMs      float64            `json:"totalMs"`
}

func handleSearchMemory(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	idx, err := ec.Index()
	if err != nil {
		return Result{}, err
	}

	resp, err := idx.Search(ctx, searchindex.SearchOptions{
		Query:    argString(args, "query", ""),
		Limit:    argInt(args, "limit", 20),
		Category: argString(args, "category", ""),
		Tags:     argStringSlice(args, "tags"),
	})
	if err != nil {
		return Result{}, err
	}

	hits := make([]searchHitPayload, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, searchHitPayload{
			UID: h.UID, Title: h.Title, Category: h.Category, Project: h.Project,
			Snippet: h.Snippet, Score: h.Score,
		})
	}

	return jsonResult(searchMemoryResponse{
		Hits:         hits,
		TotalCount:   resp.Timing.TotalCount,
		QueryMs:      resp.Timing.QueryMs,
		ProcessingMs: resp.Timing.ProcessingMs,
		TotalMs:      resp.Timing.TotalMs,
	})
}

// backlinkPayload is one referring note plus its matching context snippets.
type backlinkPayload struct {
	SourceUID   string   `json:"sourceUid"`
	SourceTitle string   `json:"sourceTitle"`
	Snippets    []string `json:"snippets,omitempty"`
}

// getBacklinksResponse is the JSON payload for get_backlinks.
type getBacklinksResponse struct {
	UID       string            `json:"uid"`
	Backlinks []backlinkPayload `json:"backlinks"`
}

func handleGetBacklinks(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	uid := argString(args, "uid", "")
	limit := argInt(args, "limit", 20)

	found, err := ec.Store.FindBacklinks(uid, 2)
	if err != nil {
		return Result{}, err
	}
	if len(found) > limit {
		found = found[:limit]
	}

	out := make([]backlinkPayload, 0, len(found))
	for _, b := range found {
		snippets := make([]string, 0, len(b.Snippets))
		for _, s := range b.Snippets {
			snippets = append(snippets, strings.Join(s.Lines, "\n"))
		}
		out = append(out, backlinkPayload{SourceUID: b.SourceUID, SourceTitle: b.SourceTitle, Snippets: snippets})
	}

	return jsonResult(getBacklinksResponse{UID: uid, Backlinks: out})
}
