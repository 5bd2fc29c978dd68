package mcptools

import (
	"context"
	"sort"

	"github.com/atomicobject/vaultmcp/pkg/analytics"
	"github.com/atomicobject/vaultmcp/pkg/frontmatter"
	"github.com/atomicobject/vaultmcp/pkg/graph"
	"github.com/atomicobject/vaultmcp/pkg/notestore"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// vaultStatsResponse is the JSON payload for get_vault_stats.
type vaultStatsResponse struct {
	NoteCount        int            `json:"noteCount"`
	WordCount        int            `json:"wordCount"`
	CategoryCounts   map[string]int `json:"categoryCounts,omitempty"`
	TopTags          []tagCount     `json:"topTags,omitempty"`
	LinkCount        int            `json:"linkCount,omitempty"`
	OrphanCount      int            `json:"orphanCount,omitempty"`
	MeanLinksPerNote float64        `json:"meanLinksPerNote,omitempty"`
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func handleGetVaultStats(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}

	includeLinks := argBool(args, "includeLinks", true)
	var corpus *graph.Corpus
	if includeLinks {
		corpus = graph.NewCorpus(notes)
	}

	stats := analytics.ComputeVaultStats(notes, corpus, analytics.StatsOptions{
		IncludeCategory: argBool(args, "includeCategory", true),
		IncludeTags:     argBool(args, "includeTags", true),
		IncludeLinks:    includeLinks,
	})

	tags := make([]tagCount, 0, len(stats.TagCounts))
	for _, t := range stats.TagCounts {
		tags = append(tags, tagCount{Tag: t.Tag, Count: t.Count})
	}

	return jsonResult(vaultStatsResponse{
		NoteCount:        stats.NoteCount,
		WordCount:        stats.WordCount,
		CategoryCounts:   stats.CategoryCounts,
		TopTags:          tags,
		LinkCount:        stats.LinkCount,
		OrphanCount:      stats.OrphanCount,
		MeanLinksPerNote: stats.MeanLinksPerNote,
	})
}

// orphanNoteEntry is one row of the find_orphan_notes result.
type orphanNoteEntry struct {
	UID      string `json:"uid"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Updated  string `json:"updated"`
}

type findOrphanNotesResponse struct {
	Notes []orphanNoteEntry `json:"notes"`
}

func handleFindOrphanNotes(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}
	corpus := graph.NewCorpus(notes)
	byUID := make(map[string]notestore.Note, len(notes))
	for _, n := range notes {
		byUID[n.ID] = n
	}

	category := argString(args, "category", "")
	var orphans []notestore.Note
	for _, uid := range corpus.Orphans() {
		n := byUID[uid]
		if category != "" && string(n.Category) != category {
			continue
		}
		orphans = append(orphans, n)
	}

	sortField := argString(args, "sort", "title")
	sortNotesSimple(orphans, sortField)

	limit := argInt(args, "limit", 100)
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}

	out := make([]orphanNoteEntry, 0, len(orphans))
	for _, n := range orphans {
		out = append(out, orphanNoteEntry{
			UID: n.ID, Title: n.Title, Category: string(n.Category),
			Updated: n.Updated.UTC().Format(rfc3339Milli),
		})
	}
	return jsonResult(findOrphanNotesResponse{Notes: out})
}

func sortNotesSimple(notes []notestore.Note, field string) {
	sort.SliceStable(notes, func(i, j int) bool {
		return compareNotes(notes[i], notes[j], field)
	})
}

// staleNoteEntry is one row of the find_stale_notes result.
type staleNoteEntry struct {
	UID      string `json:"uid"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Updated  string `json:"updated"`
	DaysAgo  int    `json:"daysAgo"`
}

type findStaleNotesResponse struct {
	Notes []staleNoteEntry `json:"notes"`
}

func handleFindStaleNotes(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}

	category := argString(args, "category", "")
	if category != "" {
		filtered := notes[:0:0]
		for _, n := range notes {
			if string(n.Category) == category {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	staleDays := argInt(args, "staleDays", 30)
	excludeArchives := argBool(args, "excludeArchives", true)
	stale := analytics.FindStale(notes, staleDays, excludeArchives, ec.Store.Now())

	sortField := argString(args, "sort", "daysAgo")
	if sortField == "title" {
		sort.SliceStable(stale, func(i, j int) bool {
			return compareNotes(stale[i].Note, stale[j].Note, "title")
		})
	}

	out := make([]staleNoteEntry, 0, len(stale))
	for _, s := range stale {
		out = append(out, staleNoteEntry{
			UID: s.Note.ID, Title: s.Note.Title, Category: string(s.Note.Category),
			Updated: s.Note.Updated.UTC().Format(rfc3339Milli), DaysAgo: s.DaysAgo,
		})
	}
	return jsonResult(findStaleNotesResponse{Notes: out})
}

// orgHealthResponse is the JSON payload for get_organization_health.
type orgHealthResponse struct {
	Score           int      `json:"score"`
	Grade           string   `json:"grade"`
	OrphanRatio     float64  `json:"orphanRatio"`
	StaleRatio      float64  `json:"staleRatio"`
	BalanceScore    float64  `json:"balanceScore"`
	Recommendations []string `json:"recommendations,omitempty"`
}

func handleGetOrganizationHealth(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}
	corpus := graph.NewCorpus(notes)
	health := analytics.ComputeOrgHealth(notes, corpus, ec.Store.Now())

	resp := orgHealthResponse{
		Score: health.Score, Grade: health.Grade,
		OrphanRatio: health.OrphanRatio, StaleRatio: health.StaleRatio, BalanceScore: health.BalanceScore,
	}
	if argBool(args, "includeRecommendations", true) {
		resp.Recommendations = health.Recommendations
	}
	return jsonResult(resp)
}

// archiveResultEntry is one uid's outcome for archive_notes.
type archiveResultEntry struct {
	UID    string `json:"uid"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status"`
}

type archiveNotesResponse struct {
	DryRun  bool                 `json:"dryRun"`
	Results []archiveResultEntry `json:"results"`
	Warning string               `json:"warning,omitempty"`
}

func handleArchiveNotes(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	uids := argStringSlice(args, "uids")
	if len(uids) == 0 {
		return Result{}, vaulterr.New(vaulterr.SchemaValidation, "archive_notes requires at least one uid")
	}

	dryRun := argBool(args, "dryRun", false)
	if !dryRun && !argBool(args, "confirm", false) {
		return Result{}, vaulterr.New(vaulterr.SchemaValidation, "archive_notes requires confirm=true when dryRun is false")
	}

	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}
	plan := analytics.PlanArchive(notes, uids)

	byUID := make(map[string]notestore.Note, len(notes))
	for _, n := range notes {
		byUID[n.ID] = n
	}

	deferred := false
	out := make([]archiveResultEntry, 0, len(plan))
	for _, p := range plan {
		entry := archiveResultEntry{UID: p.UID, Title: p.Title, Status: string(p.Status)}
		if !dryRun && p.Status == analytics.ArchiveSuccess {
			n := byUID[p.UID]
			n.Category = frontmatter.CategoryArchives
			if err := ec.Store.Save(&n); err != nil {
				return Result{}, err
			}
			if ec.syncIndex(ctx, recovery.OpUpdate, n) {
				deferred = true
			}
		}
		out = append(out, entry)
	}

	resp := archiveNotesResponse{DryRun: dryRun, Results: out}
	if deferred {
		resp.Warning = "one or more index updates deferred; they will be retried in the background"
	}
	return jsonResult(resp)
}

// suggestionEntry is one candidate link target for suggest_links.
type suggestionEntry struct {
	UID           string  `json:"uid"`
	Title         string  `json:"title"`
	Score         float64 `json:"score"`
	TagOverlap    float64 `json:"tagOverlap"`
	CategoryMatch bool    `json:"categoryMatch"`
	ProjectMatch  bool    `json:"projectMatch"`
	KeywordScore  float64 `json:"keywordScore"`
}

type suggestLinksResponse struct {
	UID         string            `json:"uid"`
	Suggestions []suggestionEntry `json:"suggestions"`
}

func handleSuggestLinks(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	uid := argString(args, "uid", "")
	notes, err := loadCorpusNotes(ec)
	if err != nil {
		return Result{}, err
	}

	found := false
	for _, n := range notes {
		if n.ID == uid {
			found = true
			break
		}
	}
	if !found {
		return Result{}, vaulterr.New(vaulterr.ResourceNotFound, "no note with that id").
			WithMetadata(map[string]any{"uid": uid})
	}

	corpus := graph.NewCorpus(notes)
	candidates := corpus.SuggestLinks(uid, graph.SuggestOptions{
		MinScore:        argFloat(args, "minScore", 0.3),
		TopK:            argInt(args, "limit", 10),
		ExcludeExisting: argBool(args, "excludeExisting", true),
	})

	out := make([]suggestionEntry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, suggestionEntry{
			UID: c.TargetUID, Title: c.TargetTitle, Score: c.Score,
			TagOverlap: c.TagOverlap, CategoryMatch: c.CategoryMatch,
			ProjectMatch: c.ProjectMatch, KeywordScore: c.KeywordScore,
		})
	}
	return jsonResult(suggestLinksResponse{UID: uid, Suggestions: out})
}
