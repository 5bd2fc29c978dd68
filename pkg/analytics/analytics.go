// Package analytics implements the analytics component (J): vault-wide
// roll-ups, stale-note scanning, the organization-health score, and the
// archive-batch helper the archive_notes tool drives. It operates purely on
// already-loaded notestore.Note values and a graph.Corpus, the same
// "analyze the whole corpus in memory" shape pkg/graph uses, grounded in the
// teacher's obsidian/graph.go stats helpers (GraphStats-style aggregate
// counters over a corpus) generalized from link-graph metrics to the PARA
// category/tag/staleness rollups this spec requires.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/atomicobject/vaultmcp/pkg/frontmatter"
	"github.com/atomicobject/vaultmcp/pkg/graph"
	"github.com/atomicobject/vaultmcp/pkg/notestore"
)

// VaultStats is the vault-wide roll-up (§4.8).
type VaultStats struct {
	NoteCount        int
	WordCount        int
	CategoryCounts   map[string]int
	TagCounts        []TagCount
	LinkCount        int
	OrphanCount      int
	MeanLinksPerNote float64
}

// TagCount is one tag's frequency, used for the top-by-count histogram.
type TagCount struct {
	Tag   string
	Count int
}

// StatsOptions toggles which sections of VaultStats are computed, matching
// the get_vault_stats tool's toggles.
type StatsOptions struct {
	IncludeCategory bool
	IncludeTags     bool
	IncludeLinks    bool
}

// ComputeVaultStats rolls up counts/histograms/link totals over notes. corpus
// may be nil when IncludeLinks/orphan detection is not requested.
func ComputeVaultStats(notes []notestore.Note, corpus *graph.Corpus, opts StatsOptions) VaultStats {
	stats := VaultStats{NoteCount: len(notes)}

	tagTally := make(map[string]int)
	for _, n := range notes {
		stats.WordCount += len(strings.Fields(n.Body))
		if opts.IncludeCategory {
			if stats.CategoryCounts == nil {
				stats.CategoryCounts = make(map[string]int)
			}
			key := string(n.Category)
			if key == "" {
				key = "uncategorized"
			}
			stats.CategoryCounts[key]++
		}
		if opts.IncludeTags {
			for _, t := range n.Tags {
				tagTally[t]++
			}
		}
	}

	if opts.IncludeTags {
		stats.TagCounts = topTags(tagTally)
	}

	if opts.IncludeLinks && corpus != nil {
		totalLinks := 0
		for _, n := range notes {
			totalLinks += len(corpus.Outbound(n))
		}
		stats.LinkCount = totalLinks
		stats.OrphanCount = len(corpus.Orphans())
		if len(notes) > 0 {
			stats.MeanLinksPerNote = float64(totalLinks) / float64(len(notes))
		}
	}

	return stats
}

func topTags(tally map[string]int) []TagCount {
	out := make([]TagCount, 0, len(tally))
	for tag, count := range tally {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// StaleNote is one note flagged by FindStale.
type StaleNote struct {
	Note    notestore.Note
	DaysAgo int
}

// FindStale returns notes whose Updated is older than staleDays, optionally
// excluding notes categorized Archives.
func FindStale(notes []notestore.Note, staleDays int, excludeArchives bool, now time.Time) []StaleNote {
	cutoff := now.AddDate(0, 0, -staleDays)
	var out []StaleNote
	for _, n := range notes {
		if excludeArchives && n.Category == frontmatter.CategoryArchives {
			continue
		}
		if n.Updated.Before(cutoff) {
			daysAgo := int(now.Sub(n.Updated).Hours() / 24)
			out = append(out, StaleNote{Note: n, DaysAgo: daysAgo})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DaysAgo > out[j].DaysAgo })
	return out
}

const staleCutoffDays = 30

// OrgHealth is the composite organization-health score.
type OrgHealth struct {
	Score           int
	Grade           string
	OrphanRatio     float64
	StaleRatio      float64
	BalanceScore    float64
	Recommendations []string
}

// ComputeOrgHealth derives orphanRatio, a 30-day staleRatio (excluding
// Archives), and a Shannon-entropy category balance score, combining them
// into a 0-100 composite per the data model's formula. An empty vault
// scores 100 with grade "A".
func ComputeOrgHealth(notes []notestore.Note, corpus *graph.Corpus, now time.Time) OrgHealth {
	if len(notes) == 0 {
		return OrgHealth{Score: 100, Grade: "A"}
	}

	orphanRatio := 0.0
	if corpus != nil {
		orphanRatio = float64(len(corpus.Orphans())) / float64(len(notes))
	}

	stale := FindStale(notes, staleCutoffDays, true, now)
	staleRatio := float64(len(stale)) / float64(len(notes))

	balance := categoryBalanceScore(notes)

	score := 100.0 - math.Min(40, orphanRatio*100) - math.Min(30, staleRatio*50) + math.Max(0, (balance-50)/2)
	score = clamp(score, 0, 100)

	health := OrgHealth{
		Score:        int(math.Round(score)),
		Grade:        grade(score),
		OrphanRatio:  orphanRatio,
		StaleRatio:   staleRatio,
		BalanceScore: balance,
	}
	health.Recommendations = recommendations(orphanRatio, staleRatio, balance)
	return health
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 75:
		return "B"
	case score >= 60:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}

// categoryBalanceScore computes the normalized Shannon entropy of the
// category distribution (including "uncategorized"), scaled to 0-100.
func categoryBalanceScore(notes []notestore.Note) float64 {
	counts := make(map[string]int)
	for _, n := range notes {
		key := string(n.Category)
		if key == "" {
			key = "uncategorized"
		}
		counts[key]++
	}
	if len(counts) <= 1 {
		return 0
	}

	total := float64(len(notes))
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / total
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	maxEntropy := math.Log2(float64(len(counts)))
	if maxEntropy == 0 {
		return 0
	}
	return (entropy / maxEntropy) * 100
}

func recommendations(orphanRatio, staleRatio, balance float64) []string {
	var recs []string
	if orphanRatio > 0.3 {
		recs = append(recs, "Many notes are unlinked; consider adding links to connect orphaned notes to the rest of the vault.")
	} else if orphanRatio > 0.1 {
		recs = append(recs, "A noticeable fraction of notes are orphaned; review them for linking opportunities.")
	}
	if staleRatio > 0.3 {
		recs = append(recs, "A large share of notes haven't been updated in over 30 days; revisit or archive stale material.")
	} else if staleRatio > 0.15 {
		recs = append(recs, "Some notes are going stale; a periodic review pass would help.")
	}
	if balance < 50 {
		recs = append(recs, "Notes are concentrated in a few categories; consider redistributing across the PARA categories.")
	}
	return recs
}

// ArchiveStatus is the per-uid outcome of an archive_notes call.
type ArchiveStatus string

const (
	ArchiveSuccess  ArchiveStatus = "success"
	ArchiveSkipped  ArchiveStatus = "skipped"
	ArchiveNotFound ArchiveStatus = "not_found"
)

// ArchiveResult is one uid's outcome.
type ArchiveResult struct {
	UID    string
	Status ArchiveStatus
	Title  string
}

// PlanArchive classifies each requested uid against the loaded corpus
// without mutating anything: already-Archives notes are skipped, missing
// uids are not_found, everything else is a candidate for archiving. The
// caller performs the actual save (via notestore) for candidates when
// dryRun is false.
func PlanArchive(notes []notestore.Note, uids []string) []ArchiveResult {
	byUID := make(map[string]notestore.Note, len(notes))
	for _, n := range notes {
		byUID[n.ID] = n
	}

	results := make([]ArchiveResult, 0, len(uids))
	for _, uid := range uids {
		n, ok := byUID[uid]
		if !ok {
			results = append(results, ArchiveResult{UID: uid, Status: ArchiveNotFound})
			continue
		}
		if n.Category == frontmatter.CategoryArchives {
			results = append(results, ArchiveResult{UID: uid, Status: ArchiveSkipped, Title: n.Title})
			continue
		}
		results = append(results, ArchiveResult{UID: uid, Status: ArchiveSuccess, Title: n.Title})
	}
	return results
}
