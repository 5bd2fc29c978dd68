package graph

import (
	"sort"
	"strings"
)

// SuggestOptions configures the link-suggestion scan.
type SuggestOptions struct {
	MinScore        float64
	TopK            int
	ExcludeExisting bool
}

const (
	weightTagOverlap    = 0.4
	weightCategoryMatch = 0.2
	weightProjectMatch  = 0.2
	weightKeywordOverlap = 0.2

	defaultMinScore   = 0.3
	minKeywordWordLen = 4 // words longer than 3 chars
	keywordOverlapCap = 10.0
)

// Suggestion is a candidate link target with its composite score and the
// factors that produced it.
type Suggestion struct {
	TargetUID     string
	TargetTitle   string
	Score         float64
	TagOverlap    float64
	CategoryMatch bool
	ProjectMatch  bool
	KeywordScore  float64
}

// SuggestLinks scores every other note in the corpus as a candidate link
// target for uid, using a weighted composite of tag-overlap Jaccard,
// category/project equality, and body-keyword overlap, returning the
// top-K candidates at or above MinScore.
func (c *Corpus) SuggestLinks(uid string, opts SuggestOptions) []Suggestion {
	source, ok := c.byUID[uid]
	if !ok {
		return nil
	}

	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	existing := make(map[string]bool)
	if opts.ExcludeExisting {
		for _, t := range c.outbound[uid] {
			existing[t] = true
		}
	}

	sourceTags := newStringSet(source.Tags)
	sourceWords := keywordSet(source.Title + " " + source.Body)

	var candidates []Suggestion
	for _, n := range c.notes {
		if n.ID == uid || existing[n.ID] {
			continue
		}

		tagScore := jaccard(sourceTags, newStringSet(n.Tags))
		categoryMatch := source.Category != "" && source.Category == n.Category
		projectMatch := source.Project != "" && source.Project == n.Project
		keywordScore := keywordOverlapScore(sourceWords, keywordSet(n.Title+" "+n.Body))

		score := weightTagOverlap*tagScore +
			weightCategoryMatch*boolScore(categoryMatch) +
			weightProjectMatch*boolScore(projectMatch) +
			weightKeywordOverlap*keywordScore

		if score < minScore {
			continue
		}

		candidates = append(candidates, Suggestion{
			TargetUID:     n.ID,
			TargetTitle:   n.Title,
			Score:         score,
			TagOverlap:    tagScore,
			CategoryMatch: categoryMatch,
			ProjectMatch:  projectMatch,
			KeywordScore:  keywordScore,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func newStringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// jaccard computes |A∩B| / |A∪B|, treating two empty sets as zero overlap.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersect := 0
	for k := range a {
		if b[k] {
			intersect++
		}
	}
	union := len(a) + len(b) - intersect
	if union == 0 {
		return 0
	}
	return float64(intersect) / float64(union)
}

// keywordSet tokenizes text into a case-folded word multiset, keeping only
// words longer than 3 characters.
func keywordSet(text string) map[string]int {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	set := make(map[string]int)
	for _, w := range words {
		if len(w) >= minKeywordWordLen {
			set[w]++
		}
	}
	return set
}

// keywordOverlapScore is min(|T∩C|/10, 1) over distinct shared keywords.
func keywordOverlapScore(source, candidate map[string]int) float64 {
	if len(source) == 0 || len(candidate) == 0 {
		return 0
	}
	shared := 0
	for w := range source {
		if _, ok := candidate[w]; ok {
			shared++
		}
	}
	score := float64(shared) / keywordOverlapCap
	if score > 1 {
		score = 1
	}
	return score
}
