package notestore

import (
	"strings"
)

// Resolver maps a raw link target (a UID, a note title, or a bare
// filename) to the UID of the note it refers to. Grounded on the teacher's
// NotePathCache, keyed by UID instead of file path since the index and the
// link graph both address notes by UID.
type Resolver struct {
	byUID   map[string]string // uid -> uid, identity lookup for already-resolved targets
	byTitle map[string]string
	byBase  map[string]string
}

// BuildResolver indexes a loaded corpus for link-target resolution.
func BuildResolver(notes []Note) *Resolver {
	r := &Resolver{
		byUID:   make(map[string]string, len(notes)),
		byTitle: make(map[string]string, len(notes)),
		byBase:  make(map[string]string, len(notes)),
	}
	for _, n := range notes {
		r.byUID[n.ID] = n.ID
		r.byTitle[strings.ToLower(n.Title)] = n.ID
		base := strings.TrimSuffix(strings.ToLower(baseName(n.Path)), ".md")
		r.byBase[base] = n.ID
	}
	return r
}

func baseName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// Resolve maps a raw link target to a note UID, or ok=false if unresolvable.
func (r *Resolver) Resolve(target string) (string, bool) {
	target = strings.TrimSpace(target)
	if idx := strings.Index(target, "#"); idx >= 0 {
		target = target[:idx]
	}
	if uid, ok := r.byUID[target]; ok {
		return uid, true
	}
	lower := strings.ToLower(target)
	lower = strings.TrimSuffix(lower, ".md")
	if uid, ok := r.byTitle[lower]; ok {
		return uid, true
	}
	base := baseName(lower)
	if uid, ok := r.byBase[base]; ok {
		return uid, true
	}
	return "", false
}

// OutboundUIDs returns the union of a note's front-matter links and its
// body links, each resolved to a UID where possible. Unresolvable body
// links are dropped (they refer to nothing in the corpus, i.e. broken).
func OutboundUIDs(n Note, r *Resolver) []string {
	set := dedupeOrdered(append(append([]string{}, n.Links...), resolveAll(ExtractLinks(n.Body).All, r)...))
	return set
}

func resolveAll(targets []string, r *Resolver) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		if uid, ok := r.Resolve(t); ok {
			out = append(out, uid)
		}
	}
	return out
}

// BacklinkKind distinguishes how a body link referenced its target.
type BacklinkKind string

const (
	BacklinkWiki     BacklinkKind = "wiki"
	BacklinkMarkdown BacklinkKind = "markdown"
)

// Snippet is one matching line plus surrounding context.
type Snippet struct {
	LineNumber int
	Lines      []string
	Kind       BacklinkKind
}

// Backlink is one note whose outbound set contains the queried target.
type Backlink struct {
	SourceUID   string
	SourceTitle string
	Snippets    []Snippet
}

const defaultContextLines = 2

// FindBacklinks scans every note in the corpus for references to
// targetUID, returning the referring notes with context snippets around
// each matching line. contextLines <= 0 uses the default of 2.
func (s *Store) FindBacklinks(targetUID string, contextLines int) ([]Backlink, error) {
	if contextLines <= 0 {
		contextLines = defaultContextLines
	}

	results, err := s.LoadAll(LoadAllOptions{SkipInvalid: true})
	if err != nil {
		return nil, err
	}

	notes := make([]Note, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			notes = append(notes, r.Note)
		}
	}
	resolver := BuildResolver(notes)

	var backlinks []Backlink
	for _, n := range notes {
		if n.ID == targetUID {
			continue
		}
		fmLinked := false
		for _, l := range n.Links {
			if l == targetUID {
				fmLinked = true
				break
			}
		}

		snippets := findSnippets(n.Body, targetUID, resolver, contextLines)
		if !fmLinked && len(snippets) == 0 {
			continue
		}
		backlinks = append(backlinks, Backlink{
			SourceUID:   n.ID,
			SourceTitle: n.Title,
			Snippets:    snippets,
		})
	}
	return backlinks, nil
}

func findSnippets(body, targetUID string, resolver *Resolver, contextLines int) []Snippet {
	lines := strings.Split(body, "\n")
	var snippets []Snippet

	matchLine := func(lineIdx int, re []reKindMatcher) {
		line := lines[lineIdx]
		for _, m := range re {
			for _, target := range m.extract(line) {
				if uid, ok := resolver.Resolve(target); ok && uid == targetUID {
					start := lineIdx - contextLines
					if start < 0 {
						start = 0
					}
					end := lineIdx + contextLines + 1
					if end > len(lines) {
						end = len(lines)
					}
					snippets = append(snippets, Snippet{
						LineNumber: lineIdx + 1,
						Lines:      append([]string{}, lines[start:end]...),
						Kind:       m.kind,
					})
					return
				}
			}
		}
	}

	matchers := []reKindMatcher{
		{kind: BacklinkWiki, extract: func(line string) []string { return matchAll(wikiLinkRegex, line) }},
		{kind: BacklinkMarkdown, extract: func(line string) []string { return matchAll(markdownLinkRegex, line) }},
	}

	for i := range lines {
		matchLine(i, matchers)
	}
	return snippets
}

type reKindMatcher struct {
	kind    BacklinkKind
	extract func(line string) []string
}
