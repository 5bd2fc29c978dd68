// Package graph implements the link-graph analyzer (component E):
// outbound/inbound/broken/orphan classification and weighted link
// suggestions over the note corpus. It operates on notestore.Note values
// already loaded into memory, the way the teacher's pkg/obsidian/graph.go
// builds its HITS/community analysis over an in-memory note set — this
// analyzer is the spec's simpler outbound/inbound/broken/orphan +
// Jaccard/category/project/keyword scoring instead of HITS and label
// propagation, but keeps the same "analyze the whole corpus at once,
// report per-note structs" shape.
package graph

import (
	"github.com/atomicobject/vaultmcp/pkg/notestore"
)

// Analysis is one note's position in the link graph.
type Analysis struct {
	UID      string
	Outbound []string
	Inbound  []string
	Broken   []string
	Orphan   bool
}

// Corpus indexes a loaded note set for repeated analysis. Outbound link
// sets are resolved once at construction time so repeated Analyze/Orphans
// calls don't re-extract body links per note.
type Corpus struct {
	notes    []notestore.Note
	byUID    map[string]notestore.Note
	resolver *notestore.Resolver
	outbound map[string][]string
	inbound  map[string][]string
}

// NewCorpus builds a Corpus over notes, resolving body links once up front.
func NewCorpus(notes []notestore.Note) *Corpus {
	byUID := make(map[string]notestore.Note, len(notes))
	for _, n := range notes {
		byUID[n.ID] = n
	}
	resolver := notestore.BuildResolver(notes)

	outbound := make(map[string][]string, len(notes))
	inbound := make(map[string][]string, len(notes))
	for _, n := range notes {
		targets := notestore.OutboundUIDs(n, resolver)
		outbound[n.ID] = targets
		for _, t := range targets {
			inbound[t] = append(inbound[t], n.ID)
		}
	}

	return &Corpus{notes: notes, byUID: byUID, resolver: resolver, outbound: outbound, inbound: inbound}
}

// Outbound returns the note's resolved outbound UID set (front-matter
// links ∪ resolved body links).
func (c *Corpus) Outbound(n notestore.Note) []string {
	return c.outbound[n.ID]
}

// Analyze classifies a single note's position in the link graph.
func (c *Corpus) Analyze(uid string) Analysis {
	if _, ok := c.byUID[uid]; !ok {
		return Analysis{UID: uid, Orphan: true}
	}

	outbound := c.outbound[uid]
	var broken []string
	for _, target := range outbound {
		if _, exists := c.byUID[target]; !exists {
			broken = append(broken, target)
		}
	}

	inbound := c.inbound[uid]

	return Analysis{
		UID:      uid,
		Outbound: outbound,
		Inbound:  inbound,
		Broken:   broken,
		Orphan:   len(outbound) == 0 && len(inbound) == 0,
	}
}

// AnalyzeAll classifies every note in the corpus.
func (c *Corpus) AnalyzeAll() []Analysis {
	out := make([]Analysis, 0, len(c.notes))
	for _, n := range c.notes {
		out = append(out, c.Analyze(n.ID))
	}
	return out
}

// Orphans returns the UIDs of notes that are neither a source nor a
// target of any link.
func (c *Corpus) Orphans() []string {
	var out []string
	for _, a := range c.AnalyzeAll() {
		if a.Orphan {
			out = append(out, a.UID)
		}
	}
	return out
}
