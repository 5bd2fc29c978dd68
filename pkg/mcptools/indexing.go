package mcptools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/atomicobject/vaultmcp/pkg/notestore"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/searchindex"
)

// buildRecord derives the indexable projection of a note, resolving its
// outbound links against the rest of the vault so link rows point at real
// UIDs wherever the target can be found. Resolution failures (links to
// titles/filenames not present in the corpus) are simply dropped, since
// the data model treats unresolved body links as broken rather than an
// indexing error.
func (ec *ExecutionContext) buildRecord(note notestore.Note) (searchindex.Record, error) {
	results, err := ec.Store.LoadAll(notestore.LoadAllOptions{SkipInvalid: true})
	if err != nil {
		return searchindex.Record{}, err
	}
	notes := make([]notestore.Note, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			notes = append(notes, r.Note)
		}
	}
	resolver := notestore.BuildResolver(notes)
	outboundUIDs := notestore.OutboundUIDs(note, resolver)

	links := make([]searchindex.LinkRef, 0, len(outboundUIDs))
	for _, uid := range outboundUIDs {
		links = append(links, searchindex.LinkRef{TargetUID: uid, LinkType: "wiki", Strength: 1.0})
	}

	hash := sha256.Sum256([]byte(note.Body))
	return searchindex.Record{
		UID:         note.ID,
		Title:       note.Title,
		Category:    string(note.Category),
		FilePath:    note.Path,
		Project:     note.Project,
		Tags:        note.Tags,
		Content:     note.Body,
		ContentHash: hex.EncodeToString(hash[:]),
		Created:     note.Created,
		Updated:     note.Updated,
		Outbound:    links,
	}, nil
}

// syncIndex attempts to reflect note's current disk state into the search
// index. On failure, per §4.6's "the disk is the source of truth" rule, it
// enqueues the mutation into the recovery queue instead of failing the
// caller, and reports whether a warning should be surfaced in the tool's
// human-facing text.
func (ec *ExecutionContext) syncIndex(ctx context.Context, op recovery.Operation, note notestore.Note) (warned bool) {
	idx, err := ec.Index()
	if err != nil {
		ec.Queue().Enqueue(recovery.Key{UID: note.ID, Op: op}, note.Path)
		return true
	}

	if op == recovery.OpDelete {
		if err := idx.RemoveNote(ctx, note.ID); err != nil {
			ec.Queue().Enqueue(recovery.Key{UID: note.ID, Op: op}, note.Path)
			return true
		}
		return false
	}

	rec, err := ec.buildRecord(note)
	if err != nil {
		ec.Queue().Enqueue(recovery.Key{UID: note.ID, Op: op}, note.Path)
		return true
	}
	if err := idx.IndexNote(ctx, rec); err != nil {
		ec.Queue().Enqueue(recovery.Key{UID: note.ID, Op: op}, note.Path)
		return true
	}
	return false
}
