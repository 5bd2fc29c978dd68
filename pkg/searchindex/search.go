package searchindex

import (
	"context"
	"strings"
	"time"

	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// SearchOptions configures a full-text query.
type SearchOptions struct {
	Query    string
	Limit    int
	Offset   int
	Category string
	Tags     []string // any-match
}

// SearchHit is one ranked result.
type SearchHit struct {
	UID      string
	Title    string
	Category string
	Project  string
	Snippet  string
	Score    float64
}

// SearchTiming carries the timing metrics the spec requires alongside a
// search response.
type SearchTiming struct {
	QueryMs      float64
	ProcessingMs float64
	TotalMs      float64
	TotalCount   int
	CacheHit     bool
}

// SearchResponse is a full-text search result set plus its timing metrics.
type SearchResponse struct {
	Hits   []SearchHit
	Timing SearchTiming
}

const defaultSearchLimit = 20

// Search runs an FTS5 match against notes_fts, filtered by optional
// category and tag-set (any-match), ordered by BM25 rank, with a snippet
// generated around the first match.
func (ix *Index) Search(ctx context.Context, opts SearchOptions) (SearchResponse, error) {
	totalStart := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ftsQuery := escapeFTSQuery(opts.Query)

	var args []any
	query := `
		SELECT n.uid, n.title, n.category, n.project,
		       snippet(notes_fts, 1, '<<', '>>', '...', 10) AS snip,
		       bm25(notes_fts) AS rank
		FROM notes_fts
		JOIN notes n ON n.rowid = notes_fts.rowid
		WHERE notes_fts MATCH ?`
	args = append(args, ftsQuery)

	if opts.Category != "" {
		query += ` AND n.category = ?`
		args = append(args, opts.Category)
	}
	if len(opts.Tags) > 0 {
		clauses := make([]string, len(opts.Tags))
		for i, tag := range opts.Tags {
			clauses[i] = "n.tags_json LIKE ?"
			args = append(args, "%\""+tag+"\"%")
		}
		query += ` AND (` + strings.Join(clauses, " OR ") + `)`
	}

	query += ` ORDER BY rank LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	queryStart := time.Now()
	rows, err := ix.db.QueryContext(ctx, query, args...)
	queryMs := float64(time.Since(queryStart).Microseconds()) / 1000.0
	if err != nil {
		return SearchResponse{}, vaulterr.Wrap(vaulterr.IndexQueryError, "search query failed", err)
	}
	defer rows.Close()

	processingStart := time.Now()
	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.UID, &h.Title, &h.Category, &h.Project, &h.Snippet, &h.Score); err != nil {
			return SearchResponse{}, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to scan search row", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return SearchResponse{}, vaulterr.Wrap(vaulterr.IndexQueryError, "search row iteration failed", err)
	}

	total, err := ix.countMatches(ctx, ftsQuery, opts)
	if err != nil {
		return SearchResponse{}, err
	}
	processingMs := float64(time.Since(processingStart).Microseconds()) / 1000.0

	return SearchResponse{
		Hits: hits,
		Timing: SearchTiming{
			QueryMs:      queryMs,
			ProcessingMs: processingMs,
			TotalMs:      float64(time.Since(totalStart).Microseconds()) / 1000.0,
			TotalCount:   total,
			CacheHit:     false,
		},
	}, nil
}

func (ix *Index) countMatches(ctx context.Context, ftsQuery string, opts SearchOptions) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notes_fts
		JOIN notes n ON n.rowid = notes_fts.rowid
		WHERE notes_fts MATCH ?`
	args := []any{ftsQuery}

	if opts.Category != "" {
		query += ` AND n.category = ?`
		args = append(args, opts.Category)
	}
	if len(opts.Tags) > 0 {
		clauses := make([]string, len(opts.Tags))
		for i, tag := range opts.Tags {
			clauses[i] = "n.tags_json LIKE ?"
			args = append(args, "%\""+tag+"\"%")
		}
		query += ` AND (` + strings.Join(clauses, " OR ") + `)`
	}

	var total int
	if err := ix.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to count search matches", err)
	}
	return total, nil
}

// escapeFTSQuery quotes the raw query as a single FTS5 phrase so user input
// containing FTS operators (AND/OR/NOT/-/*) does not alter query semantics.
func escapeFTSQuery(raw string) string {
	escaped := strings.ReplaceAll(raw, `"`, `""`)
	return `"` + escaped + `"`
}

// --- graph traversals ---

// LinkRow is one row of the links table.
type LinkRow struct {
	SourceUID string
	TargetUID string
	LinkType  string
	Strength  float64
}

// GetBacklinks returns links whose target is uid. Callers must tolerate
// source UIDs that no longer correspond to a note (broken/stale links).
func (ix *Index) GetBacklinks(ctx context.Context, uid string) ([]LinkRow, error) {
	return ix.queryLinks(ctx, `SELECT source_uid, target_uid, link_type, strength FROM links WHERE target_uid = ?`, uid)
}

// GetOutgoingLinks returns links whose source is uid.
func (ix *Index) GetOutgoingLinks(ctx context.Context, uid string) ([]LinkRow, error) {
	return ix.queryLinks(ctx, `SELECT source_uid, target_uid, link_type, strength FROM links WHERE source_uid = ?`, uid)
}

// GetConnectedNodes returns the distinct set of UIDs reachable from uid by
// exactly one hop in either direction.
func (ix *Index) GetConnectedNodes(ctx context.Context, uid string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT target_uid FROM links WHERE source_uid = ?
		UNION
		SELECT source_uid FROM links WHERE target_uid = ?
	`, uid, uid)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to query connected nodes", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to scan connected node", err)
		}
		if u != uid {
			out = append(out, u)
		}
	}
	return out, rows.Err()
}

func (ix *Index) queryLinks(ctx context.Context, query, uid string) ([]LinkRow, error) {
	rows, err := ix.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, "link query failed", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var l LinkRow
		if err := rows.Scan(&l.SourceUID, &l.TargetUID, &l.LinkType, &l.Strength); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to scan link row", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetOrphanNotes returns UIDs of notes absent from both the source and
// target side of the links table.
func (ix *Index) GetOrphanNotes(ctx context.Context) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT uid FROM notes
		WHERE uid NOT IN (SELECT source_uid FROM links)
		  AND uid NOT IN (SELECT target_uid FROM links)
	`)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to query orphan notes", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to scan orphan note", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
