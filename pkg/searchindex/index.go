// Package searchindex implements the search index (component D): a
// single-writer SQLite database with an FTS5 full-text table over notes and
// a link table backing the graph traversals. It is grounded in the
// teacher's pkg/embeddings/sqlite.Store (same Open/EnsureSchema/Close
// shape, same modernc.org/sqlite driver) and in the versioned
// schema-metadata migration idiom from the pack's statelessagent store.
package searchindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// Index is the single-writer note search index.
type Index struct {
	db *sql.DB
	mu sync.Mutex // serializes writers; reads also run one at a time on the single pooled connection
}

const currentSchemaVersion = 1

// Open opens (creating if absent) the SQLite database at path, applies
// pragmas, and runs migrations up to currentSchemaVersion.
func Open(path string) (*Index, error) {
	if path == "" {
		return nil, vaulterr.New(vaulterr.ConfigError, "index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, vaulterr.Wrap(vaulterr.StorageError, "failed to create index directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.IndexBuildError, "failed to open index database", err)
	}
	db.SetMaxOpenConns(1) // single-writer; modernc.org/sqlite serializes internally anyway

	ix := &Index{db: db}
	if err := ix.applyPragmas(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ix.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) applyPragmas() error {
	pragmas := []string{
		"PRAGMA page_size = 4096",
		"PRAGMA cache_size = -10000", // ~10MiB, negative = KiB
		"PRAGMA temp_store = MEMORY",
		"PRAGMA mmap_size = 268435456", // 256MiB
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := ix.db.Exec(p); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, fmt.Sprintf("failed to apply pragma %q", p), err)
		}
	}
	return nil
}

// Close releases the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func (ix *Index) migrate() error {
	base := []string{
		`CREATE TABLE IF NOT EXISTS index_metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			rowid       INTEGER PRIMARY KEY AUTOINCREMENT,
			uid         TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL,
			category    TEXT NOT NULL DEFAULT '',
			file_path   TEXT NOT NULL,
			project     TEXT NOT NULL DEFAULT '',
			tags_json   TEXT NOT NULL DEFAULT '[]',
			content     TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL DEFAULT '',
			created     INTEGER NOT NULL,
			updated     INTEGER NOT NULL,
			indexed_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_category ON notes(category)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_project ON notes(project)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_updated ON notes(updated)`,
		`CREATE TABLE IF NOT EXISTS links (
			source_uid TEXT NOT NULL,
			target_uid TEXT NOT NULL,
			link_type  TEXT NOT NULL DEFAULT 'wiki',
			strength   REAL NOT NULL DEFAULT 1.0,
			first_seen INTEGER NOT NULL,
			last_seen  INTEGER NOT NULL,
			PRIMARY KEY (source_uid, target_uid, link_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_uid)`,
		`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_uid)`,
	}
	for _, stmt := range base {
		if _, err := ix.db.Exec(stmt); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, "base schema migration failed", err).
				WithMetadata(map[string]any{"statement": stmt})
		}
	}

	version := ix.schemaVersion()
	versioned := []struct {
		version int
		fn      func() error
	}{
		{1, ix.migrateV1FTS},
	}
	for _, m := range versioned {
		if version < m.version {
			if err := m.fn(); err != nil {
				return vaulterr.Wrap(vaulterr.IndexBuildError, fmt.Sprintf("migration v%d failed", m.version), err)
			}
			if err := ix.setMeta("schema_version", strconv.Itoa(m.version)); err != nil {
				return err
			}
		}
	}
	return nil
}

// migrateV1FTS creates the FTS5 virtual table over the notes content. A
// Unicode-aware tokenizer is used so non-ASCII titles/tags are searchable.
func (ix *Index) migrateV1FTS() error {
	_, err := ix.db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
		title, content, tags, category, project,
		tokenize='unicode61'
	)`)
	if err != nil {
		return err
	}
	_, err = ix.db.Exec(`INSERT INTO notes_fts(notes_fts) VALUES('rebuild')`)
	return err
}

// SchemaVersion reports the index's current schema version, per the
// index_metadata "schema_version" key (§6 persisted state layout).
func (ix *Index) SchemaVersion() int {
	return ix.schemaVersion()
}

func (ix *Index) schemaVersion() int {
	v, ok := ix.getMeta("schema_version")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (ix *Index) getMeta(key string) (string, bool) {
	var value string
	err := ix.db.QueryRow(`SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

func (ix *Index) setMeta(key, value string) error {
	_, err := ix.db.Exec(`
		INSERT INTO index_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Record is the indexable projection of a note. It is a plain struct
// (not notestore.Note) so this package has no dependency on the note
// store — callers translate.
type Record struct {
	UID         string
	Title       string
	Category    string
	FilePath    string
	Project     string
	Tags        []string
	Content     string
	ContentHash string
	Created     time.Time
	Updated     time.Time
	Outbound    []LinkRef
}

// LinkRef is one outbound link from a note to another, by UID.
type LinkRef struct {
	TargetUID string
	LinkType  string
	Strength  float64
}

// IndexNote upserts a record into notes/notes_fts and rebuilds its outbound
// link rows, all within one transaction.
func (ix *Index) IndexNote(ctx context.Context, rec Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ix.upsertNoteTx(tx, rec); err != nil {
		return err
	}
	if err := ix.replaceOutboundLinksTx(tx, rec.UID, rec.Outbound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to commit note index update", err)
	}
	return nil
}

func (ix *Index) upsertNoteTx(tx *sql.Tx, rec Record) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to encode tags", err)
	}
	now := time.Now().Unix()

	var rowID int64
	err = tx.QueryRow(`SELECT rowid FROM notes WHERE uid = ?`, rec.UID).Scan(&rowID)
	switch {
	case err == sql.ErrNoRows:
		res, insertErr := tx.Exec(`
			INSERT INTO notes (uid, title, category, file_path, project, tags_json, content, content_hash, created, updated, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.UID, rec.Title, rec.Category, rec.FilePath, rec.Project, string(tagsJSON), rec.Content, rec.ContentHash,
			rec.Created.Unix(), rec.Updated.Unix(), now)
		if insertErr != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to insert note row", insertErr)
		}
		rowID, _ = res.LastInsertId()
	case err != nil:
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to look up note row", err)
	default:
		if _, updErr := tx.Exec(`
			UPDATE notes SET title=?, category=?, file_path=?, project=?, tags_json=?, content=?, content_hash=?, updated=?, indexed_at=?
			WHERE uid = ?
		`, rec.Title, rec.Category, rec.FilePath, rec.Project, string(tagsJSON), rec.Content, rec.ContentHash,
			rec.Updated.Unix(), now, rec.UID); updErr != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to update note row", updErr)
		}
	}

	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE rowid = ?`, rowID); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to clear stale fts row", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO notes_fts (rowid, title, content, tags, category, project)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rowID, rec.Title, rec.Content, joinTags(rec.Tags), rec.Category, rec.Project); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to index fts row", err)
	}
	return nil
}

func (ix *Index) replaceOutboundLinksTx(tx *sql.Tx, uid string, outbound []LinkRef) error {
	if _, err := tx.Exec(`DELETE FROM links WHERE source_uid = ?`, uid); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to clear stale links", err)
	}
	now := time.Now().Unix()
	for _, l := range outbound {
		linkType := l.LinkType
		if linkType == "" {
			linkType = "wiki"
		}
		strength := l.Strength
		if strength == 0 {
			strength = 1.0
		}
		if _, err := tx.Exec(`
			INSERT INTO links (source_uid, target_uid, link_type, strength, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_uid, target_uid, link_type) DO UPDATE SET
				strength = excluded.strength, last_seen = excluded.last_seen
		`, uid, l.TargetUID, linkType, strength, now, now); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to insert link row", err)
		}
	}
	return nil
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}

// RemoveNote deletes a note's rows from notes, notes_fts, and links.
func (ix *Index) RemoveNote(ctx context.Context, uid string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var rowID sql.NullInt64
	if err := tx.QueryRow(`SELECT rowid FROM notes WHERE uid = ?`, uid).Scan(&rowID); err != nil && err != sql.ErrNoRows {
		return vaulterr.Wrap(vaulterr.IndexQueryError, "failed to look up note for removal", err)
	}
	if rowID.Valid {
		if _, err := tx.Exec(`DELETE FROM notes_fts WHERE rowid = ?`, rowID.Int64); err != nil {
			return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to remove fts row", err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE uid = ?`, uid); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to remove note row", err)
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE source_uid = ? OR target_uid = ?`, uid, uid); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to remove link rows", err)
	}
	if err := tx.Commit(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to commit note removal", err)
	}
	return nil
}

// BatchIndex indexes every record as a single transaction.
func (ix *Index) BatchIndex(ctx context.Context, records []Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to begin batch transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		if err := ix.upsertNoteTx(tx, rec); err != nil {
			return err
		}
		if err := ix.replaceOutboundLinksTx(tx, rec.UID, rec.Outbound); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to commit batch index", err)
	}
	return nil
}

// Optimize runs 'notes_fts optimize' and VACUUM, recording the timestamp
// under index_metadata["last_vacuum"].
func (ix *Index) Optimize(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, err := ix.db.ExecContext(ctx, `INSERT INTO notes_fts(notes_fts) VALUES('optimize')`); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to optimize fts index", err)
	}
	if _, err := ix.db.ExecContext(ctx, `VACUUM`); err != nil {
		return vaulterr.Wrap(vaulterr.IndexBuildError, "failed to vacuum index", err)
	}
	return ix.setMeta("last_vacuum", strconv.FormatInt(time.Now().Unix(), 10))
}

// IntegrityCheck runs PRAGMA integrity_check and reports corruption.
func (ix *Index) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := ix.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return vaulterr.Wrap(vaulterr.IndexQueryError, "integrity check query failed", err)
	}
	if result != "ok" {
		return vaulterr.New(vaulterr.IndexCorrupted, "index integrity check failed").
			WithMetadata(map[string]any{"result": result})
	}
	return nil
}

// Stats is a point-in-time snapshot of index size.
type Stats struct {
	NoteCount int64
	LinkCount int64
	LastVacuum *time.Time
}

// Stats reports note/link counts and the last vacuum timestamp.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&s.NoteCount); err != nil {
		return Stats{}, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to count notes", err)
	}
	if err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links`).Scan(&s.LinkCount); err != nil {
		return Stats{}, vaulterr.Wrap(vaulterr.IndexQueryError, "failed to count links", err)
	}
	if v, ok := ix.getMeta("last_vacuum"); ok {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.Unix(epoch, 0)
			s.LastVacuum = &t
		}
	}
	return s, nil
}
