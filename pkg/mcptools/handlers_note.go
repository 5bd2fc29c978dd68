package mcptools

import (
	"context"
	"encoding/json"

	"github.com/atomicobject/vaultmcp/pkg/frontmatter"
	"github.com/atomicobject/vaultmcp/pkg/graph"
	"github.com/atomicobject/vaultmcp/pkg/ids"
	"github.com/atomicobject/vaultmcp/pkg/notestore"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// createNoteResponse is the JSON payload for a successful create_note call.
type createNoteResponse struct {
	UID      string   `json:"uid"`
	Title    string   `json:"title"`
	Path     string   `json:"path"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Project  string   `json:"project,omitempty"`
	Warning  string   `json:"warning,omitempty"`
}

// handleCreateNote mints a UID, builds the note's front matter, and writes
// it to disk; the minted UID is the single source of truth for both the
// filename and the front-matter id (no second, independent mint happens
// anywhere downstream).
func handleCreateNote(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	title := argString(args, "title", "")
	uid := ids.NewUID()
	filename := ids.Filename(title, uid)
	path, err := ids.SafeJoinVault(ec.VaultPath, filename)
	if err != nil {
		return Result{}, vaulterr.Wrap(vaulterr.InvalidFilePath, "failed to build note path", err)
	}

	now := ec.Store.Now()
	note := notestore.Note{
		FrontMatter: frontmatter.FrontMatter{
			ID:       uid,
			Title:    title,
			Category: frontmatter.Category(argString(args, "category", "")),
			Tags:     argStringSlice(args, "tags"),
			Project:  argString(args, "project", ""),
			Created:  now,
			Updated:  now,
			Links:    argStringSlice(args, "links"),
		},
		Body: argString(args, "content", ""),
		Path: path,
	}

	if err := ec.Store.Save(&note); err != nil {
		return Result{}, err
	}

	resp := createNoteResponse{
		UID:      note.ID,
		Title:    note.Title,
		Path:     note.Path,
		Category: string(note.Category),
		Tags:     note.Tags,
		Project:  note.Project,
	}
	if ec.syncIndex(ctx, recovery.OpIndex, note) {
		resp.Warning = "index update deferred; it will be retried in the background"
	}
	return jsonResult(resp)
}

// readNoteResponse is the JSON payload for read_note.
type readNoteResponse struct {
	UID       string             `json:"uid"`
	Title     string             `json:"title"`
	Category  string             `json:"category,omitempty"`
	Tags      []string           `json:"tags,omitempty"`
	Project   string             `json:"project,omitempty"`
	Links     []string           `json:"links,omitempty"`
	Content   string             `json:"content"`
	Path      string             `json:"path"`
	Metadata  *readNoteMetadata  `json:"metadata,omitempty"`
	LinkGraph *readNoteLinkGraph `json:"linkGraph,omitempty"`
}

type readNoteMetadata struct {
	Created string `json:"created"`
	Updated string `json:"updated"`
}

type readNoteLinkGraph struct {
	Outbound []string `json:"outbound"`
	Inbound  []string `json:"inbound"`
	Broken   []string `json:"broken"`
	Orphan   bool     `json:"orphan"`
}

func handleReadNote(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	uid := argString(args, "uid", "")
	note, _, err := ec.Store.FindByUID(uid)
	if err != nil {
		return Result{}, err
	}

	resp := readNoteResponse{
		UID:      note.ID,
		Title:    note.Title,
		Category: string(note.Category),
		Tags:     note.Tags,
		Project:  note.Project,
		Links:    note.Links,
		Content:  note.Body,
		Path:     note.Path,
	}

	if argBool(args, "includeMetadata", false) {
		resp.Metadata = &readNoteMetadata{
			Created: note.Created.UTC().Format(rfc3339Milli),
			Updated: note.Updated.UTC().Format(rfc3339Milli),
		}
	}

	if argBool(args, "includeLinks", false) {
		all, err := loadCorpusNotes(ec)
		if err != nil {
			return Result{}, err
		}
		corpus := graph.NewCorpus(all)
		a := corpus.Analyze(note.ID)
		resp.LinkGraph = &readNoteLinkGraph{
			Outbound: a.Outbound,
			Inbound:  a.Inbound,
			Broken:   a.Broken,
			Orphan:   a.Orphan,
		}
	}

	return jsonResult(resp)
}

const rfc3339Milli = "2006-01-02T15:04:05.000Z"

// updateNoteResponse is the JSON payload for update_note.
type updateNoteResponse struct {
	UID     string   `json:"uid"`
	Changed []string `json:"changed"`
	Warning string   `json:"warning,omitempty"`
}

func handleUpdateNote(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	uid := argString(args, "uid", "")
	note, _, err := ec.Store.FindByUID(uid)
	if err != nil {
		return Result{}, err
	}

	updates := map[string]any{}
	for _, key := range []string{"title", "category", "project"} {
		if v, ok := args[key]; ok {
			updates[key] = v
		}
	}
	if v, ok := args["tags"]; ok {
		updates["tags"] = v
	}
	if v, ok := args["links"]; ok {
		updates["links"] = v
	}
	contentChanged := false
	if v, ok := args["content"].(string); ok && v != note.Body {
		note.Body = v
		contentChanged = true
	}

	fm, changed := frontmatter.Merge(note.FrontMatter, updates)
	note.FrontMatter = fm
	if contentChanged {
		changed = append(changed, "content")
	}

	if len(changed) == 0 {
		return Result{}, vaulterr.New(vaulterr.SchemaValidation, "update_note requires at least one field besides uid to change").
			WithMetadata(map[string]any{"uid": uid})
	}

	if err := ec.Store.Save(&note); err != nil {
		return Result{}, err
	}

	resp := updateNoteResponse{UID: note.ID, Changed: changed}
	if ec.syncIndex(ctx, recovery.OpUpdate, note) {
		resp.Warning = "index update deferred; it will be retried in the background"
	}
	return jsonResult(resp)
}

// deleteNoteResponse is the JSON payload for delete_note.
type deleteNoteResponse struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Warning string `json:"warning,omitempty"`
}

func handleDeleteNote(ctx context.Context, ec *ExecutionContext, args map[string]any) (Result, error) {
	uid := argString(args, "uid", "")
	note, _, err := ec.Store.FindByUID(uid)
	if err != nil {
		return Result{}, err
	}

	if err := ec.Store.Delete(note.Path); err != nil {
		return Result{}, err
	}

	resp := deleteNoteResponse{UID: note.ID, Title: note.Title, Path: note.Path}
	if ec.syncIndex(ctx, recovery.OpDelete, note) {
		resp.Warning = "index removal deferred; it will be retried in the background"
	}
	return jsonResult(resp)
}

func loadCorpusNotes(ec *ExecutionContext) ([]notestore.Note, error) {
	results, err := ec.Store.LoadAll(notestore.LoadAllOptions{SkipInvalid: true})
	if err != nil {
		return nil, err
	}
	notes := make([]notestore.Note, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			notes = append(notes, r.Note)
		}
	}
	return notes, nil
}

func jsonResult(v any) (Result, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Result{}, vaulterr.Wrap(vaulterr.InternalError, "failed to encode tool result", err)
	}
	return textResult(string(data), resultMetadata(v)), nil
}

// resultMetadata renders v once more as a generic map so the MCP adapter
// can surface it under _meta.metadata without re-parsing the text.
func resultMetadata(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
