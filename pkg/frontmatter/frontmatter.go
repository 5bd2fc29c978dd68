// Package frontmatter implements the note front-matter codec: parsing a
// Markdown file's YAML header and body, serializing it back out, validating
// the front-matter schema, and merging partial updates. It is grounded in
// the teacher's original free-form-map codec (same adrg/frontmatter +
// yaml.v3 split/marshal pairing), generalized to the fixed note schema this
// server requires instead of arbitrary key/value pairs.
package frontmatter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	adrgfm "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
)

// Category is the PARA taxonomy bucket a note may belong to.
type Category string

const (
	CategoryProjects  Category = "Projects"
	CategoryAreas     Category = "Areas"
	CategoryResources Category = "Resources"
	CategoryArchives  Category = "Archives"
)

// ValidCategories lists every accepted category value.
var ValidCategories = []Category{CategoryProjects, CategoryAreas, CategoryResources, CategoryArchives}

func (c Category) valid() bool {
	if c == "" {
		return true
	}
	for _, v := range ValidCategories {
		if v == c {
			return true
		}
	}
	return false
}

var uidPattern = regexp.MustCompile(`^\d{8}T\d{12}Z$`)

// FrontMatter is the fixed note schema from the data model: every field
// that appears in a note's YAML header.
type FrontMatter struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	Category Category  `yaml:"category,omitempty"`
	Tags     []string  `yaml:"tags"`
	Project  string    `yaml:"project,omitempty"`
	Created  time.Time `yaml:"created"`
	Updated  time.Time `yaml:"updated"`
	Links    []string  `yaml:"links"`
}

const Delimiter = "---"

// Parse splits note content into front matter and body. It never returns a
// nil Tags/Links slice: absent sequences come back empty so callers never
// have to nil-check before ranging.
func Parse(content string) (FrontMatter, string, error) {
	var fm FrontMatter
	rest, err := adrgfm.Parse(strings.NewReader(content), &fm)
	if err != nil {
		return FrontMatter{}, "", vaulterr.Wrap(vaulterr.InvalidFrontMatter, "frontmatter contains invalid YAML", err)
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}
	if fm.Links == nil {
		fm.Links = []string{}
	}
	return fm, string(rest), nil
}

// Format renders front matter + body back into a Markdown file, omitting
// fields whose value is absent and never emitting the literal "undefined".
// Tags and links are always emitted, even when empty, to preserve the
// round-trip invariant over empty sequences.
func Format(fm FrontMatter, body string) (string, error) {
	out := fm
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Links == nil {
		out.Links = []string{}
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", vaulterr.Wrap(vaulterr.InvalidFrontMatter, "failed to serialize frontmatter", err)
	}
	var b strings.Builder
	b.WriteString(Delimiter)
	b.WriteByte('\n')
	b.Write(data)
	b.WriteString(Delimiter)
	b.WriteByte('\n')
	b.WriteString(body)
	return b.String(), nil
}

// Validate enforces the field constraints from the data model.
func Validate(fm FrontMatter) error {
	if !uidPattern.MatchString(fm.ID) {
		return vaulterr.New(vaulterr.InvalidUID, fmt.Sprintf("id %q does not match the uid shape", fm.ID)).
			WithMetadata(map[string]any{"id": fm.ID})
	}
	if len(strings.TrimSpace(fm.Title)) < 1 {
		return vaulterr.New(vaulterr.InvalidFrontMatter, "title must be at least 1 character")
	}
	if !fm.Category.valid() {
		return vaulterr.New(vaulterr.InvalidFrontMatter, fmt.Sprintf("category %q is not a recognized PARA category", fm.Category)).
			WithMetadata(map[string]any{"category": string(fm.Category)})
	}
	for _, tag := range fm.Tags {
		if strings.TrimSpace(tag) == "" {
			return vaulterr.New(vaulterr.InvalidFrontMatter, "tags must not contain empty strings")
		}
	}
	if fm.Project != "" && len(strings.TrimSpace(fm.Project)) < 1 {
		return vaulterr.New(vaulterr.InvalidFrontMatter, "project must be at least 1 character when present")
	}
	if fm.Updated.Before(fm.Created) {
		return vaulterr.New(vaulterr.InvalidFrontMatter, "updated must not precede created").
			WithMetadata(map[string]any{"created": fm.Created, "updated": fm.Updated})
	}
	return nil
}

// DefaultFill replaces missing/invalid fields with defaults, for use in
// non-strict load mode. The caller is expected to log a warning when this
// changes anything observable.
func DefaultFill(fm FrontMatter, fallbackID string, now time.Time) (FrontMatter, bool) {
	changed := false
	if !uidPattern.MatchString(fm.ID) {
		fm.ID = fallbackID
		changed = true
	}
	if strings.TrimSpace(fm.Title) == "" {
		fm.Title = "Untitled"
		changed = true
	}
	if !fm.Category.valid() {
		fm.Category = ""
		changed = true
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
		changed = true
	}
	if fm.Links == nil {
		fm.Links = []string{}
		changed = true
	}
	if fm.Created.IsZero() {
		fm.Created = now
		changed = true
	}
	if fm.Updated.IsZero() || fm.Updated.Before(fm.Created) {
		fm.Updated = fm.Created
		changed = true
	}
	return fm, changed
}

// Merge applies a set of field updates onto fm, returning the new value and
// the list of field names that changed. Only title, category, project, tags
// and links are read from updates; any other key is ignored.
func Merge(fm FrontMatter, updates map[string]any) (FrontMatter, []string) {
	var changed []string
	set := func(name string) { changed = append(changed, name) }

	if v, ok := updates["title"].(string); ok && v != fm.Title {
		fm.Title = v
		set("title")
	}
	if v, ok := updates["category"].(string); ok && Category(v) != fm.Category {
		fm.Category = Category(v)
		set("category")
	}
	if v, ok := updates["project"].(string); ok && v != fm.Project {
		fm.Project = v
		set("project")
	}
	if v, ok := updates["tags"].([]string); ok {
		if d := dedupe(v); !slices.Equal(d, fm.Tags) {
			fm.Tags = d
			set("tags")
		}
	}
	if v, ok := updates["links"].([]string); ok {
		if d := dedupe(v); !slices.Equal(d, fm.Links) {
			fm.Links = d
			set("links")
		}
	}
	return fm, changed
}

// dedupe removes duplicate entries while preserving first-occurrence order,
// matching the data model's "duplicates removed on write" rule for links.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
