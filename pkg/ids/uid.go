// Package ids mints note identifiers and derives filesystem-safe filenames
// and vault-relative paths from them. It mirrors the string-constant,
// single-purpose-file style of the teacher's pkg/obsidian helpers, adapted
// to the note UID scheme instead of Obsidian URI construction.
package ids

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// Pattern matches a valid UID: YYYYMMDD'T'HHMMSSMMMCCC'Z'.
var Pattern = regexp.MustCompile(`^\d{8}T\d{12}Z$`)

// counter is a process-local tiebreaker incremented on every mint, wrapped
// modulo 1000 so it can be encoded alongside the millisecond in three digits.
var counter uint64

// Clock is overridable in tests so minting is deterministic.
var Clock = time.Now

// NewUID mints a UID from the wall clock plus a process-local counter. The
// counter guarantees uniqueness within a millisecond even under a tight
// creation loop.
func NewUID() string {
	now := Clock().UTC()
	n := atomic.AddUint64(&counter, 1) % 1000
	return fmt.Sprintf("%sT%02d%02d%02d%03d%03dZ",
		now.Format("20060102"),
		now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1_000_000,
		n,
	)
}

// Valid reports whether s matches the UID shape.
func Valid(s string) bool {
	return Pattern.MatchString(s)
}

const maxTitleRunes = 50

var sanitizeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var whitespaceRun = regexp.MustCompile(`\s+`)
var dashRun = regexp.MustCompile(`-+`)

// SanitizeTitle lowercases title, replaces forbidden characters and
// whitespace runs with a single dash, collapses consecutive dashes, and
// trims leading/trailing dashes. The result is truncated to 50 runes before
// the trimming pass so a dash introduced at the truncation boundary is
// still cleaned up.
func SanitizeTitle(title string) string {
	lower := strings.ToLower(title)
	replaced := sanitizeChars.ReplaceAllString(lower, "-")
	replaced = whitespaceRun.ReplaceAllString(replaced, "-")
	replaced = dashRun.ReplaceAllString(replaced, "-")
	replaced = strings.Trim(replaced, "-")

	runes := []rune(replaced)
	if len(runes) > maxTitleRunes {
		runes = runes[:maxTitleRunes]
	}
	truncated := string(runes)
	truncated = dashRun.ReplaceAllString(truncated, "-")
	return strings.Trim(truncated, "-")
}

// Filename builds the "{sanitized-title}-{uid}.md" filename for a note.
func Filename(title, uid string) string {
	sanitized := SanitizeTitle(title)
	if sanitized == "" {
		sanitized = "untitled"
	}
	return fmt.Sprintf("%s-%s.md", sanitized, uid)
}
