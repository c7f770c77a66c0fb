package export

import (
	"regexp"
	"strings"
)

// DefaultBaseName is used when a title sanitizes down to nothing.
const DefaultBaseName = "collage"

var unsafeRuns = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// SafeBaseName derives a filesystem-safe base name from a collage title:
// whitespace trimmed, every run of characters outside [A-Za-z0-9_-] collapsed
// to a single underscore, and stray edge underscores dropped.
func SafeBaseName(title string) string {
	base := unsafeRuns.ReplaceAllString(strings.TrimSpace(title), "_")
	base = strings.Trim(base, "_")
	if base == "" {
		return DefaultBaseName
	}
	return base
}
