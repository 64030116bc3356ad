package dedup

import (
	"regexp"
	"strings"
)

// leadingMarker matches list decorations commonly carried into requirement
// text: bullets, dashes, and "1." / "(a)" style numbering.
var leadingMarker = regexp.MustCompile(`^\s*(?:[-*•‣▪]+|\(?[0-9ivxlc]+[.)]|\(?[a-z][.)])\s+`)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize folds a requirement's text into the canonical form used for
// embedding comparison: lower-cased, list markers stripped, whitespace
// collapsed.
func Normalize(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for {
		stripped := leadingMarker.ReplaceAllString(normalized, "")
		if stripped == normalized {
			break
		}
		normalized = stripped
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(normalized, " "))
}
