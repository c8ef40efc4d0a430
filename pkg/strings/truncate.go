// Package strings provides rune-safe string helpers shared by the tool layer
// and the CLI formatters.
package strings

import (
	"strings"
)

// DefaultDescriptionMaxLen is the default maximum length for free-form text
// in formatted output, such as titles in CLI table cells.
const DefaultDescriptionMaxLen = 60

// MinTruncateLen is the minimum maxLen value for TruncateDescription. Values
// smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// TruncateDescription collapses a string to a single line of at most maxLen
// characters, appending "..." when it had to cut. Newlines, tabs and runs of
// whitespace become single spaces. Truncation operates on runes, never in the
// middle of a multi-byte character. maxLen values below MinTruncateLen are
// clamped to MinTruncateLen.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	// Fields splits on any whitespace run, so one Join normalizes newlines,
	// tabs and repeated spaces at once.
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// Length returns the number of characters (runes) in s. Task summary limits
// are expressed in characters, so byte length is the wrong measure for
// non-ASCII text.
func Length(s string) int {
	count := 0
	for range s {
		count++
	}
	return count
}
