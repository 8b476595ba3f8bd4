package poster

import (
	"feedbackposter/pkg/sheets"
)

const (
	// MaxPostLength keeps posts under Bluesky's 300 grapheme limit.
	MaxPostLength = 290
	// Anonymous stands in for a blank name.
	Anonymous = "Anonymous"
)

// FormatPost renders a row as "<message>\n— <name>[ • <timestamp>]", cut to
// MaxPostLength runes. It returns "" when the message cell is blank.
func FormatPost(row sheets.Row, column, nameColumn, timestampColumn string) string {
	review := row.Get(column)
	if review == "" {
		return ""
	}
	name := row.Get(nameColumn)
	if name == "" {
		name = Anonymous
	}

	text := review + "\n— " + name
	if ts := row.Get(timestampColumn); ts != "" {
		text += " • " + ts
	}
	return truncate(text, MaxPostLength)
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
