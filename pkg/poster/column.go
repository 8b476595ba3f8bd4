package poster

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"feedbackposter/pkg/sheets"
)

// DefaultKeyword is the subject the survey asks about ("what did ethos do well?").
const DefaultKeyword = "ethos"

// Method records how the message column was chosen.
type Method string

const (
	MethodOverride Method = "override"
	MethodPattern  Method = "pattern"
	MethodFallback Method = "fallback"
)

// Resolution is the column that supplies post text for a run.
type Resolution struct {
	Column string
	Method Method
}

// reviewPatterns recognise "what went well" style headers about keyword,
// tested against normalised header text.
func reviewPatterns(keyword string) []*regexp.Regexp {
	k := regexp.QuoteMeta(normalize(keyword))
	exprs := []string{
		`\b` + k + `\b.*\b(did|does)\b.*\bwell\b`,
		`\bwhat\b.*\b` + k + `\b.*\bwell\b`,
		`\bwhat went well\b.*\b` + k + `\b`,
		`\bfeedback\b.*\b` + k + `\b.*\bwell\b`,
	}
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		patterns[i] = regexp.MustCompile(e)
	}
	return patterns
}

// normalize lower-cases s and collapses every whitespace run to one space.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ResolveColumn picks the message column: the override when present, else the
// first header matching a review pattern, else the column with the longest
// mean cell text (ties go to the earliest column). columns must be non-empty.
func ResolveColumn(columns []string, rows []sheets.Row, override, keyword string) Resolution {
	if override != "" {
		for _, col := range columns {
			if col == override {
				return Resolution{Column: col, Method: MethodOverride}
			}
		}
	}

	if keyword == "" {
		keyword = DefaultKeyword
	}
	patterns := reviewPatterns(keyword)
	for _, col := range columns {
		nc := normalize(col)
		for _, p := range patterns {
			if p.MatchString(nc) {
				return Resolution{Column: col, Method: MethodPattern}
			}
		}
	}

	return Resolution{Column: textiestColumn(columns, rows), Method: MethodFallback}
}

func textiestColumn(columns []string, rows []sheets.Row) string {
	best, bestMean := "", -1.0
	for _, col := range columns {
		m := meanLength(rows, col)
		if m > bestMean {
			best, bestMean = col, m
		}
	}
	return best
}

func meanLength(rows []sheets.Row, column string) float64 {
	if len(rows) == 0 {
		return 0
	}
	total := 0
	for _, r := range rows {
		total += utf8.RuneCountInString(r[column])
	}
	return float64(total) / float64(len(rows))
}
