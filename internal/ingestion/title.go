package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Title length bounds applied to paper titles and short titles.
const (
	TitleMaxLen      = 200
	TitleMinLen      = 20
	ShortTitleMaxLen = 50
	ShortTitleMinLen = 10

	// referenceFieldMaxLen bounds the free-text fields of a citation edge.
	referenceFieldMaxLen = 128
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)

	// Splitters are tried in order: punctuation, numbers, then prepositions.
	titleSplitters = []*regexp.Regexp{
		regexp.MustCompile(`[.:(-] `),
		regexp.MustCompile(`[1-9]+`),
		regexp.MustCompile(`(?i) (?:in|by|on|for|to|from|when|after) `),
	}
)

// TruncateTitle shortens title to fewer than maxLen characters, preferring a
// natural break (a clause before punctuation, a number or a preposition)
// longer than minLen. When no break fits, the title is cut to maxLen-3
// characters and "..." is appended.
func TruncateTitle(title string, maxLen, minLen int) string {
	title = whitespacePattern.ReplaceAllString(title, " ")
	if runeLen(title) < maxLen {
		return title
	}

	for _, splitter := range titleSplitters {
		seps := splitter.FindAllStringIndex(title, -1)
		if len(seps) == 0 {
			continue
		}

		first := title[:seps[0][0]]
		firstLen := runeLen(first)

		if firstLen > minLen && firstLen < maxLen {
			return first
		}

		if firstLen < minLen {
			// Title through the end of the second segment.
			if len(seps) > 1 {
				joined := title[:seps[1][0]]
				if n := runeLen(joined); n > minLen && n < maxLen {
					return joined
				}
			}
		} else if firstLen > maxLen {
			title = first
		}
	}

	return truncateRunes(title, maxLen-3) + "..."
}

// clip cuts s to at most n characters without adding an ellipsis.
func clip(s string, n int) string {
	return truncateRunes(strings.TrimSpace(s), n)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if runeLen(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
