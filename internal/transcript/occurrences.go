package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ComputeOccurrences scans every segment's text for case-insensitive
// whole-word matches of every term (preferring the literal term text, falling
// back to aliases) and emits one occurrence per match with character offsets.
// The scan is redone in full on every merge; occurrences have no independent
// source of truth.
func ComputeOccurrences(terms []Term, segments []Segment) []TermOccurrence {
	var occurrences []TermOccurrence
	for _, term := range terms {
		needles := termNeedles(term)
		if len(needles) == 0 {
			continue
		}
		for _, segment := range segments {
			for _, needle := range needles {
				occurrences = append(occurrences, scanSegment(term.ID, segment, needle)...)
			}
		}
	}
	return occurrences
}

func termNeedles(term Term) []string {
	if display := strings.TrimSpace(term.Display); display != "" {
		return []string{display}
	}
	for _, alias := range term.Aliases {
		if trimmed := strings.TrimSpace(alias); trimmed != "" {
			return []string{trimmed}
		}
	}
	return nil
}

func scanSegment(termID string, segment Segment, needle string) []TermOccurrence {
	haystack := strings.ToLower(segment.Text)
	lowered := strings.ToLower(needle)
	if lowered == "" {
		return nil
	}

	var out []TermOccurrence
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], lowered)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(lowered)
		// Lowercasing can shift byte offsets for a handful of unicode
		// characters; drop matches that no longer fit the original text.
		if end <= len(segment.Text) && wholeWord(haystack, start, end) {
			out = append(out, TermOccurrence{
				TermID:       termID,
				SegmentIndex: segment.Index,
				StartChar:    start,
				EndChar:      end,
			})
		}
		offset = start + 1
	}
	return out
}

// wholeWord reports whether [start, end) is bounded by non-word runes.
func wholeWord(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
