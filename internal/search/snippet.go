package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var queryWord = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// queryTerms returns the lowercase words of query in order.
func queryTerms(query string) []string {
	return queryWord.FindAllString(strings.ToLower(query), -1)
}

// termPattern matches the whole word containing term, case-insensitively.
func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)[\p{L}\p{N}_]*` + regexp.QuoteMeta(term) + `[\p{L}\p{N}_]*`)
}

// Snippet returns about maxChars runes of text centred on the first query
// word found in it, widened so no word is cut. Words are tried in query
// order. With no match it returns the first maxChars runes.
func Snippet(text, query string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(text)

	for _, term := range queryTerms(query) {
		loc := termPattern(term).FindStringIndex(text)
		if loc == nil {
			continue
		}
		matchStart := utf8.RuneCountInString(text[:loc[0]])
		matchEnd := matchStart + utf8.RuneCountInString(text[loc[0]:loc[1]])

		start := max(0, matchStart-maxChars/2)
		end := min(len(runes), matchEnd+maxChars/2)

		if start > 0 {
			start = lastSpaceBefore(runes, start) + 1
		}
		if end < len(runes) {
			end = nextSpaceFrom(runes, end)
		}
		return string(runes[start:end])
	}

	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

// lastSpaceBefore returns the index of the last space in runes[:limit], or -1.
func lastSpaceBefore(runes []rune, limit int) int {
	for i := limit - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// nextSpaceFrom returns the index of the first space at or after from,
// or len(runes).
func nextSpaceFrom(runes []rune, from int) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == ' ' {
			return i
		}
	}
	return len(runes)
}

// calculateHighlights returns the rune ranges of content matching any
// query term, sorted and non-overlapping. Offsets count runes of content
// itself, since case folding can change the rune count.
func calculateHighlights(content, query string) []Range {
	terms := queryTerms(query)
	if len(terms) == 0 || content == "" {
		return nil
	}

	var ranges []Range
	for _, term := range terms {
		pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term))
		for _, loc := range pattern.FindAllStringIndex(content, -1) {
			start := utf8.RuneCountInString(content[:loc[0]])
			ranges = append(ranges, Range{
				Start: start,
				End:   start + utf8.RuneCountInString(content[loc[0]:loc[1]]),
			})
		}
	}
	return mergeRanges(ranges)
}

func mergeRanges(ranges []Range) []Range {
	if len(ranges) < 2 {
		return ranges
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	merged := []Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			last.End = max(last.End, r.End)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
