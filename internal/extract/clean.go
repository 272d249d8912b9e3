package extract

import (
	"regexp"
	"strings"
)

var (
	pageNumberLine = regexp.MustCompile(`\n\s*\d+\s*\n`)
	pageXofY       = regexp.MustCompile(`(?i)Page\s+\d+\s+of\s+\d+`)
	newlineRuns    = regexp.MustCompile(`\n+`)
	whitespaceRuns = regexp.MustCompile(`\s{2,}`)
)

// Clean strips isolated page-number lines and "Page X of Y" footers,
// then collapses newline runs and any run of two or more whitespace
// characters to a single space.
func Clean(text string) string {
	text = pageNumberLine.ReplaceAllString(text, "\n")
	text = pageXofY.ReplaceAllString(text, "")
	text = newlineRuns.ReplaceAllString(text, "\n")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
