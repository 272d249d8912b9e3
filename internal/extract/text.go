package extract

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"
)

// TextExtractor reads plain text and Markdown files.
// Invalid UTF-8 sequences are replaced with U+FFFD.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

func (TextExtractor) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ReadFailureError(path, "cannot read file", err)
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.TrimPrefix(text, "\uFEFF")
	return strings.TrimSpace(text), nil
}
