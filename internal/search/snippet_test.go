package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnippet(t *testing.T) {
	long := strings.Repeat("lorem ", 40) + "the prepayment clause applies " + strings.Repeat("ipsum ", 40)

	tests := []struct {
		name     string
		text     string
		query    string
		maxChars int
		check    func(t *testing.T, got string)
	}{
		{
			name: "short text returned whole", text: "Payment is due in 30 days.", query: "payment", maxChars: 300,
			check: func(t *testing.T, got string) { assert.Equal(t, "Payment is due in 30 days.", got) },
		},
		{
			name: "window centred on word containing term", text: long, query: "PAY", maxChars: 40,
			check: func(t *testing.T, got string) {
				assert.Contains(t, got, "prepayment")
				assert.False(t, strings.HasPrefix(got, " "), "starts on a word")
				assert.LessOrEqual(t, len([]rune(got)), 40+len("prepayment")+12)
			},
		},
		{
			name: "first matching query word wins", text: "alpha beta gamma", query: "zeta gamma beta", maxChars: 4,
			check: func(t *testing.T, got string) { assert.Contains(t, got, "gamma") },
		},
		{
			name: "no match gives prefix", text: "abcdefghij", query: "xyz", maxChars: 4,
			check: func(t *testing.T, got string) { assert.Equal(t, "abcd", got) },
		},
		{
			name: "multibyte text is not split", text: "été à Paris, réunion budgétaire importante", query: "réunion", maxChars: 10,
			check: func(t *testing.T, got string) { assert.Contains(t, got, "réunion") },
		},
		{
			name: "zero max", text: "abc", query: "abc", maxChars: 0,
			check: func(t *testing.T, got string) { assert.Empty(t, got) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Snippet(tt.text, tt.query, tt.maxChars))
		})
	}
}

func TestCalculateHighlights(t *testing.T) {
	got := calculateHighlights("Pay the payment", "pay payment")
	assert.Equal(t, []Range{{Start: 0, End: 3}, {Start: 8, End: 15}}, got)

	assert.Nil(t, calculateHighlights("text", "  "))
}

func TestCalculateHighlights_OffsetsFollowOriginalRunes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		query   string
		want    []Range
	}{
		{"dotted capital I before the match", "İİ report", "report", []Range{{Start: 3, End: 9}}},
		{"non-ascii case folding", "ÜBER über", "über", []Range{{Start: 0, End: 4}, {Start: 5, End: 9}}},
		{"match after expanding rune", "İstanbul sales report", "sales", []Range{{Start: 9, End: 14}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateHighlights(tt.content, tt.query)

			require.Equal(t, tt.want, got)
			runes := []rune(tt.content)
			for _, r := range got {
				assert.True(t, strings.EqualFold(tt.query, string(runes[r.Start:r.End])),
					"range %v covers %q", r, string(runes[r.Start:r.End]))
			}
		})
	}
}
