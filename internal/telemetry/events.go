// Package telemetry records search queries in a local SQLite database and
// summarizes them for `docsearch stats`. Recording failures are logged by
// callers and never fail a search.
package telemetry

import (
	"context"
	"strings"
	"time"
)

// QueryEvent is one executed search.
type QueryEvent struct {
	ID          string // uuid; assigned on insert when empty
	Query       string
	K           int
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// Recorder persists query events.
type Recorder interface {
	Record(ctx context.Context, ev QueryEvent) error
}

// NopRecorder discards events. Used when telemetry is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, QueryEvent) error { return nil }

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// AllBuckets lists the buckets in ascending order.
var AllBuckets = []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}

// LatencyToBucket converts a duration in milliseconds to its histogram bucket.
func LatencyToBucket(ms int64) LatencyBucket {
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// ExtractTerms lowercases the query and keeps words of three or more characters.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len([]rune(w)) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a query term and its frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// QueryCount is a normalized query and how often it was run.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Summary aggregates the query log.
type Summary struct {
	Total             int64                   `json:"total_queries"`
	ZeroResult        int64                   `json:"zero_result_queries"`
	AvgLatencyMs      float64                 `json:"avg_latency_ms"`
	TopQueries        []QueryCount            `json:"top_queries"`
	TopTerms          []TermCount             `json:"top_terms"`
	RecentZeroResults []string                `json:"recent_zero_results"`
	Latency           map[LatencyBucket]int64 `json:"latency_distribution"`
	Since             time.Time               `json:"since,omitempty"`
}

// ZeroResultPercentage returns the zero-result share as a percentage.
func (s *Summary) ZeroResultPercentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ZeroResult) / float64(s.Total) * 100
}
