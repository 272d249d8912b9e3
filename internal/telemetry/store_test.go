package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "telemetry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_EmptySummary(t *testing.T) {
	s := setupTestStore(t)

	sum, err := s.Summary(context.Background(), 5)
	require.NoError(t, err)

	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.ZeroResultPercentage())
	assert.Empty(t, sum.TopQueries)
	assert.True(t, sum.Since.IsZero())
}

func TestStore_RecordAndSummarize(t *testing.T) {
	// Given: a handful of recorded queries
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	events := []QueryEvent{
		{Query: "Invoice terms", K: 5, ResultCount: 5, Latency: 5 * time.Millisecond, Timestamp: base},
		{Query: "invoice terms ", K: 5, ResultCount: 3, Latency: 30 * time.Millisecond, Timestamp: base.Add(time.Minute)},
		{Query: "holiday policy", K: 3, ResultCount: 0, Latency: 700 * time.Millisecond, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		require.NoError(t, s.Record(ctx, ev))
	}

	// When: summarizing
	sum, err := s.Summary(ctx, 5)
	require.NoError(t, err)

	// Then: totals, rankings and histogram reflect the log
	assert.Equal(t, int64(3), sum.Total)
	assert.Equal(t, int64(1), sum.ZeroResult)
	assert.InDelta(t, 245.0, sum.AvgLatencyMs, 0.01)
	assert.InDelta(t, 33.33, sum.ZeroResultPercentage(), 0.01)
	assert.True(t, sum.Since.Equal(base))

	require.NotEmpty(t, sum.TopQueries)
	assert.Equal(t, QueryCount{Query: "invoice terms", Count: 2}, sum.TopQueries[0])

	require.NotEmpty(t, sum.TopTerms)
	assert.Equal(t, int64(2), sum.TopTerms[0].Count)
	assert.Contains(t, []string{"invoice", "terms"}, sum.TopTerms[0].Term)

	assert.Equal(t, []string{"holiday policy"}, sum.RecentZeroResults)
	assert.Equal(t, int64(1), sum.Latency[BucketP10])
	assert.Equal(t, int64(1), sum.Latency[BucketP50])
	assert.Equal(t, int64(1), sum.Latency[BucketP1000])
}

func TestStore_ExplicitIDMustBeUnique(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, QueryEvent{ID: "fixed", Query: "a"}))
	assert.Error(t, s.Record(ctx, QueryEvent{ID: "fixed", Query: "b"}))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, QueryEvent{Query: "persisted", ResultCount: 1}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	sum, err := s.Summary(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.Total)
}
