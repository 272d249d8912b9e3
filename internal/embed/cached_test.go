package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_EmbedHitsCache(t *testing.T) {
	// Given: a cached embedder over a counting mock
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)
	defer func() { _ = cached.Close() }()
	ctx := context.Background()

	// When: the same text is embedded twice
	first, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "hello")
	require.NoError(t, err)

	// Then: the inner embedder is called once
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.embedCalls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedder_EmbedBatchOnlyMisses(t *testing.T) {
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "a")
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []int{2}, inner.batchSizes)
	assert.Equal(t, inner.vectorFor("bb"), results[1])
	assert.Equal(t, 3, cached.Len())
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 10)

	results, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), inner.batchCalls.Load())
}

func TestCachedEmbedder_Eviction(t *testing.T) {
	inner := newMockEmbedder(8)
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := cached.Embed(ctx, text)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())

	// "one" was evicted
	_, err := cached.Embed(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, int64(4), inner.embedCalls.Load())
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := newMockEmbedder(12)
	cached := NewCachedEmbedder(inner, 0)

	assert.Equal(t, 12, cached.Dimensions())
	assert.Equal(t, "mock-model", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())
}
