package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

func TestHNSWIndex_InsertAndKNN(t *testing.T) {
	// Given: an index with a=[1,0,0,0], b=[0,1,0,0], c=[0.9,0.1,0,0]
	idx := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, idx.Init(4, 10))
	require.NoError(t, idx.Insert(0, []float32{1, 0, 0, 0}))
	require.NoError(t, idx.Insert(1, []float32{0, 1, 0, 0}))
	require.NoError(t, idx.Insert(2, []float32{0.9, 0.1, 0, 0}))

	// When: searching [1,0,0,0] with k=2
	got, err := idx.KNN([]float32{1, 0, 0, 0}, 2)

	// Then: a then c
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(0), got[0].ID)
	assert.Equal(t, uint64(2), got[1].ID)
	assert.InDelta(t, 0, got[0].Distance, 1e-5)
}

func TestHNSWIndex_CosineIgnoresMagnitude(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Metric: MetricCosine})
	require.NoError(t, idx.Init(2, 4))
	require.NoError(t, idx.Insert(0, []float32{10, 0}))

	got, err := idx.KNN([]float32{0.5, 0}, 1)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
}

func TestHNSWIndex_OppositeVectorsHaveDistanceTwo(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, idx.Init(2, 4))
	require.NoError(t, idx.Insert(0, []float32{-1, 0}))

	got, err := idx.KNN([]float32{1, 0}, 1)

	require.NoError(t, err)
	assert.InDelta(t, 2, got[0].Distance, 1e-5)
}

func TestHNSWIndex_Capacity(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, idx.Init(2, 1))
	require.NoError(t, idx.Insert(0, []float32{1, 0}))

	// Full index refuses inserts
	err := idx.Insert(1, []float32{0, 1})
	assert.Equal(t, docerrors.ErrCodeCapacityExceeded, docerrors.GetCode(err))

	// Resize grows, never shrinks
	require.NoError(t, idx.Resize(3))
	require.NoError(t, idx.Insert(1, []float32{0, 1}))
	assert.Error(t, idx.Resize(2))
	assert.Equal(t, 3, idx.Capacity())
	assert.Equal(t, 2, idx.Count())
}

func TestHNSWIndex_RejectsDuplicateIDAndWrongWidth(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, idx.Init(2, 4))
	require.NoError(t, idx.Insert(0, []float32{1, 0}))

	assert.Error(t, idx.Insert(0, []float32{0, 1}))
	assert.True(t, errors.Is(idx.Insert(1, []float32{1, 0, 0}), docerrors.ErrDimensionMismatch))
	assert.Equal(t, 1, idx.Count())
}

func TestHNSWIndex_Uninitialized(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})

	_, err := idx.KNN([]float32{1}, 1)
	assert.True(t, errors.Is(err, docerrors.ErrNotInitialized))
	assert.True(t, errors.Is(idx.Insert(0, []float32{1}), docerrors.ErrNotInitialized))
	assert.Equal(t, 0, idx.Count())
}

func TestHNSWIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFileName)

	idx := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, idx.Init(3, 50))
	for i := 0; i < 20; i++ {
		require.NoError(t, idx.Insert(uint64(i), []float32{float32(i), 1, float32(20 - i)}))
	}
	require.NoError(t, idx.Save(path))

	loaded := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 3, loaded.Dimensions())
	assert.Equal(t, 50, loaded.Capacity())
	assert.Equal(t, 20, loaded.Count())

	want, err := idx.KNN([]float32{5, 1, 15}, 1)
	require.NoError(t, err)
	got, err := loaded.KNN([]float32{5, 1, 15}, 1)
	require.NoError(t, err)
	assert.Equal(t, want[0].ID, got[0].ID)
}

func TestHNSWIndex_SaveLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFileName)
	idx := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, idx.Init(8, 2))
	require.NoError(t, idx.Save(path))

	loaded := NewHNSWIndex(HNSWConfig{})
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 8, loaded.Dimensions())
	assert.Equal(t, 0, loaded.Count())
	got, err := loaded.KNN(make([]float32, 8), 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
