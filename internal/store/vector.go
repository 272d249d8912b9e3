package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/coder/hnsw"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// ValidateVector rejects vectors that have no direction or hold NaN or
// infinite components. Such vectors have no defined cosine distance.
func ValidateVector(vec []float32) error {
	var sumSquares float64
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return docerrors.ValidationError(
				fmt.Sprintf("embedding component %d is not finite", i), nil)
		}
		sumSquares += f * f
	}
	if sumSquares == 0 || math.IsInf(sumSquares, 0) {
		return docerrors.ValidationError("embedding has zero magnitude", nil).
			WithSuggestion("the text carries no searchable words")
	}
	return nil
}

// distanceLess orders distances ascending with NaN last.
func distanceLess(a, b float32) bool {
	if math.IsNaN(float64(a)) {
		return false
	}
	return math.IsNaN(float64(b)) || a < b
}

func sortNeighbors(out []Neighbor) {
	sort.SliceStable(out, func(i, j int) bool {
		return distanceLess(out[i].Distance, out[j].Distance)
	})
}

// exactNeighbors ranks every row against query by brute force and keeps
// the k closest. Rows are compared the way the HNSW graph compares them.
func exactNeighbors(metric string, rows [][]float32, query []float32, k int) []Neighbor {
	distance := hnsw.CosineDistance
	prepare := func(v []float32) []float32 {
		out := make([]float32, len(v))
		copy(out, v)
		normalizeVectorInPlace(out)
		return out
	}
	if metric == MetricL2 {
		distance = hnsw.EuclideanDistance
		prepare = func(v []float32) []float32 { return v }
	}

	q := prepare(query)
	out := make([]Neighbor, len(rows))
	for id, row := range rows {
		out[id] = Neighbor{ID: uint64(id), Distance: distance(q, prepare(row))}
	}
	sortNeighbors(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}
