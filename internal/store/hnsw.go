package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// Metric names accepted by HNSWConfig.
const (
	MetricCosine = "cosine"
	MetricL2     = "l2"
)

// indexMagic prefixes the index blob: "DSIX".
const (
	indexMagic   uint32 = 0x58495344
	indexVersion uint32 = 1
)

// HNSWConfig configures the coder/hnsw graph.
type HNSWConfig struct {
	Metric   string
	M        int
	EfSearch int
	Ml       float64
}

// DefaultHNSWConfig returns coder/hnsw's recommended parameters with cosine distance.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{
		Metric:   MetricCosine,
		M:        16,
		EfSearch: 20,
		Ml:       0.25,
	}
}

// HNSWIndex implements VectorIndex on top of coder/hnsw.
// The graph itself is unbounded, so capacity is tracked here and enforced
// on Insert. Not safe for concurrent use; the engine serializes access.
type HNSWIndex struct {
	cfg      HNSWConfig
	graph    *hnsw.Graph[uint64]
	dims     int
	capacity int
}

// NewHNSWIndex returns an uninitialized index. Call Init or Load before use.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	def := DefaultHNSWConfig()
	if cfg.Metric == "" {
		cfg.Metric = def.Metric
	}
	if cfg.M == 0 {
		cfg.M = def.M
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = def.EfSearch
	}
	if cfg.Ml == 0 {
		cfg.Ml = def.Ml
	}
	return &HNSWIndex{cfg: cfg}
}

func (x *HNSWIndex) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	switch x.cfg.Metric {
	case MetricL2:
		g.Distance = hnsw.EuclideanDistance
	default:
		g.Distance = hnsw.CosineDistance
	}
	g.M = x.cfg.M
	g.EfSearch = x.cfg.EfSearch
	g.Ml = x.cfg.Ml
	return g
}

// Init implements VectorIndex.
func (x *HNSWIndex) Init(dimensions, capacity int) error {
	if dimensions <= 0 {
		return docerrors.ConfigError(fmt.Sprintf("dimension must be positive, got %d", dimensions), nil)
	}
	if capacity <= 0 {
		return docerrors.ConfigError(fmt.Sprintf("capacity must be positive, got %d", capacity), nil)
	}
	x.graph = x.newGraph()
	x.dims = dimensions
	x.capacity = capacity
	return nil
}

// Resize implements VectorIndex.
func (x *HNSWIndex) Resize(capacity int) error {
	if x.graph == nil {
		return docerrors.NotInitializedError("resize")
	}
	if capacity < x.capacity {
		return docerrors.ValidationError(
			fmt.Sprintf("capacity cannot shrink from %d to %d", x.capacity, capacity), nil)
	}
	x.capacity = capacity
	return nil
}

// Insert implements VectorIndex.
func (x *HNSWIndex) Insert(id uint64, vec []float32) error {
	if x.graph == nil {
		return docerrors.NotInitializedError("insert")
	}
	if len(vec) != x.dims {
		return docerrors.DimensionMismatchError(x.dims, len(vec))
	}
	if x.graph.Len() >= x.capacity {
		return docerrors.New(docerrors.ErrCodeCapacityExceeded,
			fmt.Sprintf("index is full (capacity %d)", x.capacity), nil)
	}
	if _, exists := x.graph.Lookup(id); exists {
		return docerrors.ValidationError(fmt.Sprintf("id %d already inserted", id), nil)
	}

	x.graph.Add(hnsw.MakeNode(id, x.prepare(vec)))
	return nil
}

// KNN implements VectorIndex.
func (x *HNSWIndex) KNN(query []float32, k int) ([]Neighbor, error) {
	if x.graph == nil {
		return nil, docerrors.NotInitializedError("search")
	}
	if len(query) != x.dims {
		return nil, docerrors.DimensionMismatchError(x.dims, len(query))
	}
	if k <= 0 || x.graph.Len() == 0 {
		return []Neighbor{}, nil
	}

	q := x.prepare(query)
	nodes := x.graph.Search(q, k)

	out := make([]Neighbor, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, Neighbor{
			ID:       node.Key,
			Distance: x.graph.Distance(q, node.Value),
		})
	}
	sortNeighbors(out)
	return out, nil
}

// prepare copies vec, normalizing it for cosine so stored nodes are unit length.
func (x *HNSWIndex) prepare(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	if x.cfg.Metric != MetricL2 {
		normalizeVectorInPlace(out)
	}
	return out
}

// Dimensions implements VectorIndex.
func (x *HNSWIndex) Dimensions() int { return x.dims }

// Capacity implements VectorIndex.
func (x *HNSWIndex) Capacity() int { return x.capacity }

// Count implements VectorIndex.
func (x *HNSWIndex) Count() int {
	if x.graph == nil {
		return 0
	}
	return x.graph.Len()
}

// Save writes the index blob: a fixed header followed by the graph export.
// The write goes to a temp file that is renamed into place.
func (x *HNSWIndex) Save(path string) error {
	if x.graph == nil {
		return docerrors.NotInitializedError("save")
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		hdr := []uint32{indexMagic, indexVersion, uint32(x.dims), uint32(x.capacity), uint32(x.graph.Len())}
		if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
			return fmt.Errorf("write index header: %w", err)
		}
		if x.graph.Len() == 0 {
			return nil
		}
		if err := x.graph.Export(w); err != nil {
			return fmt.Errorf("export graph: %w", err)
		}
		return nil
	})
}

// Load replaces the index with the blob at path.
func (x *HNSWIndex) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// coder/hnsw Import needs an io.ByteReader
	reader := bufio.NewReader(file)

	var hdr [5]uint32
	if err := binary.Read(reader, binary.LittleEndian, &hdr); err != nil {
		return docerrors.CorruptStateError("index header unreadable", err)
	}
	if hdr[0] != indexMagic {
		return docerrors.CorruptStateError("index file has wrong magic", nil)
	}
	if hdr[1] != indexVersion {
		return docerrors.CorruptStateError(fmt.Sprintf("unsupported index version %d", hdr[1]), nil)
	}
	dims, capacity, count := int(hdr[2]), int(hdr[3]), int(hdr[4])

	graph := x.newGraph()
	if count > 0 {
		if err := graph.Import(reader); err != nil {
			return docerrors.CorruptStateError("index graph unreadable", err)
		}
	}
	if graph.Len() != count {
		return docerrors.CorruptStateError(
			fmt.Sprintf("index header says %d vectors, graph has %d", count, graph.Len()), nil)
	}
	if dims <= 0 || capacity < count {
		return docerrors.CorruptStateError(
			fmt.Sprintf("index header invalid (dims %d, capacity %d, count %d)", dims, capacity, count), nil)
	}

	x.graph = graph
	x.dims = dims
	x.capacity = capacity
	return nil
}

var _ VectorIndex = (*HNSWIndex)(nil)

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// writeFileAtomic writes path via a sibling temp file and rename.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// errShortRead marks a file that ends before its declared contents.
var errShortRead = errors.New("unexpected end of file")
