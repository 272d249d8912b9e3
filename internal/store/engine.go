package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// Fixed artifact names under the data directory.
const (
	IndexFileName      = "hnsw_index.bin"
	EmbeddingsFileName = "embeddings.bin"
	DocumentsFileName  = "documents.bin"
)

// EngineConfig configures a VectorSearchEngine.
type EngineConfig struct {
	// DataDir holds the three persisted artifacts.
	DataDir string
	// InitialCapacity is used by LoadOrCreate when nothing is persisted.
	InitialCapacity int
	// GrowthMargin is the slack added when an insert outgrows capacity.
	GrowthMargin int
	// HNSW configures the default index implementation.
	HNSW HNSWConfig
	// PersistRetry bounds retries around save I/O.
	PersistRetry docerrors.RetryConfig
}

// DefaultEngineConfig returns defaults for dataDir.
func DefaultEngineConfig(dataDir string) EngineConfig {
	return EngineConfig{
		DataDir:         dataDir,
		InitialCapacity: 100000,
		GrowthMargin:    10000,
		HNSW:            DefaultHNSWConfig(),
		PersistRetry:    docerrors.PersistRetryConfig(),
	}
}

// EngineOption customizes a VectorSearchEngine.
type EngineOption func(*VectorSearchEngine)

// WithIndexFactory substitutes the ANN implementation.
func WithIndexFactory(factory func() VectorIndex) EngineOption {
	return func(e *VectorSearchEngine) {
		e.newIndex = factory
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *VectorSearchEngine) {
		e.logger = logger
	}
}

// VectorSearchEngine keeps the ANN index, the document list and the raw
// embeddings matrix aligned by id, and persists them as one unit.
//
// AddDocuments runs under the writer lock; Search and the accessors take
// the read lock, so readers see the state either before or after an add.
//
// Writes also hold the data directory lock. Before writing, the engine
// folds in whatever another process appended since this engine last loaded
// or saved, so two processes sharing a directory never drop each other's
// documents.
type VectorSearchEngine struct {
	cfg      EngineConfig
	newIndex func() VectorIndex
	logger   *slog.Logger
	dirLock  *DirLock

	mu          sync.RWMutex
	index       VectorIndex
	documents   []Document
	embeddings  [][]float32
	initialized bool
	dirty       bool
	// persisted is the document count on disk as of the last load or save.
	persisted int
}

// NewVectorSearchEngine creates an engine. It holds no index until
// Initialize or LoadOrCreate is called.
func NewVectorSearchEngine(cfg EngineConfig, opts ...EngineOption) *VectorSearchEngine {
	def := DefaultEngineConfig(cfg.DataDir)
	if cfg.InitialCapacity == 0 {
		cfg.InitialCapacity = def.InitialCapacity
	}
	if cfg.PersistRetry.Multiplier == 0 {
		cfg.PersistRetry = def.PersistRetry
	}

	e := &VectorSearchEngine{
		cfg:    cfg,
		logger: slog.Default(),
	}
	e.newIndex = func() VectorIndex { return NewHNSWIndex(e.cfg.HNSW) }
	for _, opt := range opts {
		opt(e)
	}
	if cfg.DataDir != "" {
		e.dirLock = NewDirLock(cfg.DataDir)
	}
	return e
}

// Paths returns the index, embeddings and documents file paths.
func (e *VectorSearchEngine) Paths() (index, embeddings, documents string) {
	return filepath.Join(e.cfg.DataDir, IndexFileName),
		filepath.Join(e.cfg.DataDir, EmbeddingsFileName),
		filepath.Join(e.cfg.DataDir, DocumentsFileName)
}

// Initialize creates an empty index of the given width and capacity,
// discarding any in-memory state.
func (e *VectorSearchEngine) Initialize(dimensions, capacity int) error {
	if dimensions <= 0 {
		return docerrors.ConfigError(fmt.Sprintf("dimension must be positive, got %d", dimensions), nil)
	}
	if capacity <= 0 {
		return docerrors.ConfigError(fmt.Sprintf("capacity must be positive, got %d", capacity), nil)
	}

	idx := e.newIndex()
	if err := idx.Init(dimensions, capacity); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = idx
	e.documents = nil
	e.embeddings = nil
	e.initialized = true
	e.dirty = false
	e.persisted = 0
	return nil
}

// LoadOrCreate restores persisted state when all three artifacts exist,
// otherwise initializes an empty index with the configured initial capacity.
// dimensions is the embedder width; 0 accepts whatever was persisted.
// Returns true when state was loaded.
func (e *VectorSearchEngine) LoadOrCreate(ctx context.Context, dimensions int) (bool, error) {
	start := time.Now()
	err := e.Load(ctx)
	switch {
	case err == nil:
		if dimensions > 0 && dimensions != e.Dimensions() {
			return true, docerrors.DimensionMismatchError(e.Dimensions(), dimensions).
				WithSuggestion("the index was built with a different embedding model; re-index into a new data directory")
		}
		e.logger.Info("index_loaded",
			slog.String("data_dir", e.cfg.DataDir),
			slog.Int("count", e.Count()),
			slog.Int("capacity", e.Capacity()),
			slog.Duration("duration", time.Since(start)))
		return true, nil
	case errors.Is(err, errNothingPersisted):
	default:
		return false, err
	}

	if dimensions <= 0 {
		return false, docerrors.ConfigError("no persisted index and no embedding dimension to create one", nil)
	}
	if err := e.Initialize(dimensions, e.cfg.InitialCapacity); err != nil {
		return false, err
	}
	e.logger.Info("index_created",
		slog.String("data_dir", e.cfg.DataDir),
		slog.Int("dimensions", dimensions),
		slog.Int("capacity", e.cfg.InitialCapacity))
	return false, nil
}

// AddDocuments appends docs with their embeddings, assigning ids
// count..count+n-1 in order, then persists the full state.
// Every row is validated before anything is mutated. The assigned ids are
// returned; docs' ID fields are ignored. If another process saved to the
// data directory in the meantime, its documents are loaded first and the
// new ones follow them.
func (e *VectorSearchEngine) AddDocuments(ctx context.Context, docs []Document, embeddings [][]float32) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil, docerrors.NotInitializedError("add_documents")
	}
	if len(docs) != len(embeddings) {
		return nil, docerrors.ValidationError(
			fmt.Sprintf("%d documents but %d embeddings", len(docs), len(embeddings)), nil)
	}
	dims := e.index.Dimensions()
	for i, row := range embeddings {
		if len(row) != dims {
			return nil, docerrors.DimensionMismatchError(dims, len(row)).WithDetail("row", fmt.Sprint(i))
		}
		if err := ValidateVector(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	if len(docs) == 0 {
		return []uint64{}, nil
	}

	unlock, err := e.lockDir(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.syncLocked(); err != nil {
		return nil, err
	}
	ids, err := e.appendLocked(docs, embeddings)
	if err != nil {
		return nil, err
	}
	if err := e.writeLocked(ctx); err != nil {
		return ids, err
	}
	return ids, nil
}

// appendLocked inserts rows after the current last id and returns their ids.
func (e *VectorSearchEngine) appendLocked(docs []Document, embeddings [][]float32) ([]uint64, error) {
	dims := e.index.Dimensions()
	count := len(e.documents)
	n := len(docs)
	if count+n > e.index.Capacity() {
		newCap := count + n + e.cfg.GrowthMargin
		if err := e.index.Resize(newCap); err != nil {
			return nil, fmt.Errorf("resize index: %w", err)
		}
		e.logger.Info("index_resized",
			slog.Int("capacity", newCap),
			slog.Int("count", count))
	}

	ids := make([]uint64, n)
	for i := range docs {
		id := uint64(count + i)
		if err := e.index.Insert(id, embeddings[i]); err != nil {
			return nil, fmt.Errorf("insert id %d: %w", id, err)
		}
		ids[i] = id

		doc := docs[i]
		doc.ID = id
		doc.Metadata = copyMetadata(doc.Metadata)
		e.documents = append(e.documents, doc)

		row := make([]float32, dims)
		copy(row, embeddings[i])
		e.embeddings = append(e.embeddings, row)
	}
	e.dirty = true
	return ids, nil
}

// Search returns up to k documents closest to query, ascending by distance.
// k larger than the document count is clamped; an empty index yields an
// empty result. A query with zero magnitude is rejected.
func (e *VectorSearchEngine) Search(query []float32, k int) ([]SearchResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.initialized {
		return nil, docerrors.NotInitializedError("search")
	}
	count := len(e.documents)
	if count == 0 || k <= 0 {
		return []SearchResult{}, nil
	}
	k = min(k, count)
	if dims := e.index.Dimensions(); len(query) != dims {
		return nil, docerrors.DimensionMismatchError(dims, len(query))
	}
	if err := ValidateVector(query); err != nil {
		return nil, err
	}

	neighbors, err := e.index.KNN(query, k)
	if err != nil {
		return nil, err
	}
	if len(neighbors) < k {
		// The graph's beam can miss nodes when k nears the count.
		neighbors = exactNeighbors(e.cfg.HNSW.Metric, e.embeddings, query, k)
	}

	results := make([]SearchResult, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.ID >= uint64(count) {
			return nil, docerrors.CorruptStateError(
				fmt.Sprintf("index returned id %d beyond document count %d", nb.ID, count), nil)
		}
		results = append(results, SearchResult{
			ID:       nb.ID,
			Distance: nb.Distance,
			Document: cloneDocument(e.documents[nb.ID]),
		})
	}
	return results, nil
}

// Save persists the index, embeddings and documents.
func (e *VectorSearchEngine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return docerrors.NotInitializedError("save")
	}
	return e.saveLocked(ctx)
}

// Close saves pending changes. The engine stays usable.
func (e *VectorSearchEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || !e.dirty {
		return nil
	}
	return e.saveLocked(ctx)
}

func (e *VectorSearchEngine) saveLocked(ctx context.Context) error {
	unlock, err := e.lockDir(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.syncLocked(); err != nil {
		return err
	}
	return e.writeLocked(ctx)
}

// lockDir takes the exclusive directory lock. In-memory engines skip it.
func (e *VectorSearchEngine) lockDir(ctx context.Context) (func(), error) {
	if e.cfg.DataDir == "" {
		return func() {}, nil
	}
	if err := e.dirLock.Lock(ctx); err != nil {
		e.logger.Error("index_lock_failed", slog.String("error", err.Error()))
		return nil, docerrors.New(docerrors.ErrCodePersistFailed, "failed to lock index directory", err)
	}
	return func() { _ = e.dirLock.Unlock() }, nil
}

// syncLocked reloads the persisted state when another process has saved
// since this engine last loaded or saved. Documents this engine has not
// persisted yet are appended after the reloaded ones under new ids.
// Callers hold the directory lock.
func (e *VectorSearchEngine) syncLocked() error {
	if e.cfg.DataDir == "" {
		return nil
	}
	_, embeddingsPath, _ := e.Paths()
	rows, dims, err := ReadEmbeddingsHeader(embeddingsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if rows > 0 && dims != e.index.Dimensions() {
		return docerrors.DimensionMismatchError(dims, e.index.Dimensions()).
			WithSuggestion("another process indexed this directory with a different embedding model")
	}
	if rows == e.persisted {
		return nil
	}

	idx, docs, vecs, err := e.readArtifacts()
	if err != nil {
		return err
	}
	pendingDocs := e.documents[e.persisted:]
	pendingRows := e.embeddings[e.persisted:]

	e.index = idx
	e.documents = docs
	e.embeddings = vecs
	e.persisted = len(docs)
	e.logger.Info("index_reloaded",
		slog.Int("count", len(docs)),
		slog.Int("pending", len(pendingDocs)))

	if len(pendingDocs) > 0 {
		if _, err := e.appendLocked(pendingDocs, pendingRows); err != nil {
			return err
		}
	}
	return nil
}

// writeLocked writes the three artifacts. Callers hold the directory lock.
func (e *VectorSearchEngine) writeLocked(ctx context.Context) error {
	if e.cfg.DataDir == "" {
		e.dirty = false
		return nil
	}

	start := time.Now()
	indexPath, embeddingsPath, documentsPath := e.Paths()
	dims := e.index.Dimensions()

	err := docerrors.Retry(ctx, e.cfg.PersistRetry, func() error {
		if err := SaveEmbeddings(embeddingsPath, e.embeddings, dims); err != nil {
			return fmt.Errorf("save embeddings: %w", err)
		}
		if err := SaveDocuments(documentsPath, e.documents); err != nil {
			return fmt.Errorf("save documents: %w", err)
		}
		if err := e.index.Save(indexPath); err != nil {
			return fmt.Errorf("save index: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("index_save_failed", docerrors.LogAttrs(err)...)
		return docerrors.New(docerrors.ErrCodePersistFailed, "failed to persist index", err)
	}

	e.dirty = false
	e.persisted = len(e.documents)
	e.logger.Debug("index_saved",
		slog.Int("count", len(e.documents)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// errNothingPersisted is returned by Load when no artifact exists.
var errNothingPersisted = errors.New("no persisted index")

// Load replaces in-memory state with the persisted artifacts.
// All three must exist and agree on count and dimension; anything else is
// a CorruptStateError and leaves the current state untouched.
func (e *VectorSearchEngine) Load(ctx context.Context) error {
	if e.cfg.DataDir == "" {
		return errNothingPersisted
	}

	indexPath, embeddingsPath, documentsPath := e.Paths()
	present := map[string]bool{}
	for _, p := range []string{indexPath, embeddingsPath, documentsPath} {
		if _, err := os.Stat(p); err == nil {
			present[filepath.Base(p)] = true
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	switch len(present) {
	case 0:
		return errNothingPersisted
	case 3:
	default:
		return docerrors.CorruptStateError(
			fmt.Sprintf("incomplete index in %s: found %s", e.cfg.DataDir, presentList(present)), nil)
	}

	if err := e.dirLock.RLock(ctx); err != nil {
		return err
	}
	defer func() { _ = e.dirLock.Unlock() }()

	idx, docs, rows, err := e.readArtifacts()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = idx
	e.embeddings = rows
	e.documents = docs
	e.initialized = true
	e.dirty = false
	e.persisted = len(docs)
	return nil
}

// readArtifacts loads the three files and checks that they agree.
// Callers hold the directory lock.
func (e *VectorSearchEngine) readArtifacts() (VectorIndex, []Document, [][]float32, error) {
	indexPath, embeddingsPath, documentsPath := e.Paths()

	idx := e.newIndex()
	if err := idx.Load(indexPath); err != nil {
		return nil, nil, nil, err
	}
	rows, dims, err := LoadEmbeddings(embeddingsPath)
	if err != nil {
		return nil, nil, nil, err
	}
	docs, err := LoadDocuments(documentsPath)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(rows) != len(docs) || idx.Count() != len(docs) {
		return nil, nil, nil, docerrors.CorruptStateError(fmt.Sprintf(
			"artifacts disagree: %d embeddings, %d documents, %d indexed", len(rows), len(docs), idx.Count()), nil)
	}
	if len(rows) > 0 && dims != idx.Dimensions() {
		return nil, nil, nil, docerrors.CorruptStateError(fmt.Sprintf(
			"embeddings have dimension %d, index has %d", dims, idx.Dimensions()), nil)
	}
	return idx, docs, rows, nil
}

func presentList(present map[string]bool) string {
	var out []string
	for _, name := range []string{IndexFileName, EmbeddingsFileName, DocumentsFileName} {
		if present[name] {
			out = append(out, name)
		}
	}
	return fmt.Sprint(out)
}

// Initialized reports whether Initialize or a successful load happened.
func (e *VectorSearchEngine) Initialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.initialized
}

// Count returns the number of stored documents.
func (e *VectorSearchEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.documents)
}

// Capacity returns the index capacity, 0 before initialization.
func (e *VectorSearchEngine) Capacity() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return 0
	}
	return e.index.Capacity()
}

// Dimensions returns the vector width, 0 before initialization.
func (e *VectorSearchEngine) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index == nil {
		return 0
	}
	return e.index.Dimensions()
}

// Document returns the document with id.
func (e *VectorSearchEngine) Document(id uint64) (Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if id >= uint64(len(e.documents)) {
		return Document{}, false
	}
	return cloneDocument(e.documents[id]), true
}

// Embedding returns a copy of the stored vector for id.
func (e *VectorSearchEngine) Embedding(id uint64) ([]float32, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if id >= uint64(len(e.embeddings)) {
		return nil, false
	}
	out := make([]float32, len(e.embeddings[id]))
	copy(out, e.embeddings[id])
	return out, true
}

// Documents returns a snapshot of all documents in id order.
func (e *VectorSearchEngine) Documents() []Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Document, len(e.documents))
	for i, d := range e.documents {
		out[i] = cloneDocument(d)
	}
	return out
}

func cloneDocument(d Document) Document {
	d.Metadata = copyMetadata(d.Metadata)
	return d
}

func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
