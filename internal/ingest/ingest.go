// Package ingest turns files and raw text into stored, embedded documents.
//
// A run goes through four stages: scan (dedupe against the store), extract
// (parallel, bounded by Workers), embed (one batch, per-document fallback)
// and index (a single AddDocuments call, so one run is one persistence unit).
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/extract"
	"github.com/Aman-CERP/docsearch/internal/ignore"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/ui"
)

// DirectInputPath is the full_path recorded for text added without a file.
const DirectInputPath = "direct_input"

// Store is the part of the document store an Ingester writes to.
type Store interface {
	AddDocuments(ctx context.Context, docs []store.Document, embeddings [][]float32) ([]uint64, error)
	Documents() []store.Document
	Count() int
}

var _ Store = (*store.VectorSearchEngine)(nil)

// Extractor produces raw text for a file.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
	Supports(path string) bool
}

var _ Extractor = (*extract.Registry)(nil)

// Dependencies are the collaborators of an Ingester.
type Dependencies struct {
	Store     Store
	Embedder  embed.Embedder
	Extractor Extractor
	Logger    *slog.Logger
}

// Config tunes an Ingester.
type Config struct {
	// Workers bounds parallel extraction. Zero means runtime.NumCPU().
	Workers int
	// DefaultLabel is applied when a call names no label.
	DefaultLabel string
	// Exclude patterns are applied by ScanDir ahead of the scanned
	// directory's .docsearchignore.
	Exclude []string
}

// Failure is a path that could not be ingested.
type Failure struct {
	Path string
	Err  error
}

// Result is the outcome of AddPaths.
type Result struct {
	Added    int
	IDs      []uint64
	Skipped  []string
	Failures []Failure
	Duration time.Duration
}

// AddOption customizes a single AddPaths call.
type AddOption func(*addOptions)

type addOptions struct {
	label    string
	renderer ui.Renderer
}

// WithLabel sets the label recorded on every document of the call.
func WithLabel(label string) AddOption {
	return func(o *addOptions) {
		o.label = label
	}
}

// WithRenderer reports progress of the call to r.
func WithRenderer(r ui.Renderer) AddOption {
	return func(o *addOptions) {
		o.renderer = r
	}
}

// Ingester adds documents to a Store. Calls are serialized so duplicate
// detection sees the result of any earlier call.
type Ingester struct {
	store     Store
	embedder  embed.Embedder
	extractor Extractor
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	mu sync.Mutex
}

// New creates an Ingester.
func New(deps Dependencies, cfg Config) (*Ingester, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.DefaultRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.DefaultLabel == "" {
		cfg.DefaultLabel = store.DefaultLabel
	}

	return &Ingester{
		store:     deps.Store,
		embedder:  deps.Embedder,
		extractor: deps.Extractor,
		logger:    deps.Logger,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// pending is a document waiting for its embedding.
type pending struct {
	path string
	doc  store.Document
}

// AddPaths ingests files. Paths already present in the store (by absolute
// full_path) and repeats within paths are skipped. A file that cannot be
// extracted or embedded is reported in Result.Failures without stopping the
// others. The returned error is non-nil only for cancellation or a failed
// store write.
func (in *Ingester) AddPaths(ctx context.Context, paths []string, opts ...AddOption) (*Result, error) {
	o := addOptions{label: in.cfg.DefaultLabel, renderer: ui.NopRenderer{}}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(o.label) == "" {
		o.label = in.cfg.DefaultLabel
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	start := time.Now()
	var timings ui.StageTimings
	result := &Result{}
	report := func(path string, err error) {
		result.Failures = append(result.Failures, Failure{Path: path, Err: err})
		o.renderer.AddError(ui.ErrorEvent{File: path, Err: err, IsWarn: true})
		in.logger.Warn("ingest_file_failed",
			slog.String("path", path),
			slog.String("code", docerrors.GetCode(err)),
			slog.String("error", err.Error()))
	}

	// Stage 1: scan
	scanStart := time.Now()
	todo := in.dedupe(paths, result, o.renderer)
	timings.Scan = time.Since(scanStart)

	// Stage 2: extract
	extractStart := time.Now()
	docs, failures, err := in.extractAll(ctx, todo, o.label, o.renderer)
	timings.Extract = time.Since(extractStart)
	for _, f := range failures {
		report(f.Path, f.Err)
	}
	if err != nil {
		return result, err
	}

	// Stage 3: embed
	embedStart := time.Now()
	docs, vectors, failures, err := in.embedAll(ctx, docs, o.renderer)
	timings.Embed = time.Since(embedStart)
	for _, f := range failures {
		report(f.Path, f.Err)
	}
	if err != nil {
		return result, err
	}

	// Stage 4: index
	if len(docs) > 0 {
		indexStart := time.Now()
		o.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageIndexing,
			Current: 0,
			Total:   len(docs),
			Message: fmt.Sprintf("adding %d documents", len(docs)),
		})

		records := make([]store.Document, len(docs))
		for i, p := range docs {
			records[i] = p.doc
		}
		ids, err := in.store.AddDocuments(ctx, records, vectors)
		timings.Index = time.Since(indexStart)
		// A failed save still returns the ids appended in memory.
		result.IDs = ids
		result.Added = len(ids)
		if err != nil {
			o.renderer.AddError(ui.ErrorEvent{Err: err})
			return result, fmt.Errorf("add documents: %w", err)
		}

		o.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: len(docs), Total: len(docs)})
	}

	result.Duration = time.Since(start)
	o.renderer.Complete(ui.CompletionStats{
		Added:     result.Added,
		Skipped:   len(result.Skipped),
		Failed:    len(result.Failures),
		Documents: in.store.Count(),
		Duration:  result.Duration,
		Warnings:  len(result.Failures),
		Stages:    timings,
		Embedder:  EmbedderInfo(in.embedder),
	})

	in.logger.Info("ingest_complete",
		slog.Int("added", result.Added),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("failed", len(result.Failures)),
		slog.Duration("duration", result.Duration))

	return result, nil
}

// dedupe resolves paths to absolute form and drops those already stored or
// repeated. Dropped paths are appended to result.Skipped.
func (in *Ingester) dedupe(paths []string, result *Result, r ui.Renderer) []string {
	known := make(map[string]bool)
	for _, d := range in.store.Documents() {
		if p := d.Metadata[store.MetaFullPath]; p != "" && p != DirectInputPath {
			known[p] = true
		}
	}

	todo := make([]string, 0, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		r.UpdateProgress(ui.ProgressEvent{Stage: ui.StageScanning, Current: i + 1, Total: len(paths), CurrentFile: abs})

		if known[abs] {
			result.Skipped = append(result.Skipped, abs)
			in.logger.Debug("ingest_skip_existing", slog.String("path", abs))
			continue
		}
		known[abs] = true
		todo = append(todo, abs)
	}
	return todo
}

// extractAll extracts and cleans paths in parallel. Results keep the input
// order. Only cancellation is returned as an error.
func (in *Ingester) extractAll(ctx context.Context, paths []string, label string, r ui.Renderer) ([]pending, []Failure, error) {
	docs := make([]*pending, len(paths))
	errs := make([]error, len(paths))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			doc, err := in.extractOne(gctx, path, label)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
			} else {
				docs[i] = &pending{path: path, doc: doc}
			}

			r.UpdateProgress(ui.ProgressEvent{
				Stage:       ui.StageExtracting,
				Current:     int(done.Add(1)),
				Total:       len(paths),
				CurrentFile: path,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]pending, 0, len(paths))
	var failures []Failure
	for i, path := range paths {
		switch {
		case errs[i] != nil:
			failures = append(failures, Failure{Path: path, Err: errs[i]})
		case docs[i] != nil:
			out = append(out, *docs[i])
		}
	}
	return out, failures, nil
}

func (in *Ingester) extractOne(ctx context.Context, path, label string) (store.Document, error) {
	raw, err := in.extractor.Extract(ctx, path)
	if err != nil {
		return store.Document{}, err
	}

	text := extract.Clean(raw)
	if text == "" {
		return store.Document{}, extract.ReadFailureError(path, "no text after cleaning", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return store.Document{}, extract.ReadFailureError(path, "cannot stat file", err)
	}

	meta := in.metadata(text, label)
	meta[store.MetaFilename] = filepath.Base(path)
	meta[store.MetaFullPath] = path
	meta[store.MetaSize] = strconv.FormatInt(info.Size(), 10)
	meta[store.MetaModified] = info.ModTime().Format(time.RFC3339)

	return store.Document{Text: text, Label: label, Metadata: meta}, nil
}

// metadata returns the entries shared by file and direct-text documents.
func (in *Ingester) metadata(text, label string) map[string]string {
	sum := sha256.Sum256([]byte(text))
	return map[string]string{
		store.MetaAddedToSystem: in.now().Format(time.RFC3339),
		store.MetaDocType:       label,
		store.MetaTextLength:    strconv.Itoa(utf8.RuneCountInString(text)),
		store.MetaHash:          hex.EncodeToString(sum[:]),
	}
}

// embedAll embeds all documents in one batch. If the batch fails it retries
// each document alone and drops the ones that still fail. Documents whose
// embedding has no direction are dropped as failures too.
func (in *Ingester) embedAll(ctx context.Context, docs []pending, r ui.Renderer) ([]pending, [][]float32, []Failure, error) {
	if len(docs) == 0 {
		return nil, nil, nil, nil
	}

	texts := make([]string, len(docs))
	for i, p := range docs {
		texts[i] = p.doc.Text
	}

	r.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageEmbedding,
		Current: 0,
		Total:   len(docs),
		Message: in.embedder.ModelName(),
	})

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(docs) {
		r.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: len(docs), Total: len(docs)})
		kept, vectors, failures := dropUnusable(docs, vectors)
		return kept, vectors, failures, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, nil, ctxErr
	}
	if err == nil {
		err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(docs))
	}
	in.logger.Warn("embed_batch_failed",
		slog.Int("documents", len(docs)),
		slog.String("error", err.Error()))

	kept := make([]pending, 0, len(docs))
	vectors = make([][]float32, 0, len(docs))
	var failures []Failure
	for i, p := range docs {
		vec, err := in.embedder.Embed(ctx, p.doc.Text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, failures, ctxErr
			}
			failures = append(failures, Failure{Path: p.path, Err: embeddingError(err)})
		} else if err := store.ValidateVector(vec); err != nil {
			failures = append(failures, Failure{Path: p.path, Err: err})
		} else {
			kept = append(kept, p)
			vectors = append(vectors, vec)
		}
		r.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: i + 1, Total: len(docs), CurrentFile: p.path})
	}
	return kept, vectors, failures, nil
}

func dropUnusable(docs []pending, vectors [][]float32) ([]pending, [][]float32, []Failure) {
	kept := make([]pending, 0, len(docs))
	keptVectors := make([][]float32, 0, len(vectors))
	var failures []Failure
	for i, p := range docs {
		if err := store.ValidateVector(vectors[i]); err != nil {
			failures = append(failures, Failure{Path: p.path, Err: err})
			continue
		}
		kept = append(kept, p)
		keptVectors = append(keptVectors, vectors[i])
	}
	return kept, keptVectors, failures
}

func embeddingError(err error) error {
	if docerrors.GetCode(err) != "" {
		return err
	}
	return docerrors.New(docerrors.ErrCodeEmbeddingFailed, "embedding failed", err)
}

// AddText stores text directly, without a source file. It returns the new
// document id.
func (in *Ingester) AddText(ctx context.Context, text, label, title string) (uint64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, docerrors.ValidationError("text must not be empty", nil)
	}
	if strings.TrimSpace(label) == "" {
		label = in.cfg.DefaultLabel
	}
	if strings.TrimSpace(title) == "" {
		title = "Direct document"
	}

	vec, err := in.embedder.Embed(ctx, text)
	if err != nil {
		return 0, embeddingError(err)
	}
	if err := store.ValidateVector(vec); err != nil {
		return 0, err
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	now := in.now().Format(time.RFC3339)
	meta := in.metadata(text, label)
	meta[store.MetaFilename] = title
	meta[store.MetaFullPath] = DirectInputPath
	meta[store.MetaSize] = strconv.Itoa(len(text))
	meta[store.MetaModified] = now

	ids, err := in.store.AddDocuments(ctx, []store.Document{{Text: text, Label: label, Metadata: meta}}, [][]float32{vec})
	if err != nil {
		return 0, fmt.Errorf("add text: %w", err)
	}

	in.logger.Info("ingest_text_added", slog.String("title", title), slog.Uint64("id", ids[0]))
	return ids[0], nil
}

// ScanDir lists the regular files under dir that the extractor supports.
// Hidden files and directories are skipped, as are paths excluded by
// Config.Exclude or dir/.docsearchignore. The order is lexical.
func (in *Ingester) ScanDir(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, docerrors.IOError(fmt.Sprintf("cannot read documents directory %s", dir), err)
	}
	if !info.IsDir() {
		return nil, docerrors.ValidationError(fmt.Sprintf("%s is not a directory", dir), nil)
	}
	rules, err := ignore.Load(dir, in.cfg.Exclude)
	if err != nil {
		return nil, docerrors.IOError(fmt.Sprintf("cannot read ignore rules in %s", dir), err)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				in.logger.Warn("scan_permission_denied", slog.String("path", path))
				return nil
			}
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if rules.MatchPath(dir, path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && in.extractor.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, docerrors.IOError(fmt.Sprintf("scan %s", dir), err)
	}
	return files, nil
}

// EmbedderInfo describes e for progress summaries.
func EmbedderInfo(e embed.Embedder) ui.EmbedderInfo {
	if e == nil {
		return ui.EmbedderInfo{}
	}
	backend := "ollama"
	if inner := unwrap(e); isStatic(inner) {
		backend = "static"
	}
	return ui.EmbedderInfo{Backend: backend, Model: e.ModelName(), Dimensions: e.Dimensions()}
}

func unwrap(e embed.Embedder) embed.Embedder {
	if c, ok := e.(*embed.CachedEmbedder); ok {
		return c.Inner()
	}
	return e
}

func isStatic(e embed.Embedder) bool {
	_, ok := e.(*embed.StaticEmbedder)
	return ok
}
