// Package extract turns document files into plain text.
//
// A Registry maps lowercase file extensions to Extractors. Unknown
// extensions fail with ERR_207_EXTRACTION_UNSUPPORTED; unreadable files,
// parse failures and files with no text fail with ERR_208_EXTRACTION_READ.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// Extractor reads a file and returns its text content.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract calls f(ctx, path).
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Registry dispatches extraction by file extension.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// DefaultRegistry returns a registry with every built-in document type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".pdf", &PDFExtractor{})
	r.Register(".docx", &DOCXExtractor{})
	r.Register(".html", &HTMLExtractor{})
	r.Register(".htm", &HTMLExtractor{})
	r.Register(".csv", &CSVExtractor{})
	r.Register(".xlsx", &XLSXExtractor{})
	r.Register(".txt", &TextExtractor{})
	r.Register(".md", &TextExtractor{})
	return r
}

// Register binds ext (with or without the leading dot) to e, replacing
// any previous binding.
func (r *Registry) Register(ext string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[normalizeExt(ext)] = e
}

// Restrict drops every extension not in keep. An empty keep is a no-op.
func (r *Registry) Restrict(keep []string) {
	if len(keep) == 0 {
		return
	}
	allowed := make(map[string]bool, len(keep))
	for _, ext := range keep {
		allowed[normalizeExt(ext)] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for ext := range r.extractors {
		if !allowed[ext] {
			delete(r.extractors, ext)
		}
	}
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.lookup(path)
	return ok
}

// SupportedExtensions returns the registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) lookup(path string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[normalizeExt(filepath.Ext(path))]
	return e, ok
}

// Extract returns the raw text of path. The result is not cleaned; see Clean.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e, ok := r.lookup(path)
	if !ok {
		return "", UnsupportedTypeError(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", ReadFailureError(path, "cannot stat file", err)
	}
	if info.IsDir() {
		return "", ReadFailureError(path, "path is a directory", nil)
	}

	text, err := e.Extract(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if docerrors.GetCode(err) != "" {
			return "", err
		}
		return "", ReadFailureError(path, "extraction failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ReadFailureError(path, "no text", nil)
	}
	return text, nil
}

// UnsupportedTypeError reports a file type with no registered extractor.
func UnsupportedTypeError(path string) *docerrors.DocError {
	ext := strings.ToLower(filepath.Ext(path))
	return docerrors.New(docerrors.ErrCodeExtractionUnsupported,
		fmt.Sprintf("unsupported file type %q", ext), nil).
		WithDetail("path", path).
		WithSuggestion("Supported types: .pdf .docx .html .csv .xlsx .txt .md")
}

// ReadFailureError reports a file that could not be read or parsed.
func ReadFailureError(path, reason string, cause error) *docerrors.DocError {
	return docerrors.New(docerrors.ErrCodeExtractionRead, reason, cause).
		WithDetail("path", path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
