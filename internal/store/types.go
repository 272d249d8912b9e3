// Package store holds the document search core: the ANN index, the parallel
// document list and embeddings matrix, and their on-disk persistence.
package store

// DefaultLabel is applied to documents ingested without a label.
const DefaultLabel = "general"

// Metadata keys recorded for ingested files.
const (
	MetaFilename      = "filename"
	MetaFullPath      = "full_path"
	MetaSize          = "size"
	MetaModified      = "modified"
	MetaAddedToSystem = "added_to_system"
	MetaDocType       = "doc_type"
	MetaTextLength    = "text_length"
	MetaHash          = "hash"
)

// Document is one record in the document store.
// ID equals the record's insertion rank and is also its key in the index.
type Document struct {
	ID       uint64
	Text     string
	Label    string
	Metadata map[string]string
}

// Neighbor is one ANN hit.
type Neighbor struct {
	ID       uint64
	Distance float32
}

// SearchResult is a neighbor joined with its document.
type SearchResult struct {
	ID       uint64
	Distance float32
	Document Document
}

// VectorIndex is the capability set the engine needs from an ANN library.
// Any implementation must keep Count() <= Capacity() and must never shrink
// its capacity.
type VectorIndex interface {
	// Init resets the index to empty with the given width and capacity.
	Init(dimensions, capacity int) error
	// Resize raises capacity without losing inserted vectors.
	Resize(capacity int) error
	// Insert adds vec under id.
	Insert(id uint64, vec []float32) error
	// KNN returns up to k neighbors of query, closest first.
	KNN(query []float32, k int) ([]Neighbor, error)
	Save(path string) error
	Load(path string) error

	Dimensions() int
	Capacity() int
	Count() int
}
