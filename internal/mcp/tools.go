package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string   `json:"query" jsonschema:"natural-language query to run against the document index"`
	K     int      `json:"k,omitempty" jsonschema:"number of results to return, default 5"`
	Label string   `json:"label,omitempty" jsonschema:"only return documents with this label"`
	Scope []string `json:"scope,omitempty" jsonschema:"only return documents whose path starts with one of these prefixes"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Query   string               `json:"query"`
	Results []SearchResultOutput `json:"results" jsonschema:"results ordered by distance, closest first"`
}

// SearchResultOutput is one ranked document.
type SearchResultOutput struct {
	ID       uint64  `json:"id"`
	Filename string  `json:"filename" jsonschema:"original file name, or the title for direct text"`
	FullPath string  `json:"full_path,omitempty"`
	Label    string  `json:"label"`
	Distance float32 `json:"distance" jsonschema:"cosine distance from the query, lower is closer"`
	Score    float64 `json:"score" jsonschema:"1 - distance"`
	Snippet  string  `json:"snippet" jsonschema:"text window around the first matching query term"`
}

// AddDocumentsInput defines the input schema for the add_documents tool.
type AddDocumentsInput struct {
	Paths []string `json:"paths" jsonschema:"files to extract, embed and add to the index"`
	Label string   `json:"label,omitempty" jsonschema:"label to attach, default general"`
}

// AddDocumentsOutput reports what an add_documents call did.
type AddDocumentsOutput struct {
	Added    int             `json:"added"`
	IDs      []uint64        `json:"ids,omitempty"`
	Skipped  int             `json:"skipped" jsonschema:"paths already in the index or repeated in the request"`
	Failures []FailureOutput `json:"failures,omitempty"`
}

// FailureOutput describes one file that could not be added.
type FailureOutput struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Stats      IndexStats    `json:"stats"`
	Embeddings EmbeddingInfo `json:"embeddings"`
}

// IndexStats contains statistics about the index.
type IndexStats struct {
	Documents  int `json:"documents"`
	Capacity   int `json:"capacity"`
	Dimensions int `json:"dimensions"`
}

// EmbeddingInfo describes the configured and active embedder.
type EmbeddingInfo struct {
	// Config values
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Runtime state
	ActualModel      string `json:"actual_model"`
	Dimensions       int    `json:"dimensions"`
	Status           string `json:"status"`             // "ready" or "unavailable"
	IsFallbackActive bool   `json:"is_fallback_active"` // true when the static embedder is in use
}
