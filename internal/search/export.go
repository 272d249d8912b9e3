package search

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf8"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// ExportColumns is the CSV header written by ExportCSV.
var ExportColumns = []string{"id", "filename", "doc_type", "text_length", "added_date", "text_content", "hash"}

// ExportCSV writes one row per document, in id order.
// An empty document list is an error.
func ExportCSV(w io.Writer, docs []store.Document) error {
	if len(docs) == 0 {
		return docerrors.ValidationError("no documents to export", nil)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, d := range docs {
		row := []string{
			strconv.FormatUint(d.ID, 10),
			documentFilename(d),
			d.Label,
			strconv.Itoa(utf8.RuneCountInString(d.Text)),
			metaOr(d, store.MetaAddedToSystem, "Unknown"),
			d.Text,
			metaOr(d, store.MetaHash, "N/A"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write document %d: %w", d.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// StorageInfo summarizes the document store.
type StorageInfo struct {
	TotalDocuments        int            `json:"total_documents"`
	TotalCharacters       int            `json:"total_characters"`
	TotalSizeBytes        int            `json:"total_size_bytes"`
	TotalSizeMB           float64        `json:"total_size_mb"`
	DocumentTypes         map[string]int `json:"document_types"`
	DocumentsWithMetadata int            `json:"documents_with_metadata"`
}

// ComputeStorageInfo counts characters (runes) and UTF-8 bytes of the
// document texts and tallies labels.
func ComputeStorageInfo(docs []store.Document) StorageInfo {
	info := StorageInfo{DocumentTypes: make(map[string]int)}
	for _, d := range docs {
		info.TotalDocuments++
		info.TotalCharacters += utf8.RuneCountInString(d.Text)
		info.TotalSizeBytes += len(d.Text)
		info.DocumentTypes[d.Label]++
		if len(d.Metadata) > 0 {
			info.DocumentsWithMetadata++
		}
	}
	info.TotalSizeMB = math.Round(float64(info.TotalSizeBytes)/(1024*1024)*100) / 100
	return info
}

func documentFilename(d store.Document) string {
	return metaOr(d, store.MetaFilename, fmt.Sprintf("Document_%d", d.ID))
}

func metaOr(d store.Document, key, fallback string) string {
	if v, ok := d.Metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}
