package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/internal/telemetry"
)

// Resource URIs.
const (
	documentURIPrefix  = "docsearch://documents/"
	documentTemplate   = documentURIPrefix + "{id}"
	queryMetricsURI    = "docsearch://query_metrics"
	queryMetricsTopN   = 10
	maxResourceRuneLen = 1 << 20
)

// DocumentSource resolves stored documents by id.
type DocumentSource interface {
	Document(id uint64) (store.Document, bool)
}

var _ DocumentSource = (*store.VectorSearchEngine)(nil)

// QueryStatsSource summarizes recorded queries.
type QueryStatsSource interface {
	Summary(ctx context.Context, topN int) (*telemetry.Summary, error)
}

var _ QueryStatsSource = (*telemetry.Store)(nil)

// WithDocuments exposes stored document text as docsearch://documents/{id}.
func WithDocuments(docs DocumentSource) ServerOption {
	return func(s *Server) {
		s.documents = docs
	}
}

// WithQueryStats exposes the query telemetry summary as
// docsearch://query_metrics.
func WithQueryStats(stats QueryStatsSource) ServerOption {
	return func(s *Server) {
		s.queryStats = stats
	}
}

func (s *Server) registerResources() {
	if s.documents != nil {
		s.mcp.AddResourceTemplate(
			&mcp.ResourceTemplate{
				Name:        "document",
				URITemplate: documentTemplate,
				Description: "Full extracted text of an indexed document",
				MIMEType:    "text/plain",
			},
			s.handleReadDocument,
		)
		s.logger.Debug("Registered resource template", slog.String("uri", documentTemplate))
	}

	if s.queryStats != nil {
		s.mcp.AddResource(
			&mcp.Resource{
				Name:        "query_metrics",
				URI:         queryMetricsURI,
				Description: "Query telemetry: totals, zero-result queries, latency distribution",
				MIMEType:    "application/json",
			},
			s.handleReadQueryMetrics,
		)
		s.logger.Debug("Registered resource", slog.String("uri", queryMetricsURI))
	}
}

func (s *Server) handleReadDocument(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	content, err := s.ReadDocument(uri)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/plain", Text: content},
		},
	}, nil
}

// ReadDocument returns the stored text for a docsearch://documents/{id} URI.
// Text longer than 1M runes is truncated.
func (s *Server) ReadDocument(uri string) (string, error) {
	if s.documents == nil {
		return "", NewResourceNotFoundError(uri)
	}

	id, ok := parseDocumentURI(uri)
	if !ok {
		return "", NewInvalidParamsError(fmt.Sprintf("invalid document URI: %s", uri))
	}

	doc, found := s.documents.Document(id)
	if !found {
		return "", NewResourceNotFoundError(uri)
	}

	text := doc.Text
	if runes := []rune(text); len(runes) > maxResourceRuneLen {
		text = string(runes[:maxResourceRuneLen])
	}
	return text, nil
}

func parseDocumentURI(uri string) (uint64, bool) {
	raw, ok := strings.CutPrefix(uri, documentURIPrefix)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) handleReadQueryMetrics(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	summary, err := s.queryStats.Summary(ctx, queryMetricsTopN)
	if err != nil {
		return nil, MapError(err)
	}

	content, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: queryMetricsURI, MIMEType: "application/json", Text: string(content)},
		},
	}, nil
}
