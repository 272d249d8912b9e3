package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/ingest"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/pkg/version"
)

// ServerName is reported to clients during initialization.
const ServerName = "docsearch"

const maxSearchK = 100

// Ingester adds files to the index.
type Ingester interface {
	AddPaths(ctx context.Context, paths []string, opts ...ingest.AddOption) (*ingest.Result, error)
}

var _ Ingester = (*ingest.Ingester)(nil)

// Server bridges MCP clients with the document index.
type Server struct {
	mcp      *mcp.Server
	engine   search.SearchEngine
	ingester Ingester
	embedder embed.Embedder // may be nil; reported as unavailable
	config   *config.Config
	logger   *slog.Logger

	documents  DocumentSource
	queryStats QueryStatsSource

	mu sync.RWMutex
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search",
		Description: "Semantic search over the ingested documents (PDF, DOCX, XLSX, HTML, text). Returns the k closest documents with a snippet around the matching terms.",
	},
	{
		Name:        "add_documents",
		Description: "Extract, embed and add files to the document index. Files already indexed are skipped.",
	},
	{
		Name:        "index_status",
		Description: "Report document count, capacity, embedding dimensions and which embedder is active.",
	},
}

// NewServer creates an MCP server. ingester may be nil, in which case
// add_documents is not registered.
func NewServer(engine search.SearchEngine, ingester Ingester, embedder embed.Embedder, cfg *config.Config, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:   engine,
		ingester: ingester,
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	if s.ingester != nil {
		return append([]ToolInfo(nil), tools...)
	}
	out := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		if t.Name != "add_documents" {
			out = append(out, t)
		}
	}
	return out
}

// CallTool invokes a tool by name with loosely typed arguments, as decoded
// from JSON. search and add_documents return markdown; index_status returns
// *IndexStatusOutput.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search":
		in, err := searchInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		results, err := s.search(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatSearchResults(in.Query, results), nil

	case "add_documents":
		if s.ingester == nil {
			return nil, NewMethodNotFoundError(name)
		}
		in, err := addInputFromArgs(args)
		if err != nil {
			return nil, err
		}
		res, err := s.addDocuments(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatAddResult(res), nil

	case "index_status":
		return s.indexStatus(ctx), nil

	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) search(ctx context.Context, in SearchInput) ([]*search.SearchResult, error) {
	start := time.Now()
	requestID := generateRequestID()

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if in.K < 0 {
		return nil, NewInvalidParamsError("k must be positive")
	}
	k := clampLimit(in.K, s.config.Search.DefaultK, 1, maxSearchK)

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("k", k))

	results, err := s.engine.Search(ctx, query, search.SearchOptions{
		Limit:  k,
		Label:  in.Label,
		Scopes: in.Scope,
	})
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("search failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", len(results)))

	return results, nil
}

func (s *Server) addDocuments(ctx context.Context, in AddDocumentsInput) (*ingest.Result, error) {
	requestID := generateRequestID()

	if len(in.Paths) == 0 {
		return nil, NewInvalidParamsError("paths parameter is required and must list at least one file")
	}

	// index_status waits for a running add_documents call.
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("add_documents started",
		slog.String("request_id", requestID),
		slog.Int("paths", len(in.Paths)))

	var opts []ingest.AddOption
	if in.Label != "" {
		opts = append(opts, ingest.WithLabel(in.Label))
	}

	res, err := s.ingester.AddPaths(ctx, in.Paths, opts...)
	if err != nil {
		s.logger.Error("add_documents failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("add_documents completed",
		slog.String("request_id", requestID),
		slog.Int("added", res.Added),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("failed", len(res.Failures)),
		slog.Duration("duration", res.Duration))

	return res, nil
}

func (s *Server) indexStatus(ctx context.Context) *IndexStatusOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &IndexStatusOutput{
		Embeddings: EmbeddingInfo{
			Provider: s.config.Embeddings.Provider,
			Model:    s.config.Embeddings.Model,
			Status:   "unavailable",
		},
	}
	if out.Embeddings.Provider == "" {
		out.Embeddings.Provider = "auto"
	}

	if stats := s.engine.Stats(); stats != nil {
		out.Stats = IndexStats{
			Documents:  stats.Documents,
			Capacity:   stats.Capacity,
			Dimensions: stats.Dimensions,
		}
	}

	if s.embedder != nil {
		info := ingest.EmbedderInfo(s.embedder)
		out.Embeddings.ActualModel = info.Model
		out.Embeddings.Dimensions = info.Dimensions
		out.Embeddings.IsFallbackActive = info.Backend == "static"
		if s.embedder.Available(ctx) {
			out.Embeddings.Status = "ready"
		}
	} else {
		out.Embeddings.ActualModel = "none"
		out.Embeddings.IsFallbackActive = true
	}

	return out
}

func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	count := 1

	if s.ingester != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpAddDocumentsHandler)
		count++
	}

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpIndexStatusHandler)
	count++

	s.logger.Info("MCP tools registered", slog.Int("count", count))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	results, err := s.search(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:   strings.TrimSpace(input.Query),
		Results: make([]SearchResultOutput, 0, len(results)),
	}
	for _, r := range filterValidResults(results) {
		output.Results = append(output.Results, ToSearchResultOutput(r))
	}
	return nil, output, nil
}

func (s *Server) mcpAddDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, input AddDocumentsInput) (
	*mcp.CallToolResult,
	AddDocumentsOutput,
	error,
) {
	res, err := s.addDocuments(ctx, input)
	if err != nil {
		return nil, AddDocumentsOutput{}, err
	}
	return nil, ToAddDocumentsOutput(res), nil
}

func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	return nil, s.indexStatus(ctx), nil
}

// Serve runs the server on transport until ctx is done or the client
// disconnects. Only "stdio" is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func searchInputFromArgs(args map[string]any) (SearchInput, error) {
	var in SearchInput

	query, ok := args["query"].(string)
	if !ok {
		return in, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	in.Query = query

	switch k := args["k"].(type) {
	case nil:
	case float64:
		in.K = int(k)
	case int:
		in.K = k
	default:
		return in, NewInvalidParamsError("k must be a number")
	}

	if label, ok := args["label"].(string); ok {
		in.Label = label
	}
	in.Scope = stringSlice(args["scope"])
	return in, nil
}

func addInputFromArgs(args map[string]any) (AddDocumentsInput, error) {
	var in AddDocumentsInput
	in.Paths = stringSlice(args["paths"])
	if len(in.Paths) == 0 {
		return in, NewInvalidParamsError("paths parameter is required and must list at least one file")
	}
	if label, ok := args["label"].(string); ok {
		in.Label = label
	}
	return in, nil
}

func stringSlice(v any) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	return uuid.NewString()[:8]
}
