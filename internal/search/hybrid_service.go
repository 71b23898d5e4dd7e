package search

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmadusud/salesagent/internal/atlas"
	"github.com/pmadusud/salesagent/internal/embedding"
	"github.com/pmadusud/salesagent/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
)

// HybridSearchService runs the weighted vector + full-text search against MongoDB Atlas
type HybridSearchService struct {
	config   *types.Config
	embedder embedding.Client
	store    atlas.Aggregator
	shaper   *Shaper
	logger   *log.Logger
}

// SearchResponse represents the shaped documents and how they were produced
type SearchResponse struct {
	RequestID      string             `json:"request_id"`
	Documents      []bson.D           `json:"documents"`
	TotalResults   int                `json:"total_results"`
	SearchMethod   types.SearchMethod `json:"search_method"`
	FallbackReason string             `json:"fallback_reason,omitempty"`
	Error          string             `json:"error,omitempty"`
	SearchTime     string             `json:"search_time"`
}

// NewHybridSearchService creates a new hybrid search service
func NewHybridSearchService(config *types.Config, embedder embedding.Client, store atlas.Aggregator) (*HybridSearchService, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedding client cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("atlas store cannot be nil")
	}

	logger := log.New(log.Writer(), "[HybridSearch] ", log.LstdFlags)
	return &HybridSearchService{
		config:   config,
		embedder: embedder,
		store:    store,
		shaper:   NewShaper(config.ResultMaxSizeKB, logger),
		logger:   logger,
	}, nil
}

// NormalizeQuery applies the default limit, the hard ceiling of five documents and the
// default projection. Text is NFKC-normalized so full-width input matches the index.
func NormalizeQuery(query types.SearchQuery, defaultLimit int) types.SearchQuery {
	if defaultLimit < 1 || defaultLimit > types.MaxSearchLimit {
		defaultLimit = 3
	}
	if query.Limit <= 0 {
		query.Limit = defaultLimit
	}
	query.Limit = min(query.Limit, types.MaxSearchLimit)

	fields := make([]string, 0, len(query.IncludeFields))
	for _, f := range query.IncludeFields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	if len(fields) == 0 {
		fields = append(fields, types.DefaultIncludeFields...)
	}
	query.IncludeFields = fields
	query.Text = strings.TrimSpace(norm.NFKC.String(query.Text))
	return query
}

func (s *HybridSearchService) pipelineParams(query types.SearchQuery, vector []float64) atlas.PipelineParams {
	numCandidates := s.config.SearchNumCandidates
	if numCandidates < query.Limit {
		numCandidates = query.Limit
	}
	return atlas.PipelineParams{
		VectorIndex:    s.config.VectorIndexName,
		VectorPath:     s.config.VectorIndexPath,
		FullTextIndex:  s.config.FullTextIndexName,
		FullTextPath:   s.config.FullTextIndexPath,
		QueryText:      query.Text,
		QueryVector:    vector,
		NumCandidates:  numCandidates,
		Limit:          query.Limit,
		VectorWeight:   s.config.SearchVectorWeight,
		FullTextWeight: s.config.SearchFullTextWeight,
		Fields:         query.IncludeFields,
	}
}

// Search embeds the query, runs the $rankFusion pipeline and falls back once to a
// vector-only pipeline when it fails. It never returns an error: failures yield an
// empty document list with SearchMethod "none".
func (s *HybridSearchService) Search(ctx context.Context, query types.SearchQuery) *SearchResponse {
	start := time.Now()
	query = NormalizeQuery(query, s.config.SearchDefaultLimit)

	response := &SearchResponse{
		RequestID:    uuid.NewString(),
		Documents:    []bson.D{},
		SearchMethod: types.SearchMethodNone,
	}

	ctx, span := searchTracer.Start(ctx, "search.hybrid")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.request_id", response.RequestID),
		attribute.String("search.query", truncateQueryAttribute(query.Text)),
		attribute.Int("search.limit", query.Limit),
		attribute.StringSlice("search.include_fields", query.IncludeFields),
	)

	defer func() {
		response.TotalResults = len(response.Documents)
		response.SearchTime = time.Since(start).String()
		span.SetAttributes(
			attribute.String("search.method", string(response.SearchMethod)),
			attribute.Int("search.result_count", response.TotalResults),
		)
		size := -1
		if encoded, err := EncodeDocuments(response.Documents); err == nil {
			size = len(encoded)
		}
		recordSearch(ctx, response.SearchMethod, response.FallbackReason != "", size)
	}()

	if query.Text == "" {
		s.fail(span, response, fmt.Errorf("search content cannot be empty"))
		return response
	}

	// The fallback gets its own deadline from parent, so a $rankFusion attempt that
	// used up the first one still leaves the vector-only attempt a full budget.
	parent := ctx
	primaryCtx, cancelPrimary := s.withSearchTimeout(parent)
	defer cancelPrimary()

	vector, err := s.embed(primaryCtx, query.Text)
	if err != nil {
		s.fail(span, response, err)
		return response
	}

	params := s.pipelineParams(query, vector)

	docs, hybridErr := s.runHybrid(primaryCtx, params)
	if hybridErr == nil {
		response.SearchMethod = types.SearchMethodHybrid
		response.Documents = s.finish(docs)
		return response
	}

	if atlas.IsConnectivityError(hybridErr) {
		s.logger.Printf("Could not connect to MongoDB Atlas: %v", hybridErr)
	}
	s.logger.Printf("$rankFusion failed (likely due to MongoDB version or index configuration): %v", hybridErr)
	s.logger.Printf("Falling back to vector search only...")
	response.FallbackReason = hybridErr.Error()
	span.AddEvent("search.fallback", trace.WithAttributes(attribute.String("reason", hybridErr.Error())))

	fallbackCtx, cancelFallback := s.withSearchTimeout(parent)
	defer cancelFallback()

	docs, err = s.runVector(fallbackCtx, params)
	if err != nil {
		if atlas.IsConnectivityError(err) {
			s.logger.Printf("Could not connect to MongoDB Atlas: %v", err)
		}
		s.fail(span, response, err)
		return response
	}

	response.SearchMethod = types.SearchMethodVector
	response.Documents = s.finish(docs)
	return response
}

func (s *HybridSearchService) withSearchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.SearchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.SearchTimeout)
}

func (s *HybridSearchService) embed(ctx context.Context, text string) ([]float64, error) {
	ctx, span := searchTracer.Start(ctx, "search.embed")
	defer span.End()

	vector, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding_failed")
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	// Providers may still hand back an empty vector without an error.
	vector, err = embedding.Flatten(vector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding_invalid")
		return nil, fmt.Errorf("embedding vector is not a valid list: %w", err)
	}
	span.SetAttributes(attribute.Int("search.embedding_dimensions", len(vector)))
	return vector, nil
}

func (s *HybridSearchService) runHybrid(ctx context.Context, params atlas.PipelineParams) ([]bson.D, error) {
	pipeline, err := atlas.HybridPipeline(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build hybrid pipeline: %w", err)
	}
	return s.aggregate(ctx, "search.aggregate.rank_fusion", pipeline)
}

func (s *HybridSearchService) runVector(ctx context.Context, params atlas.PipelineParams) ([]bson.D, error) {
	pipeline, err := atlas.VectorPipeline(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build vector pipeline: %w", err)
	}
	return s.aggregate(ctx, "search.aggregate.vector", pipeline)
}

func (s *HybridSearchService) aggregate(ctx context.Context, spanName string, pipeline mongo.Pipeline) ([]bson.D, error) {
	ctx, span := searchTracer.Start(ctx, spanName)
	defer span.End()

	docs, err := s.store.Aggregate(ctx, pipeline)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		span.SetAttributes(attribute.Bool("search.connectivity_error", atlas.IsConnectivityError(err)))
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.raw_results", len(docs)))
	return docs, nil
}

func (s *HybridSearchService) finish(docs []bson.D) []bson.D {
	shaped := s.shaper.Shape(CleanLargeFields(docs, s.config.CleanMaxFieldLength))
	if shaped == nil {
		return []bson.D{}
	}
	return shaped
}

func (s *HybridSearchService) fail(span trace.Span, response *SearchResponse, err error) {
	s.logger.Printf("Error in hybrid_search_mongodb_atlas: %v", err)
	response.Error = err.Error()
	response.SearchMethod = types.SearchMethodNone
	response.Documents = []bson.D{}
	span.RecordError(err)
	span.SetStatus(codes.Error, "search_failed")
}
