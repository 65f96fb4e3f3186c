package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/talenthub/hub/internal/embeddings"
	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/models"
)

// Sentinel errors for search (used by handlers for status mapping).
var (
	ErrEmptyQuery        = errors.New("query is required and must be non-empty")
	ErrNoCollections     = errors.New("at least one collection name is required")
	ErrUnknownCollection = errors.New("unknown collection")
)

// scoreDecimals rounds similarity scores for the response.
const scoreDecimals = 4

// VectorSearcher provides the vector read operations needed for search.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, topK, ef int) ([]models.VectorHit, error)
	Has(collection string) bool
}

// ProfileFetcher provides the relational read operation needed for search.
type ProfileFetcher interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]map[string]string, error)
}

// SearchService performs similarity search across one or more vector
// collections and joins the hits back to their relational records.
type SearchService struct {
	embedder       embeddings.Client
	vectors        VectorSearcher
	repo           ProfileFetcher
	ef             int
	queryCache     *lru.Cache[string, []float32]
	queryLoadGroup singleflight.Group
	logger         *slog.Logger
}

// SearchServiceParams configures SearchService. QueryCache may be nil (no
// caching); Logger may be nil.
type SearchServiceParams struct {
	Embedder   embeddings.Client
	Vectors    VectorSearcher
	Repo       ProfileFetcher
	EF         int
	QueryCache *lru.Cache[string, []float32]
	Logger     *slog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(p SearchServiceParams) *SearchService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchService{
		embedder:   p.Embedder,
		vectors:    p.Vectors,
		repo:       p.Repo,
		ef:         p.EF,
		queryCache: p.QueryCache,
		logger:     logger,
	}
}

// Search embeds the query once and searches every requested collection
// independently. The returned list keeps the request's collection order and,
// within a collection, the index's ranking order; it is never re-sorted
// globally. A collection that fails contributes a single error entry instead
// of failing its siblings. A topK of zero or less returns no results.
func (s *SearchService) Search(ctx context.Context, query string, collections []string, topK int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if len(collections) == 0 {
		return nil, ErrNoCollections
	}

	if topK <= 0 {
		return []models.SearchResult{}, nil
	}

	embedding, err := s.queryEmbedding(ctx, query)
	if err != nil {
		s.logger.Error("search: query embedding failed", "error", err)

		//nolint:wrapcheck // returned as-is so the handler can map to 502
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(collections)*topK)

	for _, collection := range collections {
		entries, err := s.searchCollection(ctx, collection, embedding, topK)
		if err != nil {
			s.logger.Warn("search: collection failed", "error", err, "collection", collection)

			results = append(results, models.SearchResult{
				Collection: collection,
				Err:        err,
			})

			continue
		}

		results = append(results, entries...)
	}

	return results, nil
}

// searchCollection runs the vector search for one collection and resolves the
// hit ids against the relational store with a single lookup.
func (s *SearchService) searchCollection(ctx context.Context, collection string, embedding []float32, topK int) ([]models.SearchResult, error) {
	if !s.vectors.Has(collection) {
		return nil, huberrors.NewSearchError(collection, ErrUnknownCollection)
	}

	hits, err := s.vectors.Search(ctx, collection, embedding, topK, s.ef)
	if err != nil {
		return nil, huberrors.NewSearchError(collection, err)
	}

	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}

	records, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, huberrors.NewSearchError(collection, fmt.Errorf("resolve records: %w", err))
	}

	entries := make([]models.SearchResult, len(hits))

	for i, hit := range hits {
		// A hit whose id is absent relationally keeps a nil Record; it is
		// surfaced rather than silently dropped.
		entries[i] = models.SearchResult{
			Collection: collection,
			ID:         hit.ID,
			Score:      roundScore(hit.Score),
			Text:       hit.Text,
			Record:     records[hit.ID],
		}
	}

	return entries, nil
}

// queryEmbedding returns the embedding for the query, via the LRU cache when
// configured. Concurrent misses for the same query share one upstream call.
func (s *SearchService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if s.queryCache == nil {
		return s.embedQuery(ctx, query)
	}

	if vec, ok := s.queryCache.Get(query); ok {
		return vec, nil
	}

	val, err, _ := s.queryLoadGroup.Do(query, func() (any, error) {
		vec, loadErr := s.embedQuery(ctx, query)
		if loadErr != nil {
			return nil, loadErr
		}

		s.queryCache.Add(query, vec)

		return vec, nil
	})
	if err != nil {
		//nolint:wrapcheck // the underlying EmbeddingError carries the context
		return nil, err
	}

	return val.([]float32), nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		//nolint:wrapcheck // already an EmbeddingError
		return nil, err
	}

	if len(vectors) != 1 {
		return nil, huberrors.NewEmbeddingError("embed query",
			fmt.Errorf("unexpected number of embeddings returned: got %d, expected 1", len(vectors)))
	}

	return vectors[0], nil
}

func roundScore(score float64) float64 {
	shift := math.Pow10(scoreDecimals)

	return math.Round(score*shift) / shift
}
