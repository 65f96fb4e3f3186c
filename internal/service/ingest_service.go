// Package service contains the ingestion and search orchestration on top of
// the relational repository and the vector index.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talenthub/hub/internal/embeddings"
	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/models"
	"github.com/talenthub/hub/internal/normalizer"
)

// defaultIngestBatchSize applies when the configured batch size is not positive.
const defaultIngestBatchSize = 32

// ProfileInserter provides the relational write operation needed for ingestion.
type ProfileInserter interface {
	InsertRows(ctx context.Context, rows []models.Row) error
}

// VectorInserter provides the vector write operations needed for ingestion.
type VectorInserter interface {
	Insert(ctx context.Context, collection string, entries []models.VectorEntry) error
	Flush(collection string) error
}

// IngestService normalizes upload payloads and writes each batch to both
// stores: the relational row first, then one embedded entry per collection for
// every row whose collection column is non-empty.
//
// Batches are strictly ordered. Any failure aborts the remaining batches, so
// already committed batches stay stored; a failure after a batch's relational
// insert is reported as a PartialWriteError because those rows are retrievable
// by id but not yet searchable.
type IngestService struct {
	normalizer  *normalizer.Normalizer
	repo        ProfileInserter
	vectors     VectorInserter
	embedder    embeddings.Client
	collections []string
	batchSize   int
	logger      *slog.Logger
}

// IngestServiceParams configures IngestService. Logger may be nil.
type IngestServiceParams struct {
	Normalizer  *normalizer.Normalizer
	Repo        ProfileInserter
	Vectors     VectorInserter
	Embedder    embeddings.Client
	Collections []string
	BatchSize   int
	Logger      *slog.Logger
}

// NewIngestService creates an IngestService.
func NewIngestService(p IngestServiceParams) *IngestService {
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultIngestBatchSize
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestService{
		normalizer:  p.Normalizer,
		repo:        p.Repo,
		vectors:     p.Vectors,
		embedder:    p.Embedder,
		collections: p.Collections,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// IngestResult reports what an ingestion call accomplished. On error, Rows and
// Batches still reflect the batches committed before the failure.
type IngestResult struct {
	Rows    int
	Batches int
}

// Ingest parses the payload and stores every record. The whole payload is
// normalized up front, so a malformed payload fails before any write.
func (s *IngestService) Ingest(ctx context.Context, payload []byte) (IngestResult, error) {
	out := IngestResult{}

	rows, err := s.normalizer.Normalize(payload)
	if err != nil {
		s.logger.Error("ingest: normalization failed", "error", err)

		//nolint:wrapcheck // returned as-is so the handler can map to 400
		return out, err
	}

	batches := (len(rows) + s.batchSize - 1) / s.batchSize

	for b := range batches {
		start := b * s.batchSize

		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		batch := rows[start:end]

		if err := s.ingestBatch(ctx, batch, b+1, batches); err != nil {
			s.logger.Error("ingest: batch failed, aborting remaining batches",
				"error", err, "batch", b+1, "batches", batches)

			return out, err
		}

		out.Rows += len(batch)
		out.Batches++
	}

	s.logger.Info("ingest: stored payload", "rows", out.Rows, "batches", out.Batches)

	return out, nil
}

// ingestBatch writes one batch: relational insert, then embed and index the
// non-empty texts of every collection.
func (s *IngestService) ingestBatch(ctx context.Context, batch []models.Row, batchNo, batches int) error {
	if err := s.repo.InsertRows(ctx, batch); err != nil {
		return fmt.Errorf("insert batch %d of %d: %w", batchNo, batches, err)
	}

	for _, collection := range s.collections {
		if err := s.indexCollection(ctx, batch, collection); err != nil {
			return huberrors.NewPartialWriteError(batchNo, batches, collection, err)
		}
	}

	return nil
}

// indexCollection embeds the batch rows whose collection column is non-empty
// and inserts them into the collection's vector index.
func (s *IngestService) indexCollection(ctx context.Context, batch []models.Row, collection string) error {
	ids := make([]int64, 0, len(batch))
	texts := make([]string, 0, len(batch))

	for _, row := range batch {
		text := row.Field(collection)
		if text == "" {
			continue
		}

		ids = append(ids, row.ID)
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		//nolint:wrapcheck // already an EmbeddingError; wrapped by the caller
		return err
	}

	entries := make([]models.VectorEntry, len(texts))
	for i := range texts {
		entries[i] = models.VectorEntry{ID: ids[i], Text: texts[i], Embedding: vectors[i]}
	}

	if err := s.vectors.Insert(ctx, collection, entries); err != nil {
		return fmt.Errorf("vector insert: %w", err)
	}

	if err := s.vectors.Flush(collection); err != nil {
		return fmt.Errorf("vector flush: %w", err)
	}

	s.logger.Debug("ingest: indexed collection batch", "collection", collection, "entries", len(entries))

	return nil
}
