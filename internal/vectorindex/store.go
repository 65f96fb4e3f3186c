// Package vectorindex wraps an embedded vector database with one named
// collection per embeddable column. Each collection holds the embedding plus a
// small payload (profile id and the embedded text) so search results can be
// joined back to the relational store.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/hupe1980/vecgo"

	"github.com/talenthub/hub/internal/models"
)

// maxTextLength caps the stored text payload per vector entry. Longer texts
// are still embedded in full; only the payload copy is truncated.
const maxTextLength = 10000

// ErrCollectionNotFound is returned when an operation names a collection the
// store was not built with.
var ErrCollectionNotFound = errors.New("vectorindex: collection not found")

// payload is the typed data stored alongside each vector. The profile id is
// carried here because the index assigns its own internal ids.
type payload struct {
	ID   int64
	Text string
}

// Store holds one vector index per collection. All collections share the same
// dimension and cosine distance.
type Store struct {
	dimension   int
	dataDir     string
	collections map[string]*vecgo.Vecgo[payload]
	names       []string
}

// Options configures a Store.
type Options struct {
	// DataDir enables write-ahead logging and snapshot checkpoints under the
	// given directory. Empty keeps the store purely in-memory.
	DataDir string

	// Exact switches from HNSW to a flat index with exact search. Intended
	// for tests and small datasets.
	Exact bool
}

// New builds a store with one index per collection name.
func New(collections []string, dimension int, optFns ...func(o *Options)) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vectorindex: dimension must be positive, got %d", dimension)
	}

	if len(collections) == 0 {
		return nil, errors.New("vectorindex: no collections configured")
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		dimension:   dimension,
		dataDir:     opts.DataDir,
		collections: make(map[string]*vecgo.Vecgo[payload], len(collections)),
		names:       append([]string(nil), collections...),
	}

	for _, name := range collections {
		db, err := buildIndex(name, dimension, opts)
		if err != nil {
			_ = s.Close()

			return nil, fmt.Errorf("vectorindex: build collection %q: %w", name, err)
		}

		s.collections[name] = db
	}

	return s, nil
}

func buildIndex(name string, dimension int, opts Options) (*vecgo.Vecgo[payload], error) {
	if opts.Exact {
		b := vecgo.Flat[payload](dimension).Cosine()
		if opts.DataDir != "" {
			dir, err := collectionDir(opts.DataDir, name)
			if err != nil {
				return nil, err
			}

			b = b.WAL(filepath.Join(dir, "wal")).SnapshotPath(filepath.Join(dir, "snapshot"))
		}

		return b.Build()
	}

	b := vecgo.HNSW[payload](dimension).Cosine()
	if opts.DataDir != "" {
		dir, err := collectionDir(opts.DataDir, name)
		if err != nil {
			return nil, err
		}

		b = b.WAL(filepath.Join(dir, "wal")).SnapshotPath(filepath.Join(dir, "snapshot"))
	}

	return b.Build()
}

func collectionDir(dataDir, name string) (string, error) {
	dir := filepath.Join(dataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	return dir, nil
}

// Recover replays the write-ahead logs of all collections. It must be called
// before any insert or search when a data directory is configured; it is a
// no-op for in-memory stores.
func (s *Store) Recover(ctx context.Context) error {
	if s.dataDir == "" {
		return nil
	}

	for _, name := range s.names {
		if err := s.collections[name].RecoverFromWAL(ctx); err != nil {
			return fmt.Errorf("vectorindex: recover collection %q: %w", name, err)
		}
	}

	return nil
}

// Insert stores the given entries in the named collection. Every entry must
// carry an embedding of the store's dimension.
func (s *Store) Insert(ctx context.Context, collection string, entries []models.VectorEntry) error {
	db, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	if len(entries) == 0 {
		return nil
	}

	items := make([]vecgo.VectorWithData[payload], len(entries))

	for i, e := range entries {
		if len(e.Embedding) != s.dimension {
			return fmt.Errorf("vectorindex: entry %d has dimension %d, collection %q expects %d",
				i, len(e.Embedding), collection, s.dimension)
		}

		items[i] = vecgo.VectorWithData[payload]{
			Vector: e.Embedding,
			Data:   payload{ID: e.ID, Text: truncateText(e.Text)},
		}
	}

	result := db.BatchInsert(ctx, items)
	for i, err := range result.Errors {
		if err != nil {
			return fmt.Errorf("vectorindex: insert entry %d into %q: %w", i, collection, err)
		}
	}

	return nil
}

// Search returns the topK nearest entries of the named collection, best first.
// Scores are cosine similarities in [-1, 1]. An ef of 0 uses the index
// default; a positive ef below topK is raised to topK.
func (s *Store) Search(ctx context.Context, collection string, vector []float32, topK, ef int) ([]models.VectorHit, error) {
	db, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	if topK <= 0 {
		return nil, nil
	}

	if len(vector) != s.dimension {
		return nil, fmt.Errorf("vectorindex: query has dimension %d, collection %q expects %d",
			len(vector), collection, s.dimension)
	}

	if ef > 0 && ef < topK {
		ef = topK
	}

	results, err := db.Search(vector).KNN(topK).EF(ef).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search %q: %w", collection, err)
	}

	hits := make([]models.VectorHit, len(results))
	for i, r := range results {
		hits[i] = models.VectorHit{
			ID:    r.Data.ID,
			Score: 1 - float64(r.Distance),
			Text:  r.Data.Text,
		}
	}

	return hits, nil
}

// Flush makes pending writes of the named collection durable. In-memory
// collections are always searchable immediately, so without a data directory
// this is a no-op.
func (s *Store) Flush(collection string) error {
	db, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, collection)
	}

	if s.dataDir == "" {
		return nil
	}

	if err := db.Checkpoint(); err != nil {
		return fmt.Errorf("vectorindex: flush %q: %w", collection, err)
	}

	return nil
}

// Has reports whether the store was built with the named collection.
func (s *Store) Has(collection string) bool {
	_, ok := s.collections[collection]

	return ok
}

// Names returns the collection names in configuration order.
func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

// Close releases all collections.
func (s *Store) Close() error {
	var errs []error

	for name, db := range s.collections {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close collection %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// truncateText cuts the payload copy to at most maxTextLength bytes, backing
// off to a rune boundary so the stored text stays valid UTF-8.
func truncateText(text string) string {
	if len(text) <= maxTextLength {
		return text
	}

	cut := maxTextLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut]
}
