package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthub/hub/internal/embeddings"
	"github.com/talenthub/hub/internal/idgen"
	"github.com/talenthub/hub/internal/models"
	"github.com/talenthub/hub/internal/normalizer"
	"github.com/talenthub/hub/internal/schema"
	"github.com/talenthub/hub/internal/vectorindex"
)

// memoryProfileStore backs both sides of the round trip: rows written during
// ingestion are served back to the search join.
type memoryProfileStore struct {
	records map[int64]map[string]string
}

func newMemoryProfileStore() *memoryProfileStore {
	return &memoryProfileStore{records: map[int64]map[string]string{}}
}

func (m *memoryProfileStore) InsertRows(_ context.Context, rows []models.Row) error {
	for _, row := range rows {
		fields := make(map[string]string, len(row.Fields))
		for k, v := range row.Fields {
			fields[k] = v
		}

		m.records[row.ID] = fields
	}

	return nil
}

func (m *memoryProfileStore) GetByIDs(_ context.Context, ids []int64) (map[int64]map[string]string, error) {
	out := make(map[int64]map[string]string, len(ids))

	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out[id] = rec
		}
	}

	return out, nil
}

// TestIngestThenSearch_ReturnsStoredProfile drives a keyed document through
// the real ingestion pipeline into a real in-memory vector index, then
// searches it back. Embeddings are deterministic, so querying with a stored
// summary must return that profile as the top hit with maximal similarity and
// its relational record attached.
func TestIngestThenSearch_ReturnsStoredProfile(t *testing.T) {
	ctx := context.Background()

	s := &schema.Schema{
		Columns: []schema.Column{
			{Name: "file_name", Type: schema.TypeString},
			{Name: "school_name", Type: schema.TypeString},
			{Name: "detailed_summary", Type: schema.TypeText},
		},
		Collections: []string{"detailed_summary"},
	}
	require.NoError(t, s.Validate())

	ids, err := idgen.New(1)
	require.NoError(t, err)

	vectors, err := vectorindex.New(s.Collections, 8, func(o *vectorindex.Options) {
		o.Exact = true
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	embedder := embeddings.NewMockClient(8)
	store := newMemoryProfileStore()

	ingestSvc := NewIngestService(IngestServiceParams{
		Normalizer:  normalizer.New(s, ids),
		Repo:        store,
		Vectors:     vectors,
		Embedder:    embedder,
		Collections: s.Collections,
		BatchSize:   10,
	})

	payload := []byte(`{
		"r1": {
			"DetailedSummary": "Experienced backend engineer",
			"CategoricalValues": {"SchoolName": "MIT"}
		},
		"r2": {
			"DetailedSummary": "Oil painter and muralist",
			"CategoricalValues": {"SchoolName": "RISD"}
		}
	}`)

	result, err := ingestSvc.Ingest(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)

	searchSvc := NewSearchService(SearchServiceParams{
		Embedder: embedder,
		Vectors:  vectors,
		Repo:     store,
	})

	results, err := searchSvc.Search(ctx, "Experienced backend engineer", []string{"detailed_summary"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	require.NoError(t, top.Err)
	assert.Equal(t, "detailed_summary", top.Collection)
	assert.InDelta(t, 1.0, top.Score, 1e-4)
	assert.Equal(t, "Experienced backend engineer", top.Text)

	require.NotNil(t, top.Record)
	assert.Equal(t, "r1", top.Record["file_name"])
	assert.Equal(t, "MIT", top.Record["school_name"])
	assert.Equal(t, "Experienced backend engineer", top.Record["detailed_summary"])

	assert.Less(t, results[1].Score, top.Score)
	assert.Equal(t, "r2", results[1].Record["file_name"])
}
