package embeddings

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"

	"github.com/talenthub/hub/internal/huberrors"
)

// MockClient implements the Client interface for testing purposes.
// It generates deterministic unit-length embeddings from the input text hash,
// so identical texts always embed to identical vectors (cosine self-similarity 1).
type MockClient struct {
	dimensions int
}

// Ensure MockClient implements Client interface
var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock client with the given vector dimension.
func NewMockClient(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// Embed generates deterministic embeddings for the given texts.
func (c *MockClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("texts cannot be empty"))
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = c.deterministicEmbedding(text)
	}

	return vectors, nil
}

// deterministicEmbedding creates a normalized embedding vector from the text hash.
func (c *MockClient) deterministicEmbedding(text string) []float32 {
	hash := sha256.Sum256([]byte(text))
	embedding := make([]float32, c.dimensions)

	for i := range c.dimensions {
		byteIdx := i % len(hash)
		embedding[i] = (float32(hash[byteIdx]) / 127.5) - 1.0
	}

	return normalize(embedding)
}

// normalize scales a vector to unit length.
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	magnitude := float32(math.Sqrt(sum))
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = val / magnitude
	}

	return normalized
}
