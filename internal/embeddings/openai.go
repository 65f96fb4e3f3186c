package embeddings

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/talenthub/hub/internal/huberrors"
)

// OpenAIClient implements the Client interface using OpenAI's embedding API.
type OpenAIClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// Ensure OpenAIClient implements Client interface
var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI embedding client. Uses
// text-embedding-3-small when model is empty. Panics if apiKey is empty.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if apiKey == "" {
		panic("embeddings: OpenAI API key cannot be empty")
	}

	embeddingModel := openai.SmallEmbedding3
	if model != "" {
		embeddingModel = openai.EmbeddingModel(model)
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  embeddingModel,
	}
}

// Embed generates embedding vectors for the given texts, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("texts cannot be empty"))
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, huberrors.NewEmbeddingError("embed", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, huberrors.NewEmbeddingError("embed",
			fmt.Errorf("unexpected number of embeddings returned: got %d, expected %d", len(resp.Data), len(texts)))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = data.Embedding
	}

	return vectors, nil
}
