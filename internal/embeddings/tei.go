package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/talenthub/hub/internal/huberrors"
)

const defaultTEITimeout = 60 * time.Second

// TEIClient implements the Client interface against a text-embeddings-inference
// style HTTP server (POST {baseURL}/embed). Stateless; the only side effect is
// the network call.
type TEIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Ensure TEIClient implements Client interface
var _ Client = (*TEIClient)(nil)

// TEIOption configures a TEIClient.
type TEIOption func(*TEIClient)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) TEIOption {
	return func(t *TEIClient) { t.httpClient = c }
}

// WithRateLimit caps embedding calls at callsPerSecond; 0 disables limiting.
func WithRateLimit(callsPerSecond float64) TEIOption {
	return func(t *TEIClient) {
		if callsPerSecond > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), 1)
		}
	}
}

// NewTEIClient creates a client for the embedding server at baseURL.
func NewTEIClient(baseURL string, opts ...TEIOption) *TEIClient {
	c := &TEIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTEITimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// embedRequest is the wire request of the embedding server. The normalization
// flags are fixed; batch size is caller-controlled.
type embedRequest struct {
	Inputs              []string `json:"inputs"`
	Normalize           bool     `json:"normalize"`
	Truncate            bool     `json:"truncate"`
	TruncationDirection string   `json:"truncation_direction"`
}

// decodeEmbedResponse extracts the vector list from either known response
// shape: a bare list of vectors, or an object wrapping the list under
// "embeddings". Any other shape is a decode error; it never guesses.
func decodeEmbedResponse(body []byte) ([][]float32, error) {
	var direct [][]float32
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Embeddings != nil {
		return wrapped.Embeddings, nil
	}

	return nil, fmt.Errorf("unexpected embed response shape: %s", snippet(body))
}

// snippet truncates a response body for error messages.
func snippet(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}

	return string(body)
}

// Embed generates embedding vectors for the given texts, in input order.
func (c *TEIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("texts cannot be empty"))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("rate limiter: %w", err))
		}
	}

	payload, err := json.Marshal(embedRequest{
		Inputs:              texts,
		Normalize:           true,
		Truncate:            false,
		TruncationDirection: "Right",
	})
	if err != nil {
		return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, huberrors.NewEmbeddingError("embed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, huberrors.NewEmbeddingError("embed", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, huberrors.NewEmbeddingError("embed",
			fmt.Errorf("embedding server returned %d: %s", resp.StatusCode, snippet(body)))
	}

	vectors, err := decodeEmbedResponse(body)
	if err != nil {
		return nil, huberrors.NewEmbeddingError("embed", err)
	}

	if len(vectors) != len(texts) {
		return nil, huberrors.NewEmbeddingError("embed",
			fmt.Errorf("unexpected number of embeddings returned: got %d, expected %d", len(vectors), len(texts)))
	}

	return vectors, nil
}
