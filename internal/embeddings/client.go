// Package embeddings provides clients for generating text embeddings.
package embeddings

import "context"

// Client defines the interface for generating text embeddings.
type Client interface {
	// Embed generates one fixed-dimension embedding vector per input text,
	// in input order. It is all-or-nothing: either every text gets a vector
	// or an error is returned, never partial results.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
