package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates one embedding per input text, in input order.
	// The call is all-or-nothing: on error no embeddings are returned.
	// Backend failures are reported as *EmbeddingServiceError.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Closer is implemented by embedders that hold resources such as worker pools.
type Closer interface {
	Close() error
}
