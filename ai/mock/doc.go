// Package mock provides a test double for ai.Embedder.
//
// MockEmbedder lets tests run without an embedding service and gives
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vectors, err := embedder.EmbedTexts(ctx, []string{"test"})
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
//	        return nil, errors.New("boom")
//	    })
//
//	// Inspect what was sent
//	count := embedder.CallCount()
//	batches := embedder.Batches()
//
// # Default Behavior
//
// Without a custom function, each text maps to a unit vector derived from
// its FNV hash, DefaultDimensions long unless Dimensions is set. A done
// context yields an *ai.EmbeddingServiceError.
package mock
