package openai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using the OpenAI or Azure OpenAI embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	backend  ai.Backend
	model    string
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Backend != ai.BackendOpenAI && config.Backend != ai.BackendAzure {
		return nil, fmt.Errorf("%w: openai embedder cannot serve backend %q", core.ErrInvalidConfig, config.Backend)
	}

	// Local OpenAI-compatible services don't require authentication
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	opts := []openai.Option{
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	}
	if config.Dimensions > 0 {
		opts = append(opts, openai.WithEmbeddingDimensions(config.Dimensions))
	}
	if config.Backend == ai.BackendAzure {
		// The deployment name doubles as model for Azure routing.
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(config.APIVersion),
			openai.WithModel(config.EmbeddingModel),
		)
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfig, err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(config.StripNewLines),
		embeddings.WithBatchSize(config.BatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		backend:  config.Backend,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder", "backend", config.Backend),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
// Config.Backend must be ai.BackendOpenAI or ai.BackendAzure.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	// langchaingo rewrites newlines in the slice it is given
	input := slices.Clone(texts)

	vectors, err := e.embedder.EmbedDocuments(ctx, input)
	if err != nil {
		serviceErr := ai.NewServiceError(ctx, e.backend, e.model, err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "kind", serviceErr.Kind, "err", err)
		return nil, serviceErr
	}

	if _, err := ai.CheckVectors(vectors, len(texts), 0); err != nil {
		e.logger.Error("embedding service returned unusable result", "count", len(texts), "err", err)
		return nil, ai.NewServiceError(ctx, e.backend, e.model, err)
	}

	return vectors, nil
}
