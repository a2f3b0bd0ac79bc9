package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Embedder implements ai.Embedder against Ollama's native embedding API.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

// NewEmbedder creates an Ollama embedder. Config.Backend must be
// ai.BackendOllama and EmbeddingHost the server root, e.g.
// "http://localhost:11434".
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, http.DefaultTransport)
}

func newEmbedder(config *ai.Config, transport http.RoundTripper) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Backend != ai.BackendOllama {
		return nil, fmt.Errorf("%w: ollama embedder cannot serve backend %q", core.ErrInvalidConfig, config.Backend)
	}

	client, err := ollama.New(
		ollama.WithModel(config.EmbeddingModel),
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithHTTPClient(&http.Client{Transport: statusTransport{next: transport}}),
	)
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
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "ollama-embedder"),
	}, nil
}

// EmbedTexts generates vector embeddings for multiple text strings.
// Ollama receives one request per text.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, slices.Clone(texts))
	if err != nil {
		serviceErr := ai.NewServiceError(ctx, ai.BackendOllama, e.model, err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "kind", serviceErr.Kind, "err", err)
		return nil, serviceErr
	}

	if _, err := ai.CheckVectors(vectors, len(texts), 0); err != nil {
		e.logger.Error("embedding service returned unusable result", "count", len(texts), "err", err)
		return nil, ai.NewServiceError(ctx, ai.BackendOllama, e.model, err)
	}
	return vectors, nil
}

// statusTransport puts the HTTP status code into Ollama error bodies.
// The langchaingo client reports only the server's message otherwise.
type statusTransport struct {
	next http.RoundTripper
}

func (t statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	message := string(bytes.TrimSpace(body))
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		message = apiErr.Error
	}

	rewritten, err := json.Marshal(map[string]string{
		"error": fmt.Sprintf("API returned unexpected status code: %d: %s", resp.StatusCode, message),
	})
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(rewritten))
	resp.ContentLength = int64(len(rewritten))
	resp.Header.Del("Content-Length")
	return resp, nil
}
