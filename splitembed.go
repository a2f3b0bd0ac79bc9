// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package splitembed splits documents into overlapping chunks and embeds
// them with a configured embedding service.
//
// Service wires an ai.Config into a backend client, wraps it with batching
// and optional retries, and hands it to an ingestion.Pipeline:
//
//	svc, err := splitembed.New(
//	    splitembed.WithAIConfig(ai.NewConfig(
//	        ai.WithAzureDeployment(endpoint, "text-embedding-3-small", ""),
//	        ai.WithAPIKey(key),
//	    )),
//	    splitembed.WithChunkSettings(chunker.Settings{ChunkSize: 512, ChunkOverlap: 20}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//	records, err := svc.SplitAndEmbed(ctx, text)
package splitembed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/ai/ollama"
	"github.com/poiesic/splitembed/ai/openai"
	"github.com/poiesic/splitembed/chunker"
	"github.com/poiesic/splitembed/core"
	"github.com/poiesic/splitembed/ingestion"
	"github.com/poiesic/splitembed/splitter"
)

type Service struct {
	pipeline *ingestion.Pipeline
	embedder ai.Embedder
	owned    bool
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	aiConfig      *ai.Config
	settings      chunker.Settings
	embedder      ai.Embedder
	logger        *slog.Logger
	length        splitter.LengthFunc
	abbreviations []string
	progress      ai.ProgressFunc
	normalize     bool
}

// WithAIConfig sets the embedding backend configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithChunkSettings sets chunk size and overlap.
// Default is chunker.DefaultSettings().
func WithChunkSettings(settings chunker.Settings) Option {
	return func(o *options) {
		o.settings = settings
	}
}

// WithEmbedder uses embedder as is instead of building one from the AI
// config. The caller keeps ownership; Close does not close it.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithLogger sets the logger for the service and everything it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLengthFunc sets the unit chunk sizes are measured in.
func WithLengthFunc(fn splitter.LengthFunc) Option {
	return func(o *options) {
		o.length = fn
	}
}

// WithAbbreviations adds words whose trailing period does not end a sentence.
func WithAbbreviations(words ...string) Option {
	return func(o *options) {
		o.abbreviations = append(o.abbreviations, words...)
	}
}

// WithProgress reports embedding progress per completed sub-batch.
func WithProgress(fn ai.ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithNormalizedVectors scales every embedding to unit length.
func WithNormalizedVectors() Option {
	return func(o *options) {
		o.normalize = true
	}
}

// NewEmbedder creates the backend client selected by cfg.Backend.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case ai.BackendOllama:
		return ollama.NewEmbedder(cfg)
	case ai.BackendOpenAI, ai.BackendAzure:
		return openai.NewEmbedder(cfg)
	}
	return nil, fmt.Errorf("%w: unsupported backend %q", core.ErrInvalidConfig, cfg.Backend)
}

// New builds a Service. Every configuration problem is reported here,
// wrapped around core.ErrInvalidConfig, before any network traffic.
func New(opts ...Option) (*Service, error) {
	o := &options{
		aiConfig: ai.DefaultConfig(),
		settings: chunker.DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if err := o.settings.Validate(); err != nil {
		return nil, err
	}

	pipelineOpts := []ingestion.Option{ingestion.WithLogger(o.logger)}
	if o.length != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithLengthFunc(o.length))
	}
	if len(o.abbreviations) > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithAbbreviations(o.abbreviations...))
	}
	if o.normalize {
		pipelineOpts = append(pipelineOpts, ingestion.WithNormalizedVectors())
	}

	embedder, owned := o.embedder, false
	if embedder == nil {
		if o.aiConfig == nil {
			return nil, fmt.Errorf("%w: AI config is nil", core.ErrInvalidConfig)
		}
		var err error
		embedder, err = buildEmbedder(o)
		if err != nil {
			return nil, err
		}
		owned = true
		pipelineOpts = append(pipelineOpts,
			ingestion.WithDimensions(o.aiConfig.Dimensions),
			ingestion.WithServiceName(o.aiConfig.Backend, o.aiConfig.EmbeddingModel),
		)
	}

	pipeline, err := ingestion.NewPipeline(embedder, o.settings, pipelineOpts...)
	if err != nil {
		if closer, ok := embedder.(ai.Closer); ok && owned {
			closer.Close()
		}
		return nil, err
	}

	return &Service{
		pipeline: pipeline,
		embedder: embedder,
		owned:    owned,
		logger:   o.logger.With("component", "splitembed"),
	}, nil
}

// buildEmbedder creates the backend client and layers batching and, when
// more than one attempt is configured, retries on top of it.
func buildEmbedder(o *options) (ai.Embedder, error) {
	cfg := o.aiConfig
	client, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	batchOpts := []ai.BatchOption{ai.WithLogger(o.logger)}
	if o.progress != nil {
		batchOpts = append(batchOpts, ai.WithProgress(o.progress))
	}
	batch, err := ai.NewBatchEmbedderFromConfig(client, cfg, batchOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.MaxAttempts <= 1 {
		return batch, nil
	}

	retrying, err := ai.NewRetryingEmbedder(batch, cfg.MaxAttempts, cfg.RetryDelay)
	if err != nil {
		batch.Close()
		return nil, err
	}
	return retrying, nil
}

// Settings returns the chunk settings in use.
func (s *Service) Settings() chunker.Settings {
	return s.pipeline.Settings()
}

// Chunks assembles doc without calling the embedding service.
func (s *Service) Chunks(doc *core.Document) []core.Chunk {
	return s.pipeline.Chunks(doc)
}

// SplitAndEmbed chunks text and embeds every chunk in one batch.
func (s *Service) SplitAndEmbed(ctx context.Context, text string) ([]core.EmbeddingRecord, error) {
	return s.pipeline.SplitAndEmbed(ctx, text)
}

// SplitAndEmbedDocument chunks doc, including its embeddable metadata in the
// text sent to the embedding service.
func (s *Service) SplitAndEmbedDocument(ctx context.Context, doc *core.Document) ([]core.EmbeddingRecord, error) {
	return s.pipeline.SplitAndEmbedDocument(ctx, doc)
}

// Close releases the worker pool of an embedder built by New.
func (s *Service) Close() error {
	if !s.owned {
		return nil
	}
	closer, ok := s.embedder.(ai.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		s.logger.Error("error closing embedder", "err", err)
		return err
	}
	return nil
}
