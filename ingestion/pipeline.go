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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/chunker"
	"github.com/poiesic/splitembed/core"
	"github.com/poiesic/splitembed/splitter"
)

// Pipeline splits documents into chunks and embeds them.
// It holds no per-call state and is safe for concurrent use.
type Pipeline struct {
	embedder   ai.Embedder
	assembler  *chunker.Assembler
	chunkOpts  []chunker.Option
	dimensions int
	normalize  bool
	backend    ai.Backend
	model      string
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithLengthFunc sets how chunk sizes are measured. Default is
// splitter.RuneLength.
func WithLengthFunc(fn splitter.LengthFunc) Option {
	return func(p *Pipeline) error {
		p.chunkOpts = append(p.chunkOpts, chunker.WithLengthFunc(fn))
		return nil
	}
}

// WithAbbreviations adds words whose trailing period does not end a sentence.
func WithAbbreviations(words ...string) Option {
	return func(p *Pipeline) error {
		p.chunkOpts = append(p.chunkOpts, chunker.WithAbbreviations(words...))
		return nil
	}
}

// WithDimensions makes the pipeline reject vectors whose length is not n.
// Zero accepts any length as long as all vectors agree.
func WithDimensions(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: %w", core.ErrInvalidConfig, ErrInvalidDimensions)
		}
		p.dimensions = n
		return nil
	}
}

// WithNormalizedVectors scales every returned vector to unit length.
func WithNormalizedVectors() Option {
	return func(p *Pipeline) error {
		p.normalize = true
		return nil
	}
}

// WithServiceName labels errors raised by the pipeline itself, such as a
// result count mismatch, with the backend and model in use.
func WithServiceName(backend ai.Backend, model string) Option {
	return func(p *Pipeline) error {
		p.backend = backend
		p.model = model
		return nil
	}
}

// NewPipeline creates a pipeline that chunks with settings and embeds with
// embedder. Configuration problems wrap core.ErrInvalidConfig.
func NewPipeline(embedder ai.Embedder, settings chunker.Settings, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	assembler, err := chunker.New(settings, p.chunkOpts...)
	if err != nil {
		return nil, err
	}
	p.assembler = assembler
	p.logger = p.logger.With("component", "ingestion-pipeline")

	return p, nil
}

// Settings returns the chunk settings in use.
func (p *Pipeline) Settings() chunker.Settings {
	return p.assembler.Settings()
}

// Chunks assembles doc without embedding it.
func (p *Pipeline) Chunks(doc *core.Document) []core.Chunk {
	return p.assembler.Assemble(doc)
}

// SplitAndEmbed wraps text in a Document and embeds it.
func (p *Pipeline) SplitAndEmbed(ctx context.Context, text string) ([]core.EmbeddingRecord, error) {
	return p.SplitAndEmbedDocument(ctx, core.NewDocument(text))
}

// SplitAndEmbedDocument chunks doc, embeds every chunk's EmbedView in one
// call and pairs vector i with chunk i's StoreView.
//
// Documents with no content yield an empty, non-nil slice without calling the
// embedder. Backend failures and malformed results are returned as
// *ai.EmbeddingServiceError with no records.
func (p *Pipeline) SplitAndEmbedDocument(ctx context.Context, doc *core.Document) ([]core.EmbeddingRecord, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	chunks := p.assembler.Assemble(doc)
	if len(chunks) == 0 {
		p.logger.Debug("document produced no chunks", "document", doc.ID)
		return []core.EmbeddingRecord{}, nil
	}

	embedViews := make([]string, len(chunks))
	storeViews := make([]string, len(chunks))
	for i := range chunks {
		embedViews[i] = chunks[i].EmbedView
		storeViews[i] = chunks[i].StoreView
	}

	p.logger.Debug("embedding chunks", "document", doc.ID, "chunks", len(chunks))
	vectors, err := p.embedder.EmbedTexts(ctx, embedViews)
	if err != nil {
		serviceErr := ai.NewServiceError(ctx, p.backend, p.model, err)
		p.logger.Error("failed to embed chunks", "document", doc.ID, "chunks", len(chunks), "kind", serviceErr.Kind, "err", err)
		return nil, serviceErr
	}

	if _, err := ai.CheckVectors(vectors, len(chunks), p.dimensions); err != nil {
		p.logger.Error("embedder returned unusable result", "document", doc.ID, "chunks", len(chunks), "err", err)
		return nil, ai.NewServiceError(ctx, p.backend, p.model, err)
	}

	records := make([]core.EmbeddingRecord, len(chunks))
	for i, vector := range vectors {
		if p.normalize {
			vector = ai.NormalizeVector(vector)
		}
		records[i] = core.EmbeddingRecord{Text: storeViews[i], Embedding: vector}
	}
	return records, nil
}
