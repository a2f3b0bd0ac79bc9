package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

const closeTimeout = 5 * time.Second

// BatchEmbedder splits large requests into sub-batches, dispatches them on a
// worker pool, and reassembles the results in input order. It preserves the
// all-or-nothing contract: the first failing sub-batch cancels the rest and
// no partial output is returned.
type BatchEmbedder struct {
	inner     Embedder
	backend   Backend
	model     string
	batchSize int
	pool      *ants.Pool
	limiter   *rate.Limiter
	progress  ProgressFunc
	logger    *slog.Logger
}

// BatchOption configures a BatchEmbedder.
type BatchOption func(*BatchEmbedder) error

// WithSubBatchSize sets the maximum number of texts per inner call.
// Default is 512.
func WithSubBatchSize(n int) BatchOption {
	return func(b *BatchEmbedder) error {
		if n < 1 {
			n = 1
		}
		b.batchSize = n
		return nil
	}
}

// WithPoolSize sets how many sub-batches may be in flight at once.
// Default is 1.
func WithPoolSize(size int) BatchOption {
	return func(b *BatchEmbedder) error {
		if size < 1 {
			size = 1
		}
		if b.pool != nil {
			b.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithRateLimit throttles inner calls to rps per second. Zero disables it.
func WithRateLimit(rps float64) BatchOption {
	return func(b *BatchEmbedder) error {
		if rps <= 0 {
			b.limiter = nil
			return nil
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		return nil
	}
}

// WithProgress registers a callback invoked after each sub-batch completes.
func WithProgress(fn ProgressFunc) BatchOption {
	return func(b *BatchEmbedder) error {
		b.progress = fn
		return nil
	}
}

// WithServiceName labels errors produced by the batch layer itself, such as
// cancellation between sub-batches.
func WithServiceName(backend Backend, model string) BatchOption {
	return func(b *BatchEmbedder) error {
		b.backend = backend
		b.model = model
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchEmbedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger.With("component", "batch-embedder")
		return nil
	}
}

// NewBatchEmbedder wraps inner with sub-batching and concurrent dispatch.
func NewBatchEmbedder(inner Embedder, opts ...BatchOption) (*BatchEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	b := &BatchEmbedder{
		inner:     inner,
		batchSize: 512,
		pool:      pool,
		logger:    slog.Default().With("component", "batch-embedder"),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.pool.Release()
			return nil, optErr
		}
	}
	return b, nil
}

// NewBatchEmbedderFromConfig builds a BatchEmbedder using the batching,
// concurrency and rate settings of cfg.
func NewBatchEmbedderFromConfig(inner Embedder, cfg *Config, opts ...BatchOption) (*BatchEmbedder, error) {
	base := []BatchOption{
		WithSubBatchSize(cfg.BatchSize),
		WithPoolSize(cfg.Concurrency),
		WithRateLimit(cfg.RequestsPerSecond),
		WithServiceName(cfg.Backend, cfg.EmbeddingModel),
	}
	return NewBatchEmbedder(inner, append(base, opts...)...)
}

type span struct {
	start, end int
}

// EmbedTexts embeds texts in sub-batches and returns the vectors in input order.
func (b *BatchEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var batches []span
	for start := 0; start < len(texts); start += b.batchSize {
		batches = append(batches, span{start: start, end: min(start+b.batchSize, len(texts))})
	}
	b.logger.Debug("embedding texts", "count", len(texts), "batches", len(batches))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		done     atomic.Int64
		results  = make([][][]float32, len(batches))
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, batch := range batches {
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			vectors, err := b.embedBatch(runCtx, texts[batch.start:batch.end])
			if err != nil {
				fail(err)
				return
			}
			results[i] = vectors
			if b.progress != nil {
				b.progress(int(done.Add(int64(len(vectors)))), len(texts))
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		b.logger.Error("embedding batch failed", "count", len(texts), "err", firstErr)
		return nil, NewServiceError(ctx, b.backend, b.model, firstErr)
	}

	out := make([][]float32, 0, len(texts))
	for _, vectors := range results {
		out = append(out, vectors...)
	}
	return out, nil
}

func (b *BatchEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vectors, err := b.inner.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrResultMismatch, len(texts), len(vectors))
	}
	return vectors, nil
}

// Close releases the worker pool and closes the wrapped embedder if it
// holds resources.
func (b *BatchEmbedder) Close() error {
	err := b.pool.ReleaseTimeout(closeTimeout)
	if c, ok := b.inner.(Closer); ok {
		if closeErr := c.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
