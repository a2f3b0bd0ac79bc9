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

package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// permanentError stops RetryWithBackoff early.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. RetryWithBackoff returns the
// wrapped error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		if attempt == maxAttempts {
			break
		}

		// baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// RetryingEmbedder repeats a whole EmbedTexts call when it fails with a
// retryable EmbeddingServiceError. It is opt-in; nothing retries by default.
type RetryingEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// NewRetryingEmbedder wraps inner with whole-batch retries.
func NewRetryingEmbedder(inner Embedder, maxAttempts int, baseDelay time.Duration) (*RetryingEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	return &RetryingEmbedder{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      slog.Default().With("component", "retrying-embedder"),
	}, nil
}

// EmbedTexts calls the wrapped embedder until it succeeds, fails permanently,
// runs out of attempts, or ctx ends.
func (r *RetryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var (
		out     [][]float32
		lastErr error
	)
	err := RetryWithBackoff(ctx, func() error {
		vectors, err := r.inner.EmbedTexts(ctx, texts)
		if err != nil {
			lastErr = err
			var serviceErr *EmbeddingServiceError
			if errors.As(err, &serviceErr) && !serviceErr.Retryable() {
				return Permanent(err)
			}
			return err
		}
		out = vectors
		return nil
	}, r.maxAttempts, r.baseDelay)

	if err == nil {
		return out, nil
	}

	var serviceErr *EmbeddingServiceError
	if errors.As(err, &serviceErr) {
		return nil, serviceErr
	}

	// Context ended between attempts.
	var backend Backend
	var model string
	if errors.As(lastErr, &serviceErr) {
		backend, model = serviceErr.Backend, serviceErr.Model
	}
	r.logger.Debug("giving up on embedding batch", "count", len(texts), "err", err)
	return nil, NewServiceError(ctx, backend, model, err)
}

// Close closes the wrapped embedder if it holds resources.
func (r *RetryingEmbedder) Close() error {
	if c, ok := r.inner.(Closer); ok {
		return c.Close()
	}
	return nil
}
