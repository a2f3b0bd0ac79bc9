package ai

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingEmbedder returns [index-of-text] vectors and records each batch.
type recordingEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	failOn  string
	delay   time.Duration
	short   bool
	active  atomic.Int32
	peak    atomic.Int32
}

func (r *recordingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}

	r.mu.Lock()
	r.batches = append(r.batches, slices.Clone(texts))
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if slices.Contains(texts, r.failOn) {
		return nil, errors.New("API returned unexpected status code: 500")
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		var id float32
		fmt.Sscanf(text, "t%f", &id)
		out[i] = []float32{id, 1}
	}
	if r.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%d", i)
	}
	return out
}

func TestBatchEmbedder_PreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inner := &recordingEmbedder{delay: time.Millisecond}
	b, err := NewBatchEmbedder(inner, WithSubBatchSize(3), WithPoolSize(4))
	require.NoError(t, err)

	input := texts(20)
	vectors, err := b.EmbedTexts(context.Background(), input)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	require.Len(t, vectors, 20)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0], "vector %d out of order", i)
	}

	inner.mu.Lock()
	defer inner.mu.Unlock()
	assert.Len(t, inner.batches, 7)
	for _, batch := range inner.batches {
		assert.LessOrEqual(t, len(batch), 3)
	}
}

func TestBatchEmbedder_Concurrency(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inner := &recordingEmbedder{delay: 20 * time.Millisecond}
	b, err := NewBatchEmbedder(inner, WithSubBatchSize(1), WithPoolSize(2))
	require.NoError(t, err)

	_, err = b.EmbedTexts(context.Background(), texts(6))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.LessOrEqual(t, inner.peak.Load(), int32(2))
}

func TestBatchEmbedder_EmptyInput(t *testing.T) {
	inner := &recordingEmbedder{}
	b, err := NewBatchEmbedder(inner)
	require.NoError(t, err)
	defer b.Close()

	vectors, err := b.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, vectors)
	assert.Empty(t, vectors)
	assert.Empty(t, inner.batches)
}

func TestBatchEmbedder_FailureIsAllOrNothing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inner := &recordingEmbedder{failOn: "t7", delay: time.Millisecond}
	b, err := NewBatchEmbedder(inner,
		WithSubBatchSize(2),
		WithPoolSize(3),
		WithServiceName(BackendOpenAI, "embed-model"),
	)
	require.NoError(t, err)

	vectors, err := b.EmbedTexts(context.Background(), texts(12))
	require.NoError(t, b.Close())

	assert.Nil(t, vectors)
	var se *EmbeddingServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindNetwork, se.Kind)
	assert.Equal(t, BackendOpenAI, se.Backend)
	assert.Equal(t, "embed-model", se.Model)
}

func TestBatchEmbedder_ShortResult(t *testing.T) {
	inner := &recordingEmbedder{short: true}
	b, err := NewBatchEmbedder(inner, WithSubBatchSize(4))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.EmbedTexts(context.Background(), texts(4))
	var se *EmbeddingServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindInvalidResponse, se.Kind)
	assert.ErrorIs(t, err, ErrResultMismatch)
}

func TestBatchEmbedder_ContextCanceled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inner := &recordingEmbedder{delay: time.Second}
	b, err := NewBatchEmbedder(inner, WithSubBatchSize(1), WithPoolSize(2))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	vectors, err := b.EmbedTexts(ctx, texts(4))
	require.NoError(t, b.Close())

	assert.Nil(t, vectors)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	var se *EmbeddingServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindTimeout, se.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBatchEmbedder_Progress(t *testing.T) {
	inner := &recordingEmbedder{}

	var (
		mu   sync.Mutex
		seen []int
	)
	b, err := NewBatchEmbedder(inner, WithSubBatchSize(2), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 5, total)
		seen = append(seen, done)
	}))
	require.NoError(t, err)
	defer b.Close()

	_, err = b.EmbedTexts(context.Background(), texts(5))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 4, 5}, seen)
}

func TestBatchEmbedder_RateLimit(t *testing.T) {
	inner := &recordingEmbedder{}
	b, err := NewBatchEmbedder(inner, WithSubBatchSize(1), WithRateLimit(50))
	require.NoError(t, err)
	defer b.Close()

	start := time.Now()
	_, err = b.EmbedTexts(context.Background(), texts(4))
	require.NoError(t, err)

	// Burst of one, then three more at 20ms intervals.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestNewBatchEmbedderFromConfig(t *testing.T) {
	cfg := NewConfig(WithBatchSize(2), WithConcurrency(3), WithRequestsPerSecond(0))
	b, err := NewBatchEmbedderFromConfig(&recordingEmbedder{}, cfg)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, 2, b.batchSize)
	assert.Equal(t, 3, b.pool.Cap())
	assert.Nil(t, b.limiter)
	assert.Equal(t, cfg.EmbeddingModel, b.model)
}

func TestNewBatchEmbedder_NilInner(t *testing.T) {
	_, err := NewBatchEmbedder(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

type closingEmbedder struct {
	recordingEmbedder
	closed bool
}

func (c *closingEmbedder) Close() error {
	c.closed = true
	return nil
}

func TestBatchEmbedder_CloseClosesInner(t *testing.T) {
	inner := &closingEmbedder{}
	b, err := NewBatchEmbedder(inner)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	assert.True(t, inner.closed)
}
