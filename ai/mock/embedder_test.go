package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/poiesic/splitembed/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ai.Embedder = (*MockEmbedder)(nil)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	m.Dimensions = 8

	first, err := m.EmbedTexts(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	second, err := m.EmbedTexts(context.Background(), []string{"alpha"})
	require.NoError(t, err)

	require.Len(t, first, 2)
	assert.Len(t, first[0], 8)
	assert.Equal(t, first[0], second[0])
	assert.NotEqual(t, first[0], first[1])

	var sum float64
	for _, v := range first[0] {
		sum += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)

	assert.Equal(t, 2, m.CallCount())
	assert.Equal(t, [][]string{{"alpha", "beta"}, {"alpha"}}, m.Batches())
}

func TestMockEmbedder_CustomFunc(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	})

	_, err := m.EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	_, err = m.EmbedTexts(context.Background(), []string{"x"})
	assert.NoError(t, err)
}

func TestMockEmbedder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockEmbedder().EmbedTexts(ctx, []string{"x"})
	var se *ai.EmbeddingServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ai.KindCanceled, se.Kind)
}

func TestMockEmbedder_Concurrent(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedTexts(context.Background(), []string{"x"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, m.CallCount())
}
