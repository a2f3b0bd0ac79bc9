package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type fakeOllama struct {
	mu       sync.Mutex
	requests []embedRequest
	paths    []string
	status   int
	message  string
	empty    bool
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.paths = append(f.paths, r.URL.Path)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": f.message})
		return
	}

	embeddings := [][]float32{{float32(len(req.Input)), 0.5, 0.25}}
	if f.empty {
		embeddings = [][]float32{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model":      req.Model,
		"embeddings": embeddings,
	})
}

func newFake(t *testing.T, f *fakeOllama) string {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv.URL
}

func config(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithBackend(ai.BackendOllama),
		ai.WithEmbeddingHost(host),
		ai.WithEmbeddingModel("nomic-embed-text"),
	)
}

func TestNewEmbedder_RejectsOtherBackends(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = NewEmbedder(ai.NewConfig(ai.WithBackend(ai.BackendOllama), ai.WithEmbeddingModel("")))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	f := &fakeOllama{}
	host := newFake(t, f)

	// A trailing /v1 is stripped for the native API.
	embedder, err := NewEmbedder(config(host + "/v1"))
	require.NoError(t, err)

	input := []string{"a", "two\nlines", "ccc"}
	vectors, err := embedder.EmbedTexts(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(9), vectors[1][0])
	assert.Equal(t, float32(3), vectors[2][0])
	assert.Equal(t, "two\nlines", input[1])

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.requests, 3)
	for i, req := range f.requests {
		assert.Equal(t, "/api/embed", f.paths[i])
		assert.Equal(t, "nomic-embed-text", req.Model)
	}
	assert.Equal(t, "two lines", f.requests[1].Input)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	f := &fakeOllama{}
	embedder, err := NewEmbedder(config(newFake(t, f)))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, f.requests)
}

func TestEmbedder_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeOllama
		want ai.ErrorKind
	}{
		{name: "missing model", fake: &fakeOllama{status: http.StatusNotFound, message: `model "nomic-embed-text" not found, try pulling it first`}, want: ai.KindInvalidRequest},
		{name: "server error", fake: &fakeOllama{status: http.StatusInternalServerError, message: "llama runner process has terminated"}, want: ai.KindNetwork},
		{name: "overloaded", fake: &fakeOllama{status: http.StatusTooManyRequests, message: "server busy"}, want: ai.KindRateLimit},
		{name: "no embeddings", fake: &fakeOllama{empty: true}, want: ai.KindInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder, err := NewEmbedder(config(newFake(t, tt.fake)))
			require.NoError(t, err)

			vectors, err := embedder.EmbedTexts(context.Background(), []string{"x", "y"})
			assert.Nil(t, vectors)

			var se *ai.EmbeddingServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.want, se.Kind)
			assert.Equal(t, ai.BackendOllama, se.Backend)
			assert.Equal(t, "nomic-embed-text", se.Model)
		})
	}
}

func TestEmbedder_Canceled(t *testing.T) {
	f := &fakeOllama{}
	embedder, err := NewEmbedder(config(newFake(t, f)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = embedder.EmbedTexts(ctx, []string{"x"})
	var se *ai.EmbeddingServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ai.KindCanceled, se.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}
