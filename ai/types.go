package ai

import (
	"fmt"
	"strings"
)

// Backend names an embedding service implementation.
type Backend string

// Supported backends.
const (
	// BackendOpenAI targets the OpenAI API or any OpenAI-compatible server
	// (Ollama's /v1 endpoint, LocalAI, vLLM).
	BackendOpenAI Backend = "openai"

	// BackendAzure targets an Azure OpenAI resource. EmbeddingModel names the
	// deployment.
	BackendAzure Backend = "azure"

	// BackendOllama targets Ollama's native /api/embed endpoint.
	BackendOllama Backend = "ollama"
)

// Backends lists every supported backend.
var Backends = []Backend{BackendOpenAI, BackendAzure, BackendOllama}

// ParseBackend resolves a case-insensitive backend name.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q", s)
}

// ProgressFunc receives the number of texts embedded so far and the total.
// It may be called from multiple goroutines.
type ProgressFunc func(done, total int)
