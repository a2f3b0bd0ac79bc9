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
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/splitembed/core"
)

// Config holds configuration for the embedding service.
type Config struct {
	// Backend selects the client implementation. Default: BackendOpenAI.
	Backend Backend

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for a local OpenAI-compatible server,
	// "https://myresource.openai.azure.com" for Azure.
	EmbeddingHost string

	// EmbeddingModel is the model identifier, or the deployment name on Azure.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// APIKey authenticates against the service. Local OpenAI-compatible
	// servers accept any value.
	APIKey string

	// APIVersion is the Azure OpenAI API version. Ignored by other backends.
	APIVersion string

	// Dimensions requests a specific vector length from models that support
	// it. Zero means the model default.
	Dimensions int

	// BatchSize is the maximum number of texts sent in one request.
	// Default: 512
	BatchSize int

	// Concurrency is the number of requests allowed in flight at once.
	// Default: 1
	Concurrency int

	// RequestsPerSecond throttles requests client-side. Zero disables throttling.
	RequestsPerSecond float64

	// MaxAttempts is the number of tries for a whole batch when retries are
	// enabled. One means no retry. Default: 1
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff between attempts.
	// Default: 1s
	RetryDelay time.Duration

	// StripNewLines replaces newlines with spaces before embedding.
	// Default: true
	StripNewLines bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the embedding backend.
func WithBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAzureDeployment configures an Azure OpenAI deployment.
func WithAzureDeployment(endpoint, deployment, apiVersion string) ConfigOption {
	return func(c *Config) {
		c.Backend = BackendAzure
		c.EmbeddingHost = endpoint
		c.EmbeddingModel = deployment
		c.APIVersion = apiVersion
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions requests a specific embedding dimensionality.
func WithDimensions(n int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = n
	}
}

// WithBatchSize sets the maximum number of texts per request.
func WithBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = n
	}
}

// WithConcurrency sets the number of concurrent requests.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithRequestsPerSecond sets a client-side request rate limit.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithRetry enables whole-batch retries with exponential backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = baseDelay
	}
}

// WithStripNewLines controls newline stripping before embedding.
func WithStripNewLines(strip bool) ConfigOption {
	return func(c *Config) {
		c.StripNewLines = strip
	}
}

// DefaultAzureAPIVersion is used when an Azure config omits APIVersion.
const DefaultAzureAPIVersion = "2024-02-01"

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Backend:        BackendOpenAI,
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		BatchSize:      512,
		Concurrency:    1,
		MaxAttempts:    1,
		RetryDelay:     time.Second,
		StripNewLines:  true,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("https://api.openai.com/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//
// Example for Azure:
//
//	cfg := NewConfig(
//	    WithAzureDeployment("https://myresource.openai.azure.com", "text-embedding-3-small", ""),
//	    WithAPIKey(os.Getenv("AZURE_OPENAI_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration in canonical form.
// OpenAI-compatible hosts get a /v1 suffix, which most servers (Ollama,
// LocalAI, vLLM) require. Ollama's native API lives at the server root.
func (c *Config) Normalize() {
	if c.Backend == "" {
		c.Backend = BackendOpenAI
	}
	c.Backend = Backend(strings.ToLower(string(c.Backend)))
	c.EmbeddingHost = strings.TrimSuffix(strings.TrimSpace(c.EmbeddingHost), "/")

	switch c.Backend {
	case BackendOpenAI:
		if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
			c.EmbeddingHost = c.EmbeddingHost + "/v1"
		}
	case BackendOllama:
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/v1")
	case BackendAzure:
		if c.APIVersion == "" {
			c.APIVersion = DefaultAzureAPIVersion
		}
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
// Errors wrap core.ErrInvalidConfig.
func (c *Config) Validate() error {
	c.Normalize()

	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return invalid("%v", err)
	}
	if c.EmbeddingHost == "" {
		return invalid("EmbeddingHost is required")
	}
	if u, err := url.Parse(c.EmbeddingHost); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("EmbeddingHost %q is not an absolute URL", c.EmbeddingHost)
	}
	if c.EmbeddingModel == "" {
		if c.Backend == BackendAzure {
			return invalid("EmbeddingModel (Azure deployment) is required")
		}
		return invalid("EmbeddingModel is required")
	}
	if c.Backend == BackendAzure && c.APIKey == "" {
		return invalid("APIKey is required for Azure")
	}
	if c.Dimensions < 0 {
		return invalid("Dimensions must not be negative")
	}
	if c.BatchSize < 1 {
		return invalid("BatchSize must be at least 1")
	}
	if c.Concurrency < 1 {
		return invalid("Concurrency must be at least 1")
	}
	if c.RequestsPerSecond < 0 {
		return invalid("RequestsPerSecond must not be negative")
	}
	if c.MaxAttempts < 1 {
		return invalid("MaxAttempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return invalid("RetryDelay must not be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: ai config: %s", core.ErrInvalidConfig, fmt.Sprintf(format, args...))
}
