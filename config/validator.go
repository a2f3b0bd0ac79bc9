package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/poiesic/splitembed/ai"
	"github.com/poiesic/splitembed/splitter"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every invalid field. An empty result means the config
// can be used to build a pipeline.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	e := c.Embedding
	backend, err := ai.ParseBackend(e.Backend)
	if err != nil {
		add("embedding.backend", "must be one of %s", joinBackends())
	}

	if e.Host == "" {
		add("embedding.host", "embedding host is required")
	} else if u, err := url.Parse(e.Host); err != nil || u.Scheme == "" || u.Host == "" {
		add("embedding.host", "invalid URL %q", e.Host)
	}

	if e.Model == "" {
		if backend == ai.BackendAzure {
			add("embedding.model", "Azure deployment name is required")
		} else {
			add("embedding.model", "model is required")
		}
	}
	if backend == ai.BackendAzure && e.APIKey == "" {
		add("embedding.api_key", "API key is required for Azure (set %s)", EnvAzureKey)
	}

	if e.Dimensions < 0 {
		add("embedding.dimensions", "dimensions must not be negative")
	}
	if e.BatchSize < 1 {
		add("embedding.batch_size", "batch_size must be positive")
	}
	if e.Concurrency < 1 {
		add("embedding.concurrency", "concurrency must be positive")
	}
	if e.RequestsPerSecond < 0 {
		add("embedding.requests_per_second", "requests_per_second must not be negative")
	}
	if e.MaxAttempts < 1 {
		add("embedding.max_attempts", "max_attempts must be positive")
	}
	if e.RetryDelay < 0 {
		add("embedding.retry_delay", "retry_delay must not be negative")
	}

	ch := c.Chunking
	if ch.ChunkSize < 1 {
		add("chunking.chunk_size", "chunk_size must be positive")
	}
	if ch.ChunkOverlap < 0 || ch.ChunkOverlap >= ch.ChunkSize {
		add("chunking.chunk_overlap", "chunk_overlap must be non-negative and less than chunk_size")
	}
	switch strings.ToLower(ch.Unit) {
	case splitter.UnitChars:
	case splitter.UnitTokens:
		if !splitter.KnownEncoding(ch.Encoding) {
			add("chunking.encoding", "unknown tiktoken encoding %q", ch.Encoding)
		}
	default:
		add("chunking.unit", "unit must be %q or %q", splitter.UnitChars, splitter.UnitTokens)
	}
	for _, word := range ch.Abbreviations {
		if strings.TrimSpace(word) == "" {
			add("chunking.abbreviations", "abbreviations must not be blank")
			break
		}
	}

	return errs
}

func joinBackends() string {
	names := make([]string, len(ai.Backends))
	for i, b := range ai.Backends {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
