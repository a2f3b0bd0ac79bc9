package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrEmbeddingService matches every *EmbeddingServiceError via errors.Is.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrResultMismatch indicates a backend returned the wrong number of
	// vectors or vectors of inconsistent length.
	ErrResultMismatch = errors.New("embedding result mismatch")

	// ErrInvalidMaxAttempts is returned when maxAttempts is less than 1.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when a decorator is given a nil embedder.
	ErrEmbedderRequired = errors.New("embedder required")
)

// ErrorKind categorizes an embedding service failure.
type ErrorKind string

// Failure categories.
const (
	KindNetwork         ErrorKind = "network"
	KindTimeout         ErrorKind = "timeout"
	KindCanceled        ErrorKind = "canceled"
	KindRateLimit       ErrorKind = "rate_limit"
	KindAuth            ErrorKind = "auth"
	KindInvalidRequest  ErrorKind = "invalid_request"
	KindInvalidResponse ErrorKind = "invalid_response"
	KindUnknown         ErrorKind = "unknown"
)

// EmbeddingServiceError reports a failed call to an embedding backend.
// The original cause is available through errors.Unwrap.
type EmbeddingServiceError struct {
	Backend Backend
	Model   string
	Kind    ErrorKind
	Err     error
}

func (e *EmbeddingServiceError) Error() string {
	service := "embedding service"
	switch {
	case e.Backend != "" && e.Model != "":
		service += " " + string(e.Backend) + "/" + e.Model
	case e.Backend != "":
		service += " " + string(e.Backend)
	case e.Model != "":
		service += " " + e.Model
	}
	return fmt.Sprintf("%s failed (%s): %v", service, e.Kind, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error {
	return e.Err
}

// Is makes every EmbeddingServiceError match ErrEmbeddingService.
func (e *EmbeddingServiceError) Is(target error) bool {
	return target == ErrEmbeddingService
}

// Retryable reports whether repeating the same request might succeed.
func (e *EmbeddingServiceError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit:
		return true
	}
	return false
}

// NewServiceError wraps err as an *EmbeddingServiceError for the given backend
// and model. If err already is one it is returned unchanged. When ctx is done
// its error is attached, because some clients replace context errors with
// plain messages.
func NewServiceError(ctx context.Context, backend Backend, model string, err error) *EmbeddingServiceError {
	var serviceErr *EmbeddingServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	if ctx != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (%w)", err, ctxErr)
		}
	}

	return &EmbeddingServiceError{
		Backend: backend,
		Model:   model,
		Kind:    Classify(err),
		Err:     err,
	}
}

// Classify assigns an ErrorKind to an arbitrary backend error.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrResultMismatch):
		return KindInvalidResponse
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "status code: 429", "rate limit", "too many requests", "quota"):
		return KindRateLimit
	case containsAny(msg, "status code: 401", "status code: 403", "unauthorized", "forbidden", "api key", "authentication"):
		return KindAuth
	case containsAny(msg, "timeout", "deadline"):
		return KindTimeout
	case containsAny(msg, "cancelled", "canceled"):
		return KindCanceled
	case containsAny(msg, "network error", "connection refused", "connection reset", "no such host", "eof", "status code: 5"):
		return KindNetwork
	case containsAny(msg, "status code: 400", "status code: 404", "status code: 413", "status code: 422", "not found", "invalid", "too long", "maximum context length"):
		return KindInvalidRequest
	case containsAny(msg, "no response", "empty response", "decode response", "not all input got embedded", "unexpected length"):
		return KindInvalidResponse
	}
	return KindUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
