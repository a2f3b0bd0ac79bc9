package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/splitembed/core"
)

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = fmt.Errorf("%w: embedder required", core.ErrInvalidConfig)

	// ErrInvalidDimensions is returned when WithDimensions is given a negative value.
	ErrInvalidDimensions = errors.New("expected dimensions must not be negative")
)
