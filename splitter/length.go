package splitter

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/poiesic/splitembed/core"
)

// LengthFunc measures text in the unit chunk sizes are expressed in.
// Implementations must be safe for concurrent use and should be monotonic:
// extending a string never makes it shorter.
type LengthFunc func(string) int

// Supported measurement units.
const (
	UnitChars  = "chars"
	UnitTokens = "tokens"

	// DefaultEncoding is the tiktoken encoding used by the OpenAI embedding models.
	DefaultEncoding = "cl100k_base"
)

// Encodings lists the tiktoken encodings NewTokenLength accepts.
var Encodings = []string{
	tiktoken.MODEL_CL100K_BASE,
	tiktoken.MODEL_O200K_BASE,
	tiktoken.MODEL_P50K_BASE,
	tiktoken.MODEL_P50K_EDIT,
	tiktoken.MODEL_R50K_BASE,
}

// KnownEncoding reports whether name is a supported tiktoken encoding
// without loading its ranks.
func KnownEncoding(name string) bool {
	return slices.Contains(Encodings, name)
}

// RuneLength counts Unicode code points. It is the default unit.
func RuneLength(s string) int {
	return utf8.RuneCountInString(s)
}

// NewTokenLength returns a LengthFunc counting tiktoken tokens in the named
// encoding. The encoding's BPE ranks are fetched (and cached) by tiktoken-go on
// first use.
func NewTokenLength(encoding string) (LengthFunc, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenizer %q: %w", core.ErrInvalidConfig, encoding, err)
	}
	return func(s string) int {
		return len(enc.Encode(s, nil, nil))
	}, nil
}

// LengthFor maps a unit name to a LengthFunc. An empty unit means UnitChars.
func LengthFor(unit, encoding string) (LengthFunc, error) {
	switch strings.ToLower(unit) {
	case "", UnitChars:
		return RuneLength, nil
	case UnitTokens:
		return NewTokenLength(encoding)
	default:
		return nil, fmt.Errorf("%w: unknown length unit %q (want %s or %s)", core.ErrInvalidConfig, unit, UnitChars, UnitTokens)
	}
}
