package splitter

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/splitembed/core"
)

// Splitter divides text into sentence spans no longer than a chunk size.
// A Splitter is immutable after construction and safe for concurrent use.
type Splitter struct {
	chunkSize     int
	length        LengthFunc
	abbreviations map[string]struct{}
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithLengthFunc sets the measurement unit. Default is RuneLength.
func WithLengthFunc(fn LengthFunc) Option {
	return func(s *Splitter) error {
		if fn == nil {
			return fmt.Errorf("%w: length function is nil", core.ErrInvalidConfig)
		}
		s.length = fn
		return nil
	}
}

// WithAbbreviations adds words whose trailing period does not end a sentence.
// Entries are case-insensitive and may be given with or without the period.
func WithAbbreviations(words ...string) Option {
	return func(s *Splitter) error {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(w), "."))
			if w != "" {
				s.abbreviations[w] = struct{}{}
			}
		}
		return nil
	}
}

// New creates a Splitter that keeps every span within chunkSize units,
// except a single rune that alone exceeds it.
func New(chunkSize int, opts ...Option) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("%w: %w (got %d)", core.ErrInvalidConfig, core.ErrInvalidChunkSize, chunkSize)
	}

	s := &Splitter{
		chunkSize:     chunkSize,
		length:        RuneLength,
		abbreviations: make(map[string]struct{}, len(defaultAbbreviations)),
	}
	for _, w := range defaultAbbreviations {
		s.abbreviations[w] = struct{}{}
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ChunkSize returns the maximum span length.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Length measures text with the configured unit.
func (s *Splitter) Length(text string) int {
	return s.length(text)
}

// Spans returns the spans of text in order. The sequence is lazy and may be
// ranged over any number of times; each pass rescans the text.
//
// Spans cover the text contiguously. Trailing whitespace belongs to the span
// before it. Empty or whitespace-only text yields nothing.
func (s *Splitter) Spans(text string) iter.Seq[core.Span] {
	return func(yield func(core.Span) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		for start := 0; start < len(text); {
			end := s.nextBoundary(text, start)
			if !s.fit(text, start, end, yield) {
				return
			}
			start = end
		}
	}
}

// Split collects Spans into a slice.
func (s *Splitter) Split(text string) []core.Span {
	return slices.Collect(s.Spans(text))
}

// fit yields text[start:end] as one span, or as forced pieces when it is
// longer than the chunk size. It returns false if the consumer stopped.
func (s *Splitter) fit(text string, start, end int, yield func(core.Span) bool) bool {
	if s.length(text[start:end]) <= s.chunkSize {
		return yield(core.Span{Start: start, End: end, Text: text[start:end]})
	}

	for start < end {
		cut := end
		if s.length(text[start:end]) > s.chunkSize {
			cut = s.cutPoint(text, start, end)
		}
		if !yield(core.Span{Start: start, End: cut, Text: text[start:cut], Forced: true}) {
			return false
		}
		start = cut
	}
	return true
}

// cutPoint finds where to end the longest prefix of text[start:end] that fits.
// It prefers cutting just before a word so whitespace stays with the left
// piece, and falls back to the last rune boundary that fits. It always makes
// progress by at least one rune.
func (s *Splitter) cutPoint(text string, start, end int) int {
	// offsets[k] is the byte offset after the (k+1)th rune.
	offsets := make([]int, 0, end-start)
	for i := start; i < end; {
		_, size := utf8.DecodeRuneInString(text[i:end])
		i += size
		offsets = append(offsets, i)
	}

	// Largest k whose prefix fits; -1 if even one rune is too long.
	k := -1
	lo, hi := 0, len(offsets)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if s.length(text[start:offsets[mid]]) <= s.chunkSize {
			k = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if k < 0 {
		return offsets[0]
	}

	for j := k; j >= 0; j-- {
		if offsets[j] < end && wordStart(text, offsets[j]) {
			return offsets[j]
		}
	}
	return offsets[k]
}

// wordStart reports whether offset i begins a word: the rune before it is
// whitespace and the rune at it is not.
func wordStart(text string, i int) bool {
	if i <= 0 || i >= len(text) {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	cur, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(prev) && !unicode.IsSpace(cur)
}
