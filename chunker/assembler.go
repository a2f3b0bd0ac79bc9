package chunker

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/splitembed/core"
	"github.com/poiesic/splitembed/splitter"
)

// Assembler packs sentence spans into bounded, overlapping chunks.
// It holds no per-document state and is safe for concurrent use.
type Assembler struct {
	settings Settings
	splitter *splitter.Splitter
	length   splitter.LengthFunc

	splitterOpts []splitter.Option
}

// Option configures an Assembler.
type Option func(*Assembler) error

// WithLengthFunc sets the unit chunk size and overlap are measured in.
// Default is splitter.RuneLength.
func WithLengthFunc(fn splitter.LengthFunc) Option {
	return func(a *Assembler) error {
		if fn == nil {
			return fmt.Errorf("%w: length function is nil", core.ErrInvalidConfig)
		}
		a.length = fn
		return nil
	}
}

// WithAbbreviations adds words whose trailing period does not end a sentence.
func WithAbbreviations(words ...string) Option {
	return func(a *Assembler) error {
		a.splitterOpts = append(a.splitterOpts, splitter.WithAbbreviations(words...))
		return nil
	}
}

// New creates an Assembler. Settings are validated before anything else.
func New(settings Settings, opts ...Option) (*Assembler, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	a := &Assembler{
		settings: settings,
		length:   splitter.RuneLength,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	sp, err := splitter.New(settings.ChunkSize,
		append([]splitter.Option{splitter.WithLengthFunc(a.length)}, a.splitterOpts...)...)
	if err != nil {
		return nil, err
	}
	a.splitter = sp
	a.splitterOpts = nil

	return a, nil
}

// Settings returns the assembler's chunking parameters.
func (a *Assembler) Settings() Settings {
	return a.settings
}

// Assemble splits doc into ordered chunks.
//
// Each chunk takes at least one new span and keeps taking spans while its
// measured length stays within ChunkSize. Every chunk after the first begins
// with a suffix of its predecessor no longer than ChunkOverlap. Empty or
// whitespace-only documents produce an empty, non-nil slice.
func (a *Assembler) Assemble(doc *core.Document) []core.Chunk {
	chunks := []core.Chunk{}
	if doc == nil {
		return chunks
	}

	spans := a.splitter.Split(doc.Text)
	if len(spans) == 0 {
		return chunks
	}

	docID := doc.ID
	if docID == 0 {
		docID = core.IDFromContent(doc.Text)
	}
	header := EmbedHeader(doc)
	text := doc.Text

	start, overlap := spans[0].Start, 0
	for i := 0; i < len(spans); {
		end := spans[i].End
		i++
		for i < len(spans) && a.length(text[start:spans[i].End]) <= a.settings.ChunkSize {
			end = spans[i].End
			i++
		}

		store := text[start:end]
		chunks = append(chunks, core.Chunk{
			ID:         core.IDFromContent(fmt.Sprintf("%s/%d/%d", docID, start, end)),
			DocumentID: docID,
			Index:      len(chunks),
			Start:      start,
			End:        end,
			Overlap:    overlap,
			EmbedView:  header + store,
			StoreView:  store,
		})

		if i < len(spans) {
			start = a.overlapStart(text, start, end, spans[i])
			overlap = end - start
		}
	}

	return chunks
}

// overlapStart picks where the chunk following [chunkStart, chunkEnd) begins.
//
// The overlap budget is min(ChunkOverlap, ChunkSize - length(next)), so the
// next span's content always wins over carried context. Within the budget the
// longest suffix starting at a word is used, else the longest suffix starting
// at any rune. Returns chunkEnd for no overlap.
func (a *Assembler) overlapStart(text string, chunkStart, chunkEnd int, next core.Span) int {
	budget := min(a.settings.ChunkOverlap, a.settings.ChunkSize-a.length(next.Text))
	if budget <= 0 {
		return chunkEnd
	}

	// Rune start offsets strictly inside the chunk; a suffix never repeats
	// the whole previous chunk.
	var candidates []int
	for i := chunkStart; i < chunkEnd; {
		_, size := utf8.DecodeRuneInString(text[i:chunkEnd])
		i += size
		if i < chunkEnd {
			candidates = append(candidates, i)
		}
	}

	// Suffix length shrinks as the offset grows; find the first that fits.
	first := sort.Search(len(candidates), func(k int) bool {
		return a.length(text[candidates[k]:chunkEnd]) <= budget
	})
	if first == len(candidates) {
		return chunkEnd
	}

	o := candidates[first]
	for _, c := range candidates[first:] {
		if isWordStart(text, c) {
			o = c
			break
		}
	}

	if a.length(text[o:next.End]) > a.settings.ChunkSize {
		return chunkEnd
	}
	return o
}

func isWordStart(text string, i int) bool {
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	cur, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(prev) && !unicode.IsSpace(cur)
}

// EmbedHeader renders a document's embeddable metadata as sorted
// "key: value" lines followed by a blank line. It is empty when no
// metadata remains after exclusions.
func EmbedHeader(doc *core.Document) string {
	if doc == nil || len(doc.Metadata) == 0 {
		return ""
	}

	var lines []string
	for _, key := range slices.Sorted(maps.Keys(doc.Metadata)) {
		if slices.Contains(doc.ExcludedEmbedMetadataKeys, key) {
			continue
		}
		lines = append(lines, key+": "+doc.Metadata[key])
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n\n"
}
