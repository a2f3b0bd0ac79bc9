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

package core

import (
	"encoding/binary"
	"strconv"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier for documents and chunks.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as fixed-width hex.
func (id ID) String() string {
	s := strconv.FormatUint(uint64(id), 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

// Document is the unit of input to the pipeline. It is treated as
// immutable for the duration of a single invocation.
type Document struct {
	ID   ID
	Text string

	// Metadata is rendered into each chunk's embed view unless the key is
	// listed in ExcludedEmbedMetadataKeys. It never appears in the store view.
	Metadata                  map[string]string
	ExcludedEmbedMetadataKeys []string
}

// NewDocument wraps raw text as a Document with a content-derived ID.
func NewDocument(text string) *Document {
	return &Document{
		ID:   IDFromContent(text),
		Text: text,
	}
}

// Span is a contiguous region of a document's text produced by the sentence
// splitter. Start and End are byte offsets into the source text.
type Span struct {
	Start int
	End   int
	Text  string

	// Forced is set when the span came from subdividing a sentence that was
	// longer than the chunk size rather than from a natural boundary.
	Forced bool
}

// Chunk is a bounded, ordered, possibly-overlapping region of a document.
type Chunk struct {
	ID         ID
	DocumentID ID
	Index      int // position in the document's chunk sequence

	// Start and End are byte offsets into the document text.
	Start int
	End   int

	// Overlap is the number of leading bytes shared with the previous chunk.
	Overlap int

	EmbedView string // text sent to the embedding model
	StoreView string // text returned to the caller
}

// Fresh returns the part of the store view not shared with the previous chunk.
func (c *Chunk) Fresh() string {
	return c.StoreView[c.Overlap:]
}

// EmbeddingRecord pairs one chunk's store view with its embedding vector.
type EmbeddingRecord struct {
	Text      string    `json:"text" yaml:"text"`
	Embedding []float32 `json:"embedding" yaml:"embedding,flow"`
}
