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

// Package chunker packs sentence spans into bounded, overlapping chunks.
//
// # Guarantees
//
//   - Every chunk's store view is at most ChunkSize long, unless it holds a
//     single rune that alone exceeds the limit.
//   - Each chunk after the first starts with a suffix of the previous chunk
//     no longer than ChunkOverlap.
//   - Dropping each chunk's overlap prefix and concatenating the rest
//     reproduces the document text exactly.
//   - The same document and settings always yield the same chunks.
//
// # Overlap and long sentences
//
// When the next span is itself close to ChunkSize, the overlap shrinks so
// the chunk still fits; at the extreme it is zero. Overlap starts on a word
// when one is available within the budget.
//
// # Views
//
// Each chunk carries two views of its text. StoreView is the raw text.
// EmbedView prefixes the document's embeddable metadata, which gives the
// embedding model context the caller does not want echoed back.
package chunker
