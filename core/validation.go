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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Document must not be nil
//   - Metadata keys must not be empty
//
// NOT validated:
//   - Text (empty text is a degenerate document that yields no chunks)
//   - ID (0 is valid; callers may derive it later)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	for key := range doc.Metadata {
		if key == "" {
			return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyMetadataKey)
		}
	}

	return nil
}

// ValidateChunkSettings checks chunk size and overlap.
//
// Validation rules:
//   - size >= 1
//   - 0 <= overlap < size
func ValidateChunkSettings(size, overlap int) error {
	if size < 1 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidConfig, ErrInvalidChunkSize, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: %w (size %d, overlap %d)", ErrInvalidConfig, ErrInvalidChunkOverlap, size, overlap)
	}
	return nil
}
