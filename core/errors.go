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

import "errors"

// Configuration errors
var (
	// ErrInvalidConfig indicates a configuration value is missing or out of range.
	// It is always detected before any network attempt.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidChunkSize indicates a chunk size below 1.
	ErrInvalidChunkSize = errors.New("chunk size must be at least 1")

	// ErrInvalidChunkOverlap indicates an overlap that is negative or not smaller than the chunk size.
	ErrInvalidChunkOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyMetadataKey indicates a metadata entry with an empty key.
	ErrEmptyMetadataKey = errors.New("metadata key cannot be empty")
)
