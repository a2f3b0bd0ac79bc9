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

// Package ai provides the embedding service abstraction used by splitembed.
//
// The package defines the Embedder interface, its configuration, the typed
// error every backend failure is reported as, and decorators that add
// behavior around any Embedder without changing its contract.
//
// # Contract
//
// EmbedTexts takes N texts and returns N vectors in the same order, or an
// error and no vectors. Implementations must be safe for concurrent use.
// Failures are returned as *EmbeddingServiceError, which carries a Kind and
// keeps the original cause in its Unwrap chain.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and Azure OpenAI via langchaingo
//   - ai/ollama: Ollama's native embedding API via langchaingo
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors in the implementation packages return the ai.Embedder
// interface. mock.NewMockEmbedder returns the concrete type so tests can
// inject behavior and make assertions (CallCount, Batches, Reset).
//
// # Decorators
//
//   - BatchEmbedder: splits requests into sub-batches, runs them on an ants
//     worker pool with optional rate limiting, and reassembles results in
//     input order
//   - RetryingEmbedder: opt-in whole-batch retry with exponential backoff for
//     retryable failures
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingHost("https://api.openai.com/v1"),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batched, err := ai.NewBatchEmbedderFromConfig(embedder, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer batched.Close()
//
//	vectors, err := batched.EmbedTexts(ctx, []string{"Hello world"})
package ai
