// Package ollama implements ai.Embedder using Ollama's native /api/embed
// endpoint through langchaingo.
//
// Use this backend when the server does not expose the OpenAI-compatible
// /v1 API. Each text is sent in its own request, so pair it with
// ai.BatchEmbedder and a Concurrency above one for throughput.
package ollama
