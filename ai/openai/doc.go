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

// Package openai implements ai.Embedder for OpenAI-compatible APIs and
// Azure OpenAI deployments.
//
// The embedder uses the langchaingo library to talk to OpenAI or
// OpenAI-compatible services (such as Ollama, LocalAI, or vLLM). With
// ai.BackendAzure it targets an Azure OpenAI resource, where the configured
// model is the deployment name.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://localhost:11434"), // /v1 added automatically
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	)
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := embedder.EmbedTexts(ctx, []string{"sample text"})
//
// Azure:
//
//	config := ai.NewConfig(
//	    ai.WithAzureDeployment("https://myresource.openai.azure.com", "text-embedding-3-small", ""),
//	    ai.WithAPIKey(os.Getenv("AZURE_OPENAI_API_KEY")),
//	)
package openai
