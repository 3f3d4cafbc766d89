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


// Package ai provides abstractions for the remote AI services used by the
// recommender.
//
// Two capabilities are used:
//
//   - Embedder: turns product documents and queries into fixed-length vectors
//   - Ranker: asks a chat model to re-rank recommendation candidates and
//     explain the choice
//
// AIProvider aggregates both so they share one configuration and HTTP client.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible implementation built on langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and count calls.
//
// # Failure Model
//
// The query path calls the embedder once per search and never retries: a
// failed call means "no vector results" for that request. The offline index
// builder wraps the same Embedder with retry and rate limiting.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "薄毛の薬")
package ai
