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


// Package mock provides in-process stand-ins for the embedding and
// re-ranking services so search, recommendation and ingestion can be
// tested without network access.
//
// MockEmbedder hashes each text into a unit vector of the configured
// dimension. Tests that need a known geometry pin vectors per text:
//
//	embedder := mock.NewMockEmbedderWithDimension(8).
//	    SetVector("体重を減らしたい", []float32{0, 0, 0, 0, 0, 1, 0, 0})
//
// Failures are injected by replacing the embed functions:
//
//	embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, errors.New("unavailable")
//	})
//
// MockRanker returns the candidates in reverse order with the summary
// "mock summary" unless WithRankFunc overrides it. Both mocks count calls
// for assertions.
package mock
