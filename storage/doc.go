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


// Package storage provides the persistence abstraction for index building.
//
// The vector index itself lives in flat files (see package index). This
// package covers the state that supports rebuilding it: the embedding cache
// and the manifest of the last successful build.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to keep callers independent of
// BadgerDB:
//
//	cache, err := badger.NewEmbeddingCache(backend)  // returns storage.EmbeddingCache
//
// Internal package constructors may return concrete types since they're
// only used within the implementation package.
//
// # Architecture
//
//   - Repository: common Close operation
//   - EmbeddingCache: document embeddings keyed by model and document text
//   - ManifestRepository: fingerprint, counts and model of the current index
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/cache", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	cache, err := badger.NewEmbeddingCache(backend)
//	manifests, err := badger.NewManifestRepository(backend)
//
// Use in tests with in-memory storage:
//
//	cache, manifests, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
