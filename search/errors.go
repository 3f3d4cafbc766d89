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


package search

import "errors"

var (
	// ErrSnapshotRequired is returned when no index snapshot is provided.
	ErrSnapshotRequired = errors.New("index snapshot required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidTopK is returned when a default result limit is not positive.
	ErrInvalidTopK = errors.New("top k must be positive")

	// ErrEmbedQuery is returned when the query could not be embedded. The
	// search still completes with keyword results only.
	ErrEmbedQuery = errors.New("query embedding failed")

	// ErrSearchFailed wraps a panic or error caught inside the cascade.
	ErrSearchFailed = errors.New("search failed")
)
