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


// Package search finds catalog products for a free-text query.
//
// The Searcher runs a fixed cascade over an immutable index snapshot:
//   - Ingredient short-circuit for queries naming a known active ingredient
//   - Keyword matching against product fields with per-field weights
//   - Category inference that narrows AGA and ED queries
//   - Vector similarity fallback when no keyword matched
//   - Domain post-filter that drops off-topic categories and applies a
//     hand-ranked priority order
//
// Keyword results always outrank vector results. Vector scores are capped
// below the keyword weights so the two never interleave.
//
// Search never returns an error; failures are logged and yield no results.
// SearchDetailed exposes the per-stage Report and the underlying error.
package search
