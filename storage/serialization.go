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


package storage

import (
	"fmt"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalCachedEmbedding serializes a CachedEmbedding to bytes.
func MarshalCachedEmbedding(e *core.CachedEmbedding) []byte {
	buf := make([]byte, core.CachedEmbeddingMUS.Size(*e))
	core.CachedEmbeddingMUS.Marshal(*e, buf)
	return buf
}

// UnmarshalCachedEmbedding deserializes a CachedEmbedding from bytes.
func UnmarshalCachedEmbedding(data []byte) (*core.CachedEmbedding, error) {
	e, _, err := core.CachedEmbeddingMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &e, nil
}

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(m *core.Manifest) []byte {
	buf := make([]byte, core.ManifestMUS.Size(*m))
	core.ManifestMUS.Marshal(*m, buf)
	return buf
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (*core.Manifest, error) {
	m, _, err := core.ManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &m, nil
}
