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


package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage"
)

// EmbeddingCache implements storage.EmbeddingCache for BadgerDB.
type EmbeddingCache struct {
	backend *Backend
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a new EmbeddingCache on backend.
//
// Returns storage.EmbeddingCache interface to enforce abstraction.
func NewEmbeddingCache(backend *Backend) (storage.EmbeddingCache, error) {
	return newEmbeddingCache(backend)
}

func newEmbeddingCache(backend *Backend) (*EmbeddingCache, error) {
	if backend == nil {
		return nil, storage.ErrStorageClosed
	}
	return &EmbeddingCache{backend: backend}, nil
}

// Close releases resources. EmbeddingCache has no resources to release.
func (r *EmbeddingCache) Close() error {
	return nil
}

// GetEmbedding retrieves a single cached embedding.
func (r *EmbeddingCache) GetEmbedding(ctx context.Context, key core.ID) (*core.CachedEmbedding, error) {
	var embedding *core.CachedEmbedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		embedding, err = readEmbedding(tx, makeEmbeddingKey(key))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, storage.ErrNotFound
	}
	return embedding, nil
}

// GetEmbeddings retrieves the cached embeddings for keys.
func (r *EmbeddingCache) GetEmbeddings(ctx context.Context, keys ...core.ID) (map[core.ID]*core.CachedEmbedding, error) {
	found := make(map[core.ID]*core.CachedEmbedding, len(keys))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			embedding, err := readEmbedding(tx, makeEmbeddingKey(key))
			if err != nil {
				return err
			}
			if embedding != nil {
				found[key] = embedding
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// PutEmbeddings stores embeddings through a write batch.
func (r *EmbeddingCache) PutEmbeddings(ctx context.Context, embeddings ...*core.CachedEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	for _, embedding := range embeddings {
		if len(embedding.Vector) == 0 {
			return fmt.Errorf("%w: key %d", storage.ErrEmptyVector, embedding.Key)
		}
	}
	now := time.Now().UTC()
	return r.backend.WithWriteBatch(func(wb *badger.WriteBatch) error {
		for _, embedding := range embeddings {
			if embedding.InsertedAt.IsZero() {
				embedding.InsertedAt = now
			}
			if err := wb.Set(makeEmbeddingKey(embedding.Key), storage.MarshalCachedEmbedding(embedding)); err != nil {
				return err
			}
		}
		return nil
	})
}

// CountEmbeddings counts cached embeddings with a key-only iteration.
func (r *EmbeddingCache) CountEmbeddings(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(embeddingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ClearEmbeddings removes every cached embedding.
func (r *EmbeddingCache) ClearEmbeddings(ctx context.Context) error {
	return r.backend.DropPrefix(embeddingPrefix + ":")
}

// readEmbedding returns nil, nil when key is absent.
func readEmbedding(tx *badger.Txn, key []byte) (*core.CachedEmbedding, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var embedding *core.CachedEmbedding
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		embedding, unmarshalErr = storage.UnmarshalCachedEmbedding(val)
		return unmarshalErr
	})
	return embedding, err
}
