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


package index

import (
	"fmt"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// Snapshot is a searchable index with its aligned metadata and documents.
// A Snapshot is immutable once built and may be shared between goroutines.
type Snapshot struct {
	Index     *Flat
	Products  []*core.Product
	Documents []string
}

// Empty returns a snapshot with no products.
func Empty(dim int) *Snapshot {
	f, err := NewFlat(max(dim, 1))
	if err != nil {
		panic(err)
	}
	return &Snapshot{Index: f, Products: []*core.Product{}, Documents: []string{}}
}

// Len returns the number of indexed products.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Products)
}

// Validate checks that every vector points at a distinct product and that
// products and documents have the same length.
func (s *Snapshot) Validate() error {
	if s == nil || s.Index == nil {
		return fmt.Errorf("%w: missing index", ErrMisaligned)
	}
	if len(s.Products) != len(s.Documents) {
		return fmt.Errorf("%w: %d products, %d documents", ErrMisaligned, len(s.Products), len(s.Documents))
	}
	if s.Index.Len() != len(s.Products) {
		return fmt.Errorf("%w: %d vectors, %d products", ErrMisaligned, s.Index.Len(), len(s.Products))
	}
	seen := make([]bool, len(s.Products))
	for _, p := range s.Index.positions {
		if p < 0 || p >= len(s.Products) {
			return fmt.Errorf("%w: position %d out of range", ErrMisaligned, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: position %d indexed twice", ErrMisaligned, p)
		}
		seen[p] = true
	}
	for i, p := range s.Products {
		if p == nil {
			return fmt.Errorf("%w: product %d is nil", ErrMisaligned, i)
		}
	}
	return nil
}

// Product returns the product for a hit position.
func (s *Snapshot) Product(position int) *core.Product {
	if position < 0 || position >= len(s.Products) {
		return nil
	}
	return s.Products[position]
}
