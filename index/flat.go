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
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Hit is one nearest-neighbor result.
type Hit struct {
	// Position is the metadata offset stored with the vector.
	Position int
	// Score is the inner product of the normalized vectors.
	Score float32
}

// Flat is an exact inner-product index over L2-normalized vectors. Scores
// are therefore cosine similarities. Flat is not safe for concurrent Add;
// concurrent Search calls on a fully built index are safe.
type Flat struct {
	dim       int
	vectors   [][]float32
	positions []int
}

// NewFlat creates an empty index for vectors of length dim.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.vectors)
}

// Positions returns a copy of the stored positions in insertion order.
func (f *Flat) Positions() []int {
	return slices.Clone(f.positions)
}

// Vector returns the normalized vector at insertion offset i.
func (f *Flat) Vector(i int) []float32 {
	return f.vectors[i]
}

// Add stores normalized copies of vectors with their positions.
// Nothing is added if any vector has the wrong dimension.
func (f *Flat) Add(vectors [][]float32, positions []int) error {
	if len(vectors) != len(positions) {
		return fmt.Errorf("%w: %d vectors, %d positions", ErrPositionsMismatch, len(vectors), len(positions))
	}
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d, want %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for i, v := range vectors {
		f.vectors = append(f.vectors, Normalize(v))
		f.positions = append(f.positions, positions[i])
	}
	return nil
}

// Search returns up to k hits ordered by score descending, then position
// ascending.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return []Hit{}, nil
	}
	q := Normalize(query)

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: f.positions[i], Score: dot(q, v)}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
