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


package core

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted domain types. Each follows the mus-go
// Size/Marshal/Unmarshal contract: Marshal writes into a buffer of at least
// Size bytes and returns the bytes written; Unmarshal returns the value and
// the bytes consumed.
var (
	IDMUS              = idMUS{}
	VectorMUS          = vectorMUS{}
	ProductMUS         = productMUS{}
	CachedEmbeddingMUS = cachedEmbeddingMUS{}
	ManifestMUS        = manifestMUS{}
)

type idMUS struct{}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

type vectorMUS struct{}

func (vectorMUS) Size(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length > len(bs)-n {
		return nil, n, fmt.Errorf("%w: vector length %d", ErrTruncatedData, length)
	}
	v := make([]float32, length)
	for i := range v {
		f, m, err := raw.Float32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

// timeMUS stores Unix microseconds; the zero time round-trips as zero.
type timeMUS struct{}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(unixMicro(t))
}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(unixMicro(t), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || us == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us), n, nil
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

type productMUS struct{}

func (productMUS) strings(v Product) []string {
	return []string{
		v.Name, v.Category, v.Subcategory, v.Effect, v.Ingredient,
		v.Description, v.URL, v.ImageURL, v.CategoryURL, v.SubcategoryURL,
		v.Keywords, v.Price,
	}
}

func (s productMUS) Size(v Product) int {
	size := 0
	for _, str := range s.strings(v) {
		size += ord.String.Size(str)
	}
	return size + varint.Int.Size(v.CatalogOrder)
}

func (s productMUS) Marshal(v Product, bs []byte) int {
	n := 0
	for _, str := range s.strings(v) {
		n += ord.String.Marshal(str, bs[n:])
	}
	return n + varint.Int.Marshal(v.CatalogOrder, bs[n:])
}

func (productMUS) Unmarshal(bs []byte) (Product, int, error) {
	var v Product
	fields := []*string{
		&v.Name, &v.Category, &v.Subcategory, &v.Effect, &v.Ingredient,
		&v.Description, &v.URL, &v.ImageURL, &v.CategoryURL, &v.SubcategoryURL,
		&v.Keywords, &v.Price,
	}
	n := 0
	for _, field := range fields {
		str, m, err := ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return v, n, err
		}
		*field = str
	}
	order, m, err := varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return v, n, err
	}
	v.CatalogOrder = order
	return v, n, nil
}

type cachedEmbeddingMUS struct{}

func (cachedEmbeddingMUS) Size(v CachedEmbedding) int {
	return IDMUS.Size(v.Key) +
		ord.String.Size(v.Model) +
		VectorMUS.Size(v.Vector) +
		timeMUS{}.Size(v.InsertedAt)
}

func (cachedEmbeddingMUS) Marshal(v CachedEmbedding, bs []byte) int {
	n := IDMUS.Marshal(v.Key, bs)
	n += ord.String.Marshal(v.Model, bs[n:])
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	return n + timeMUS{}.Marshal(v.InsertedAt, bs[n:])
}

func (cachedEmbeddingMUS) Unmarshal(bs []byte) (v CachedEmbedding, n int, err error) {
	var m int
	if v.Key, m, err = IDMUS.Unmarshal(bs); err != nil {
		return v, m, err
	}
	n += m
	if v.Model, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Vector, m, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.InsertedAt, m, err = timeMUS{}.Unmarshal(bs[n:])
	return v, n + m, err
}

type manifestMUS struct{}

func (manifestMUS) Size(v Manifest) int {
	return IDMUS.Size(v.Fingerprint) +
		varint.Int.Size(v.Products) +
		varint.Int.Size(v.Skipped) +
		ord.String.Size(v.Model) +
		varint.Int.Size(v.Dimension) +
		timeMUS{}.Size(v.BuiltAt)
}

func (manifestMUS) Marshal(v Manifest, bs []byte) int {
	n := IDMUS.Marshal(v.Fingerprint, bs)
	n += varint.Int.Marshal(v.Products, bs[n:])
	n += varint.Int.Marshal(v.Skipped, bs[n:])
	n += ord.String.Marshal(v.Model, bs[n:])
	n += varint.Int.Marshal(v.Dimension, bs[n:])
	return n + timeMUS{}.Marshal(v.BuiltAt, bs[n:])
}

func (manifestMUS) Unmarshal(bs []byte) (v Manifest, n int, err error) {
	var m int
	if v.Fingerprint, m, err = IDMUS.Unmarshal(bs); err != nil {
		return v, m, err
	}
	n += m
	if v.Products, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Skipped, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Model, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	if v.Dimension, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + m, err
	}
	n += m
	v.BuiltAt, m, err = timeMUS{}.Unmarshal(bs[n:])
	return v, n + m, err
}
