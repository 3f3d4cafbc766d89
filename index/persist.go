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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// Artifact file names inside an index directory.
const (
	IndexFile     = "products.index"
	MetadataFile  = "metadata.mus"
	DocumentsFile = "documents.mus"
)

const (
	formatVersion  = 1
	indexMagic     = "okusuri/index"
	metadataMagic  = "okusuri/metadata"
	documentsMagic = "okusuri/documents"
)

// Exists reports whether all three artifacts are present in dir.
func Exists(dir string) bool {
	for _, name := range []string{IndexFile, MetadataFile, DocumentsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Save validates snap and writes its three artifacts into dir. Each file is
// written to a temporary name and renamed into place.
func Save(dir string, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
	}{
		{MetadataFile, encodeProducts(snap.Products)},
		{DocumentsFile, encodeDocuments(snap.Documents)},
		{IndexFile, encodeIndex(snap.Index)},
	}
	for _, f := range files {
		if err := writeAtomic(filepath.Join(dir, f.name), f.data); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	return nil
}

// Load reads the three artifacts from dir and checks their alignment.
func Load(dir string) (*Snapshot, error) {
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return data, err
	}

	indexData, err := read(IndexFile)
	if err != nil {
		return nil, err
	}
	metadataData, err := read(MetadataFile)
	if err != nil {
		return nil, err
	}
	documentsData, err := read(DocumentsFile)
	if err != nil {
		return nil, err
	}

	flat, err := decodeIndex(indexData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", IndexFile, err)
	}
	products, err := decodeProducts(metadataData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetadataFile, err)
	}
	documents, err := decodeDocuments(documentsData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", DocumentsFile, err)
	}

	snap := &Snapshot{Index: flat, Products: products, Documents: documents}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func headerSize(magic string, count int) int {
	return ord.String.Size(magic) + varint.Int.Size(formatVersion) + varint.Int.Size(count)
}

func marshalHeader(magic string, count int, bs []byte) int {
	n := ord.String.Marshal(magic, bs)
	n += varint.Int.Marshal(formatVersion, bs[n:])
	n += varint.Int.Marshal(count, bs[n:])
	return n
}

// unmarshalHeader checks magic and version and returns the element count.
func unmarshalHeader(magic string, bs []byte) (count, n int, err error) {
	got, n, err := ord.String.Unmarshal(bs)
	if err != nil || got != magic {
		return 0, n, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	version, m, err := varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return 0, n, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if version != formatVersion {
		return 0, n, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	count, m, err = varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return 0, n, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if count < 0 || count > len(bs)-n {
		return 0, n, fmt.Errorf("%w: count %d", ErrCorrupt, count)
	}
	return count, n, nil
}

func encodeIndex(f *Flat) []byte {
	size := headerSize(indexMagic, f.Len()) + varint.Int.Size(f.dim)
	for i, v := range f.vectors {
		size += varint.Int.Size(f.positions[i]) + core.VectorMUS.Size(v)
	}
	bs := make([]byte, size)
	n := marshalHeader(indexMagic, f.Len(), bs)
	n += varint.Int.Marshal(f.dim, bs[n:])
	for i, v := range f.vectors {
		n += varint.Int.Marshal(f.positions[i], bs[n:])
		n += core.VectorMUS.Marshal(v, bs[n:])
	}
	return bs
}

// decodeIndex restores stored vectors as is; they were normalized on Add.
func decodeIndex(bs []byte) (*Flat, error) {
	count, n, err := unmarshalHeader(indexMagic, bs)
	if err != nil {
		return nil, err
	}
	dim, m, err := varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	f, err := NewFlat(dim)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	f.vectors = make([][]float32, 0, count)
	f.positions = make([]int, 0, count)
	for range count {
		pos, m, err := varint.Int.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		v, m, err := core.VectorMUS.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, ErrDimensionMismatch)
		}
		f.vectors = append(f.vectors, v)
		f.positions = append(f.positions, pos)
	}
	return f, nil
}

func encodeProducts(products []*core.Product) []byte {
	size := headerSize(metadataMagic, len(products))
	for _, p := range products {
		size += core.ProductMUS.Size(*p)
	}
	bs := make([]byte, size)
	n := marshalHeader(metadataMagic, len(products), bs)
	for _, p := range products {
		n += core.ProductMUS.Marshal(*p, bs[n:])
	}
	return bs
}

func decodeProducts(bs []byte) ([]*core.Product, error) {
	count, n, err := unmarshalHeader(metadataMagic, bs)
	if err != nil {
		return nil, err
	}
	products := make([]*core.Product, 0, count)
	for range count {
		p, m, err := core.ProductMUS.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		products = append(products, &p)
	}
	return products, nil
}

func encodeDocuments(documents []string) []byte {
	size := headerSize(documentsMagic, len(documents))
	for _, d := range documents {
		size += ord.String.Size(d)
	}
	bs := make([]byte, size)
	n := marshalHeader(documentsMagic, len(documents), bs)
	for _, d := range documents {
		n += ord.String.Marshal(d, bs[n:])
	}
	return bs
}

func decodeDocuments(bs []byte) ([]string, error) {
	count, n, err := unmarshalHeader(documentsMagic, bs)
	if err != nil {
		return nil, err
	}
	documents := make([]string, 0, count)
	for range count {
		d, m, err := ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		documents = append(documents, d)
	}
	return documents, nil
}
