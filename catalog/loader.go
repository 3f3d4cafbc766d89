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


package catalog

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

const bom = "\ufeff"

// Loader reads catalog files into product records.
type Loader struct {
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithLogger sets the logger for the loader.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}

// NewLoader creates a catalog loader.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	l.logger = l.logger.With("component", "catalog")
	return l, nil
}

// Load reads a catalog file, choosing the reader by extension.
func (l *Loader) Load(path string) ([]*core.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCatalog, err)
	}
	defer f.Close()

	var products []*core.Product
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		products, err = l.ReadCSV(f)
	case ".json":
		products, err = l.ReadJSON(f)
	case ".ndjson", ".jsonl":
		products, err = l.ReadNDJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	l.logger.Info("catalog loaded", "path", path, "products", len(products))
	return products, nil
}

// LoadOrEmpty reads a catalog file and degrades to an empty catalog on any
// error. The error is logged.
func (l *Loader) LoadOrEmpty(path string) []*core.Product {
	products, err := l.Load(path)
	if err != nil {
		l.logger.Error("catalog unavailable, continuing with empty catalog", "path", path, "error", err)
		return []*core.Product{}
	}
	return products
}

// ReadCSV reads a CSV catalog with a header row. A leading byte-order mark is
// ignored, unknown columns are ignored and missing columns leave fields empty.
func (l *Loader) ReadCSV(r io.Reader) ([]*core.Product, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && string(head) == bom {
		_, _ = br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []*core.Product{}, nil
		}
		return nil, fmt.Errorf("%w: header: %w", ErrReadCatalog, err)
	}

	columns := make([]column, len(header))
	hasName := false
	for i, h := range header {
		columns[i] = lookupColumn(h)
		if columns[i] == colName {
			hasName = true
		}
	}
	if !hasName {
		return nil, ErrMissingNameColumn
	}

	b := newBuilder(l.logger)
	for row := 0; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				l.logger.Warn("skipping malformed row", "row", row, "error", err)
				continue
			}
			return nil, fmt.Errorf("%w: %w", ErrReadCatalog, err)
		}
		p := &core.Product{CatalogOrder: row}
		for i, value := range record {
			if i < len(columns) {
				columns[i].set(p, value)
			}
		}
		b.add(p)
	}
	return b.products, nil
}

// ReadJSON reads a JSON array of product objects. Keys use the same names as
// the CSV columns.
func (l *Loader) ReadJSON(r io.Reader) ([]*core.Product, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCatalog, err)
	}
	b := newBuilder(l.logger)
	for i, row := range rows {
		b.add(productFromObject(row, i))
	}
	return b.products, nil
}

// ReadNDJSON reads one product object per line. Blank lines are skipped and
// malformed lines are logged and skipped.
func (l *Loader) ReadNDJSON(r io.Reader) ([]*core.Product, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	b := newBuilder(l.logger)
	row := 0
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), bom))
		if line == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			l.logger.Warn("skipping malformed line", "row", row, "error", err)
			row++
			continue
		}
		b.add(productFromObject(obj, row))
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadCatalog, err)
	}
	return b.products, nil
}

func productFromObject(obj map[string]any, order int) *core.Product {
	p := &core.Product{CatalogOrder: order}
	for _, k := range slices.Sorted(maps.Keys(obj)) {
		v := obj[k]
		if v == nil {
			continue
		}
		var s string
		switch tv := v.(type) {
		case string:
			s = tv
		case []any:
			parts := make([]string, 0, len(tv))
			for _, e := range tv {
				parts = append(parts, fmt.Sprint(e))
			}
			s = strings.Join(parts, ",")
		default:
			s = fmt.Sprint(tv)
		}
		lookupColumn(k).set(p, s)
	}
	return p
}

// builder applies validation and first-seen name deduplication.
type builder struct {
	logger   *slog.Logger
	seen     map[string]struct{}
	products []*core.Product
}

func newBuilder(logger *slog.Logger) *builder {
	return &builder{
		logger:   logger,
		seen:     make(map[string]struct{}),
		products: []*core.Product{},
	}
}

func (b *builder) add(p *core.Product) {
	if err := core.ValidateProduct(p); err != nil {
		b.logger.Warn("skipping product", "row", p.CatalogOrder, "error", err)
		return
	}
	if _, dup := b.seen[p.Name]; dup {
		b.logger.Debug("skipping duplicate product name", "row", p.CatalogOrder, "name", p.Name)
		return
	}
	b.seen[p.Name] = struct{}{}
	b.products = append(b.products, p)
}
