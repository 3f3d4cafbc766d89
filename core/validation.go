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
	"strings"
)

// ValidateProduct validates a Product according to domain rules.
//
// Validation rules:
//   - Name must not be blank
//   - CatalogOrder must not be negative
//
// NOT validated (the catalog has no schema):
//   - every other field may be empty
func ValidateProduct(p *Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is nil", ErrInvalidProduct)
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptyProductName)
	}

	if p.CatalogOrder < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrNegativeCatalogOrder)
	}

	return nil
}

// ValidateQueryType validates that a QueryType has a valid value.
func ValidateQueryType(q QueryType) error {
	if _, ok := queryTypeNames[q]; !ok {
		return fmt.Errorf("%w: value %d", ErrInvalidQueryType, q)
	}
	return nil
}

// ValidateManifest validates a build Manifest.
func ValidateManifest(m *Manifest) error {
	if m == nil {
		return fmt.Errorf("%w: manifest is nil", ErrInvalidManifest)
	}
	if m.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalidManifest)
	}
	if m.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidManifest)
	}
	if m.Products < 0 || m.Skipped < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalidManifest)
	}
	return nil
}
