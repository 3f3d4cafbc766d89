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

import "errors"

// Domain validation errors
var (
	// ErrInvalidProduct indicates a Product failed validation.
	ErrInvalidProduct = errors.New("invalid product")

	// ErrEmptyProductName indicates the Name field is empty.
	ErrEmptyProductName = errors.New("product name cannot be empty")

	// ErrNegativeCatalogOrder indicates a catalog order below zero.
	ErrNegativeCatalogOrder = errors.New("catalog order cannot be negative")

	// ErrInvalidQueryType indicates an unknown QueryType value.
	ErrInvalidQueryType = errors.New("invalid query type")

	// ErrInvalidManifest indicates a build Manifest failed validation.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrTruncatedData indicates a serialized value ended early.
	ErrTruncatedData = errors.New("truncated data")
)
