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

import "errors"

var (
	// ErrUnsupportedFormat indicates a catalog file extension with no reader.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")

	// ErrMissingNameColumn indicates a CSV header without a product name column.
	ErrMissingNameColumn = errors.New("catalog has no product name column")

	// ErrReadCatalog indicates the catalog could not be read or decoded.
	ErrReadCatalog = errors.New("failed to read catalog")
)
