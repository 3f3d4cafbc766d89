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

import "errors"

var (
	// ErrInvalidDimension indicates a non-positive vector dimension.
	ErrInvalidDimension = errors.New("invalid index dimension")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrPositionsMismatch indicates that vectors and positions differ in count.
	ErrPositionsMismatch = errors.New("vectors and positions differ in count")

	// ErrMisaligned indicates that index, metadata and documents do not line up.
	ErrMisaligned = errors.New("index artifacts are misaligned")

	// ErrNotFound indicates that a persisted artifact does not exist.
	ErrNotFound = errors.New("index artifact not found")

	// ErrCorrupt indicates an artifact that cannot be decoded.
	ErrCorrupt = errors.New("index artifact is corrupt")
)
