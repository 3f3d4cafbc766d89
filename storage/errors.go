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


package storage

import "errors"

var (
	// ErrNotFound indicates a cache miss or a manifest that was never saved.
	ErrNotFound = errors.New("not found in store")

	// ErrStorageClosed indicates use of a nil or closed backend.
	ErrStorageClosed = errors.New("store is closed")

	// ErrSerializationFailed indicates a stored value that cannot be decoded.
	ErrSerializationFailed = errors.New("stored value cannot be decoded")

	// ErrEmptyVector indicates an attempt to cache an embedding without values.
	ErrEmptyVector = errors.New("embedding vector is empty")
)
