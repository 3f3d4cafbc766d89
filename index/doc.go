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


// Package index holds the exact inner-product vector index and the
// persisted snapshot it is searched from.
//
// A Snapshot ties three artifacts together by position: the vector index,
// the ordered product metadata, and the document texts that were embedded.
// Hit.Position is an offset into Products and Documents, so the three must
// stay aligned. Save writes all three files and Load refuses to return a
// snapshot whose artifacts disagree.
//
// # Files
//
//	products.index   vectors and their positions
//	metadata.mus     ordered product records
//	documents.mus    ordered document texts
//
// All files are mus-go encoded with a magic string and format version.
package index
