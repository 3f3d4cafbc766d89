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


package rules

import "errors"

var (
	// ErrInvalidRules indicates a rule set failed validation.
	ErrInvalidRules = errors.New("invalid rules")

	// ErrUnsupportedVersion indicates a rule file version this build cannot read.
	ErrUnsupportedVersion = errors.New("unsupported rules version")

	// ErrReadRules indicates the rule file could not be read or decoded.
	ErrReadRules = errors.New("failed to read rules")
)
