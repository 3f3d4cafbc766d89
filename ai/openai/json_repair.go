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


package openai

import (
	"regexp"
	"strings"
)

var (
	// `, reason":` -> `, "reason":`
	unquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_]+)":`)

	// `"b",}` -> `"b"}`
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// repairJSON fixes the formatting slips chat models make in ranking replies.
// Prose around the outermost object is dropped, keys missing their opening
// quote are quoted and trailing commas are removed.
func repairJSON(s string) string {
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	s = unquotedKey.ReplaceAllString(s, `$1"$2":`)
	return trailingComma.ReplaceAllString(s, "$1")
}
