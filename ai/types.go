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


package ai

// Candidate is a product offered to a Ranker.
type Candidate struct {
	Name        string
	Category    string
	Price       string
	Description string
	Score       float64
}

// RankedItem is one entry of a model ranking.
type RankedItem struct {
	Name   string
	Reason string
}

// Ranking is a model's ordering of candidates, best first.
type Ranking struct {
	Items   []RankedItem
	Summary string
}

// Names returns the ranked names in order.
func (r *Ranking) Names() []string {
	names := make([]string, len(r.Items))
	for i, item := range r.Items {
		names[i] = item.Name
	}
	return names
}
