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
	"fmt"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

const (
	maxPromptCandidates = 10
	maxDescriptionRunes = 200
)

const rankingResponseSchema = `{
  "type": "object",
  "properties": {
    "ranking": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "reason": {"type": "string"}
        },
        "required": ["name", "reason"]
      }
    },
    "summary": {"type": "string"}
  },
  "required": ["ranking", "summary"]
}`

const systemPromptTemplate = `あなたは薬局の専門家です。お客様の質問に対して、候補の商品から最適なものを選び、理由を添えて推薦してください。

出力は次のスキーマに従うJSONのみとしてください。前置きや説明文は不要です。

%s

ルール:
- ranking には候補リストにある商品名だけを、おすすめ順に並べてください。
- reason は日本語で1文にまとめてください。
- 医師の診断が必要な場合は summary でその旨を伝えてください。
- 候補に適切な商品がない場合は ranking を空配列にしてください。`

func buildSystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, rankingResponseSchema)
}

// buildRankingPrompt lists at most ten candidates with truncated descriptions.
func buildRankingPrompt(query string, candidates []ai.Candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "お客様の質問: %s\n\n候補の商品:\n", query)
	for i, c := range candidates {
		if i == maxPromptCandidates {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Name)
		if c.Category != "" {
			fmt.Fprintf(&sb, "   カテゴリ: %s\n", c.Category)
		}
		if c.Price != "" {
			fmt.Fprintf(&sb, "   価格: %s円\n", c.Price)
		}
		if c.Description != "" {
			fmt.Fprintf(&sb, "   説明: %s\n", truncateRunes(c.Description, maxDescriptionRunes))
		}
		fmt.Fprintf(&sb, "   類似度: %.3f\n", c.Score)
	}
	return sb.String()
}
