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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

const maxParseAttempts = 3

// ErrNoChoices is returned when the model produces no completion.
var ErrNoChoices = errors.New("model returned no choices")

// Ranker implements ai.Ranker using OpenAI-compatible chat APIs.
type Ranker struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// rankedItem and ranking match the structure requested in the prompt.
type rankedItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ranking struct {
	Ranking []rankedItem `json:"ranking"`
	Summary string       `json:"summary"`
}

// newRanker is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newRanker(config *ai.Config, httpClient *http.Client) (*Ranker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ChatModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	return newRankerWithModel(client, config), nil
}

func newRankerWithModel(client llms.Model, config *ai.Config) *Ranker {
	return &Ranker{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-ranker"),
	}
}

// NewRanker creates a new ranker using the provided configuration.
//
// Returns ai.Ranker interface to enforce abstraction.
func NewRanker(config *ai.Config) (ai.Ranker, error) {
	return newRanker(config, newHTTPClient(config))
}

// Rank asks the chat model to order candidates for query.
// Malformed JSON replies are retried up to three times.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []ai.Candidate) (*ai.Ranking, error) {
	if len(candidates) == 0 {
		return &ai.Ranking{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildRankingPrompt(scrubString(query), candidates)),
			},
		},
	}

	var result ranking
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := r.client.GenerateContent(ctx, content,
			llms.WithTemperature(r.temperature),
			llms.WithMaxTokens(r.maxTokens),
			llms.WithJSONMode(),
		)
		if err != nil {
			r.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, ErrNoChoices
		}

		responseText := repairJSON(stripCodeFence(response.Choices[0].Content))

		result = ranking{}
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			r.logger.Warn("error parsing ranking response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		r.logger.Error("failed to parse ranking response after retries", "err", lastErr)
		return nil, lastErr
	}

	out := &ai.Ranking{
		Items:   make([]ai.RankedItem, 0, len(result.Ranking)),
		Summary: strings.TrimSpace(result.Summary),
	}
	for _, item := range result.Ranking {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		out.Items = append(out.Items, ai.RankedItem{Name: name, Reason: strings.TrimSpace(item.Reason)})
	}

	r.logger.Debug("ranked candidates", "candidates", len(candidates), "ranked", len(out.Items))
	return out, nil
}
