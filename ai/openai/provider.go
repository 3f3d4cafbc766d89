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
	"log/slog"
	"net/http"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

// Provider serves embeddings and re-ranking from one OpenAI-compatible
// endpoint. Both services share an HTTP client whose timeout bounds every
// request.
type Provider struct {
	config     *ai.Config
	httpClient *http.Client
	embedder   *Embedder
	ranker     *Ranker
	logger     *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and creates the embedder and ranker. No
// request is made until one of them is used.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ai.ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		config:     config,
		httpClient: newHTTPClient(config),
		logger:     slog.Default().With("component", "openai"),
	}

	var err error
	if p.embedder, err = newEmbedder(config, p.httpClient); err != nil {
		return nil, err
	}
	if p.ranker, err = newRanker(config, p.httpClient); err != nil {
		return nil, err
	}

	p.logger.Debug("provider ready",
		"base_url", config.BaseURL,
		"embedding_model", config.EmbeddingModel,
		"chat_model", config.ChatModel)
	return p, nil
}

// Embedder returns the embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Ranker returns the chat-model re-ranker.
func (p *Provider) Ranker() ai.Ranker {
	return p.ranker
}

// Close drops idle keep-alive connections.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
