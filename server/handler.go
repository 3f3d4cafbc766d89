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


package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/recommend"
)

const (
	serviceName = "okusuri-recommend"

	// MaxTopK bounds the result count a client may request.
	MaxTopK = 50
)

// Service answers search and recommendation requests.
type Service interface {
	Search(ctx context.Context, query string, topK int) []*core.SearchResult
	Recommend(ctx context.Context, query string, maxResults int) (*recommend.Recommendation, error)
	Status() *recommend.Status
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service Service
	version string
	logger  *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithVersion sets the version reported by the health check.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) {
		h.version = version
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(service Service, opts ...HandlerOption) (*Handler, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}
	h := &Handler{service: service, version: "dev", logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "server")
	return h, nil
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: h.version,
	})
}

// Status reports the index and configuration state. An index that failed
// to load answers 503.
func (h *Handler) Status(c *gin.Context) {
	st := h.service.Status()
	code := http.StatusOK
	if st.State == recommend.StateError {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, st)
}

// Search handles GET /api/v1/search?q=&top_k=
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query parameter q is required"})
		return
	}
	topK, err := parseTopK(c.Query("top_k"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	results := h.service.Search(c.Request.Context(), query, topK)
	c.JSON(http.StatusOK, SearchResponse{
		Query:   query,
		Count:   len(results),
		Results: toProductResults(results, nil),
	})
}

// Recommend handles POST /api/v1/recommend
func (h *Handler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.MaxResults < 0 || req.MaxResults > MaxTopK {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "max_results must be between 0 and " + strconv.Itoa(MaxTopK)})
		return
	}

	rec, err := h.service.Recommend(c.Request.Context(), req.Query, req.MaxResults)
	if err != nil {
		if errors.Is(err, recommend.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("recommendation failed", "query", req.Query, "err", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "recommendation failed"})
		return
	}

	c.JSON(http.StatusOK, NewRecommendResponse(rec))
}

// parseTopK reads an optional positive result limit. Zero means the
// service default.
func parseTopK(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 0 {
		return 0, errors.New("top_k must be a non-negative integer")
	}
	return min(k, MaxTopK), nil
}
