// Package api exposes the search stream and its operational endpoints
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pricescout/pricescout/internal/cache"
	"github.com/pricescout/pricescout/internal/health"
	"github.com/pricescout/pricescout/internal/history"
	"github.com/pricescout/pricescout/internal/models"
	"github.com/pricescout/pricescout/internal/selector"
)

// Searcher is the orchestrator surface the handlers consume.
type Searcher interface {
	SearchStream(ctx context.Context, query, location string) <-chan models.SearchEvent
	Search(ctx context.Context, query, location string) (map[string][]models.Product, error)
}

type Handlers struct {
	searcher        Searcher
	picker          *selector.Selector
	monitor         *health.Monitor
	store           cache.Store
	history         *history.Store
	sourceIDs       []string
	defaultLocation string
	logger          *slog.Logger
}

func NewHandlers(searcher Searcher, picker *selector.Selector, monitor *health.Monitor, store cache.Store, hist *history.Store, sourceIDs []string, defaultLocation string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		searcher:        searcher,
		picker:          picker,
		monitor:         monitor,
		store:           store,
		history:         hist,
		sourceIDs:       sourceIDs,
		defaultLocation: defaultLocation,
		logger:          logger.With("component", "api"),
	}
}

// SearchStream streams SearchEvents as newline-delimited JSON, one
// event per line, flushed as they arrive.
func (h *Handlers) SearchStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	location := r.URL.Query().Get("location")
	if location == "" {
		location = h.defaultLocation
	}

	searchID := uuid.New().String()
	h.logger.Info("search started", "search_id", searchID, "query", query, "location", location)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Search-ID", searchID)

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	started := time.Now()
	sourcesHit, productsFound := 0, 0

	for event := range h.searcher.SearchStream(r.Context(), query, location) {
		if event.Type == models.EventPlatformResult && len(event.Products) > 0 {
			sourcesHit++
			productsFound += len(event.Products)
		}
		if err := encoder.Encode(event); err != nil {
			// Client went away; the stream drains itself.
			h.logger.Debug("stream write failed", "search_id", searchID, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.history.Record(recordCtx, query, location, sourcesHit, productsFound, time.Since(started))
}

// BestDealResponse is the aggregate search answer.
type BestDealResponse struct {
	Query    string                      `json:"query"`
	Location string                      `json:"location"`
	Best     *models.Product             `json:"best,omitempty"`
	BySource map[string][]models.Product `json:"by_source"`
}

// SearchBest runs the whole fan-out, then picks the single best deal.
func (h *Handlers) SearchBest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	location := r.URL.Query().Get("location")
	if location == "" {
		location = h.defaultLocation
	}

	started := time.Now()
	bySource, err := h.searcher.Search(r.Context(), query, location)
	if err != nil {
		h.logger.Error("aggregate search failed", "query", query, "error", err)
		h.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resp := BestDealResponse{
		Query:    query,
		Location: location,
		Best:     h.picker.BestDeal(bySource, query),
		BySource: bySource,
	}

	sourcesHit, productsFound := 0, 0
	for _, products := range bySource {
		if len(products) > 0 {
			sourcesHit++
			productsFound += len(products)
		}
	}
	h.history.Record(r.Context(), query, location, sourcesHit, productsFound, time.Since(started))

	h.respondJSON(w, http.StatusOK, resp)
}

// Health reports every configured source's breaker snapshot.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	details := make([]models.SourceHealth, 0, len(h.sourceIDs))
	for _, sourceID := range h.sourceIDs {
		details = append(details, h.monitor.Detail(sourceID))
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sources":  details,
		"disabled": h.monitor.DisabledSources(),
	})
}

type resetRequest struct {
	Source string `json:"source"`
}

// ResetHealth closes one breaker, or every breaker when no source is
// named.
func (h *Handlers) ResetHealth(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.Source != "" {
		h.monitor.ResetSource(req.Source)
	} else {
		h.monitor.ResetAll()
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.Stats(r.Context()))
}

func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(r.Context()); err != nil {
		h.logger.Error("cache clear failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// History lists recent searches, newest first. Empty when no database
// is wired.
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.Recent(r.Context(), 50)
	if err != nil {
		h.logger.Error("history query failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	h.respondJSON(w, http.StatusOK, records)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
