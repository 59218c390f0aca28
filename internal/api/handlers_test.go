package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/cache"
	"github.com/pricescout/pricescout/internal/health"
	"github.com/pricescout/pricescout/internal/models"
	"github.com/pricescout/pricescout/internal/selector"
)

type fakeSearcher struct {
	events   []models.SearchEvent
	bySource map[string][]models.Product
}

func (f *fakeSearcher) SearchStream(ctx context.Context, query, location string) <-chan models.SearchEvent {
	out := make(chan models.SearchEvent, len(f.events))
	for _, event := range f.events {
		out <- event
	}
	close(out)
	return out
}

func (f *fakeSearcher) Search(ctx context.Context, query, location string) (map[string][]models.Product, error) {
	return f.bySource, nil
}

func newTestServer(t *testing.T, searcher Searcher, monitor *health.Monitor, store cache.Store) *httptest.Server {
	t.Helper()
	if monitor == nil {
		monitor = health.NewMonitor(health.DefaultOptions(), nil)
	}
	if store == nil {
		store = cache.NewMemoryStore(cache.DefaultOptions(), nil)
	}

	h := NewHandlers(searcher, selector.New(nil), monitor, store, nil,
		[]string{"blinkit", "zepto"}, "560001", nil)
	server := httptest.NewServer(NewRouter(h))
	t.Cleanup(server.Close)
	return server
}

func TestSearchStreamEndpoint(t *testing.T) {
	searcher := &fakeSearcher{events: []models.SearchEvent{
		models.StartedEvent([]string{"blinkit", "zepto"}),
		models.PlatformResultEvent("blinkit", []models.Product{
			{Name: "Amul Milk 1L", Price: 60, Source: "blinkit", Available: true},
		}, false),
		models.PlatformResultEvent("zepto", nil, false),
		models.CompletedEvent(),
	}}
	server := newTestServer(t, searcher, nil, nil)

	resp, err := http.Get(server.URL + "/api/search?q=milk")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Search-ID"))

	var events []models.SearchEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event models.SearchEvent
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		events = append(events, event)
	}

	require.Len(t, events, 4)
	assert.Equal(t, models.EventStarted, events[0].Type)
	assert.Equal(t, models.EventPlatformResult, events[1].Type)
	assert.Equal(t, "blinkit", events[1].Source)
	assert.Equal(t, models.EventCompleted, events[3].Type)
}

func TestSearchStreamRequiresQuery(t *testing.T) {
	server := newTestServer(t, &fakeSearcher{}, nil, nil)

	resp, err := http.Get(server.URL + "/api/search")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchBestEndpoint(t *testing.T) {
	searcher := &fakeSearcher{bySource: map[string][]models.Product{
		"blinkit": {{Name: "Amul Milk 1L", Price: 60, Source: "blinkit", Available: true}},
		"zepto":   {{Name: "Toned Milk 500ml", Price: 35, Source: "zepto", Available: true}},
	}}
	server := newTestServer(t, searcher, nil, nil)

	resp, err := http.Get(server.URL + "/api/search/best?q=milk")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body BestDealResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "milk", body.Query)
	assert.Equal(t, "560001", body.Location)
	require.NotNil(t, body.Best)
	assert.Equal(t, "Toned Milk 500ml", body.Best.Name)
	assert.Len(t, body.BySource, 2)
}

func TestHealthEndpointAndReset(t *testing.T) {
	monitor := health.NewMonitor(health.Options{
		FailureThreshold: 1,
		BaseCooldown:     time.Hour,
		MaxCooldown:      time.Hour,
	}, nil)
	monitor.RecordFailure("zepto")
	server := newTestServer(t, &fakeSearcher{}, monitor, nil)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	var body struct {
		Status   string                `json:"status"`
		Sources  []models.SourceHealth `json:"sources"`
		Disabled []string              `json:"disabled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, []string{"zepto"}, body.Disabled)
	require.Len(t, body.Sources, 2)

	resetResp, err := http.Post(server.URL+"/api/health/reset", "application/json",
		strings.NewReader(`{"source":"zepto"}`))
	require.NoError(t, err)
	resetResp.Body.Close()
	assert.Equal(t, http.StatusOK, resetResp.StatusCode)
	assert.True(t, monitor.IsHealthy("zepto"))
}

func TestCacheEndpoints(t *testing.T) {
	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	store.Set(context.Background(), cache.Key("milk", "blinkit", "560001"), []models.Product{
		{Name: "Amul Milk 1L", Price: 60, Source: "blinkit"},
	})
	server := newTestServer(t, &fakeSearcher{}, nil, store)

	resp, err := http.Get(server.URL + "/api/cache/stats")
	require.NoError(t, err)
	var stats cache.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Entries)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/cache", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	assert.Zero(t, store.Stats(context.Background()).Entries)
}

func TestHistoryEndpointWithoutDatabase(t *testing.T) {
	server := newTestServer(t, &fakeSearcher{}, nil, nil)

	resp, err := http.Get(server.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var records []any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	assert.Empty(t, records)
}
