package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/cache"
	"github.com/pricescout/pricescout/internal/directapi"
	"github.com/pricescout/pricescout/internal/health"
	"github.com/pricescout/pricescout/internal/models"
)

type fakeDirect struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]directapi.Result
}

func newFakeDirect(results map[string]directapi.Result) *fakeDirect {
	return &fakeDirect{calls: make(map[string]int), results: results}
}

func (f *fakeDirect) Scrape(ctx context.Context, sourceID, query, location string) directapi.Result {
	f.mu.Lock()
	f.calls[sourceID]++
	f.mu.Unlock()

	if r, ok := f.results[sourceID]; ok {
		return r
	}
	return directapi.Result{Status: directapi.StatusNotSupported}
}

func (f *fakeDirect) callCount(sourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sourceID]
}

type fakeRender struct {
	mu       sync.Mutex
	calls    map[string]int
	products map[string][]models.Product
	errs     map[string]error
	hang     map[string]bool
	delay    time.Duration

	inFlight    int32
	maxInFlight int32
}

func newFakeRender() *fakeRender {
	return &fakeRender{
		calls:    make(map[string]int),
		products: make(map[string][]models.Product),
		errs:     make(map[string]error),
		hang:     make(map[string]bool),
	}
}

func (f *fakeRender) Search(ctx context.Context, sourceID, query string) ([]models.Product, error) {
	f.mu.Lock()
	f.calls[sourceID]++
	f.mu.Unlock()

	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		prev := atomic.LoadInt32(&f.maxInFlight)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, cur) {
			break
		}
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.hang[sourceID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.errs[sourceID]; err != nil {
		return nil, err
	}
	return f.products[sourceID], nil
}

func (f *fakeRender) callCount(sourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sourceID]
}

func product(name string, price float64, source string) models.Product {
	return models.Product{Name: name, Price: price, Source: source, Available: true}
}

func newTestOrchestrator(direct DirectClient, render RenderSearcher, store cache.Store, monitor *health.Monitor, srcs []string, deadline time.Duration) *Orchestrator {
	return New(direct, render, store, monitor, Options{
		Sources:        srcs,
		GlobalDeadline: deadline,
		DirectTimeout:  50 * time.Millisecond,
		RenderTimeout:  time.Minute,
		RenderSlots:    4,
	}, nil)
}

func collect(t *testing.T, stream <-chan models.SearchEvent) []models.SearchEvent {
	t.Helper()
	var events []models.SearchEvent
	for event := range stream {
		events = append(events, event)
	}
	return events
}

// One terminal PlatformResult per source, then Completed, no matter how
// each source behaves.
func TestSearchStreamInvariant(t *testing.T) {
	srcs := []string{"blinkit", "zepto", "bigbasket", "jiomart", "instamart", "dmart"}

	direct := newFakeDirect(map[string]directapi.Result{
		"blinkit": {Status: directapi.StatusSuccess, Products: []models.Product{product("Amul Milk 1L", 60, "blinkit")}},
		"jiomart": {Status: directapi.StatusFailure, Err: errors.New("403")},
		"dmart":   {Status: directapi.StatusNoProducts},
	})

	render := newFakeRender()
	render.products["zepto"] = []models.Product{product("Toned Milk 500ml", 35, "zepto")}
	render.errs["bigbasket"] = errors.New("navigation timeout")
	render.errs["jiomart"] = errors.New("navigation timeout")
	render.hang["instamart"] = true

	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, render, store, monitor, srcs, 300*time.Millisecond)

	events := collect(t, o.SearchStream(context.Background(), "milk", "560001"))
	require.NotEmpty(t, events)

	assert.Equal(t, models.EventStarted, events[0].Type)
	assert.ElementsMatch(t, srcs, events[0].Sources)
	assert.Equal(t, models.EventCompleted, events[len(events)-1].Type)

	bySource := make(map[string][]models.Product)
	for _, event := range events {
		if event.Type == models.EventPlatformResult {
			_, dup := bySource[event.Source]
			require.False(t, dup, "second PlatformResult for %s", event.Source)
			bySource[event.Source] = event.Products
		}
	}
	require.Len(t, bySource, len(srcs))

	assert.Len(t, bySource["blinkit"], 1)
	assert.Len(t, bySource["zepto"], 1)
	assert.Empty(t, bySource["bigbasket"])
	assert.Empty(t, bySource["jiomart"])
	assert.Empty(t, bySource["instamart"], "hung source must be force-completed empty")
	assert.Empty(t, bySource["dmart"])
}

func TestFreshCacheSkipsNetwork(t *testing.T) {
	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	cached := []models.Product{product("Amul Milk 1L", 60, "blinkit")}
	store.Set(context.Background(), cache.Key("milk", "blinkit", "560001"), cached)

	direct := newFakeDirect(nil)
	render := newFakeRender()
	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, render, store, monitor, []string{"blinkit"}, time.Second)

	events := collect(t, o.SearchStream(context.Background(), "milk", "560001"))

	var result *models.SearchEvent
	for i := range events {
		if events[i].Type == models.EventPlatformResult {
			result = &events[i]
		}
	}
	require.NotNil(t, result)
	assert.True(t, result.Cached)
	assert.Equal(t, cached, result.Products)
	assert.Zero(t, direct.callCount("blinkit"))
	assert.Zero(t, render.callCount("blinkit"))
}

func TestOpenBreakerSkipsWithoutAttempt(t *testing.T) {
	monitor := health.NewMonitor(health.Options{
		FailureThreshold: 1,
		BaseCooldown:     time.Hour,
		MaxCooldown:      time.Hour,
	}, nil)
	monitor.RecordFailure("zepto")
	require.False(t, monitor.IsHealthy("zepto"))

	direct := newFakeDirect(nil)
	render := newFakeRender()
	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, render, store, monitor, []string{"zepto"}, time.Second)

	events := collect(t, o.SearchStream(context.Background(), "milk", "560001"))

	sawSkipMessage := false
	for _, event := range events {
		switch event.Type {
		case models.EventMessage:
			sawSkipMessage = true
		case models.EventPlatformResult:
			assert.Equal(t, "zepto", event.Source)
			assert.Empty(t, event.Products)
			assert.False(t, event.Cached)
		}
	}
	assert.True(t, sawSkipMessage)
	assert.Zero(t, direct.callCount("zepto"))
	assert.Zero(t, render.callCount("zepto"))
}

func TestStaleCacheServedWhenScrapeFails(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{
		FreshFor:    time.Millisecond,
		ExpireAfter: time.Hour,
	}, nil)
	stale := []models.Product{product("Amul Milk 1L", 58, "blinkit")}
	store.Set(context.Background(), cache.Key("milk", "blinkit", "560001"), stale)
	time.Sleep(10 * time.Millisecond)

	direct := newFakeDirect(map[string]directapi.Result{
		"blinkit": {Status: directapi.StatusFailure, Err: errors.New("captcha")},
	})
	render := newFakeRender()
	render.errs["blinkit"] = errors.New("bot challenge")

	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, render, store, monitor, []string{"blinkit"}, time.Second)

	events := collect(t, o.SearchStream(context.Background(), "milk", "560001"))

	var result *models.SearchEvent
	for i := range events {
		if events[i].Type == models.EventPlatformResult {
			result = &events[i]
		}
	}
	require.NotNil(t, result)
	assert.True(t, result.Cached, "stale entry must be served as a degraded fallback")
	assert.Equal(t, stale, result.Products)
	assert.Equal(t, 1, monitor.Detail("blinkit").FailureCount)
}

func TestStaleCacheServedWhenScrapeYieldsNothing(t *testing.T) {
	store := cache.NewMemoryStore(cache.Options{
		FreshFor:    time.Millisecond,
		ExpireAfter: time.Hour,
	}, nil)
	stale := []models.Product{product("Amul Milk 1L", 58, "blinkit")}
	store.Set(context.Background(), cache.Key("milk", "blinkit", "560001"), stale)
	time.Sleep(10 * time.Millisecond)

	// Direct path unsupported, render succeeds but extracts nothing.
	direct := newFakeDirect(nil)
	render := newFakeRender()

	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, render, store, monitor, []string{"blinkit"}, time.Second)

	events := collect(t, o.SearchStream(context.Background(), "milk", "560001"))

	var result *models.SearchEvent
	for i := range events {
		if events[i].Type == models.EventPlatformResult {
			result = &events[i]
		}
	}
	require.NotNil(t, result)
	assert.Equal(t, 1, render.callCount("blinkit"))
	assert.True(t, result.Cached, "stale entry must back an empty live result")
	assert.Equal(t, stale, result.Products)
	assert.Zero(t, monitor.Detail("blinkit").FailureCount, "an empty page is not a failure")
}

func TestRenderGateBoundsConcurrency(t *testing.T) {
	srcs := []string{"blinkit", "zepto", "instamart"}

	direct := newFakeDirect(nil)
	render := newFakeRender()
	render.delay = 30 * time.Millisecond
	for _, src := range srcs {
		render.products[src] = []models.Product{product("Milk", 50, src)}
	}

	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := New(direct, render, store, monitor, Options{
		Sources:        srcs,
		GlobalDeadline: 5 * time.Second,
		DirectTimeout:  50 * time.Millisecond,
		RenderTimeout:  time.Minute,
		RenderSlots:    1,
	}, nil)

	collect(t, o.SearchStream(context.Background(), "milk", "560001"))

	assert.Equal(t, int32(1), atomic.LoadInt32(&render.maxInFlight),
		"rendering sources must share the single render slot")
}

func TestSuccessfulScrapeUpsertsCache(t *testing.T) {
	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	direct := newFakeDirect(map[string]directapi.Result{
		"blinkit": {Status: directapi.StatusSuccess, Products: []models.Product{product("Amul Milk 1L", 60, "blinkit")}},
	})

	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, newFakeRender(), store, monitor, []string{"blinkit"}, time.Second)

	collect(t, o.SearchStream(context.Background(), "milk", "560001"))

	products, staleFlag, ok := store.Get(context.Background(), cache.Key("milk", "blinkit", "560001"))
	require.True(t, ok)
	assert.False(t, staleFlag)
	assert.Len(t, products, 1)
}

func TestSearchAggregatesStream(t *testing.T) {
	direct := newFakeDirect(map[string]directapi.Result{
		"blinkit": {Status: directapi.StatusSuccess, Products: []models.Product{product("Amul Milk 1L", 60, "blinkit")}},
	})
	render := newFakeRender()
	render.products["zepto"] = []models.Product{product("Toned Milk 500ml", 35, "zepto")}

	store := cache.NewMemoryStore(cache.DefaultOptions(), nil)
	monitor := health.NewMonitor(health.DefaultOptions(), nil)
	o := newTestOrchestrator(direct, render, store, monitor, []string{"blinkit", "zepto"}, time.Second)

	bySource, err := o.Search(context.Background(), "milk", "560001")
	require.NoError(t, err)
	require.Len(t, bySource, 2)
	assert.Len(t, bySource["blinkit"], 1)
	assert.Len(t, bySource["zepto"], 1)
}
