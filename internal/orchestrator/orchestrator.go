// Package orchestrator fans one search query out across every
// configured source and streams partial results back as they arrive.
// Sources are slow, flaky and mutually independent, so the contract is
// strict about termination: every stream ends within the global
// deadline with exactly one terminal result per source, then Completed.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricescout/pricescout/internal/cache"
	"github.com/pricescout/pricescout/internal/directapi"
	"github.com/pricescout/pricescout/internal/health"
	"github.com/pricescout/pricescout/internal/models"
	"github.com/pricescout/pricescout/internal/sources"
)

// DirectClient is the fast direct-endpoint scrape path.
type DirectClient interface {
	Scrape(ctx context.Context, sourceID, query, location string) directapi.Result
}

// RenderSearcher is the full render-and-extract scrape path.
type RenderSearcher interface {
	Search(ctx context.Context, sourceID, query string) ([]models.Product, error)
}

type Options struct {
	Sources        []string
	GlobalDeadline time.Duration
	DirectTimeout  time.Duration
	RenderTimeout  time.Duration
	RenderSlots    int
}

type Orchestrator struct {
	direct  DirectClient
	render  RenderSearcher
	cache   cache.Store
	monitor *health.Monitor
	opts    Options
	logger  *slog.Logger

	// renderGate bounds how many rendering sources hold a browser page
	// at once. HTTP-only sources never touch it.
	renderGate chan struct{}
}

func New(direct DirectClient, render RenderSearcher, store cache.Store, monitor *health.Monitor, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RenderSlots < 1 {
		opts.RenderSlots = 1
	}
	return &Orchestrator{
		direct:     direct,
		render:     render,
		cache:      store,
		monitor:    monitor,
		opts:       opts,
		logger:     logger.With("component", "orchestrator"),
		renderGate: make(chan struct{}, opts.RenderSlots),
	}
}

// sourceResult is one source's terminal outcome on the internal queue.
type sourceResult struct {
	source   string
	products []models.Product
	cached   bool
	skipped  bool
}

// SearchStream runs the full fan-out and returns the event stream. The
// channel is closed after the terminal Completed (or Error) event. The
// buffer holds the whole protocol, so the stream terminates on time
// even if the consumer reads slowly.
func (o *Orchestrator) SearchStream(ctx context.Context, query, location string) <-chan models.SearchEvent {
	events := make(chan models.SearchEvent, 2*len(o.opts.Sources)+4)

	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("orchestration failure", "query", query, "panic", r)
				events <- models.ErrorEvent(fmt.Sprintf("search aborted: %v", r))
			}
		}()
		o.run(ctx, query, location, events)
	}()

	return events
}

func (o *Orchestrator) run(ctx context.Context, query, location string, events chan<- models.SearchEvent) {
	started := time.Now()
	events <- models.StartedEvent(o.opts.Sources)

	searchCtx, cancel := context.WithTimeout(ctx, o.opts.GlobalDeadline)
	defer cancel()

	results := make(chan sourceResult, len(o.opts.Sources))
	for _, sourceID := range o.opts.Sources {
		go o.scrapeSource(searchCtx, sourceID, query, location, results)
	}

	remaining := make(map[string]bool, len(o.opts.Sources))
	for _, sourceID := range o.opts.Sources {
		remaining[sourceID] = true
	}

	for len(remaining) > 0 {
		select {
		case r := <-results:
			if !remaining[r.source] {
				continue
			}
			delete(remaining, r.source)
			if r.skipped {
				events <- models.MessageEvent(fmt.Sprintf("%s is temporarily disabled, skipping", r.source))
			}
			events <- models.PlatformResultEvent(r.source, r.products, r.cached)

		case <-searchCtx.Done():
			// Force-complete whoever has not reported. Their goroutines
			// observe the cancelled context and wind down on their own.
			for sourceID := range remaining {
				events <- models.PlatformResultEvent(sourceID, nil, false)
			}
			remaining = nil
		}
	}

	events <- models.CompletedEvent()
	o.logger.Info("search completed",
		"query", query,
		"location", location,
		"sources", len(o.opts.Sources),
		"took", time.Since(started),
	)
}

// scrapeSource produces exactly one terminal result for its source:
// fresh cache, breaker skip, direct scrape, render scrape, or stale
// cache, in that order of preference.
func (o *Orchestrator) scrapeSource(ctx context.Context, sourceID, query, location string, out chan<- sourceResult) {
	key := cache.Key(query, sourceID, location)

	if products, stale, ok := o.cache.Get(ctx, key); ok && !stale && len(products) > 0 {
		out <- sourceResult{source: sourceID, products: products, cached: true}
		return
	}

	if !o.monitor.IsHealthy(sourceID) {
		out <- sourceResult{source: sourceID, skipped: true}
		return
	}

	products, err := o.attempt(ctx, sourceID, query, location)
	if err == nil {
		o.monitor.RecordSuccess(sourceID)
		if len(products) > 0 {
			o.cache.Set(ctx, key, products)
			out <- sourceResult{source: sourceID, products: products}
			return
		}
	} else {
		o.monitor.RecordFailure(sourceID)
		o.logger.Debug("source scrape failed", "source", sourceID, "query", query, "error", err)
	}

	// The live attempt came up empty, whether it errored or merely
	// found nothing. A stale entry beats an empty answer.
	if stale, staleFlag, ok := o.cache.Get(ctx, key); ok && staleFlag && len(stale) > 0 {
		out <- sourceResult{source: sourceID, products: stale, cached: true}
		return
	}
	out <- sourceResult{source: sourceID}
}

// attempt runs the escalation chain for one source: direct endpoint
// under the short timeout, then the full render path.
func (o *Orchestrator) attempt(ctx context.Context, sourceID, query, location string) ([]models.Product, error) {
	directCtx, cancel := context.WithTimeout(ctx, o.opts.DirectTimeout)
	res := o.direct.Scrape(directCtx, sourceID, query, location)
	cancel()
	if res.Status == directapi.StatusSuccess {
		return res.Products, nil
	}

	if src := sources.Lookup(sourceID); src != nil && src.RequiresRender {
		select {
		case o.renderGate <- struct{}{}:
			defer func() { <-o.renderGate }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	renderCtx, cancel := context.WithTimeout(ctx, o.opts.RenderTimeout)
	defer cancel()
	return o.render.Search(renderCtx, sourceID, query)
}

// Search aggregates the event stream into per-source product lists.
// Used by callers that want the final picture rather than partials.
func (o *Orchestrator) Search(ctx context.Context, query, location string) (map[string][]models.Product, error) {
	bySource := make(map[string][]models.Product, len(o.opts.Sources))
	for event := range o.SearchStream(ctx, query, location) {
		switch event.Type {
		case models.EventPlatformResult:
			bySource[event.Source] = event.Products
		case models.EventError:
			return bySource, fmt.Errorf("search failed: %s", event.Message)
		}
	}
	return bySource, nil
}
