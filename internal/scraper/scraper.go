// Package scraper is the full-render scrape path: point the headless
// renderer at a source's search page, wait for it to settle, then run
// the extraction cascade over whatever came back.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricescout/pricescout/internal/extract"
	"github.com/pricescout/pricescout/internal/models"
	"github.com/pricescout/pricescout/internal/sources"
)

// Renderer is the opaque page-rendering capability. The production
// implementation drives a headless browser; tests substitute canned
// markup.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error)
}

type Adapter struct {
	renderer Renderer
	engine   *extract.Engine
	timeout  time.Duration
	logger   *slog.Logger
}

func NewAdapter(renderer Renderer, timeout time.Duration, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		renderer: renderer,
		engine:   extract.NewEngine(logger),
		timeout:  timeout,
		logger:   logger.With("component", "scraper"),
	}
}

// Search renders the source's search page for query and extracts
// product records from the result. An empty slice with a nil error
// means the page rendered but nothing extractable was on it.
func (a *Adapter) Search(ctx context.Context, sourceID, query string) ([]models.Product, error) {
	src := sources.Lookup(sourceID)
	if src == nil {
		return nil, fmt.Errorf("unknown source %q", sourceID)
	}

	searchURL := src.SearchURL(query)
	started := time.Now()

	markup, err := a.renderer.Render(ctx, searchURL, src.WaitSelector, a.timeout)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", sourceID, err)
	}

	products := a.engine.Extract(markup, sourceID, src.BaseURL)
	a.logger.Debug("render scrape finished",
		"source", sourceID,
		"query", query,
		"products", len(products),
		"took", time.Since(started),
	)
	return products, nil
}
