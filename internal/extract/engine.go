// Package extract turns rendered retail markup into validated product
// records. Sources redesign their pages constantly, so nothing here
// depends on one selector surviving: an ordered cascade of independent
// strategies runs until one of them produces at least one valid
// candidate, and each strategy fails in isolation.
package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
	"github.com/pricescout/pricescout/internal/sources"
)

// MaxResults caps how many products one extraction may return.
const MaxResults = 10

// Context carries per-call inputs shared by every strategy.
type Context struct {
	// Source is the registry entry for the page's source, nil when the
	// source is unknown and source-specific hints cannot apply.
	Source *sources.Source
	// BaseURL absolutizes relative product links.
	BaseURL string
}

// A Strategy is one independent, stateless way of reading products out
// of a page. Strategies never return an error: no candidates means the
// strategy did not apply.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document, sc Context) []models.ProductCandidate
}

type Engine struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return NewEngineWith(DefaultStrategies(), logger)
}

// NewEngineWith builds an engine over an explicit cascade. Tests use
// this to instrument strategy order.
func NewEngineWith(strategies []Strategy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		strategies: strategies,
		logger:     logger.With("component", "extract"),
	}
}

// DefaultStrategies is the production cascade, ordered by reliability.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "source_hints", Extract: extractSourceHints},
		{Name: "structured_metadata", Extract: extractStructuredMetadata},
		{Name: "embedded_state", Extract: extractEmbeddedState},
		{Name: "accessibility", Extract: extractAccessibility},
		{Name: "structural", Extract: extractStructural},
		{Name: "text_pattern", Extract: extractTextPattern},
	}
}

// Extract runs the cascade over markup for one source. The first
// strategy yielding at least one candidate with a valid name wins and
// no later strategy is consulted. Output is deduplicated
// case-insensitively by name and capped at MaxResults.
func (e *Engine) Extract(markup, sourceID, baseURL string) []models.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Warn("unparseable markup", "source", sourceID, "error", err)
		return nil
	}

	sc := Context{Source: sources.Lookup(sourceID), BaseURL: baseURL}
	if sc.BaseURL == "" && sc.Source != nil {
		sc.BaseURL = sc.Source.BaseURL
	}

	for _, strategy := range e.strategies {
		candidates := e.runStrategy(strategy, doc, sc, sourceID)
		valid := validCandidates(candidates)
		if len(valid) == 0 {
			continue
		}
		e.logger.Debug("strategy matched",
			"source", sourceID,
			"strategy", strategy.Name,
			"candidates", len(valid),
		)
		return e.finalize(valid, sourceID, sc.BaseURL)
	}

	return nil
}

// runStrategy isolates a strategy so broken markup can never take the
// cascade down with it.
func (e *Engine) runStrategy(s Strategy, doc *goquery.Document, sc Context, sourceID string) (out []models.ProductCandidate) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("strategy panicked", "source", sourceID, "strategy", s.Name, "panic", r)
			out = nil
		}
	}()
	return s.Extract(doc, sc)
}

func validCandidates(candidates []models.ProductCandidate) []models.ProductCandidate {
	var out []models.ProductCandidate
	for _, c := range candidates {
		c.Name = CleanName(c.Name)
		if !ValidName(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (e *Engine) finalize(candidates []models.ProductCandidate, sourceID, baseURL string) []models.Product {
	seen := make(map[string]bool, len(candidates))
	deliveryTime := sources.DeliveryTimeFor(sourceID)

	products := make([]models.Product, 0, MaxResults)
	for _, c := range candidates {
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true

		c.URL = AbsoluteURL(baseURL, c.URL)
		if c.ImageURL != "" {
			c.ImageURL = AbsoluteURL(baseURL, c.ImageURL)
		}

		products = append(products, models.NewProduct(c, sourceID, deliveryTime))
		if len(products) == MaxResults {
			break
		}
	}
	return products
}
