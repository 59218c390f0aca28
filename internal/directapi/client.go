// Package directapi is the fast opportunistic scrape path: a handful of
// per-source micro-clients hitting internal search endpoints directly,
// skipping the headless renderer entirely. Endpoints here are
// undocumented and break without notice, so every failure degrades to
// "no data" and the caller falls back to a full render.
package directapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pricescout/pricescout/internal/models"
	"github.com/pricescout/pricescout/internal/sources"
)

// Status classifies one direct-API attempt.
type Status int

const (
	// StatusSuccess means the endpoint answered with at least one product.
	StatusSuccess Status = iota
	// StatusNoProducts means the endpoint answered but matched nothing.
	StatusNoProducts
	// StatusFailure means the request or the parse failed.
	StatusFailure
	// StatusNotSupported means the source has no known direct endpoint.
	StatusNotSupported
)

// Result is the outcome of one Scrape call.
type Result struct {
	Status   Status
	Products []models.Product
	Err      error
}

var errBadStatus = errors.New("unexpected response status")

const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"

// Client issues direct search requests against known internal
// endpoints. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string

	// endpoints maps source id to a full URL template with %s for the
	// escaped query. Overridable per source for tests.
	endpoints map[string]string
}

func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		logger:    logger.With("component", "directapi"),
		userAgent: mobileUserAgent,
		endpoints: map[string]string{
			"blinkit":   "https://blinkit.com/v6/search/products?q=%s",
			"zepto":     "https://www.zepto.com/api/v3/search?query=%s",
			"bigbasket": "https://www.bigbasket.com/listing-svc/v2/products?type=ps&slug=%s",
			"jiomart":   "https://www.jiomart.com/catalog/search?q=%s",
			"dmart":     "https://www.dmart.in/searchAll?searchTerm=%s",
		},
	}
}

// SetEndpoint replaces the URL template for one source. Used by tests
// to point a parser at a local server.
func (c *Client) SetEndpoint(sourceID, template string) {
	c.endpoints[sourceID] = template
}

// Scrape runs the direct path for one source. The caller bounds it
// with a context timeout; no retries happen here.
func (c *Client) Scrape(ctx context.Context, sourceID, query, location string) Result {
	endpoint, ok := c.endpoints[sourceID]
	if !ok {
		return Result{Status: StatusNotSupported}
	}

	var res Result
	switch sourceID {
	case "blinkit":
		res = c.scrapeBlinkit(ctx, endpoint, query, location)
	case "zepto":
		res = c.scrapeZepto(ctx, endpoint, query, location)
	case "bigbasket":
		res = c.scrapeBigBasket(ctx, endpoint, query, location)
	case "jiomart":
		res = c.scrapeJioMart(ctx, endpoint, query, location)
	case "dmart":
		res = c.scrapeDMart(ctx, endpoint, query, location)
	default:
		return Result{Status: StatusNotSupported}
	}

	if res.Status == StatusFailure {
		c.logger.Debug("direct scrape failed", "source", sourceID, "error", res.Err)
	}
	return res
}

// fetchJSON issues a spoofed-mobile GET and hands back the body.
func (c *Client) fetchJSON(ctx context.Context, rawURL string, decorate func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	if decorate != nil {
		decorate(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", errBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func searchURL(template, query string) string {
	return fmt.Sprintf(template, url.QueryEscape(query))
}

// finalize maps candidates into Products for one source, capped the
// same way the extraction engine caps its output.
func finalize(sourceID string, candidates []models.ProductCandidate) Result {
	delivery := sources.DeliveryTimeFor(sourceID)

	var products []models.Product
	for _, cand := range candidates {
		if cand.Name == "" || cand.Price <= 0 {
			continue
		}
		products = append(products, models.NewProduct(cand, sourceID, delivery))
		if len(products) == maxDirectResults {
			break
		}
	}

	if len(products) == 0 {
		return Result{Status: StatusNoProducts}
	}
	return Result{Status: StatusSuccess, Products: products}
}

const maxDirectResults = 10
