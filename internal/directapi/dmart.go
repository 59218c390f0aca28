package directapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/pricescout/pricescout/internal/models"
)

// DMart's search endpoint serves lightly-structured server-rendered
// HTML rather than JSON, so this client walks the result cards with a
// collector instead of decoding a payload.
func (c *Client) scrapeDMart(ctx context.Context, endpoint, query, location string) Result {
	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.IgnoreRobotsTxt(),
	)
	if deadline, ok := ctx.Deadline(); ok {
		collector.SetRequestTimeout(time.Until(deadline))
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-IN,en;q=0.9")
		r.Headers.Set("Cookie", "pincode="+location)
	})

	var candidates []models.ProductCandidate
	collector.OnHTML(`div[class*="vertical-card"]`, func(e *colly.HTMLElement) {
		name := strings.TrimSpace(e.ChildText(`p[class*="product-title"], h3, .name`))
		if name == "" {
			name = strings.TrimSpace(e.ChildAttr("img", "alt"))
		}

		price := asAmount(e.ChildText(`p[class*="product-price"], span[class*="price"]`))
		mrp := asAmount(e.ChildText(`p[class*="strikethrough"], span[class*="mrp"]`))
		if name == "" || price <= 0 {
			return
		}

		productURL := e.ChildAttr("a", "href")
		if strings.HasPrefix(productURL, "/") {
			productURL = "https://www.dmart.in" + productURL
		}

		candidates = append(candidates, models.ProductCandidate{
			Name:          name,
			Price:         price,
			OriginalPrice: mrp,
			ImageURL:      e.ChildAttr("img", "src"),
			URL:           productURL,
		})
	})

	if err := collector.Visit(searchURL(endpoint, query)); err != nil {
		return Result{Status: StatusFailure, Err: fmt.Errorf("dmart visit: %w", err)}
	}
	collector.Wait()

	return finalize("dmart", candidates)
}
