// Package sources is the registry of scrape targets. Everything a
// component needs to know about a retailer lives here: how to build a
// search URL, which markup conventions are stable enough to key
// heuristics on, and whether the full page needs a browser.
package sources

import (
	"net/url"
	"sort"
	"strings"
)

type Source struct {
	ID          string
	DisplayName string
	BaseURL     string
	// SearchPath is the search URL template relative to BaseURL, with
	// %s replaced by the escaped query.
	SearchPath string
	// WaitSelector is the element the renderer waits for before the
	// page is considered settled. Empty means wait for load only.
	WaitSelector string
	// RequiresRender marks sources whose pages are useless without
	// JavaScript. These share the bounded render gate.
	RequiresRender bool
	// DeliveryTime is the label shown for results from this source.
	DeliveryTime string
	// ProductPathPatterns are URL path fragments that only ever occur
	// on product detail links. Between one and three per source stay
	// stable across redesigns.
	ProductPathPatterns []string
	// PriceSelectors are CSS selectors that have historically carried
	// the selling price. Hints, not guarantees.
	PriceSelectors []string
	// MRPSelectors carry the struck-through original price.
	MRPSelectors []string
}

func (s *Source) SearchURL(query string) string {
	return s.BaseURL + strings.Replace(s.SearchPath, "%s", url.QueryEscape(query), 1)
}

var registry = map[string]*Source{
	"blinkit": {
		ID:                  "blinkit",
		DisplayName:         "Blinkit",
		BaseURL:             "https://blinkit.com",
		SearchPath:          "/s/?q=%s",
		WaitSelector:        `div[role="button"] img`,
		RequiresRender:      true,
		DeliveryTime:        "10 mins",
		ProductPathPatterns: []string{"/prn/", "/prid/"},
		PriceSelectors:      []string{`div[class*="Price"]`, `div[class*="price"]`},
		MRPSelectors:        []string{`div[class*="mrp"]`, `span[class*="strike"]`},
	},
	"zepto": {
		ID:                  "zepto",
		DisplayName:         "Zepto",
		BaseURL:             "https://www.zepto.com",
		SearchPath:          "/search?query=%s",
		WaitSelector:        `a[href*="/pn/"]`,
		RequiresRender:      true,
		DeliveryTime:        "10 mins",
		ProductPathPatterns: []string{"/pn/", "/pvid/"},
		PriceSelectors:      []string{`h4[class*="price"]`, `p[class*="price"]`},
		MRPSelectors:        []string{`p[class*="line-through"]`, `span[class*="line-through"]`},
	},
	"bigbasket": {
		ID:                  "bigbasket",
		DisplayName:         "BigBasket",
		BaseURL:             "https://www.bigbasket.com",
		SearchPath:          "/ps/?q=%s",
		WaitSelector:        `li[class*="PaginateItems"]`,
		RequiresRender:      false,
		DeliveryTime:        "2 hrs",
		ProductPathPatterns: []string{"/pd/"},
		PriceSelectors:      []string{`span[class*="Pricing"]`, `span[class*="discnt-price"]`},
		MRPSelectors:        []string{`span[class*="mrp"]`},
	},
	"jiomart": {
		ID:                  "jiomart",
		DisplayName:         "JioMart",
		BaseURL:             "https://www.jiomart.com",
		SearchPath:          "/search/%s",
		WaitSelector:        `div.plp-card-wrapper`,
		RequiresRender:      false,
		DeliveryTime:        "1 day",
		ProductPathPatterns: []string{"/p/groceries/", "/p/"},
		PriceSelectors:      []string{`span.jm-heading-xxs`, `span[class*="final-price"]`},
		MRPSelectors:        []string{`span.jm-body-xxs.line-through`},
	},
	"instamart": {
		ID:                  "instamart",
		DisplayName:         "Swiggy Instamart",
		BaseURL:             "https://www.swiggy.com",
		SearchPath:          "/instamart/search?custom_back=true&query=%s",
		WaitSelector:        `div[data-testid="default_container_ux4"]`,
		RequiresRender:      true,
		DeliveryTime:        "15 mins",
		ProductPathPatterns: []string{"/instamart/item/", "/instamart/p/"},
		PriceSelectors:      []string{`div[data-testid="item-offer-price"]`},
		MRPSelectors:        []string{`div[data-testid="item-mrp-price"]`},
	},
	"dmart": {
		ID:                  "dmart",
		DisplayName:         "DMart Ready",
		BaseURL:             "https://www.dmart.in",
		SearchPath:          "/searchResult?searchTerm=%s",
		WaitSelector:        `div[class*="vertical-card"]`,
		RequiresRender:      false,
		DeliveryTime:        "2 days",
		ProductPathPatterns: []string{"/product/"},
		PriceSelectors:      []string{`p[class*="product-price"]`},
		MRPSelectors:        []string{`p[class*="strikethrough"]`},
	},
}

// Lookup returns the registered source, or nil for an unknown id.
func Lookup(id string) *Source {
	return registry[strings.ToLower(id)]
}

// IDs returns the ids of every registered source, sorted so callers
// that default to "everything" stay deterministic.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeliveryTimeFor returns the delivery label for a source, empty when
// the source is unknown.
func DeliveryTimeFor(id string) string {
	if s := Lookup(id); s != nil {
		return s.DeliveryTime
	}
	return ""
}
