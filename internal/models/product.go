package models

import (
	"fmt"
	"time"
)

// Product is a single price observation on one source. It is built by
// the extraction engine or a direct-API parser and never mutated after
// that.
type Product struct {
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"original_price,omitempty"`
	Discount      string  `json:"discount,omitempty"`
	Source        string  `json:"source"`
	URL           string  `json:"url"`
	ImageURL      string  `json:"image_url,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	DeliveryTime  string  `json:"delivery_time"`
	Available     bool    `json:"available"`
}

// ProductCandidate is the extraction engine's working unit before name
// and price validation.
type ProductCandidate struct {
	Name          string
	Price         float64
	OriginalPrice float64
	ImageURL      string
	URL           string
}

// NewProduct finalizes a validated candidate into an immutable Product.
// The discount label is derived from the price pair.
func NewProduct(c ProductCandidate, source, deliveryTime string) Product {
	p := Product{
		Name:         c.Name,
		Price:        c.Price,
		Source:       source,
		URL:          c.URL,
		ImageURL:     c.ImageURL,
		DeliveryTime: deliveryTime,
		Available:    c.Price > 0,
	}
	if c.OriginalPrice > c.Price && c.Price > 0 {
		p.OriginalPrice = c.OriginalPrice
		pct := int((c.OriginalPrice - c.Price) / c.OriginalPrice * 100)
		if pct > 0 {
			p.Discount = fmt.Sprintf("%d%% off", pct)
		}
	}
	return p
}

// CacheEntry is one cached scrape result for a (query, source,
// location) key.
type CacheEntry struct {
	Products []Product `json:"products"`
	StoredAt time.Time `json:"stored_at"`
}

// SourceState is the circuit-breaker state of one source.
type SourceState string

const (
	StateClosed   SourceState = "closed"
	StateOpen     SourceState = "open"
	StateHalfOpen SourceState = "half_open"
)

// SourceHealth is a point-in-time snapshot of one source's breaker.
type SourceHealth struct {
	Source            string        `json:"source"`
	State             SourceState   `json:"state"`
	FailureCount      int           `json:"failure_count"`
	LastFailureAt     time.Time     `json:"last_failure_at,omitempty"`
	CooldownRemaining time.Duration `json:"cooldown_remaining"`
}
