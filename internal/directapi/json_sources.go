package directapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pricescout/pricescout/internal/models"
)

// nameAliases and friends cover every spelling these endpoints have
// shipped so far. Order matters: the most recent spelling first.
var (
	nameAliases  = []string{"name", "display_name", "product_name", "productName", "title"}
	priceAliases = []string{"price", "selling_price", "sellingPrice", "final_price", "finalPrice", "discounted_price", "offer_price"}
	mrpAliases   = []string{"mrp", "original_price", "originalPrice", "max_retail_price", "strike_price", "list_price"}
	imageAliases = []string{"image_url", "imageUrl", "image", "thumbnail", "img"}
	urlAliases   = []string{"url", "deeplink", "web_url", "product_url", "slug"}
)

func (c *Client) scrapeBlinkit(ctx context.Context, endpoint, query, location string) Result {
	loc := locate(location)

	body, err := c.fetchJSON(ctx, searchURL(endpoint, query), func(req *http.Request) {
		req.Header.Set("lat", fmt.Sprintf("%.4f", loc.Lat))
		req.Header.Set("lon", fmt.Sprintf("%.4f", loc.Lng))
		req.Header.Set("app_client", "consumer_web")
		req.AddCookie(&http.Cookie{Name: "gr_1_lat", Value: fmt.Sprintf("%.4f", loc.Lat)})
		req.AddCookie(&http.Cookie{Name: "gr_1_lon", Value: fmt.Sprintf("%.4f", loc.Lng)})
	})
	if err != nil {
		return Result{Status: StatusFailure, Err: err}
	}

	payload, err := decodePayload(body)
	if err != nil {
		return Result{Status: StatusFailure, Err: fmt.Errorf("blinkit payload: %w", err)}
	}

	items := arrayAt(payload,
		[]string{"products"},
		[]string{"data", "products"},
		[]string{"response", "snippets"},
	)
	return finalize("blinkit", candidatesFromItems(items, "https://blinkit.com"))
}

func (c *Client) scrapeZepto(ctx context.Context, endpoint, query, location string) Result {
	loc := locate(location)

	body, err := c.fetchJSON(ctx, searchURL(endpoint, query), func(req *http.Request) {
		req.Header.Set("latitude", fmt.Sprintf("%.4f", loc.Lat))
		req.Header.Set("longitude", fmt.Sprintf("%.4f", loc.Lng))
		req.Header.Set("platform", "WEB")
	})
	if err != nil {
		return Result{Status: StatusFailure, Err: err}
	}

	payload, err := decodePayload(body)
	if err != nil {
		return Result{Status: StatusFailure, Err: fmt.Errorf("zepto payload: %w", err)}
	}

	items := arrayAt(payload,
		[]string{"items"},
		[]string{"data", "items"},
		[]string{"layout", "widgets"},
	)
	return finalize("zepto", candidatesFromItems(items, "https://www.zepto.com"))
}

func (c *Client) scrapeBigBasket(ctx context.Context, endpoint, query, location string) Result {
	body, err := c.fetchJSON(ctx, searchURL(endpoint, query), func(req *http.Request) {
		req.Header.Set("x-channel", "BB-WEB")
		req.AddCookie(&http.Cookie{Name: "_bb_pin_code", Value: location})
	})
	if err != nil {
		return Result{Status: StatusFailure, Err: err}
	}

	payload, err := decodePayload(body)
	if err != nil {
		return Result{Status: StatusFailure, Err: fmt.Errorf("bigbasket payload: %w", err)}
	}

	items := arrayAt(payload,
		[]string{"tabs"},
		[]string{"products"},
		[]string{"data", "products"},
	)
	// The tabbed layout nests the product list one level down.
	if len(items) == 1 {
		if tab, ok := items[0].(map[string]any); ok {
			if inner := arrayAt(tab, []string{"product_info", "products"}, []string{"products"}); inner != nil {
				items = inner
			}
		}
	}
	return finalize("bigbasket", candidatesFromItems(items, "https://www.bigbasket.com"))
}

func (c *Client) scrapeJioMart(ctx context.Context, endpoint, query, location string) Result {
	body, err := c.fetchJSON(ctx, searchURL(endpoint, query), func(req *http.Request) {
		req.Header.Set("pin", location)
		req.AddCookie(&http.Cookie{Name: "nms_mgo_pincode", Value: location})
	})
	if err != nil {
		return Result{Status: StatusFailure, Err: err}
	}

	payload, err := decodePayload(body)
	if err != nil {
		return Result{Status: StatusFailure, Err: fmt.Errorf("jiomart payload: %w", err)}
	}

	items := arrayAt(payload,
		[]string{"results"},
		[]string{"data", "results"},
		[]string{"products"},
	)
	return finalize("jiomart", candidatesFromItems(items, "https://www.jiomart.com"))
}

// candidatesFromItems maps raw item objects through the alias lists.
// Items whose product data sits under a nested "product"/"item" key
// are unwrapped first.
func candidatesFromItems(items []any, baseURL string) []models.ProductCandidate {
	var out []models.ProductCandidate
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, wrapper := range []string{"product", "item", "data"} {
			if inner, ok := obj[wrapper].(map[string]any); ok {
				obj = inner
				break
			}
		}

		name := pickString(obj, nameAliases...)
		price := pickPrice(obj, priceAliases...)
		if name == "" || price <= 0 {
			continue
		}

		productURL := pickString(obj, urlAliases...)
		if productURL != "" && strings.HasPrefix(productURL, "/") {
			productURL = baseURL + productURL
		}

		out = append(out, models.ProductCandidate{
			Name:          name,
			Price:         price,
			OriginalPrice: pickPrice(obj, mrpAliases...),
			ImageURL:      pickString(obj, imageAliases...),
			URL:           productURL,
		})
	}
	return out
}
