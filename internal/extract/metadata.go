package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
)

// extractStructuredMetadata reads the machine-readable layers a page
// may carry: JSON-LD product/offer graphs, microdata attributes and
// Open Graph product tags. When present these are far cleaner than
// anything scraped from the visible DOM.
func extractStructuredMetadata(doc *goquery.Document, sc Context) []models.ProductCandidate {
	if out := extractJSONLD(doc); len(out) > 0 {
		return out
	}
	if out := extractMicrodata(doc); len(out) > 0 {
		return out
	}
	return extractOpenGraph(doc)
}

func extractJSONLD(doc *goquery.Document) []models.ProductCandidate {
	var out []models.ProductCandidate

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		collectLinkedData(payload, &out, 0)
	})

	return out
}

// collectLinkedData walks a linked-data value, descending through
// @graph wrappers, ItemList elements and plain arrays.
func collectLinkedData(v any, out *[]models.ProductCandidate, depth int) {
	if depth > 6 {
		return
	}

	switch node := v.(type) {
	case []any:
		for _, item := range node {
			collectLinkedData(item, out, depth+1)
		}
	case map[string]any:
		if isLDType(node, "Product") {
			if c, ok := candidateFromLDProduct(node); ok {
				*out = append(*out, c)
			}
			return
		}
		for _, key := range []string{"@graph", "itemListElement", "item", "mainEntity"} {
			if child, ok := node[key]; ok {
				collectLinkedData(child, out, depth+1)
			}
		}
	}
}

func isLDType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func candidateFromLDProduct(node map[string]any) (models.ProductCandidate, bool) {
	c := models.ProductCandidate{
		Name: asString(node["name"]),
		URL:  asString(node["url"]),
	}

	switch img := node["image"].(type) {
	case string:
		c.ImageURL = img
	case []any:
		if len(img) > 0 {
			c.ImageURL = asString(img[0])
		}
	}

	offers := node["offers"]
	if list, ok := offers.([]any); ok && len(list) > 0 {
		offers = list[0]
	}
	if offer, ok := offers.(map[string]any); ok {
		c.Price = asFloat(offer["price"])
		if c.Price == 0 {
			c.Price = asFloat(offer["lowPrice"])
		}
		c.OriginalPrice = asFloat(offer["highPrice"])
		if c.URL == "" {
			c.URL = asString(offer["url"])
		}
	}

	if c.Name == "" {
		return c, false
	}
	return c, true
}

func extractMicrodata(doc *goquery.Document) []models.ProductCandidate {
	var out []models.ProductCandidate

	doc.Find(`[itemtype*="schema.org/Product"]`).Each(func(_ int, item *goquery.Selection) {
		c := models.ProductCandidate{
			Name: CleanName(itempropValue(item, "name")),
		}
		if c.Name == "" {
			return
		}

		c.Price = asFloat(itempropValue(item, "price"))
		if c.Price == 0 {
			price, mrp := SelectPrice(itempropValue(item, "price") + " " + item.Text())
			c.Price, c.OriginalPrice = price, mrp
		}

		if href, ok := item.Find(`a[itemprop="url"], [itemprop="url"]`).First().Attr("href"); ok {
			c.URL = href
		}
		if src, ok := item.Find(`img[itemprop="image"]`).First().Attr("src"); ok {
			c.ImageURL = src
		}

		out = append(out, c)
	})

	return out
}

func itempropValue(item *goquery.Selection, prop string) string {
	node := item.Find(`[itemprop="` + prop + `"]`).First()
	if node.Length() == 0 {
		return ""
	}
	if content, ok := node.Attr("content"); ok && content != "" {
		return content
	}
	return strings.TrimSpace(node.Text())
}

// extractOpenGraph yields at most the single product the page itself
// describes; it only ever applies on product detail pages.
func extractOpenGraph(doc *goquery.Document) []models.ProductCandidate {
	ogType, _ := doc.Find(`meta[property="og:type"]`).Attr("content")
	if !strings.Contains(strings.ToLower(ogType), "product") {
		return nil
	}

	c := models.ProductCandidate{
		Name: metaContent(doc, "og:title"),
		URL:  metaContent(doc, "og:url"),
	}
	c.ImageURL = metaContent(doc, "og:image")
	c.Price = asFloat(metaContent(doc, "product:price:amount"))
	if c.Price == 0 {
		c.Price = asFloat(metaContent(doc, "og:price:amount"))
	}

	if c.Name == "" {
		return nil
	}
	return []models.ProductCandidate{c}
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(content)
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		cleaned = strings.TrimLeft(cleaned, "₹$€£ ")
		f, _ := strconv.ParseFloat(cleaned, 64)
		return f
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
