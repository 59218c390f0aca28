package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
)

// stateWalkDepth bounds the recursive walk of embedded page state.
// Observed product payloads sit 3-6 levels deep; 8 covers them without
// letting a pathological blob dominate the extraction budget.
const stateWalkDepth = 8

// Known field-name spellings for the two attributes that make an
// object "look like a product". Sources rename these freely between
// framework migrations; the union below has stayed sufficient.
var (
	nameKeys = []string{"name", "productName", "product_name", "title", "displayName", "display_name", "itemName"}

	priceKeys = []string{"price", "sellingPrice", "selling_price", "finalPrice", "final_price", "offerPrice", "offer_price", "discountedPrice", "discounted_price", "salePrice"}

	mrpKeys = []string{"mrp", "originalPrice", "original_price", "listPrice", "list_price", "maxRetailPrice", "strikedPrice"}

	imageKeys = []string{"image", "imageUrl", "image_url", "imageURL", "img", "thumbnail", "productImage"}

	urlKeys = []string{"url", "productUrl", "product_url", "deeplink", "slug", "link"}
)

// Script markers that precede an embedded state blob. The assignment
// form varies by framework; the JSON after the first brace does not.
var stateMarkers = []string{
	"__NEXT_DATA__",
	"window.__INITIAL_STATE__",
	"window.__PRELOADED_STATE__",
	"window.__APP_STATE__",
	"window.__NUXT__",
	"self.__next_f",
}

// extractEmbeddedState digs product records out of the page-state JSON
// that client-rendered sources ship inline. It does not care about the
// blob's schema, only about object shapes that pair a name-like field
// with a price-like one.
func extractEmbeddedState(doc *goquery.Document, sc Context) []models.ProductCandidate {
	var out []models.ProductCandidate
	seen := make(map[string]bool)

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if len(text) < 50 || !looksLikeState(s, text) {
			return true
		}

		blob := jsonPayload(text)
		if blob == "" {
			return true
		}

		var payload any
		if err := json.Unmarshal([]byte(blob), &payload); err != nil {
			return true
		}

		walkState(payload, 0, seen, &out)
		return len(out) < MaxResults
	})

	return out
}

func looksLikeState(s *goquery.Selection, text string) bool {
	if id, _ := s.Attr("id"); id == "__NEXT_DATA__" {
		return true
	}
	for _, marker := range stateMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	// Large JSON script bodies without an assignment prefix.
	trimmed := strings.TrimSpace(text)
	return len(trimmed) > 500 && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["))
}

// jsonPayload slices the balanced JSON object or array out of a script
// body that may wrap it in an assignment statement.
func jsonPayload(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}

	open := text[start]
	var closer byte = '}'
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closer:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func walkState(v any, depth int, seen map[string]bool, out *[]models.ProductCandidate) {
	if depth > stateWalkDepth || len(*out) >= MaxResults {
		return
	}

	switch node := v.(type) {
	case []any:
		for _, item := range node {
			walkState(item, depth+1, seen, out)
		}
	case map[string]any:
		if c, ok := candidateFromStateObject(node); ok {
			key := strings.ToLower(c.Name)
			if !seen[key] {
				seen[key] = true
				*out = append(*out, c)
			}
			return
		}
		for _, child := range node {
			walkState(child, depth+1, seen, out)
		}
	}
}

// candidateFromStateObject accepts an object carrying both a name-like
// and a price-like field under any known spelling.
func candidateFromStateObject(node map[string]any) (models.ProductCandidate, bool) {
	var c models.ProductCandidate

	for _, key := range nameKeys {
		if s := asString(node[key]); s != "" {
			c.Name = s
			break
		}
	}
	if c.Name == "" {
		return c, false
	}

	for _, key := range priceKeys {
		if f := asFloat(node[key]); f > 0 {
			c.Price = f
			break
		}
	}
	if c.Price == 0 {
		return c, false
	}

	for _, key := range mrpKeys {
		if f := asFloat(node[key]); f > c.Price {
			c.OriginalPrice = f
			break
		}
	}
	for _, key := range imageKeys {
		if s := asString(node[key]); s != "" {
			c.ImageURL = s
			break
		}
	}
	for _, key := range urlKeys {
		if s := asString(node[key]); s != "" {
			c.URL = s
			break
		}
	}

	return c, true
}
