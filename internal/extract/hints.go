package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
)

// climbLimit bounds how far up from a product link the card container
// is searched for.
const climbLimit = 4

// extractSourceHints is the highest-reliability strategy: it keys on
// the source's registered product-URL path conventions, which survive
// redesigns far longer than any class name, and reads each linked
// card with the source's price selector hints.
func extractSourceHints(doc *goquery.Document, sc Context) []models.ProductCandidate {
	if sc.Source == nil {
		return nil
	}

	var out []models.ProductCandidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		if !matchesAny(href, sc.Source.ProductPathPatterns) {
			return
		}

		card := cardFor(anchor)
		name := nameFromCard(card, anchor)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true

		price, mrp := PriceFromSelection(card, sc.Source.PriceSelectors, sc.Source.MRPSelectors)

		out = append(out, models.ProductCandidate{
			Name:          name,
			Price:         price,
			OriginalPrice: mrp,
			URL:           href,
			ImageURL:      firstImageSrc(card),
		})
	})

	return out
}

func matchesAny(href string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(href, p) {
			return true
		}
	}
	return false
}

// cardFor climbs from a product link to the smallest ancestor that
// carries a price, which is the card container in practice. Without a
// priced ancestor within climbLimit the anchor itself is the card.
func cardFor(anchor *goquery.Selection) *goquery.Selection {
	node := anchor
	for i := 0; i < climbLimit; i++ {
		parent := node.Parent()
		if parent.Length() == 0 {
			break
		}
		node = parent
		if amountRe.MatchString(node.Text()) {
			return node
		}
	}
	if amountRe.MatchString(anchor.Text()) {
		return anchor
	}
	return node
}

// nameFromCard tries the usual carriers of a product name within one
// card, most specific first.
func nameFromCard(card, anchor *goquery.Selection) string {
	if alt, ok := card.Find("img[alt]").First().Attr("alt"); ok {
		if name := CleanName(alt); ValidName(name) {
			return name
		}
	}

	if label, ok := anchor.Attr("aria-label"); ok {
		if name := CleanName(label); ValidName(name) {
			return name
		}
	}

	for _, sel := range []string{"h1", "h2", "h3", "h4", "h5", `div[class*="name"]`, `p[class*="name"]`, `span[class*="name"]`} {
		text := card.Find(sel).First().Text()
		if name := CleanName(text); ValidName(name) {
			return name
		}
	}

	// Anchor text last: it often concatenates name, price and badges.
	if name := CleanName(firstTextLine(anchor.Text())); ValidName(name) {
		return name
	}
	return ""
}

func firstTextLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return strings.TrimSpace(text)
}

func firstImageSrc(card *goquery.Selection) string {
	img := card.Find("img").First()
	if src, ok := img.Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := img.Attr("data-src"); ok {
		return src
	}
	return ""
}
