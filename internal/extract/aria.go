package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
)

// altBlacklist filters image alt text that is never a product name.
var altBlacklist = []string{
	"logo", "icon", "banner", "arrow", "star", "rating",
	"offer", "badge", "loader", "placeholder", "avatar",
}

// extractAccessibility reads the accessibility layer: ARIA list and
// grid roles, and image alternative text. Sources that strip every
// class name still tend to leave these intact for screen readers.
func extractAccessibility(doc *goquery.Document, sc Context) []models.ProductCandidate {
	var out []models.ProductCandidate
	seen := make(map[string]bool)

	doc.Find(`[role="listitem"], [role="article"], [role="gridcell"]`).Each(func(_ int, cell *goquery.Selection) {
		name := nameFromCell(cell)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}

		price, mrp := SelectPrice(cell.Text())
		if price == 0 {
			return
		}

		seen[strings.ToLower(name)] = true
		c := models.ProductCandidate{
			Name:          name,
			Price:         price,
			OriginalPrice: mrp,
			ImageURL:      firstImageSrc(cell),
		}
		if href, ok := cell.Find("a[href]").First().Attr("href"); ok {
			c.URL = href
		}
		out = append(out, c)
	})

	if len(out) > 0 {
		return out
	}
	return extractFromImageAlts(doc, seen)
}

func nameFromCell(cell *goquery.Selection) string {
	if label, ok := cell.Attr("aria-label"); ok {
		if name := CleanName(label); ValidName(name) {
			return name
		}
	}
	if alt := usableAlt(cell.Find("img[alt]").First()); alt != "" {
		return alt
	}
	if name := CleanName(firstTextLine(cell.Text())); ValidName(name) {
		return name
	}
	return ""
}

// extractFromImageAlts pairs each usable product image alt with the
// price text of the image's nearest priced ancestor.
func extractFromImageAlts(doc *goquery.Document, seen map[string]bool) []models.ProductCandidate {
	var out []models.ProductCandidate

	doc.Find("img[alt]").Each(func(_ int, img *goquery.Selection) {
		name := usableAlt(img)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}

		card := cardFor(img)
		price, mrp := SelectPrice(card.Text())
		if price == 0 {
			return
		}

		seen[strings.ToLower(name)] = true
		c := models.ProductCandidate{
			Name:          name,
			Price:         price,
			OriginalPrice: mrp,
		}
		if src, ok := img.Attr("src"); ok {
			c.ImageURL = src
		}
		if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			c.URL = href
		}
		out = append(out, c)
	})

	return out
}

func usableAlt(img *goquery.Selection) string {
	alt, ok := img.Attr("alt")
	if !ok {
		return ""
	}
	name := CleanName(alt)
	if !ValidName(name) {
		return ""
	}
	lower := strings.ToLower(name)
	for _, word := range altBlacklist {
		if strings.Contains(lower, word) {
			return ""
		}
	}
	return name
}
