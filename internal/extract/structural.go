package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
)

// Path fragments that mark product detail links across most retail
// platforms, used when no source-specific convention is registered.
var genericProductPaths = []string{"/product/", "/products/", "/p/", "/pd/", "/prn/", "/pn/", "/item/", "/items/", "/dp/"}

// maxCardTextLen bounds a candidate container's text so a whole
// results section is never mistaken for one card.
const maxCardTextLen = 600

// extractStructural applies layout heuristics that hold across
// unrelated storefronts: product-looking link paths, prices close to
// images inside small containers, and repeated sibling grids.
func extractStructural(doc *goquery.Document, sc Context) []models.ProductCandidate {
	seen := make(map[string]bool)

	out := structuralFromLinks(doc, seen)
	if len(out) == 0 {
		out = structuralFromImages(doc, seen)
	}
	if len(out) == 0 {
		out = structuralFromGrids(doc, seen)
	}
	return out
}

func structuralFromLinks(doc *goquery.Document, seen map[string]bool) []models.ProductCandidate {
	var out []models.ProductCandidate

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		if !matchesAny(href, genericProductPaths) {
			return
		}

		card := cardFor(anchor)
		if len(card.Text()) > maxCardTextLen {
			card = anchor
		}

		name := nameFromCard(card, anchor)
		if name == "" || seen[strings.ToLower(name)] {
			return
		}

		price, mrp := SelectPrice(card.Text())

		seen[strings.ToLower(name)] = true
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

// structuralFromImages pairs every image with a priced ancestor of
// bounded size: a price rendered near an image inside a small
// container is a product card on practically every storefront.
func structuralFromImages(doc *goquery.Document, seen map[string]bool) []models.ProductCandidate {
	var out []models.ProductCandidate

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		card := cardFor(img)
		text := card.Text()
		if len(text) > maxCardTextLen {
			return
		}

		price, mrp := SelectPrice(text)
		if price == 0 {
			return
		}

		name := usableAlt(img)
		if name == "" {
			name = CleanName(firstTextLine(text))
			if !ValidName(name) {
				return
			}
		}
		if seen[strings.ToLower(name)] {
			return
		}

		seen[strings.ToLower(name)] = true
		c := models.ProductCandidate{Name: name, Price: price, OriginalPrice: mrp}
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

// structuralFromGrids finds containers with at least three same-tag
// priced children, the signature of a results grid, then walks each
// sibling as a card.
func structuralFromGrids(doc *goquery.Document, seen map[string]bool) []models.ProductCandidate {
	var out []models.ProductCandidate

	doc.Find("div, ul, section").EachWithBreak(func(_ int, container *goquery.Selection) bool {
		children := container.Children()
		if children.Length() < 3 {
			return true
		}

		priced := 0
		children.Each(func(_ int, child *goquery.Selection) {
			if amountRe.MatchString(child.Text()) && len(child.Text()) <= maxCardTextLen {
				priced++
			}
		})
		if priced < 3 {
			return true
		}

		children.Each(func(_ int, child *goquery.Selection) {
			text := child.Text()
			if len(text) > maxCardTextLen {
				return
			}
			price, mrp := SelectPrice(text)
			if price == 0 {
				return
			}
			name := nameFromCard(child, child)
			if name == "" || seen[strings.ToLower(name)] {
				return
			}
			seen[strings.ToLower(name)] = true
			c := models.ProductCandidate{
				Name:          name,
				Price:         price,
				OriginalPrice: mrp,
				ImageURL:      firstImageSrc(child),
			}
			if href, ok := child.Find("a[href]").First().Attr("href"); ok {
				c.URL = href
			}
			out = append(out, c)
		})

		return len(out) == 0
	})

	return out
}
