package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pricescout/pricescout/internal/models"
)

// priceLineLookahead is how many lines below a name-looking line a
// price line may sit and still belong to the same card.
const priceLineLookahead = 3

// extractTextPattern is the last resort: strip the DOM away entirely
// and scan visible text line by line, pairing a plausible product-name
// line with a nearby price line. Low precision, but it survives markup
// the other strategies cannot read at all.
func extractTextPattern(doc *goquery.Document, sc Context) []models.ProductCandidate {
	body := doc.Find("body")
	if body.Length() == 0 {
		return nil
	}

	// Drop script/style text that Text() would otherwise interleave.
	body.Find("script, style, noscript").Remove()

	var lines []string
	for _, raw := range strings.Split(body.Text(), "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}

	var out []models.ProductCandidate
	seen := make(map[string]bool)

	for i, line := range lines {
		name := CleanName(line)
		if !ValidName(name) || amountRe.MatchString(name) {
			continue
		}
		if seen[strings.ToLower(name)] {
			continue
		}

		for j := i + 1; j < len(lines) && j <= i+priceLineLookahead; j++ {
			if !amountRe.MatchString(lines[j]) {
				continue
			}
			price, mrp := SelectPrice(lines[j])
			if price == 0 {
				break
			}
			seen[strings.ToLower(name)] = true
			out = append(out, models.ProductCandidate{
				Name:          name,
				Price:         price,
				OriginalPrice: mrp,
			})
			break
		}

		if len(out) >= MaxResults {
			break
		}
	}

	return out
}
