package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// amountClass is what a currency amount found in a text blob turned
// out to be once its surroundings were inspected.
type amountClass int

const (
	classValid amountClass = iota
	classSavings
	classPerUnit
)

// Thresholds tuned against observed card markup. strayFraction guards
// against an unfiltered savings figure sneaking in as the minimum.
const (
	strayFraction = 0.30
	windowBefore  = 20
	windowAfter   = 30
)

var amountRe = regexp.MustCompile(`(?i)(?:₹|Rs\.?\s*|INR\s*|MRP\s*:?\s*₹?\s*)([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)

var perUnitRe = regexp.MustCompile(`^\s*(?:per\s+)?[0-9]*\s*(?:g|gm|kg|ml|l|ltr|pc|pcs|piece|unit)\b`)

type foundAmount struct {
	value float64
	class amountClass
}

// scanAmounts finds every currency amount in text and classifies each
// by a short window of characters before and after it. "Save ₹40",
// "₹40 off" and a leading minus mark savings; "/kg" and bare quantity
// units mark per-unit prices; everything else is a price candidate.
func scanAmounts(text string) []foundAmount {
	lower := strings.ToLower(text)
	matches := amountRe.FindAllStringSubmatchIndex(lower, -1)
	if matches == nil {
		return nil
	}

	out := make([]foundAmount, 0, len(matches))
	for _, m := range matches {
		raw := lower[m[2]:m[3]]
		value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil || value <= 0 {
			continue
		}

		before := lower[max(0, m[0]-windowBefore):m[0]]
		after := lower[m[3]:min(len(lower), m[3]+windowAfter)]

		out = append(out, foundAmount{value: value, class: classify(before, after)})
	}
	return out
}

func classify(before, after string) amountClass {
	// A savings marker must sit directly before the amount; one that
	// merely appears earlier in the window belongs to a previous
	// amount.
	lead := strings.TrimRight(strings.TrimSpace(before), "₹$€£ ")
	if strings.HasSuffix(lead, "you save") ||
		strings.HasSuffix(lead, "save") ||
		strings.HasSuffix(lead, "discount") ||
		strings.HasSuffix(lead, "-") {
		return classSavings
	}

	trimmedAfter := strings.TrimLeft(after, " ")
	if strings.HasPrefix(trimmedAfter, "off") ||
		strings.HasPrefix(trimmedAfter, "discount") {
		return classSavings
	}

	if strings.HasPrefix(trimmedAfter, "/") || perUnitRe.MatchString(trimmedAfter) {
		return classPerUnit
	}

	return classValid
}

// SelectPrice picks the selling price and, when present, the MRP out
// of a text blob that may interleave both with savings figures and
// per-unit rates. Returns (0, 0) when no usable amount exists.
//
// With one or two valid amounts the lowest is the selling price (the
// other being the MRP). With three or more, a minimum far below the
// maximum (under strayFraction of it) is almost always a savings
// figure the window classifier missed, so the second-lowest wins.
func SelectPrice(text string) (price, mrp float64) {
	var valid []float64
	for _, a := range scanAmounts(text) {
		if a.class == classValid {
			valid = append(valid, a.value)
		}
	}
	if len(valid) == 0 {
		return 0, 0
	}

	lowest, second, highest := valid[0], 0.0, valid[0]
	for _, v := range valid[1:] {
		switch {
		case v < lowest:
			second = lowest
			lowest = v
		case second == 0 || v < second:
			second = v
		}
		if v > highest {
			highest = v
		}
	}

	price = lowest
	if len(valid) >= 3 && lowest < strayFraction*highest && second > 0 {
		price = second
	}

	for _, v := range valid {
		if v > price && v > mrp {
			mrp = v
		}
	}
	return price, mrp
}

// PriceFromSelection resolves a price for one product card. Selector
// hints win when they yield a clean amount; otherwise the card's full
// text goes through SelectPrice. Hinted selectors tagged as carrying
// MRP, original or savings figures are not acceptable as the selling
// price source.
func PriceFromSelection(sel *goquery.Selection, priceHints, mrpHints []string) (price, mrp float64) {
	for _, hint := range priceHints {
		node := sel.Find(hint).First()
		if node.Length() == 0 {
			continue
		}
		if isExcludedPriceNode(node) {
			continue
		}
		if p, _ := SelectPrice(node.Text()); p > 0 {
			price = p
			break
		}
	}

	for _, hint := range mrpHints {
		node := sel.Find(hint).First()
		if node.Length() == 0 {
			continue
		}
		if m, _ := SelectPrice(node.Text()); m > 0 {
			mrp = m
			break
		}
	}

	textPrice, textMRP := SelectPrice(sel.Text())
	if price == 0 {
		price = textPrice
	}
	if mrp == 0 {
		mrp = textMRP
	}
	return price, normalizeMRP(price, mrp)
}

// normalizeMRP drops an MRP that does not strictly exceed the selling
// price; an equal or lower figure is noise, not a discount.
func normalizeMRP(price, mrp float64) float64 {
	if mrp > price {
		return mrp
	}
	return 0
}

// isExcludedPriceNode rejects hinted nodes whose class or test id tags
// them as the struck-through or savings figure.
func isExcludedPriceNode(node *goquery.Selection) bool {
	for _, attr := range []string{"class", "data-testid", "id"} {
		v, _ := node.Attr(attr)
		v = strings.ToLower(v)
		if strings.Contains(v, "mrp") || strings.Contains(v, "original") ||
			strings.Contains(v, "strike") || strings.Contains(v, "save") ||
			strings.Contains(v, "discount") {
			return true
		}
	}
	return false
}
