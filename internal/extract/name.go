package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Phrases that show up as headings, buttons and status chrome inside
// product grids. A candidate name matching one of these exactly, or
// starting/ending with one, is UI furniture, not a product.
var nameBlacklist = []string{
	"add to cart",
	"add to basket",
	"view cart",
	"search results",
	"showing results",
	"no results",
	"loading",
	"please wait",
	"sort by",
	"filter",
	"filters",
	"notify me",
	"out of stock",
	"sold out",
	"login",
	"sign in",
	"sign up",
	"download app",
	"delivery in",
	"delivered in",
	"get it in",
	"arrives in",
	"free delivery",
	"shop now",
	"see all",
	"view all",
	"similar products",
	"you may also like",
	"frequently bought",
	"best sellers",
	"offers for you",
}

var currencyOnlyRe = regexp.MustCompile(`^[\s₹$€£]*(?:rs\.?|inr|mrp)?[\s0-9.,/%₹$€£-]*$`)

// ValidName reports whether a string is plausible as a product name:
// sane length, at least one letter, not a bare number or price, and
// not a known piece of UI chrome.
func ValidName(name string) bool {
	name = strings.TrimSpace(name)
	n := len([]rune(name))
	if n < 4 || n > 150 {
		return false
	}

	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return false
	}

	lower := strings.ToLower(name)
	if currencyOnlyRe.MatchString(lower) {
		return false
	}

	for _, phrase := range nameBlacklist {
		if lower == phrase || strings.HasPrefix(lower, phrase) || strings.HasSuffix(lower, phrase) {
			return false
		}
	}

	return true
}

var spaceRe = regexp.MustCompile(`\s+`)

// CleanName collapses whitespace so names scraped from nested markup
// compare and display sanely.
func CleanName(name string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(name, " "))
}
