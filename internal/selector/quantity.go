package selector

import (
	"regexp"
	"strconv"
	"strings"
)

// Quantity is a pack size parsed out of a product name, normalized so
// differently sized packs compare fairly.
type Quantity struct {
	Value float64
	Unit  string // g, ml or pc after normalization
}

var quantityRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(kg|g|gm|gms|l|ltr|litre|liter|ml|pc|pcs|piece|pieces|pack|packs|u)\b`)

// ParseQuantity pulls the first quantity pattern from a product name.
// Mass normalizes to grams, volume to millilitres, counts to pieces.
func ParseQuantity(name string) (Quantity, bool) {
	m := quantityRe.FindStringSubmatch(name)
	if m == nil {
		return Quantity{}, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 {
		return Quantity{}, false
	}

	switch strings.ToLower(m[2]) {
	case "kg":
		return Quantity{Value: value * 1000, Unit: "g"}, true
	case "g", "gm", "gms":
		return Quantity{Value: value, Unit: "g"}, true
	case "l", "ltr", "litre", "liter":
		return Quantity{Value: value * 1000, Unit: "ml"}, true
	case "ml":
		return Quantity{Value: value, Unit: "ml"}, true
	default:
		return Quantity{Value: value, Unit: "pc"}, true
	}
}

// HasQuantity reports whether a name carries any quantity pattern.
func HasQuantity(name string) bool {
	return quantityRe.MatchString(name)
}

// PerBaseUnitPrice normalizes price to per-100-units of the parsed
// quantity (per 100 g, per 100 ml, per 100 pieces). Zero when no
// quantity can be parsed.
func PerBaseUnitPrice(name string, price float64) float64 {
	q, ok := ParseQuantity(name)
	if !ok || price <= 0 {
		return 0
	}
	return price / q.Value * 100
}
