// Package selector turns the raw multi-source aggregate of a search
// into one best-deal pick: filter to genuine matches for the query,
// tier by relevance, then compare prices per base unit inside the best
// tier.
package selector

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/pricescout/pricescout/internal/models"
)

// Relevance scoring weights. The position of the query keyword within
// a product name is the strongest signal for whether the product is
// the queried item rather than a derivative that mentions it.
const (
	scoreFirstToken    = 50
	scoreTypeSuffix    = 40
	scoreEarlyToken    = 30
	scoreAnywhere      = 20
	scoreNoTokenMatch  = -100
	derivativePenalty  = -40
	quantityBonus      = 20
	freshOrganicBonus  = 10
	tierHighFloor      = 20
	tierMediumFloor    = 0
	perUnitGuardFactor = 1.5
)

// derivativeIndicators mark product classes that merely contain the
// queried ingredient: "milk chocolate" is not milk.
var derivativeIndicators = []string{
	"juice", "jam", "sauce", "candy", "chocolate", "chips", "snack",
	"biscuit", "cookie", "cake", "shake", "drink", "syrup", "powder",
	"masala", "pickle", "papad", "namkeen", "wafer", "bar", "spread",
	"soap", "shampoo", "cream", "lotion", "scented", "flavoured", "flavored",
}

type scored struct {
	product models.Product
	score   int
}

type Selector struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{logger: logger.With("component", "selector")}
}

// BestDeal picks the single best match across every source's results,
// or nil when nothing survives filtering.
func (s *Selector) BestDeal(bySource map[string][]models.Product, query string) *models.Product {
	var candidates []models.Product
	for _, products := range bySource {
		for _, p := range products {
			if p.Available && p.Price > 0 {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	primary, meaningful := queryTokens(query)

	var scoredAll []scored
	for _, p := range candidates {
		scoredAll = append(scoredAll, scored{product: p, score: Score(p.Name, primary, meaningful)})
	}

	tier := pickTier(scoredAll)
	if len(tier) == 0 {
		return nil
	}

	winner := cheapestByUnit(tier)
	s.logger.Debug("best deal selected",
		"query", query,
		"name", winner.Name,
		"source", winner.Source,
		"price", winner.Price,
	)
	return &winner
}

// queryTokens derives the primary keyword (first whitespace token of
// the lowercased query, whole query when empty) and the meaningful
// tokens (length >= 3).
func queryTokens(query string) (string, []string) {
	lower := strings.ToLower(strings.TrimSpace(query))
	fields := strings.Fields(lower)

	primary := lower
	if len(fields) > 0 {
		primary = fields[0]
	}

	var meaningful []string
	for _, tok := range fields {
		if len(tok) >= 3 {
			meaningful = append(meaningful, tok)
		}
	}
	if len(meaningful) == 0 && primary != "" {
		meaningful = []string{primary}
	}
	return primary, meaningful
}

var nameSplitter = strings.NewReplacer(",", " ", "-", " ", "(", " ", ")", " ")

// Score rates how well a product name answers the query. Exported for
// direct testing against known rankings.
func Score(name, primaryKeyword string, meaningfulTokens []string) int {
	lower := strings.ToLower(name)
	tokens := strings.Fields(nameSplitter.Replace(lower))
	if len(tokens) == 0 {
		return scoreNoTokenMatch
	}

	anyMeaningful := false
	for _, tok := range meaningfulTokens {
		if strings.Contains(lower, tok) {
			anyMeaningful = true
			break
		}
	}
	if !anyMeaningful {
		return scoreNoTokenMatch
	}

	score := positionScore(tokens, primaryKeyword, lower)

	// The penalty stacks per matching indicator, so a compound
	// derivative like "milk chocolate bar" sinks below zero.
	for _, indicator := range derivativeIndicators {
		if strings.Contains(lower, indicator) {
			score += derivativePenalty
		}
	}

	if HasQuantity(lower) {
		score += quantityBonus
	}
	if strings.Contains(lower, "fresh") || strings.Contains(lower, "organic") {
		score += freshOrganicBonus
	}

	return score
}

func positionScore(tokens []string, primary, lowerName string) int {
	if primary == "" {
		return 0
	}

	if strings.Contains(tokens[0], primary) {
		return scoreFirstToken
	}

	// The last two tokens usually carry the product-type suffix, as in
	// "... Sunflower Oil".
	for i := max(0, len(tokens)-2); i < len(tokens); i++ {
		if strings.Contains(tokens[i], primary) {
			return scoreTypeSuffix
		}
	}

	for i := 1; i < min(3, len(tokens)); i++ {
		if strings.Contains(tokens[i], primary) {
			return scoreEarlyToken
		}
	}

	if strings.Contains(lowerName, primary) {
		return scoreAnywhere
	}
	return 0
}

// pickTier returns the candidates of the best non-empty tier:
// HIGH (>= 20), MEDIUM (0..19), LOW (< 0 but above the hard exclude).
func pickTier(all []scored) []scored {
	var high, medium, low []scored
	for _, s := range all {
		switch {
		case s.score <= scoreNoTokenMatch:
			// Hard exclude: not the same item family.
		case s.score >= tierHighFloor:
			high = append(high, s)
		case s.score >= tierMediumFloor:
			medium = append(medium, s)
		default:
			low = append(low, s)
		}
	}

	switch {
	case len(high) > 0:
		return high
	case len(medium) > 0:
		return medium
	default:
		return low
	}
}

// cheapestByUnit picks within a tier. A computable per-base-unit price
// wins, unless the per-unit winner's absolute price exceeds
// perUnitGuardFactor times the tier's cheapest raw price; that guard
// keeps a jumbo pack from beating a small affordable one outright.
func cheapestByUnit(tier []scored) models.Product {
	sort.SliceStable(tier, func(i, j int) bool {
		return tier[i].product.Price < tier[j].product.Price
	})
	cheapestRaw := tier[0].product

	bestUnit := 0.0
	var bestByUnit *models.Product
	for i := range tier {
		p := tier[i].product
		unit := PerBaseUnitPrice(p.Name, p.Price)
		if unit <= 0 {
			continue
		}
		if bestByUnit == nil || unit < bestUnit {
			bestUnit = unit
			bestByUnit = &tier[i].product
		}
	}

	if bestByUnit == nil {
		return cheapestRaw
	}
	if bestByUnit.Price <= perUnitGuardFactor*cheapestRaw.Price {
		return *bestByUnit
	}
	return cheapestRaw
}
