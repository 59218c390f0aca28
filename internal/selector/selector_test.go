package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/models"
)

func available(name string, price float64, source string) models.Product {
	return models.Product{Name: name, Price: price, Source: source, Available: true}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValue float64
		wantUnit  string
		wantOK    bool
	}{
		{"litres to ml", "Amul Milk 1L", 1000, "ml", true},
		{"millilitres", "Toned Milk 500ml", 500, "ml", true},
		{"kilograms to grams", "Tata Salt 1kg", 1000, "g", true},
		{"grams", "Amul Butter 100g", 100, "g", true},
		{"fractional", "Ghee 0.5 l", 500, "ml", true},
		{"pieces", "Eggs 12 pcs", 12, "pc", true},
		{"no quantity", "Fresh Coriander Bunch", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := ParseQuantity(tt.input)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantValue, q.Value)
				assert.Equal(t, tt.wantUnit, q.Unit)
			}
		})
	}
}

func TestScore(t *testing.T) {
	primary, meaningful := queryTokens("milk")

	tests := []struct {
		name string
		want int
	}{
		// 40 (type suffix) + 20 (quantity)
		{"Amul Milk 1L", 60},
		// 50 (first token) - 40 (chocolate) - 40 (bar)
		{"Milk Chocolate Bar", -30},
		// 40 (type suffix) + 20 (quantity)
		{"Toned Milk 500ml", 60},
		// no meaningful token anywhere
		{"Brown Bread 400g", -100},
		// 50 (first token) + 20 (quantity) + 10 (fresh)
		{"Milkymist Fresh Paneer 200g", 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.name, primary, meaningful))
		})
	}
}

func TestBestDealMilkScenario(t *testing.T) {
	s := New(nil)

	bySource := map[string][]models.Product{
		"blinkit": {available("Amul Milk 1L", 60, "blinkit")},
		"zepto": {
			available("Milk Chocolate Bar", 40, "zepto"),
			available("Toned Milk 500ml", 35, "zepto"),
		},
	}

	best := s.BestDeal(bySource, "milk")
	require.NotNil(t, best)

	// The chocolate bar stacks two derivative penalties and sinks into
	// the bottom tier, far from the genuine milks. Within the top tier
	// the 1L pack wins per-unit (6 vs 7 per 100ml) but its absolute
	// price fails the 1.5x raw-cheapest guard (60 > 52.5), so the
	// cheapest raw wins.
	assert.Equal(t, "Toned Milk 500ml", best.Name)
}

func TestBestDealPerUnitGuard(t *testing.T) {
	s := New(nil)

	bySource := map[string][]models.Product{
		"blinkit": {
			available("Sunflower Oil 100ml", 50, "blinkit"),
			available("Sunflower Oil 1000ml", 400, "blinkit"),
		},
	}

	best := s.BestDeal(bySource, "sunflower oil")
	require.NotNil(t, best)
	assert.Equal(t, "Sunflower Oil 100ml", best.Name,
		"jumbo pack wins per unit but must be rejected by the 1.5x guard")
}

func TestBestDealPerUnitWinsWithinGuard(t *testing.T) {
	s := New(nil)

	bySource := map[string][]models.Product{
		"zepto": {
			available("Basmati Rice 1kg", 120, "zepto"),
			available("Basmati Rice 2kg", 170, "zepto"),
		},
	}

	best := s.BestDeal(bySource, "basmati rice")
	require.NotNil(t, best)
	assert.Equal(t, "Basmati Rice 2kg", best.Name,
		"8.5 vs 12 per 100g and 170 <= 1.5x120")
}

func TestBestDealFiltersUnavailable(t *testing.T) {
	s := New(nil)

	bySource := map[string][]models.Product{
		"dmart": {
			{Name: "Tata Salt 1kg", Price: 28, Source: "dmart", Available: false},
			{Name: "Tata Salt 2kg", Price: 0, Source: "dmart", Available: true},
		},
	}

	assert.Nil(t, s.BestDeal(bySource, "salt"))
}

func TestBestDealNoCandidates(t *testing.T) {
	s := New(nil)
	assert.Nil(t, s.BestDeal(nil, "milk"))
	assert.Nil(t, s.BestDeal(map[string][]models.Product{}, "milk"))
}

func TestBestDealFallsBackToLowerTier(t *testing.T) {
	s := New(nil)

	// Only a derivative survives: it must still be returned from the
	// lower tier rather than dropped.
	bySource := map[string][]models.Product{
		"zepto": {available("Mango Juice Tetra Pack", 35, "zepto")},
	}

	best := s.BestDeal(bySource, "mango")
	require.NotNil(t, best)
	assert.Equal(t, "Mango Juice Tetra Pack", best.Name)
}
