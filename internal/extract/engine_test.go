package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/pricescout/internal/models"
)

const blinkitCardMarkup = `<html><body>
<div class="ProductGrid">
  <div class="ProductCard">
    <a href="/prn/amul-taaza-toned-milk/prid/152"><img src="/img/milk.jpg" alt="Amul Taaza Toned Milk 500ml"></a>
    <div class="Price">₹28 ₹31</div>
  </div>
  <div class="ProductCard">
    <a href="/prn/mother-dairy-milk/prid/153"><img src="/img/md.jpg" alt="Mother Dairy Toned Milk 1L"></a>
    <div class="Price">₹56</div>
  </div>
</div>
</body></html>`

const jsonLDMarkup = `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
  {"@type":"Product","name":"Fortune Sunflower Oil 1L","url":"https://shop.example/p/1",
   "image":"https://shop.example/i/1.jpg",
   "offers":{"@type":"Offer","price":"152.00"}},
  {"@type":"Product","name":"Saffola Gold Oil 1L",
   "offers":{"@type":"Offer","price":189}}
]}
</script></head><body></body></html>`

const nextDataMarkup = `<html><body>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"results":[
  {"productName":"Daawat Basmati Rice 1kg","sellingPrice":145,"mrp":180,"imageUrl":"/i/rice.jpg","slug":"/pn/daawat/pvid/7"},
  {"productName":"India Gate Basmati Rice 1kg","sellingPrice":160}
]}}}
</script>
</body></html>`

const textOnlyMarkup = `<html><body>
<span>Amul Butter 100g</span>
<span>₹58</span>
<span>Britannia Cheese Slices</span>
<span>₹95 ₹110</span>
</body></html>`

func TestExtractCascade(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("source hints read known product links", func(t *testing.T) {
		products := engine.Extract(blinkitCardMarkup, "blinkit", "https://blinkit.com")
		require.Len(t, products, 2)

		assert.Equal(t, "Amul Taaza Toned Milk 500ml", products[0].Name)
		assert.Equal(t, 28.0, products[0].Price)
		assert.Equal(t, 31.0, products[0].OriginalPrice)
		assert.Equal(t, "blinkit", products[0].Source)
		assert.Equal(t, "https://blinkit.com/prn/amul-taaza-toned-milk/prid/152", products[0].URL)
		assert.Equal(t, "10 mins", products[0].DeliveryTime)
		assert.True(t, products[0].Available)

		assert.Equal(t, "Mother Dairy Toned Milk 1L", products[1].Name)
		assert.Zero(t, products[1].OriginalPrice)
	})

	t.Run("structured metadata from json-ld", func(t *testing.T) {
		products := engine.Extract(jsonLDMarkup, "unknownshop", "https://shop.example")
		require.Len(t, products, 2)
		assert.Equal(t, "Fortune Sunflower Oil 1L", products[0].Name)
		assert.Equal(t, 152.0, products[0].Price)
		assert.Equal(t, "Saffola Gold Oil 1L", products[1].Name)
		assert.Equal(t, 189.0, products[1].Price)
	})

	t.Run("embedded next data state", func(t *testing.T) {
		products := engine.Extract(nextDataMarkup, "zepto", "https://www.zepto.com")
		require.Len(t, products, 2)
		assert.Equal(t, "Daawat Basmati Rice 1kg", products[0].Name)
		assert.Equal(t, 145.0, products[0].Price)
		assert.Equal(t, 180.0, products[0].OriginalPrice)
		assert.Equal(t, "https://www.zepto.com/pn/daawat/pvid/7", products[0].URL)
	})

	t.Run("text pattern fallback", func(t *testing.T) {
		products := engine.Extract(textOnlyMarkup, "unknownshop", "")
		require.NotEmpty(t, products)
		assert.Equal(t, "Amul Butter 100g", products[0].Name)
		assert.Equal(t, 58.0, products[0].Price)
	})

	t.Run("empty markup yields nothing", func(t *testing.T) {
		assert.Empty(t, engine.Extract("<html><body></body></html>", "blinkit", ""))
	})
}

func TestExtractNeverExceedsCapOrFilter(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><div>")
	for i := 0; i < 30; i++ {
		sb.WriteString(fmt.Sprintf(
			`<div class="ProductCard"><a href="/prn/item-%d/prid/%d"><img alt="Packaged Product Number %d"></a><div>₹%d</div></div>`,
			i, i, i, 10+i))
	}
	// UI chrome that must never surface as a product.
	sb.WriteString(`<div class="ProductCard"><a href="/prn/x/prid/999"><img alt="Add to cart"></a><div>₹99</div></div>`)
	sb.WriteString("</div></body></html>")

	products := NewEngine(nil).Extract(sb.String(), "blinkit", "https://blinkit.com")
	assert.LessOrEqual(t, len(products), MaxResults)
	for _, p := range products {
		assert.True(t, ValidName(p.Name), "invalid name escaped the filter: %q", p.Name)
	}
}

func TestExtractDeduplicatesCaseInsensitively(t *testing.T) {
	markup := `<html><body>
<div><a href="/prn/a/prid/1"><img alt="Amul Gold Milk 1L"></a><div>₹66</div></div>
<div><a href="/prn/b/prid/2"><img alt="AMUL GOLD MILK 1L"></a><div>₹68</div></div>
</body></html>`

	products := NewEngine(nil).Extract(markup, "blinkit", "https://blinkit.com")
	assert.Len(t, products, 1)
}

func TestStrategyShortCircuit(t *testing.T) {
	consulted := []string{}
	record := func(name string, candidates []models.ProductCandidate) Strategy {
		return Strategy{
			Name: name,
			Extract: func(doc *goquery.Document, sc Context) []models.ProductCandidate {
				consulted = append(consulted, name)
				return candidates
			},
		}
	}

	hit := []models.ProductCandidate{{Name: "Tata Salt 1kg", Price: 28}}

	engine := NewEngineWith([]Strategy{
		record("first", nil),
		record("second", hit),
		record("third", hit),
	}, nil)

	products := engine.Extract("<html><body></body></html>", "blinkit", "")
	require.Len(t, products, 1)
	assert.Equal(t, []string{"first", "second"}, consulted, "strategies past the first hit must not run")
}

func TestStrategyPanicIsContained(t *testing.T) {
	engine := NewEngineWith([]Strategy{
		{Name: "boom", Extract: func(doc *goquery.Document, sc Context) []models.ProductCandidate {
			panic("malformed markup")
		}},
		{Name: "ok", Extract: func(doc *goquery.Document, sc Context) []models.ProductCandidate {
			return []models.ProductCandidate{{Name: "Aashirvaad Atta 5kg", Price: 240}}
		}},
	}, nil)

	products := engine.Extract("<html></html>", "zepto", "")
	require.Len(t, products, 1)
	assert.Equal(t, "Aashirvaad Atta 5kg", products[0].Name)
}
