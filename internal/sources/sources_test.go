package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	require.NotNil(t, Lookup("Blinkit"))
	assert.Nil(t, Lookup("flipkart"))
}

func TestSearchURLEscapesQuery(t *testing.T) {
	src := Lookup("zepto")
	require.NotNil(t, src)
	assert.Equal(t, "https://www.zepto.com/search?query=brown+bread", src.SearchURL("brown bread"))
}

func TestIDsCoversRegistrySorted(t *testing.T) {
	ids := IDs()
	assert.Equal(t, []string{"bigbasket", "blinkit", "dmart", "instamart", "jiomart", "zepto"}, ids)
	for _, id := range ids {
		assert.NotNil(t, Lookup(id))
	}
}

func TestDeliveryTimeFor(t *testing.T) {
	assert.Equal(t, "10 mins", DeliveryTimeFor("blinkit"))
	assert.Empty(t, DeliveryTimeFor("unknown"))
}
