package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shophuyvan/shophuyvan-sub002/internal/domain/cart"
)

func TestRenderCart(t *testing.T) {
	shirt, _ := cart.NewLine("ao-thun", "XL", "Áo thun cotton", 150000, 2)
	shirt = shirt.WithOriginalPrice(200000)
	hat, _ := cart.NewLine("non", "", "", 50000, 1)

	out := RenderCart(cart.NewState([]cart.Line{shirt, hat}), DefaultStyles())

	assert.Contains(t, out, "ao-thun::xl")
	assert.Contains(t, out, "Áo thun cotton (XL)")
	assert.Contains(t, out, "non")
	assert.Contains(t, out, "350.000 ₫")
	assert.Contains(t, out, "Savings")
	assert.Contains(t, out, "100.000 ₫")
	assert.Contains(t, out, "3 items")
}

func TestRenderCart_NoSavingsRow(t *testing.T) {
	hat, _ := cart.NewLine("non", "", "Nón", 50000, 1)
	out := RenderCart(cart.NewState([]cart.Line{hat}), DefaultStyles())
	assert.NotContains(t, out, "Savings")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
