package cart

import (
	"strings"
)

// keySeparator joins product id and variant label in a line key
const keySeparator = "::"

// Line is one product/variant entry in a shopper's cart.
// Price, name and image are expected to be identical for a given key;
// only Quantity legitimately diverges between clients.
type Line struct {
	Key           string   `json:"key"`
	ProductID     string   `json:"product_id,omitempty"`
	DisplayName   string   `json:"name"`
	Image         string   `json:"image,omitempty"`
	VariantLabel  string   `json:"variant,omitempty"`
	UnitPrice     float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Quantity      int      `json:"qty"`
}

// LineKey derives the deterministic key for a product and variant.
// The same product and variant always produce the same key.
func LineKey(productID, variantLabel string) string {
	productID = strings.TrimSpace(productID)
	variant := normalizeVariant(variantLabel)
	if variant == "" {
		return productID
	}
	return productID + keySeparator + variant
}

// MaxLineQuantity caps the quantity of a single line. Sums saturate here.
const MaxLineQuantity = 9999

// AddQuantity sums two positive line quantities, saturating at MaxLineQuantity
func AddQuantity(a, b int) int {
	if a >= MaxLineQuantity || b >= MaxLineQuantity || a > MaxLineQuantity-b {
		return MaxLineQuantity
	}
	return a + b
}

// NewLine creates a cart line with a derived key
func NewLine(productID, variantLabel, displayName string, unitPrice float64, quantity int) (Line, error) {
	if strings.TrimSpace(productID) == "" {
		return Line{}, ErrLineProductRequired
	}
	if unitPrice < 0 {
		return Line{}, ErrLineNegativePrice
	}
	if quantity < 1 {
		return Line{}, ErrLineQuantity
	}
	if quantity > MaxLineQuantity {
		return Line{}, ErrLineQuantityTooLarge
	}
	return Line{
		Key:          LineKey(productID, variantLabel),
		ProductID:    strings.TrimSpace(productID),
		DisplayName:  displayName,
		VariantLabel: strings.TrimSpace(variantLabel),
		UnitPrice:    unitPrice,
		Quantity:     quantity,
	}, nil
}

// WithQuantity returns a copy of the line with the given quantity
func (l Line) WithQuantity(quantity int) Line {
	l.Quantity = quantity
	return l
}

// WithOriginalPrice returns a copy of the line with a list price set
func (l Line) WithOriginalPrice(price float64) Line {
	l.OriginalPrice = &price
	return l
}

// ResolvedKey returns the stored key, deriving it from product and variant when empty
func (l Line) ResolvedKey() string {
	if key := strings.TrimSpace(l.Key); key != "" {
		return key
	}
	if strings.TrimSpace(l.ProductID) == "" {
		return ""
	}
	return LineKey(l.ProductID, l.VariantLabel)
}

// ListPrice returns max(originalPrice, unitPrice)
func (l Line) ListPrice() float64 {
	if l.OriginalPrice != nil && *l.OriginalPrice > l.UnitPrice {
		return *l.OriginalPrice
	}
	return l.UnitPrice
}

// sameContent compares every field, including quantity
func (l Line) sameContent(other Line) bool {
	if l.ResolvedKey() != other.ResolvedKey() ||
		l.ProductID != other.ProductID ||
		l.DisplayName != other.DisplayName ||
		l.Image != other.Image ||
		l.VariantLabel != other.VariantLabel ||
		l.UnitPrice != other.UnitPrice ||
		l.Quantity != other.Quantity {
		return false
	}
	switch {
	case l.OriginalPrice == nil && other.OriginalPrice == nil:
		return true
	case l.OriginalPrice == nil || other.OriginalPrice == nil:
		return false
	default:
		return *l.OriginalPrice == *other.OriginalPrice
	}
}

// Normalize enforces the persisted-line invariants:
// every line has a key, quantity is between one and MaxLineQuantity, and a
// key appears once. Lines without a resolvable key or with quantity <= 0 are
// dropped; larger quantities saturate. Duplicate keys are collapsed into the
// first occurrence by summing quantities.
// The result is never nil.
func Normalize(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		key := line.ResolvedKey()
		if key == "" || line.Quantity <= 0 {
			continue
		}
		line.Key = key
		line.Quantity = min(line.Quantity, MaxLineQuantity)
		if line.OriginalPrice != nil {
			price := *line.OriginalPrice
			line.OriginalPrice = &price
		}
		if i, ok := index[key]; ok {
			out[i].Quantity = AddQuantity(out[i].Quantity, line.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, line)
	}
	return out
}

// CloneLines returns a deep copy of lines
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, line := range lines {
		if line.OriginalPrice != nil {
			price := *line.OriginalPrice
			line.OriginalPrice = &price
		}
		out[i] = line
	}
	return out
}

func normalizeVariant(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
