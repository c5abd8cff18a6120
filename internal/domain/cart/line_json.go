package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexNumber accepts a JSON number or a numeric string.
// Older clients stored prices as strings.
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// unparseable strings read as absent
			return nil
		}
		n.value, n.set = v, true
		return nil
	}
	if err := json.Unmarshal(data, &n.value); err != nil {
		return err
	}
	n.set = true
	return nil
}

// lineWire lists every field name a stored or transmitted line may use
type lineWire struct {
	Key           string     `json:"key"`
	ProductID     string     `json:"product_id"`
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Title         string     `json:"title"`
	Image         string     `json:"image"`
	Variant       string     `json:"variant"`
	VariantLabel  string     `json:"variant_label"`
	Price         flexNumber `json:"price"`
	UnitPrice     flexNumber `json:"unit_price"`
	OriginalPrice flexNumber `json:"original_price"`
	Qty           flexNumber `json:"qty"`
	Quantity      flexNumber `json:"quantity"`
}

// UnmarshalJSON decodes the current field names and the legacy aliases
// id, title, quantity, variant_label and unit_price.
func (l *Line) UnmarshalJSON(data []byte) error {
	var w lineWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*l = Line{
		Key:          strings.TrimSpace(w.Key),
		ProductID:    strings.TrimSpace(firstNonEmpty(w.ProductID, w.ID)),
		DisplayName:  firstNonEmpty(w.Name, w.Title),
		Image:        w.Image,
		VariantLabel: firstNonEmpty(w.Variant, w.VariantLabel),
		UnitPrice:    firstSet(w.Price, w.UnitPrice).value,
		Quantity:     quantityFrom(firstSet(w.Qty, w.Quantity).value),
	}
	if w.OriginalPrice.set {
		price := w.OriginalPrice.value
		l.OriginalPrice = &price
	}
	return nil
}

// quantityFrom converts a decoded number without overflowing int;
// NaN and non-positive values become zero so Normalize drops the line.
func quantityFrom(v float64) int {
	switch {
	case math.IsNaN(v) || v < 1:
		return 0
	case v >= MaxLineQuantity:
		return MaxLineQuantity
	default:
		return int(v)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstSet(values ...flexNumber) flexNumber {
	for _, v := range values {
		if v.set {
			return v
		}
	}
	return flexNumber{}
}
