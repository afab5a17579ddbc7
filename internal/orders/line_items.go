package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/vitora-backend/pkg/errors"
)

// LineItem is a best-effort reading of one stored line item. Orders keep the
// client payload verbatim, so keys vary between storefront versions.
type LineItem struct {
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Subtotal is quantity times unit price.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

var (
	nameKeys     = []string{"nombre", "name", "sku"}
	quantityKeys = []string{"cantidad", "units", "qty", "quantity"}
	priceKeys    = []string{"precio_unitario", "precio", "price", "unit_price"}
)

// ValidateLineItems accepts any non-null JSON object or array.
func ValidateLineItems(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return pkgerrors.New(pkgerrors.CodeValidation, "line_items is required").
			WithDetails(map[string]string{"line_items": "required"})
	}
	if !json.Valid(trimmed) || (trimmed[0] != '[' && trimmed[0] != '{') {
		return pkgerrors.New(pkgerrors.CodeValidation, "line_items must be a JSON object or array").
			WithDetails(map[string]string{"line_items": "must be a JSON object or array"})
	}
	return nil
}

// ParseLineItems reads stored line items. An object is treated as a single
// item unless it wraps an `items` array. Unreadable entries are skipped.
func ParseLineItems(raw json.RawMessage) []LineItem {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	var entries []map[string]any
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil
		}
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		if nested, ok := obj["items"].([]any); ok {
			for _, n := range nested {
				if m, ok := n.(map[string]any); ok {
					entries = append(entries, m)
				}
			}
		} else {
			entries = []map[string]any{obj}
		}
	default:
		return nil
	}

	items := make([]LineItem, 0, len(entries))
	for _, entry := range entries {
		item := LineItem{
			Name:      firstString(entry, nameKeys),
			Quantity:  firstDecimal(entry, quantityKeys, decimal.NewFromInt(1)).IntPart(),
			UnitPrice: firstDecimal(entry, priceKeys, decimal.Zero),
		}
		if item.Name == "" {
			item.Name = "Producto"
		}
		items = append(items, item)
	}
	return items
}

func firstString(entry map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := entry[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstDecimal(entry map[string]any, keys []string, fallback decimal.Decimal) decimal.Decimal {
	for _, key := range keys {
		switch v := entry[key].(type) {
		case float64:
			return decimal.NewFromFloat(v)
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
				return d
			}
		}
	}
	return fallback
}
