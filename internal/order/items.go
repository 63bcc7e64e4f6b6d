package order

import "strings"

// fallbackItemName is used when an item carries no usable name at all.
const fallbackItemName = "Item"

// normalizeItems validates and reconciles a raw item list. Entries that are
// not structured records are dropped silently. Returns nil when the input is
// not a list or yields no valid items.
func normalizeItems(raw any) []LineItem {
	seq, ok := raw.([]any)
	if !ok {
		return nil
	}
	var items []LineItem
	for _, entry := range seq {
		rec, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, normalizeItem(RawInput(rec)))
	}
	return items
}

func normalizeItem(in RawInput) LineItem {
	it := LineItem{Price: 0, Qty: 1}

	if s, ok := in.lookup(itemPriceAliases); ok {
		if f, ok := ParseAmount(s); ok && f > 0 {
			it.Price = Round2(f)
		}
	}
	if s, ok := in.lookup(itemQtyAliases); ok {
		if f, ok := ParseAmount(s); ok && f > 1 {
			it.Qty = Round2(f)
		}
	}

	if name, ok := in.lookup(itemNameAliases); ok {
		it.Name = name
	} else {
		it.Name = synthesizeName(in)
	}

	it.Brand = in.lookupOr([]string{"brand"}, "")
	it.Variant = in.lookupOr([]string{"variant"}, "")
	it.Quality = in.lookupOr([]string{"quality"}, "")
	it.Badge = in.lookupOr([]string{"badge"}, "")
	return it
}

// synthesizeName builds a display name from brand/model/variant when no
// explicit name field resolved, e.g. {brand: Acme, model: X1} -> "Acme X1".
func synthesizeName(in RawInput) string {
	var parts []string
	if brand, ok := in.lookup([]string{"brand"}); ok {
		parts = append(parts, brand)
	}
	if model, ok := in.lookup([]string{"model", "code"}); ok {
		parts = append(parts, model)
	}
	if variant, ok := in.lookup([]string{"variant"}); ok {
		parts = append(parts, "("+variant+")")
	}
	if len(parts) == 0 {
		return fallbackItemName
	}
	return strings.Join(parts, " ")
}

// itemsTotal derives an order total from its items: sum of price*qty,
// currency-rounded. Used only when the caller supplied no explicit total.
func itemsTotal(items []LineItem) float64 {
	var sum float64
	for _, it := range items {
		sum += Round2(it.Price * it.Qty)
	}
	return Round2(sum)
}
