package order

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawInput is an untrusted order payload as decoded from JSON. Clients have
// historically sent the same logical field under many different key names,
// so every field is resolved through an ordered alias list: the first alias
// whose value is present and non-blank after trimming wins.
type RawInput map[string]any

// Alias tables. Order matters and is part of the API contract: when a payload
// carries several aliases of one field with conflicting values, the earlier
// alias wins.
var (
	orderIDAliases  = []string{"orderId", "order_id", "id", "orderNumber", "number"}
	nameAliases     = []string{"customerName", "customer_name", "name", "customer", "client", "fullName"}
	phoneAliases    = []string{"phone", "phoneNumber", "phone_number", "customerPhone", "number", "tel", "contact"}
	emailAliases    = []string{"email", "e_mail", "mail", "customerEmail"}
	commentAliases  = []string{"comment", "note", "notes", "message"}
	currencyAliases = []string{"currency", "curr", "cur"}
	totalAliases    = []string{"total", "totalPrice", "total_price", "sum", "grandTotal", "amount"}
	itemsAliases    = []string{"items", "cart", "orderItems", "order_items", "products"}
	tokenAliases    = []string{"fcmToken", "fcm_token", "token", "deviceToken", "device_token"}
	ownerAliases    = []string{"ownerId", "owner_id", "userId", "user_id", "uid"}

	itemPriceAliases = []string{"price", "unitPrice", "unit_price", "amount"}
	itemQtyAliases   = []string{"qty", "quantity", "count"}
	itemNameAliases  = []string{"name", "title", "product", "fullName", "display"}
)

// lookup returns the trimmed string form of the first alias that resolves to
// a non-blank primitive value.
func (in RawInput) lookup(aliases []string) (string, bool) {
	for _, key := range aliases {
		v, ok := in[key]
		if !ok {
			continue
		}
		s, ok := coerceString(v)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// lookupOr is lookup with a default for the absent case.
func (in RawInput) lookupOr(aliases []string, def string) string {
	if s, ok := in.lookup(aliases); ok {
		return s
	}
	return def
}

// lookupRaw returns the first alias whose value is present and non-nil,
// without coercion. Used for structured values such as the item list.
func (in RawInput) lookupRaw(aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := in[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// coerceString renders a primitive value as a string. Maps, slices and nil
// are not primitives and count as absent.
func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
