package order

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an operation names an order id that
	// does not exist in the store.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned when a status update names an unknown
	// status or a transition the state machine does not allow.
	ErrInvalidStatus = errors.New("invalid order status")
)

// ValidationError rejects a submission that cannot become a canonical order.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid order: " + e.Reason }

// Defaults are the fallback values applied to unresolved fields.
type Defaults struct {
	Currency     string
	CustomerName string
	OwnerID      string
}

// idSentinels are caller-supplied id values that mean "no id": the store
// must allocate one.
var idSentinels = []string{"n/a", "not available"}

// Build assembles a canonical Order from an untrusted payload. The returned
// order has an empty ID when the store should allocate one. Build never
// touches the store; persistence is the Service's job.
func Build(in RawInput, now time.Time, d Defaults) (*Order, error) {
	o := &Order{
		CustomerName: in.lookupOr(nameAliases, d.CustomerName),
		Phone:        in.lookupOr(phoneAliases, ""),
		Email:        in.lookupOr(emailAliases, ""),
		Comment:      in.lookupOr(commentAliases, ""),
		Currency:     in.lookupOr(currencyAliases, d.Currency),
		FCMToken:     in.lookupOr(tokenAliases, ""),
		OwnerID:      in.lookupOr(ownerAliases, d.OwnerID),
		Status:       StatusNew,
		CreatedAt:    now,
	}

	if id, ok := in.lookup(orderIDAliases); ok && !isIDSentinel(id) {
		o.ID = id
	}

	if raw, ok := in.lookupRaw(itemsAliases); ok {
		o.Items = normalizeItems(raw)
	}

	// Explicit total wins; the caller's original formatting is preserved
	// in TotalText. An unparseable explicit total counts as absent.
	explicit := false
	if s, ok := in.lookup(totalAliases); ok {
		if f, parsed := ParseAmount(s); parsed {
			o.Total = Round2(f)
			o.TotalText = s
			explicit = true
		}
	}
	if !explicit {
		if len(o.Items) == 0 {
			return nil, &ValidationError{Reason: "total is missing and no items were provided"}
		}
		o.Total = itemsTotal(o.Items)
		o.TotalText = FormatAmount(o.Total)
	}

	return o, nil
}

func isIDSentinel(id string) bool {
	for _, s := range idSentinels {
		if strings.EqualFold(id, s) {
			return true
		}
	}
	return false
}
