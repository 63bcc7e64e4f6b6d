package notify

import "strings"

// EventKind selects the notification template.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventCanceled EventKind = "canceled"
)

var titles = map[EventKind]string{
	EventCreated:  "📦 New order",
	EventProgress: "🚚 Order in progress",
	EventDone:     "✅ Order completed",
	EventCanceled: "❌ Order canceled",
}

// OrderSnapshot is the read-only order view the composer works from. All
// fields are plain strings so the snapshot can double as the data payload.
type OrderSnapshot struct {
	ID           string
	CustomerName string
	Phone        string
	Comment      string
	Currency     string
	TotalText    string
	Status       string
}

// Compose builds the notification for an order event. Blank fields are
// omitted from the body rather than rendered empty, except the amount line,
// which is always present.
func Compose(kind EventKind, o OrderSnapshot) Message {
	var lines []string
	if o.CustomerName != "" {
		lines = append(lines, "Name: "+o.CustomerName)
	}
	if o.Phone != "" {
		lines = append(lines, "Phone: "+o.Phone)
	}
	if o.Comment != "" {
		lines = append(lines, "Comment: "+o.Comment)
	}
	amount := o.TotalText
	if amount == "" {
		amount = "0"
	}
	lines = append(lines, strings.TrimSpace("Amount: "+amount+" "+o.Currency))

	return Message{
		Title: titles[kind],
		Body:  strings.Join(lines, "\n"),
		Data: map[string]string{
			"orderId":      o.ID,
			"status":       o.Status,
			"total":        amount,
			"currency":     o.Currency,
			"customerName": o.CustomerName,
			"event":        string(kind),
		},
	}
}
