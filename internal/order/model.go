package order

import "time"

// Status is the lifecycle state of an order. Transitions are one-way:
// new -> progress -> done, with canceled reachable from new or progress.
type Status string

const (
	StatusNew      Status = "new"
	StatusProgress Status = "progress"
	StatusDone     Status = "done"
	StatusCanceled Status = "canceled"
)

// transitions lists the allowed next states per current state. Terminal
// states (done, canceled) have no entry.
var transitions = map[Status][]Status{
	StatusNew:      {StatusProgress, StatusCanceled},
	StatusProgress: {StatusDone, StatusCanceled},
}

// CanTransition reports whether an order in state from may move to state to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus maps a client-supplied status name to a Status. Only the
// update targets are accepted; "new" is never a valid target.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusProgress, StatusDone, StatusCanceled:
		return Status(s), true
	}
	return "", false
}

type Order struct {
	ID           string     `json:"id"`
	CustomerName string     `json:"customer_name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Comment      string     `json:"comment"`
	Currency     string     `json:"currency"`
	Total        float64    `json:"total"`
	TotalText    string     `json:"total_text"`
	Items        []LineItem `json:"items,omitempty"`
	Status       Status     `json:"status"`
	FCMToken     string     `json:"fcm_token,omitempty"`
	OwnerID      string     `json:"owner_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ProgressAt   *time.Time `json:"progress_at,omitempty"`
	DoneAt       *time.Time `json:"done_at,omitempty"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
}

type LineItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
	// Descriptive tags, carried through only when supplied non-blank.
	Brand   string `json:"brand,omitempty"`
	Variant string `json:"variant,omitempty"`
	Quality string `json:"quality,omitempty"`
	Badge   string `json:"badge,omitempty"`
}
