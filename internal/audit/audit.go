package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one processed webhook outcome, kept for operator inspection.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	OrderID   int64     `json:"order_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Trail is a bounded in-memory event log. Oldest entries are dropped once
// capacity is reached.
type Trail struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

func NewTrail(capacity int) *Trail {
	if capacity <= 0 {
		capacity = 256
	}
	return &Trail{cap: capacity}
}

func (t *Trail) Record(action string, orderID int64, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, Event{
		ID:        uuid.NewString(),
		Action:    action,
		OrderID:   orderID,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	if len(t.events) > t.cap {
		t.events = t.events[len(t.events)-t.cap:]
	}
}

// Recent returns up to n events, newest first.
func (t *Trail) Recent(n int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.events) {
		n = len(t.events)
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = t.events[len(t.events)-1-i]
	}
	return out
}
