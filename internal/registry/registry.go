package registry

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"paybridge/internal/models"

	"golang.org/x/sync/singleflight"
)

// Registry maps an order id to its payment link and guarantees at most one
// successful create per order, even when the order system redelivers the same
// webhook concurrently. Committed entries live in a mutex-guarded map;
// singleflight collapses in-flight duplicates so the create function runs at
// most once per order at a time. A failed create stores nothing, so a later
// delivery may retry.
//
// All accessors return copies. The stored structs are mutated by MarkPaid
// under the lock, so handing out interior pointers would let callers read a
// link while a completion event writes it.
type Registry struct {
	mu    sync.RWMutex
	links map[int64]*models.PaymentLink
	group singleflight.Group
}

func New() *Registry {
	return &Registry{links: make(map[int64]*models.PaymentLink)}
}

func copyLink(link *models.PaymentLink) *models.PaymentLink {
	out := *link
	if link.PaidAt != nil {
		paid := *link.PaidAt
		out.PaidAt = &paid
	}
	return &out
}

// GetOrCreate returns the existing link for orderID or invokes create to make
// one. The second return value reports whether the entry already existed;
// duplicate deliveries that join an in-flight create observe it as existing,
// so only the delivery that ran create takes the first-time path.
func (r *Registry) GetOrCreate(orderID int64, create func() (*models.PaymentLink, error)) (*models.PaymentLink, bool, error) {
	if link, ok := r.Get(orderID); ok {
		return link, true, nil
	}
	created := false
	v, err, _ := r.group.Do(strconv.FormatInt(orderID, 10), func() (interface{}, error) {
		// A duplicate delivery may have committed while we waited.
		if link, ok := r.Get(orderID); ok {
			return link, nil
		}
		link, err := create()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.links[orderID] = link
		stored := copyLink(link)
		r.mu.Unlock()
		created = true
		return stored, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*models.PaymentLink), !created, nil
}

// Get returns a copy of the entry for orderID.
func (r *Registry) Get(orderID int64) (*models.PaymentLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[orderID]
	if !ok {
		return nil, false
	}
	return copyLink(link), true
}

// MarkPaid records the settlement time on the entry, once. Returns false when
// no entry exists for orderID.
func (r *Registry) MarkPaid(orderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[orderID]
	if !ok {
		return false
	}
	if link.PaidAt == nil {
		now := time.Now()
		link.PaidAt = &now
	}
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

// Snapshot returns copies of all entries, newest first.
func (r *Registry) Snapshot() []*models.PaymentLink {
	r.mu.RLock()
	out := make([]*models.PaymentLink, 0, len(r.links))
	for _, link := range r.links {
		out = append(out, copyLink(link))
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
