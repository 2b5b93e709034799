package registry

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"paybridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLink(orderID int64) *models.PaymentLink {
	return &models.PaymentLink{
		OrderID:     orderID,
		URL:         "https://buy.example.com/test",
		AmountCents: 15000,
		Currency:    "USD",
		CreatedAt:   time.Now(),
	}
}

func TestGetOrCreateStoresOnce(t *testing.T) {
	r := New()
	var calls int32
	link, existed, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		atomic.AddInt32(&calls, 1)
		return newLink(1001), nil
	})
	require.NoError(t, err)
	assert.False(t, existed)
	require.NotNil(t, link)

	again, existed, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		atomic.AddInt32(&calls, 1)
		return newLink(1001), nil
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, link.URL, again.URL)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrCreateConcurrentDuplicates(t *testing.T) {
	r := New()
	var calls int32
	const n = 50

	results := make([]*models.PaymentLink, n)
	var firstTime int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link, existed, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(5 * time.Millisecond) // widen the race window
				return newLink(1001), nil
			})
			assert.NoError(t, err)
			if !existed {
				atomic.AddInt32(&firstTime, 1)
			}
			results[i] = link
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "create must run at most once per order")
	assert.Equal(t, int32(1), atomic.LoadInt32(&firstTime), "joiners must observe the entry as existing")
	for i := 1; i < n; i++ {
		assert.Equal(t, results[0].URL, results[i].URL, "all callers must observe the same artifact")
	}
	assert.Equal(t, 1, r.Len())
}

func TestGetOrCreateFailureStoresNothing(t *testing.T) {
	r := New()
	boom := errors.New("processor down")
	_, _, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Len())

	// A later delivery may retry and succeed.
	link, existed, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		return newLink(1001), nil
	})
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotNil(t, link)
	assert.Equal(t, 1, r.Len())
}

func TestMarkPaidSetsTimeOnce(t *testing.T) {
	r := New()
	_, _, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		return newLink(1001), nil
	})
	require.NoError(t, err)

	assert.False(t, r.MarkPaid(9999), "unknown order")
	assert.True(t, r.MarkPaid(1001))
	link, _ := r.Get(1001)
	require.NotNil(t, link.PaidAt)
	first := *link.PaidAt

	assert.True(t, r.MarkPaid(1001), "duplicate completion is a no-op")
	link, _ = r.Get(1001)
	assert.Equal(t, first, *link.PaidAt)
}

func TestAccessorsReturnCopies(t *testing.T) {
	r := New()
	_, _, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		return newLink(1001), nil
	})
	require.NoError(t, err)

	link, _ := r.Get(1001)
	link.URL = "mutated"
	now := time.Now()
	link.PaidAt = &now

	fresh, _ := r.Get(1001)
	assert.Equal(t, "https://buy.example.com/test", fresh.URL)
	assert.Nil(t, fresh.PaidAt)

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	snap[0].URL = "mutated again"
	fresh, _ = r.Get(1001)
	assert.Equal(t, "https://buy.example.com/test", fresh.URL)
}

func TestConcurrentReadersAndMarkPaid(t *testing.T) {
	r := New()
	_, _, err := r.GetOrCreate(1001, func() (*models.PaymentLink, error) {
		return newLink(1001), nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			link, ok := r.Get(1001)
			assert.True(t, ok)
			_, err := json.Marshal(link)
			assert.NoError(t, err)
			_, err = json.Marshal(r.Snapshot())
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.MarkPaid(1001)
		}
	}()
	wg.Wait()

	link, _ := r.Get(1001)
	require.NotNil(t, link.PaidAt)
}

func TestSnapshotNewestFirst(t *testing.T) {
	r := New()
	for i, id := range []int64{1, 2, 3} {
		created := time.Now().Add(time.Duration(i) * time.Minute)
		_, _, err := r.GetOrCreate(id, func() (*models.PaymentLink, error) {
			l := newLink(id)
			l.CreatedAt = created
			return l, nil
		})
		require.NoError(t, err)
	}
	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(3), snap[0].OrderID)
	assert.Equal(t, int64(1), snap[2].OrderID)
}
