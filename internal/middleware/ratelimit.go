package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// bucket tracks request timestamps for one client within the window.
type bucket struct {
	hits []time.Time
}

func (b *bucket) prune(cutoff time.Time) {
	i := 0
	for i < len(b.hits) && !b.hits[i].After(cutoff) {
		i++
	}
	b.hits = b.hits[i:]
}

// InMemoryRateLimiter is a sliding-window limiter keyed by client IP. Webhook
// redelivery bursts for a handful of orders stay well under a sane limit, so
// this is protection against floods, not against upstream retries.
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}
	go l.sweep()
	return l
}

func (l *InMemoryRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	b.prune(now.Add(-l.window))
	if len(b.hits) >= l.limit {
		return false
	}
	b.hits = append(b.hits, now)
	return true
}

// sweep drops idle buckets so long-running processes do not accumulate an
// entry per IP ever seen.
func (l *InMemoryRateLimiter) sweep() {
	for range time.Tick(time.Minute) {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.window)
		for key, b := range l.buckets {
			b.prune(cutoff)
			if len(b.hits) == 0 {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit rejects clients exceeding the limiter's window with a 429.
func RateLimit(limiter *InMemoryRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
