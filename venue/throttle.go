package venue

import (
	"sync"
	"time"
)

// TokenBucket paces calls below a venue rate limit. rate is tokens per
// second, burst the bucket capacity.
type TokenBucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a full bucket. Non-positive arguments fall back to
// one per second with a burst of one.
func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait takes one token, sleeping until one is available.
func (b *TokenBucket) Wait() {
	b.mu.Lock()
	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	b.last = now
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	if b.tokens >= 1 {
		b.tokens--
		b.mu.Unlock()
		return
	}
	wait := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
	b.tokens = 0
	b.mu.Unlock()
	time.Sleep(wait)
}

// Throttled wraps a venue so mutating calls respect a token bucket. Reads
// pass through untouched; only inserts, amends and deletes count against the
// venue's order rate limit.
type Throttled struct {
	Venue
	bucket *TokenBucket
}

// Throttle wraps v with the given bucket.
func Throttle(v Venue, bucket *TokenBucket) *Throttled {
	return &Throttled{Venue: v, bucket: bucket}
}

func (t *Throttled) InsertOrder(instrumentID string, price float64, volume int, side Side, typ OrderType) (int64, error) {
	t.bucket.Wait()
	return t.Venue.InsertOrder(instrumentID, price, volume, side, typ)
}

func (t *Throttled) AmendOrder(instrumentID string, orderID int64, volume int) error {
	t.bucket.Wait()
	return t.Venue.AmendOrder(instrumentID, orderID, volume)
}

func (t *Throttled) DeleteOrder(instrumentID string, orderID int64) error {
	t.bucket.Wait()
	return t.Venue.DeleteOrder(instrumentID, orderID)
}
