package cooldown

import (
	"sync"
	"time"
)

// Counter is a leaky bucket per key. Each hit increments the key's count and
// schedules an independent decrement after the decay delay. When a count
// reaches the threshold, the hit reports it and the count resets to zero.
type Counter struct {
	mu        sync.Mutex
	n         map[string]bucket
	gen       uint64
	threshold int
	decay     time.Duration
	// after schedules f to run after d. It is time.AfterFunc outside tests.
	after func(d time.Duration, f func())
}

type bucket struct {
	n int
	// gen identifies the bucket's lifetime. Decrements scheduled in an
	// earlier lifetime are dropped.
	gen uint64
}

// NewCounter creates a counter.
func NewCounter(threshold int, decay time.Duration) *Counter {
	return &Counter{
		n:         make(map[string]bucket),
		threshold: max(threshold, 1),
		decay:     decay,
		after:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Hit counts an event for key and reports whether it reached the threshold.
func (c *Counter) Hit(key string) bool {
	c.mu.Lock()
	b, ok := c.n[key]
	if !ok {
		c.gen++
		b.gen = c.gen
	}
	b.n++
	full := b.n >= c.threshold
	if full {
		delete(c.n, key)
	} else {
		c.n[key] = b
	}
	c.mu.Unlock()
	if !full {
		c.decayGen(key, b.gen)
	}
	return full
}

// Decay schedules a decrement of key's current count after the decay delay.
func (c *Counter) Decay(key string) {
	c.mu.Lock()
	b, ok := c.n[key]
	c.mu.Unlock()
	if !ok {
		return
	}
	c.decayGen(key, b.gen)
}

func (c *Counter) decayGen(key string, gen uint64) {
	c.after(c.decay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		b, ok := c.n[key]
		if !ok || b.gen != gen {
			return
		}
		b.n--
		if b.n <= 0 {
			delete(c.n, key)
			return
		}
		c.n[key] = b
	})
}

// Count returns the current count for key.
func (c *Counter) Count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[key].n
}
