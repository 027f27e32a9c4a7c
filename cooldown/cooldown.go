// Package cooldown tracks per-key trigger times and decaying event counts.
// Nothing in it is persisted.
package cooldown

import (
	"sync"
	"time"
)

// Tracker records the last time each key was triggered.
// Expiry is lazy: entries are never evicted, only compared against a window.
type Tracker struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// New creates a tracker using the wall clock.
func New() *Tracker {
	return NewWithClock(time.Now)
}

// NewWithClock creates a tracker that reads the time from now.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{last: make(map[string]time.Time), now: now}
}

// Key builds a composite key for a per-action cooldown.
func Key(id, action string) string {
	return action + "\x00" + id
}

// IsThrottled reports whether key was triggered less than window ago.
// A key that was never triggered is not throttled.
func (t *Tracker) IsThrottled(key string, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.throttled(key, window, t.now())
}

// Remaining returns how long key stays throttled, or zero if it is not.
func (t *Tracker) Remaining(key string, window time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[key]
	if !ok {
		return 0
	}
	return max(window-t.now().Sub(last), 0)
}

// Trigger records now as the last trigger time for key.
// Trigger times never move backward.
func (t *Tracker) Trigger(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trigger(key, t.now())
}

// TryTrigger triggers key if it is not throttled and reports whether it did.
// The check and the trigger are a single step, so of two concurrent callers
// with the same key and window at most one succeeds.
func (t *Tracker) TryTrigger(key string, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if t.throttled(key, window, now) {
		return false
	}
	t.trigger(key, now)
	return true
}

func (t *Tracker) throttled(key string, window time.Duration, now time.Time) bool {
	last, ok := t.last[key]
	if !ok {
		return false
	}
	return now.Sub(last) < window
}

func (t *Tracker) trigger(key string, now time.Time) {
	if last, ok := t.last[key]; ok && now.Before(last) {
		return
	}
	t.last[key] = now
}
