package cache

import (
	"sync"
	"time"
)

// hitWindow counts cache hits inside a sliding window, bucketed per
// minute to keep memory flat.
type hitWindow struct {
	window time.Duration

	mu      sync.Mutex
	buckets map[int64]int64
}

func newHitWindow(window time.Duration) *hitWindow {
	return &hitWindow{
		window:  window,
		buckets: make(map[int64]int64),
	}
}

func (h *hitWindow) record(now time.Time) {
	minute := now.Unix() / 60

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buckets[minute]++

	floor := now.Add(-h.window).Unix() / 60
	for b := range h.buckets {
		if b < floor {
			delete(h.buckets, b)
		}
	}
}

func (h *hitWindow) count(now time.Time) int64 {
	floor := now.Add(-h.window).Unix() / 60

	h.mu.Lock()
	defer h.mu.Unlock()

	var total int64
	for b, n := range h.buckets {
		if b >= floor {
			total += n
		}
	}
	return total
}
