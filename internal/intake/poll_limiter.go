package intake

import (
	"sync"
	"time"
)

// pollLimiter throttles status polling per caller+task. Clients are expected
// to poll on an interval; anything faster gets a 429 from the handler.
type pollLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
}

func newPollLimiter(window time.Duration) *pollLimiter {
	return &pollLimiter{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether the key may poll now, recording the hit if so.
func (l *pollLimiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.last[key]; ok && now.Sub(prev) < l.window {
		return false
	}
	l.last[key] = now

	// Opportunistic cleanup keeps the map from growing unbounded.
	if len(l.last) > 4096 {
		for k, t := range l.last {
			if now.Sub(t) > time.Minute {
				delete(l.last, k)
			}
		}
	}
	return true
}
