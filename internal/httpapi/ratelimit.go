package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

var rateWindows = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
}

// RateLimit allows Requests per Window.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func (l *RateLimit) String() string {
	if l == nil {
		return ""
	}
	for unit, d := range rateWindows {
		if l.Window == d {
			return strconv.Itoa(l.Requests) + "/" + unit
		}
	}
	return fmt.Sprintf("%d/%ds", l.Requests, int(l.Window.Seconds()))
}

// ParseRateLimit parses "N/second", "N/minute" or "N/hour". An empty
// string means no limit and yields nil.
func ParseRateLimit(s string) (*RateLimit, error) {
	if s == "" {
		return nil, nil
	}

	count, unit, _ := strings.Cut(s, "/")
	window, ok := rateWindows[unit]
	n, err := strconv.Atoi(count)
	if !ok || err != nil || strings.HasPrefix(count, "+") {
		return nil, fmt.Errorf("invalid rate limit %q (expected N/second, N/minute or N/hour)", s)
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid rate limit %q: count must be positive", s)
	}
	return &RateLimit{Requests: n, Window: window}, nil
}

// RateLimiter keeps a sliding window of request times per client.
type RateLimiter struct {
	mu       sync.Mutex
	counters map[string][]time.Time
	now      func() time.Time
	done     chan struct{}
	close    sync.Once
}

// NewRateLimiter starts a limiter. Close stops its background sweep.
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		counters: map[string][]time.Time{},
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go rl.sweep(5*time.Minute, time.Hour)
	return rl
}

// Allow counts a request from key. It reports whether the request fits
// the limit, how many remain, and when the oldest counted request expires.
// A nil limit always allows and reports -1 remaining.
func (rl *RateLimiter) Allow(key string, limit *RateLimit) (bool, int, time.Time) {
	if limit == nil {
		return true, -1, time.Time{}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	times := rl.counters[key]
	first := 0
	for first < len(times) && !times[first].After(now.Add(-limit.Window)) {
		first++
	}
	times = times[first:]

	allowed := len(times) < limit.Requests
	if allowed {
		times = append(times, now)
	}
	rl.counters[key] = times
	return allowed, limit.Requests - len(times), times[0].Add(limit.Window)
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.close.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) sweep(every, idle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-t.C:
			rl.cleanup(idle)
		}
	}
}

// cleanup forgets clients whose last request is older than idle.
func (rl *RateLimiter) cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	for key, times := range rl.counters {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.counters, key)
		}
	}
}
