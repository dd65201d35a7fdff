package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter limits requests per client with fixed minute and hour windows.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int

	clients map[string]*clientUsage
	now     func() time.Time
}

// clientUsage tracks the current windows of one client.
type clientUsage struct {
	minuteStart time.Time
	minuteCount int
	hourStart   time.Time
	hourCount   int
}

// Usage is a snapshot of one client's counters.
type Usage struct {
	LastMinute int
	LastHour   int
}

// NewRateLimiter creates a limiter. A zero limit disables that window.
func NewRateLimiter(requestsPerMinute, requestsPerHour int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		clients:           make(map[string]*clientUsage),
		now:               time.Now,
	}
}

// Allow records a request from clientID or returns a *RateLimitError.
func (rl *RateLimiter) Allow(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.clients[clientID]
	if !ok {
		u = &clientUsage{minuteStart: now, hourStart: now}
		rl.clients[clientID] = u
	}
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart, u.minuteCount = now, 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart, u.hourCount = now, 0
	}

	if rl.requestsPerMinute > 0 && u.minuteCount >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(u.minuteStart),
		}
	}
	if rl.requestsPerHour > 0 && u.hourCount >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.requestsPerHour,
			RetryAfter: time.Hour - now.Sub(u.hourStart),
		}
	}

	u.minuteCount++
	u.hourCount++
	return nil
}

// Usage returns the counters of clientID.
func (rl *RateLimiter) Usage(clientID string) Usage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if u, ok := rl.clients[clientID]; ok {
		return Usage{LastMinute: u.minuteCount, LastHour: u.hourCount}
	}
	return Usage{}
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}
