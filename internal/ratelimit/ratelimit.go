// Package ratelimit throttles write actions per actor. An actor key is a
// user id, a guest pseudo-id, or as a last resort the client address.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is the throttling interface consumed by the HTTP layer.
type Limiter interface {
	// Allow reports whether the actor may perform the action now, counting
	// the attempt when it is allowed.
	Allow(actor, action string, limit int, window time.Duration) bool

	// RetryAfter returns how long until the actor's window for the action
	// resets.
	RetryAfter(actor, action string, window time.Duration) time.Duration
}

// MemoryLimiter is a fixed-window in-memory limiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	used   int
	resets time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window)}
}

func key(actor, action string) string {
	return action + ":" + actor
}

func (l *MemoryLimiter) Allow(actor, action string, limit int, windowLen time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	k := key(actor, action)
	w, ok := l.windows[k]

	if !ok || now.After(w.resets) {
		l.windows[k] = &window{used: 1, resets: now.Add(windowLen)}
		return true
	}
	if w.used >= limit {
		return false
	}
	w.used++
	return true
}

func (l *MemoryLimiter) RetryAfter(actor, action string, windowLen time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key(actor, action)]
	if !ok || now.After(w.resets) {
		return 0
	}
	return w.resets.Sub(now)
}

// Cleanup drops expired windows so the map does not grow without bound.
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, w := range l.windows {
		if now.After(w.resets) {
			delete(l.windows, k)
		}
	}
}

// StartCleanup runs Cleanup on a fixed interval in the background.
func (l *MemoryLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			l.Cleanup()
		}
	}()
}

// Ensure MemoryLimiter implements Limiter
var _ Limiter = (*MemoryLimiter)(nil)
