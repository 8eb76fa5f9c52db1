package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// callerWindow tracks one caller's request count inside the current fixed
// window.
type callerWindow struct {
	count   int
	started time.Time
}

// RateLimiter applies a fixed-window per-caller limit. The generation
// endpoints sit behind it because every admitted request spends upstream
// quota.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerWindow
	limit   int
	period  time.Duration
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*callerWindow),
		limit:   limit,
		period:  period,
	}
	go rl.janitor()
	return rl
}

// janitor drops callers whose window has expired so the map stays bounded.
func (rl *RateLimiter) janitor() {
	for {
		time.Sleep(rl.period)
		rl.mu.Lock()
		for caller, w := range rl.callers {
			if time.Since(w.started) > rl.period {
				delete(rl.callers, caller)
			}
		}
		rl.mu.Unlock()
	}
}

// allow counts the request and reports whether it fits the caller's window,
// plus the seconds until the window resets when it does not.
func (rl *RateLimiter) allow(caller string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.callers[caller]
	if !ok || time.Since(w.started) > rl.period {
		rl.callers[caller] = &callerWindow{count: 1, started: time.Now()}
		return true, 0
	}

	w.count++
	if w.count > rl.limit {
		retryAfter := int((rl.period - time.Since(w.started)).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return false, retryAfter
	}
	return true, 0
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := rl.allow(r.RemoteAddr)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
