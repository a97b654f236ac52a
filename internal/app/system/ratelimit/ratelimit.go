// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter is a fixed-window counter keyed by string. It is safe for
// concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit hits per key per period. A
// background sweep drops expired keys until Close is called.
func New(limit int, period time.Duration) *Limiter {
	l := newLimiter(limit, period, time.Now)
	go l.sweep(period * 2)
	return l
}

func newLimiter(limit int, period time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     now,
		stop:    make(chan struct{}),
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many hits key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.now().Before(w.expiresAt) {
		return l.limit
	}
	if r := l.limit - w.count; r > 0 {
		return r
	}
	return 0
}

// RetryAfter returns how long until key's window resets, or zero when key
// is not limited.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.count < l.limit {
		return 0
	}
	if d := w.expiresAt.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Close stops the background sweep.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.mu.Lock()
			now := l.now()
			for k, w := range l.windows {
				if !now.Before(w.expiresAt) {
					delete(l.windows, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP returns the caller's address. chi's RealIP middleware has
// already rewritten RemoteAddr from X-Forwarded-For / X-Real-IP when the
// app runs behind a proxy, so the headers are only a fallback here.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter limits sign-in attempts by client IP and by email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email
// per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		ip:    New(10, time.Minute),
		email: New(5, 5*time.Minute),
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Check records an attempt and returns false with a user-facing reason
// when either limit is exceeded.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "too many sign-in attempts, please wait a minute"
	}
	if k := emailKey(email); k != "" && !ll.email.Allow(k) {
		return false, "too many sign-in attempts for this account, please wait a few minutes"
	}
	return true, ""
}

// ResetEmail clears the per-email counter after a successful sign in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if k := emailKey(email); k != "" {
		ll.email.Reset(k)
	}
}

// Close stops both limiters.
func (ll *LoginLimiter) Close() {
	ll.ip.Close()
	ll.email.Close()
}

// UnlockLimiter limits PIN attempts per client IP and profile.
type UnlockLimiter struct {
	l *Limiter
}

// NewUnlockLimiter allows 5 PIN attempts per IP and profile per 10 minutes.
func NewUnlockLimiter() *UnlockLimiter {
	return &UnlockLimiter{l: New(5, 10*time.Minute)}
}

func unlockKey(r *http.Request, profileID string) string {
	return ClientIP(r) + "|" + profileID
}

// Allow records an attempt against profileID from r's client.
func (u *UnlockLimiter) Allow(r *http.Request, profileID string) bool {
	return u.l.Allow(unlockKey(r, profileID))
}

// RetryAfter reports how long r's client must wait before trying profileID again.
func (u *UnlockLimiter) RetryAfter(r *http.Request, profileID string) time.Duration {
	return u.l.RetryAfter(unlockKey(r, profileID))
}

// Reset clears the counter after a correct PIN.
func (u *UnlockLimiter) Reset(r *http.Request, profileID string) {
	u.l.Reset(unlockKey(r, profileID))
}

// Close stops the limiter.
func (u *UnlockLimiter) Close() { u.l.Close() }
