package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestLimiter_WindowResets(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newLimiter(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Fatal("4th attempt should be limited")
	}
	if l.Remaining("k") != 0 {
		t.Errorf("Remaining = %d, want 0", l.Remaining("k"))
	}
	if ra := l.RetryAfter("k"); ra != time.Minute {
		t.Errorf("RetryAfter = %v, want 1m", ra)
	}
	if !l.Allow("other") {
		t.Error("keys must be independent")
	}

	clock.Advance(time.Minute)
	if !l.Allow("k") {
		t.Error("window should have reset")
	}
	if l.Remaining("k") != 2 {
		t.Errorf("Remaining = %d, want 2", l.Remaining("k"))
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := newLimiter(1, time.Hour, time.Now)
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected limited")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("expected allowed after Reset")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		xri    string
		remote string
		want   string
	}{
		{"remote only", "", "", "10.0.0.1:1234", "10.0.0.1"},
		{"xff first hop", "1.2.3.4, 5.6.7.8", "", "10.0.0.1:1234", "1.2.3.4"},
		{"x-real-ip", "", "9.9.9.9", "10.0.0.1:1234", "9.9.9.9"},
		{"no port", "", "", "10.0.0.2", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnlockLimiter_PerProfile(t *testing.T) {
	u := NewUnlockLimiter()
	defer u.Close()

	r := httptest.NewRequest("POST", "/", nil)
	for i := 0; i < 5; i++ {
		if !u.Allow(r, "p1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if u.Allow(r, "p1") {
		t.Error("6th attempt should be limited")
	}
	if u.RetryAfter(r, "p1") <= 0 {
		t.Error("expected positive RetryAfter")
	}
	if !u.Allow(r, "p2") {
		t.Error("other profile should not be limited")
	}
	u.Reset(r, "p1")
	if !u.Allow(r, "p1") {
		t.Error("expected allowed after Reset")
	}
}

func TestLoginLimiter_EmailCaseInsensitive(t *testing.T) {
	ll := NewLoginLimiter()
	defer ll.Close()

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest("POST", "/", nil)
		r.RemoteAddr = "10.0.0." + string(rune('1'+i)) + ":1"
		if ok, _ := ll.Check(r, "A@Example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "10.0.1.1:1"
	if ok, reason := ll.Check(r, " a@example.com "); ok || reason == "" {
		t.Error("expected email limit to apply across case and IPs")
	}
	ll.ResetEmail("a@example.com")
	if ok, _ := ll.Check(r, "a@example.com"); !ok {
		t.Error("expected allowed after ResetEmail")
	}
}
