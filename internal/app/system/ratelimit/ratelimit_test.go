package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsBurstThenBlocks(t *testing.T) {
	l := New(3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d unexpectedly blocked", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("expected 4th attempt to be blocked")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other keys should have their own bucket")
	}
}

func TestLimiter_Sweep(t *testing.T) {
	l := New(5)
	l.Allow("old")
	l.buckets["old"].seen = time.Now().Add(-time.Hour)
	l.Allow("fresh")

	if n := l.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := l.buckets["fresh"]; !ok {
		t.Error("fresh bucket should survive Sweep")
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	l := New(1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("POST", "/api/auth/register", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, want)
		}
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
		{"forwarded first hop", "203.0.113.5, 10.0.0.1", "", "10.0.0.1:80", "203.0.113.5"},
		{"real ip", "", " 198.51.100.7 ", "10.0.0.1:80", "198.51.100.7"},
		{"remote addr with port", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
