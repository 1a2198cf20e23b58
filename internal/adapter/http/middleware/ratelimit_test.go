package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/balanceledger/internal/domain"
)

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/balance", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req = req.WithContext(domain.ContextWithUser(req.Context(), &domain.User{ID: userID, Role: domain.RoleUser}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("user-1"); code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send("user-1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
	if code := send("user-2"); code != http.StatusOK {
		t.Fatalf("expected another user to have its own budget, got %d", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("ip:1")
	now = now.Add(2 * time.Hour)
	rl.getLimiter("ip:2")

	rl.Cleanup(time.Hour)

	if rl.Size() != 1 {
		t.Fatalf("expected idle limiter to be dropped, got %d", rl.Size())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote host, got %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected first forwarded address, got %s", got)
	}
}
