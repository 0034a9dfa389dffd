package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerWindow: 2, Window: time.Minute})
	defer rl.Stop()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request in the window should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("clients are limited independently")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("a new window should reset the counter")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}

	now = now.Add(5 * time.Minute)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Fatalf("cleanup removed %d, want 2", removed)
	}
}

func TestMiddlewareMatch(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerWindow: 1})
	defer rl.Stop()
	h := rl.Middleware(
		func(*http.Request) string { return "ip" },
		func(r *http.Request) bool { return r.Method == http.MethodPost },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for _, method := range []string{http.MethodPost, http.MethodGet, http.MethodGet, http.MethodPost} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		codes = append(codes, rr.Code)
	}
	want := []int{200, 200, 200, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("status codes = %v, want %v", codes, want)
		}
	}
}
