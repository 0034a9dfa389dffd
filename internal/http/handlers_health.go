package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	applog "fornitori/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				applog.FieldError, err.Error())
			writeMessage(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleMetrics writes counters in a flat "name value" text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	wm := s.writeLimiter.GetMetrics()
	lm := s.loginLimiter.GetMetrics()
	sm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
	fmt.Fprintf(w, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "http_requests_in_flight %d\n", tm.InFlight)
	fmt.Fprintf(w, "http_response_time_avg_microseconds %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "ratelimit_write_rejected_total %d\n", wm.TotalHits)
	fmt.Fprintf(w, "ratelimit_write_clients %d\n", wm.ClientCount)
	fmt.Fprintf(w, "ratelimit_login_rejected_total %d\n", lm.TotalHits)
	fmt.Fprintf(w, "ratelimit_login_clients %d\n", lm.ClientCount)
	fmt.Fprintf(w, "security_suspicious_requests_total %d\n", sm.SuspiciousRequests)
	fmt.Fprintf(w, "security_blocked_requests_total %d\n", sm.BlockedRequests)
	if s.deps.Auth != nil {
		fmt.Fprintf(w, "sessions_active %d\n", s.deps.Auth.ActiveSessions())
	}
}
