package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.svc.Store == nil {
		checks["store"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.svc.Store.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]interface{}{
		"summary_entries": s.summaryCache.Size(),
		"status":          "ok",
	}
	// A broken publisher degrades sync only; the API stays ready.
	if enabled, healthy := s.svc.Transactions.SyncStatus(); !enabled {
		checks["sync"] = "disabled"
	} else if healthy {
		checks["sync"] = "ok"
	} else {
		checks["sync"] = "degraded"
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	cacheStats := s.summaryCache.Stats()

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value interface{}) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "HTTP requests answered with 5xx", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("transactions_recorded_total", "counter", "Transactions recorded through the API", s.appMetrics.transactionsRecorded.Load())
	metric("budgets_saved_total", "counter", "Budgets created or updated", s.appMetrics.budgetsSaved.Load())
	metric("budget_summaries_built_total", "counter", "Budget summaries computed (cache misses)", s.appMetrics.summariesBuilt.Load())
	metric("cache_hits_total", "counter", "Summary cache hits", cacheStats.Hits)
	metric("cache_misses_total", "counter", "Summary cache misses", cacheStats.Misses)
	metric("cache_entries", "gauge", "Current summary cache entries", cacheStats.Size)
	metric("rate_limit_rejections_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	if enabled, healthy := s.svc.Transactions.SyncStatus(); enabled {
		up := 0
		if healthy {
			up = 1
		}
		metric("sync_publisher_up", "gauge", "Whether the AMQP publisher can deliver", up)
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
