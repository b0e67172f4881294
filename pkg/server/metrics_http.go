package server

import (
	"fmt"
	"net/http"
	"time"
)

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Helper for gauge/counter lines.
	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}
	writeFloat := func(name, help, mtype string, value float64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %f\n", name, value)
	}

	writeFloat("nforce_uptime_seconds", "Server uptime in seconds.", "gauge", uptime)

	write("nforce_reports_received_total", "Exploit reports accepted.", "counter",
		m.ReportsReceived.Load())
	write("nforce_reports_delivered_total", "Notifications delivered to the moderation surface.", "counter",
		m.ReportsDelivered.Load())
	write("nforce_reports_failed_total", "Notifications that could not be delivered.", "counter",
		m.ReportsFailed.Load())

	write("nforce_bans_upserted_total", "Ban records created or overwritten.", "counter",
		m.BansUpserted.Load())
	write("nforce_bans_deleted_total", "Ban records removed.", "counter",
		m.BansDeleted.Load())

	write("nforce_lookup_fallbacks_total", "Username lookups degraded to a placeholder.", "counter",
		m.LookupFallbacks.Load())

	write("nforce_api_requests_total", "API requests served.", "counter",
		m.APIRequests.Load())
	write("nforce_api_errors_total", "API requests answered with an error status.", "counter",
		m.APIErrors.Load())
	write("nforce_tokens_created_total", "API tokens created.", "counter",
		m.TokensCreated.Load())
}
