package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Report pipeline counters
	ReportsReceived  atomic.Int64 // reports accepted on /report
	ReportsDelivered atomic.Int64 // notifications delivered to the moderation surface
	ReportsFailed    atomic.Int64 // notifications that could not be delivered

	// Ledger counters
	BansUpserted atomic.Int64 // ban records created or overwritten
	BansDeleted  atomic.Int64 // ban records removed

	// Identity counters
	LookupFallbacks atomic.Int64 // username lookups degraded to a placeholder

	// API counters
	APIRequests   atomic.Int64 // authenticated API requests served
	APIErrors     atomic.Int64 // requests answered with a 4xx/5xx
	TokensCreated atomic.Int64 // API tokens created
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// MetricsSnapshot is a point-in-time view of all metrics as a serializable struct.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ReportsReceived  int64 `json:"reports_received"`
	ReportsDelivered int64 `json:"reports_delivered"`
	ReportsFailed    int64 `json:"reports_failed"`

	BansUpserted int64 `json:"bans_upserted"`
	BansDeleted  int64 `json:"bans_deleted"`

	LookupFallbacks int64 `json:"lookup_fallbacks"`

	APIRequests   int64 `json:"api_requests"`
	APIErrors     int64 `json:"api_errors"`
	TokensCreated int64 `json:"tokens_created"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:           uptime.Truncate(time.Second).String(),
		UptimeSeconds:    int64(uptime.Seconds()),
		ReportsReceived:  m.ReportsReceived.Load(),
		ReportsDelivered: m.ReportsDelivered.Load(),
		ReportsFailed:    m.ReportsFailed.Load(),
		BansUpserted:     m.BansUpserted.Load(),
		BansDeleted:      m.BansDeleted.Load(),
		LookupFallbacks:  m.LookupFallbacks.Load(),
		APIRequests:      m.APIRequests.Load(),
		APIErrors:        m.APIErrors.Load(),
		TokensCreated:    m.TokensCreated.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"reports", s.ReportsReceived,
		"reports_failed", s.ReportsFailed,
		"bans", s.BansUpserted,
		"unbans", s.BansDeleted,
		"lookup_fallbacks", s.LookupFallbacks,
		"api_requests", s.APIRequests,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
