package stats

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// StatsCollector manages application-wide statistics
type StatsCollector struct {
	StartTime      time.Time
	ChecksReceived uint64
	ChecksAnswered uint64
	StepsEnabled   uint64
	StepsFiltered  uint64
	WebhookCalls   uint64
	Errors         uint64
	LastUpdate     time.Time
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		StartTime:  time.Now(),
		LastUpdate: time.Now(),
	}
}

// Update updates the stats with new values
func (s *StatsCollector) Update(received, answered, enabled, filtered, webhookCalls, errors uint64) {
	atomic.StoreUint64(&s.ChecksReceived, received)
	atomic.StoreUint64(&s.ChecksAnswered, answered)
	atomic.StoreUint64(&s.StepsEnabled, enabled)
	atomic.StoreUint64(&s.StepsFiltered, filtered)
	atomic.StoreUint64(&s.WebhookCalls, webhookCalls)
	atomic.StoreUint64(&s.Errors, errors)
	s.LastUpdate = time.Now()
}

// GetStats returns current statistics
func (s *StatsCollector) GetStats() map[string]interface{} {
	uptime := time.Since(s.StartTime)
	return map[string]interface{}{
		"uptime":          uptime.String(),
		"checks_received": atomic.LoadUint64(&s.ChecksReceived),
		"checks_answered": atomic.LoadUint64(&s.ChecksAnswered),
		"steps_enabled":   atomic.LoadUint64(&s.StepsEnabled),
		"steps_filtered":  atomic.LoadUint64(&s.StepsFiltered),
		"webhook_calls":   atomic.LoadUint64(&s.WebhookCalls),
		"errors":          atomic.LoadUint64(&s.Errors),
		"last_update":     s.LastUpdate,
	}
}

// GetStatsJSON returns stats as JSON
func (s *StatsCollector) GetStatsJSON() ([]byte, error) {
	return json.Marshal(s.GetStats())
}

// CalculateRate calculates the check answering rate per second
func (s *StatsCollector) CalculateRate() float64 {
	uptime := time.Since(s.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&s.ChecksAnswered)) / uptime
}
