package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewStatsCollector verifies the initialization of a new StatsCollector
func TestNewStatsCollector(t *testing.T) {
	collector := NewStatsCollector()

	assert.NotNil(t, collector, "StatsCollector should be created")
	assert.WithinDuration(t, time.Now(), collector.StartTime, 100*time.Millisecond, "StartTime should be close to current time")
	assert.WithinDuration(t, time.Now(), collector.LastUpdate, 100*time.Millisecond, "LastUpdate should be close to current time")

	assert.Zero(t, collector.ChecksReceived, "ChecksReceived should be zero")
	assert.Zero(t, collector.ChecksAnswered, "ChecksAnswered should be zero")
	assert.Zero(t, collector.StepsEnabled, "StepsEnabled should be zero")
	assert.Zero(t, collector.StepsFiltered, "StepsFiltered should be zero")
	assert.Zero(t, collector.WebhookCalls, "WebhookCalls should be zero")
	assert.Zero(t, collector.Errors, "Errors should be zero")
}

// TestUpdate verifies the Update method of StatsCollector
func TestUpdate(t *testing.T) {
	collector := NewStatsCollector()

	testValues := []struct {
		received     uint64
		answered     uint64
		enabled      uint64
		filtered     uint64
		webhookCalls uint64
		errors       uint64
	}{
		{10, 8, 5, 3, 2, 1},
		{20, 18, 10, 8, 4, 2},
		{0, 0, 0, 0, 0, 0},
	}

	for _, testCase := range testValues {
		t.Run("Update Stats", func(t *testing.T) {
			beforeUpdate := collector.LastUpdate

			collector.Update(
				testCase.received,
				testCase.answered,
				testCase.enabled,
				testCase.filtered,
				testCase.webhookCalls,
				testCase.errors,
			)

			assert.Equal(t, testCase.received, collector.ChecksReceived, "ChecksReceived should match")
			assert.Equal(t, testCase.answered, collector.ChecksAnswered, "ChecksAnswered should match")
			assert.Equal(t, testCase.enabled, collector.StepsEnabled, "StepsEnabled should match")
			assert.Equal(t, testCase.filtered, collector.StepsFiltered, "StepsFiltered should match")
			assert.Equal(t, testCase.webhookCalls, collector.WebhookCalls, "WebhookCalls should match")
			assert.Equal(t, testCase.errors, collector.Errors, "Errors should match")

			assert.True(t, collector.LastUpdate.After(beforeUpdate) || collector.LastUpdate.Equal(beforeUpdate),
				"LastUpdate should advance")
		})
	}
}

// TestGetStats verifies the stats snapshot
func TestGetStats(t *testing.T) {
	collector := NewStatsCollector()
	collector.Update(100, 90, 60, 30, 12, 5)

	stats := collector.GetStats()

	assert.Equal(t, uint64(100), stats["checks_received"])
	assert.Equal(t, uint64(90), stats["checks_answered"])
	assert.Equal(t, uint64(60), stats["steps_enabled"])
	assert.Equal(t, uint64(30), stats["steps_filtered"])
	assert.Equal(t, uint64(12), stats["webhook_calls"])
	assert.Equal(t, uint64(5), stats["errors"])
	assert.Contains(t, stats, "uptime")
	assert.Contains(t, stats, "last_update")
}

// TestGetStatsJSON verifies JSON serialization of stats
func TestGetStatsJSON(t *testing.T) {
	collector := NewStatsCollector()
	collector.Update(7, 6, 4, 2, 1, 0)

	data, err := collector.GetStatsJSON()
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, float64(7), parsed["checks_received"])
	assert.Equal(t, float64(6), parsed["checks_answered"])
}

// TestCalculateRate verifies the answering rate calculation
func TestCalculateRate(t *testing.T) {
	collector := NewStatsCollector()
	collector.StartTime = time.Now().Add(-10 * time.Second)
	collector.Update(100, 50, 30, 20, 0, 0)

	rate := collector.CalculateRate()
	assert.InDelta(t, 5.0, rate, 0.5, "rate should be around 5 checks per second")
}
