package metrics

import (
	"runtime"
	"time"
)

// MetricsCollector periodically samples runtime state into gauges
type MetricsCollector struct {
	metrics  *Metrics
	interval time.Duration
	done     chan struct{}
}

// NewMetricsCollector creates a collector sampling at the given interval
func NewMetricsCollector(m *Metrics, interval time.Duration) *MetricsCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &MetricsCollector{
		metrics:  m,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins periodic collection
func (c *MetricsCollector) Start() {
	go c.run()
}

// Stop halts periodic collection
func (c *MetricsCollector) Stop() {
	close(c.done)
}

func (c *MetricsCollector) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.done:
			return
		}
	}
}

func (c *MetricsCollector) collect() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.metrics.goroutines.Set(float64(runtime.NumGoroutine()))
	c.metrics.memoryBytes.Set(float64(mem.HeapAlloc))
}
