// Package metrics exposes prometheus instrumentation for the step filter
// service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all prometheus collectors for the service
type Metrics struct {
	checksTotal      *prometheus.CounterVec
	stepDecisions    *prometheus.CounterVec
	webhookCalls     *prometheus.CounterVec
	webhookRetries   prometheus.Counter
	webhookDuration  prometheus.Histogram
	brokerConnected  *prometheus.GaugeVec
	brokerReconnects *prometheus.CounterVec
	stepsActive      prometheus.Gauge
	queueDepth       prometheus.Gauge
	backlog          prometheus.Gauge
	goroutines       prometheus.Gauge
	memoryBytes      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepfilter_checks_total",
			Help: "Total number of step check requests by status",
		}, []string{"status"}),
		stepDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepfilter_decisions_total",
			Help: "Total number of step decisions by result",
		}, []string{"result"}),
		webhookCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepfilter_webhook_calls_total",
			Help: "Total number of webhook condition calls by outcome",
		}, []string{"outcome"}),
		webhookRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stepfilter_webhook_retries_total",
			Help: "Total number of webhook call retry attempts",
		}),
		webhookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stepfilter_webhook_duration_seconds",
			Help:    "Duration of webhook condition calls including retries",
			Buckets: prometheus.DefBuckets,
		}),
		brokerConnected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stepfilter_broker_connected",
			Help: "Connection status per broker (1 connected, 0 disconnected)",
		}, []string{"broker"}),
		brokerReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepfilter_broker_reconnects_total",
			Help: "Total number of broker reconnections",
		}, []string{"broker"}),
		stepsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepfilter_steps_active",
			Help: "Number of step definitions currently indexed",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepfilter_queue_depth",
			Help: "Current depth of the check processing queue",
		}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepfilter_processing_backlog",
			Help: "Checks received but not yet answered",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepfilter_goroutines",
			Help: "Current number of goroutines",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stepfilter_memory_bytes",
			Help: "Current heap memory usage in bytes",
		}),
	}

	collectors := []prometheus.Collector{
		m.checksTotal,
		m.stepDecisions,
		m.webhookCalls,
		m.webhookRetries,
		m.webhookDuration,
		m.brokerConnected,
		m.brokerReconnects,
		m.stepsActive,
		m.queueDepth,
		m.backlog,
		m.goroutines,
		m.memoryBytes,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// IncChecksTotal increments the check counter for a status
// (received, processed, error)
func (m *Metrics) IncChecksTotal(status string) {
	m.checksTotal.WithLabelValues(status).Inc()
}

// IncStepDecisions increments the decision counter for a result
// (enabled, filtered)
func (m *Metrics) IncStepDecisions(result string) {
	m.stepDecisions.WithLabelValues(result).Inc()
}

// IncWebhookCalls increments the webhook call counter for an outcome
// (success, failure)
func (m *Metrics) IncWebhookCalls(outcome string) {
	m.webhookCalls.WithLabelValues(outcome).Inc()
}

// IncWebhookRetries increments the webhook retry counter
func (m *Metrics) IncWebhookRetries() {
	m.webhookRetries.Inc()
}

// ObserveWebhookDuration records the duration of a webhook call in seconds
func (m *Metrics) ObserveWebhookDuration(seconds float64) {
	m.webhookDuration.Observe(seconds)
}

// SetBrokerConnectionStatus records the connection state of a broker
func (m *Metrics) SetBrokerConnectionStatus(broker string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	m.brokerConnected.WithLabelValues(broker).Set(v)
}

// IncBrokerReconnects increments the reconnect counter for a broker
func (m *Metrics) IncBrokerReconnects(broker string) {
	m.brokerReconnects.WithLabelValues(broker).Inc()
}

// SetStepsActive records the number of indexed step definitions
func (m *Metrics) SetStepsActive(count float64) {
	m.stepsActive.Set(count)
}

// SetQueueDepth records the current processing queue depth
func (m *Metrics) SetQueueDepth(depth float64) {
	m.queueDepth.Set(depth)
}

// SetProcessingBacklog records the current processing backlog
func (m *Metrics) SetProcessingBacklog(backlog float64) {
	m.backlog.Set(backlog)
}
