package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notify-step-filter/config"
	"notify-step-filter/internal/broker"
	"notify-step-filter/internal/engine"
	"notify-step-filter/internal/logger"
	"notify-step-filter/internal/metrics"
)

// NATSBroker implements the broker.Broker interface for NATS
type NATSBroker struct {
	logger  *logger.Logger
	config  *config.Config
	engine  *engine.Engine
	metrics *metrics.Metrics
	stats   broker.BrokerStats

	conn ConnectionManager
	sub  SubscriptionManager
	pub  Publisher

	wg sync.WaitGroup
}

// NewBroker creates a new NATS broker instance
func NewBroker(cfg *config.Config, log *logger.Logger, eng *engine.Engine, metricsService *metrics.Metrics) (broker.Broker, error) {
	b := &NATSBroker{
		logger:  log,
		config:  cfg,
		engine:  eng,
		metrics: metricsService,
		stats: broker.BrokerStats{
			LastReconnect: time.Now(),
		},
	}

	// Initialize connection manager first
	var err error
	b.conn, err = NewConnectionManager(b)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}

	// Initialize publisher
	b.pub = NewPublisher(b, b.conn)

	// Initialize subscription manager
	b.sub = NewSubscriptionManager(b, b.conn, b.pub)

	return b, nil
}

// Start implements broker.Broker interface
func (b *NATSBroker) Start(ctx context.Context) error {
	if err := b.sub.Subscribe(); err != nil {
		return fmt.Errorf("failed to subscribe to check subject: %w", err)
	}

	// Monitor context cancellation
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		<-ctx.Done()
		b.logger.Info("context done, unsubscribing from check subject")
		if err := b.sub.UnsubscribeAll(); err != nil {
			b.logger.Error("failed to unsubscribe", "error", err)
		}
	}()

	return nil
}

// Close implements broker.Broker interface
func (b *NATSBroker) Close() {
	b.logger.Info("shutting down NATS broker")

	if err := b.sub.UnsubscribeAll(); err != nil {
		b.logger.Error("failed to unsubscribe", "error", err)
	}

	b.conn.Disconnect()

	b.wg.Wait()
}

// GetStats implements broker.Broker interface
func (b *NATSBroker) GetStats() broker.BrokerStats {
	return b.stats
}

// RestoreState reestablishes the check subscription after a reconnection
func (b *NATSBroker) RestoreState() {
	b.logger.Info("restoring subscription after reconnection",
		"subject", b.config.NATS.CheckSubject)

	if err := b.sub.UnsubscribeAll(); err != nil {
		b.logger.Error("failed to clear subscriptions after reconnection", "error", err)
	}

	if err := b.sub.Subscribe(); err != nil {
		b.logger.Error("failed to resubscribe after reconnection", "error", err)
		return
	}

	b.logger.Info("successfully restored subscription")
}

// safeMetricsUpdate safely updates metrics if they are enabled
func (b *NATSBroker) safeMetricsUpdate(fn func(*metrics.Metrics)) {
	if b.metrics != nil {
		fn(b.metrics)
	}
}
