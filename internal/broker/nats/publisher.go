package nats

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"notify-step-filter/internal/engine"
)

// PublisherImpl implements the Publisher interface for NATS
type PublisherImpl struct {
	broker *NATSBroker
	conn   ConnectionManager
}

// NewPublisher creates a new NATS publisher
func NewPublisher(broker *NATSBroker, conn ConnectionManager) Publisher {
	return &PublisherImpl{
		broker: broker,
		conn:   conn,
	}
}

// Publish sends a message to a specific subject
func (p *PublisherImpl) Publish(subject string, payload []byte) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("not connected to NATS server")
	}

	if err := p.conn.GetConnection().Publish(subject, payload); err != nil {
		atomic.AddUint64(&p.broker.stats.Errors, 1)
		p.broker.logger.Error("failed to publish message",
			"error", err,
			"subject", subject)
		return err
	}

	atomic.AddUint64(&p.broker.stats.DecisionsPublished, 1)

	p.broker.logger.Debug("published message",
		"subject", subject,
		"payloadSize", len(payload))

	return nil
}

// PublishDecision publishes a step decision
func (p *PublisherImpl) PublishDecision(subject string, decision *engine.Decision) error {
	if decision == nil {
		return fmt.Errorf("decision cannot be nil")
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to serialize decision: %w", err)
	}

	if err := p.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish decision: %w", err)
	}

	p.broker.logger.Debug("published decision",
		"subject", subject,
		"workflow", decision.WorkflowID,
		"step", decision.StepID,
		"enabled", decision.Enabled)

	return nil
}
