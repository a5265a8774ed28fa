package nats

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"notify-step-filter/internal/engine"
	"notify-step-filter/internal/metrics"
)

// SubscriptionManagerImpl implements SubscriptionManager for NATS
type SubscriptionManagerImpl struct {
	broker     *NATSBroker
	conn       ConnectionManager
	pub        Publisher
	sub        *nats.Subscription
	subscribed bool
	mu         sync.RWMutex
}

// NewSubscriptionManager creates a new NATS subscription manager
func NewSubscriptionManager(broker *NATSBroker, conn ConnectionManager, pub Publisher) SubscriptionManager {
	return &SubscriptionManagerImpl{
		broker: broker,
		conn:   conn,
		pub:    pub,
	}
}

// Subscribe subscribes to the check subject as part of the queue group so
// that concurrent instances share the load
func (s *SubscriptionManagerImpl) Subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.conn.IsConnected() {
		return fmt.Errorf("not connected to NATS server")
	}

	natsCfg := s.broker.config.NATS

	sub, err := s.conn.GetConnection().QueueSubscribe(
		natsCfg.CheckSubject,
		natsCfg.QueueGroup,
		s.handleMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", natsCfg.CheckSubject, err)
	}

	s.sub = sub
	s.subscribed = true

	s.broker.logger.Info("subscribed to check subject",
		"subject", natsCfg.CheckSubject,
		"queueGroup", natsCfg.QueueGroup)

	return nil
}

// UnsubscribeAll removes the check subscription
func (s *SubscriptionManagerImpl) UnsubscribeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			s.broker.logger.Error("failed to unsubscribe from check subject",
				"error", err)
		}
		s.sub = nil
	}

	s.subscribed = false
	return nil
}

// IsSubscribed returns whether the check subscription is active
func (s *SubscriptionManagerImpl) IsSubscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed
}

// handleMessage processes a received check request
func (s *SubscriptionManagerImpl) handleMessage(msg *nats.Msg) {
	atomic.AddUint64(&s.broker.stats.ChecksReceived, 1)

	s.broker.logger.Debug("processing check request",
		"subject", msg.Subject,
		"payloadSize", len(msg.Data))

	var req engine.CheckRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		atomic.AddUint64(&s.broker.stats.Errors, 1)
		s.broker.safeMetricsUpdate(func(m *metrics.Metrics) {
			m.IncChecksTotal("error")
		})
		s.broker.logger.Error("failed to parse check request",
			"error", err,
			"subject", msg.Subject)
		return
	}

	reply := msg.Reply
	err := s.broker.engine.Submit(&req, func(decision *engine.Decision, err error) {
		if err != nil {
			atomic.AddUint64(&s.broker.stats.Errors, 1)
			s.broker.logger.Error("failed to answer check request",
				"error", err,
				"workflow", req.WorkflowID,
				"step", req.StepID)
			return
		}
		s.publishDecision(reply, decision)
	})
	if err != nil {
		atomic.AddUint64(&s.broker.stats.Errors, 1)
		s.broker.logger.Error("failed to queue check request",
			"error", err,
			"workflow", req.WorkflowID,
			"step", req.StepID)
		return
	}

	// Update queue metrics if enabled
	s.broker.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetQueueDepth(float64(len(s.broker.engine.GetJobChannel())))
		m.SetProcessingBacklog(float64(
			atomic.LoadUint64(&s.broker.stats.ChecksReceived) -
				atomic.LoadUint64(&s.broker.stats.DecisionsPublished)))
	})
}

// publishDecision answers on the request's reply inbox when present, else on
// the configured decision subject
func (s *SubscriptionManagerImpl) publishDecision(reply string, decision *engine.Decision) {
	subject := reply
	if subject == "" {
		subject = s.broker.config.NATS.DecisionSubject
	}

	if err := s.pub.PublishDecision(subject, decision); err != nil {
		s.broker.logger.Error("failed to publish decision",
			"error", err,
			"subject", subject,
			"workflow", decision.WorkflowID,
			"step", decision.StepID)
	}
}
