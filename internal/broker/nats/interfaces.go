package nats

import (
	"github.com/nats-io/nats.go"

	"notify-step-filter/internal/engine"
)

// ConnectionManager handles NATS connection lifecycle
type ConnectionManager interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	GetConnection() *nats.Conn
}

// SubscriptionManager handles the check subject subscription
type SubscriptionManager interface {
	Subscribe() error
	UnsubscribeAll() error
	IsSubscribed() bool
}

// Publisher handles decision publishing
type Publisher interface {
	Publish(subject string, payload []byte) error
	PublishDecision(subject string, decision *engine.Decision) error
}
