// Package broker defines the transport abstraction for receiving step check
// requests and publishing decisions
package broker

import (
	"context"
	"time"
)

// Broker is a transport that feeds check requests into the engine and
// publishes the resulting decisions
type Broker interface {
	// Start begins consuming check requests
	Start(ctx context.Context) error

	// Close gracefully shuts down the transport
	Close()

	// GetStats returns current transport statistics
	GetStats() BrokerStats
}

// BrokerStats holds statistics for a transport
type BrokerStats struct {
	ChecksReceived     uint64
	DecisionsPublished uint64
	LastReconnect      time.Time
	Errors             uint64
}
