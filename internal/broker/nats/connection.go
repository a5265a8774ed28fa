package nats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"notify-step-filter/internal/metrics"
)

const brokerName = "nats"

// ConnectionManagerImpl implements ConnectionManager for NATS
type ConnectionManagerImpl struct {
	broker    *NATSBroker
	conn      *nats.Conn
	connected atomic.Bool
}

// NewConnectionManager creates a new NATS connection manager
func NewConnectionManager(broker *NATSBroker) (ConnectionManager, error) {
	cm := &ConnectionManagerImpl{
		broker: broker,
	}

	// Establish initial connection
	if err := cm.Connect(); err != nil {
		return nil, err
	}

	return cm, nil
}

// Connect establishes connection to the NATS server
func (cm *ConnectionManagerImpl) Connect() error {
	natsCfg := cm.broker.config.NATS
	if len(natsCfg.URLs) == 0 {
		return fmt.Errorf("no NATS server URLs provided")
	}

	// Create connection options
	opts := []nats.Option{
		nats.Name(natsCfg.ClientID),
		nats.ReconnectWait(time.Second * 2),
		nats.MaxReconnects(-1), // Unlimited reconnects
		nats.DisconnectErrHandler(cm.handleDisconnect),
		nats.ReconnectHandler(cm.handleReconnect),
		nats.ClosedHandler(cm.handleClosed),
	}

	// Add authentication if configured
	if natsCfg.Username != "" {
		opts = append(opts, nats.UserInfo(natsCfg.Username, natsCfg.Password))
	}

	// Configure TLS if enabled
	if natsCfg.TLS.Enable {
		opts = append(opts, nats.ClientCert(natsCfg.TLS.CertFile, natsCfg.TLS.KeyFile))
		if natsCfg.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(natsCfg.TLS.CAFile))
		}
	}

	cm.broker.logger.Info("connecting to NATS server", "urls", natsCfg.URLs)

	var err error
	cm.conn, err = nats.Connect(natsCfg.URLs[0], opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS server: %w", err)
	}

	cm.connected.Store(true)

	cm.broker.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(brokerName, true)
	})

	cm.broker.logger.Info("connected to NATS server", "url", cm.conn.ConnectedUrl())

	return nil
}

// Disconnect cleanly disconnects from the NATS server
func (cm *ConnectionManagerImpl) Disconnect() {
	if cm.conn != nil {
		cm.broker.logger.Info("disconnecting from NATS server")
		cm.conn.Close()
		cm.connected.Store(false)
	}
}

// IsConnected returns the current connection status
func (cm *ConnectionManagerImpl) IsConnected() bool {
	return cm.conn != nil && cm.conn.IsConnected() && cm.connected.Load()
}

// GetConnection returns the NATS connection
func (cm *ConnectionManagerImpl) GetConnection() *nats.Conn {
	return cm.conn
}

// NATS connection event handlers

func (cm *ConnectionManagerImpl) handleDisconnect(conn *nats.Conn, err error) {
	cm.broker.logger.Error("disconnected from NATS server", "error", err)
	cm.connected.Store(false)

	cm.broker.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(brokerName, false)
	})
}

func (cm *ConnectionManagerImpl) handleReconnect(conn *nats.Conn) {
	cm.broker.logger.Info("reconnected to NATS server", "url", conn.ConnectedUrl())
	cm.connected.Store(true)
	cm.broker.stats.LastReconnect = time.Now()

	cm.broker.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(brokerName, true)
		m.IncBrokerReconnects(brokerName)
	})

	// Reestablish the check subscription
	cm.broker.RestoreState()
}

func (cm *ConnectionManagerImpl) handleClosed(conn *nats.Conn) {
	cm.broker.logger.Warn("NATS connection closed")
	cm.connected.Store(false)

	cm.broker.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(brokerName, false)
	})
}
