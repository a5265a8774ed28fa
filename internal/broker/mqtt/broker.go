// Package mqtt implements the MQTT transport for step check requests
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"notify-step-filter/config"
	"notify-step-filter/internal/broker"
	"notify-step-filter/internal/engine"
	"notify-step-filter/internal/logger"
	"notify-step-filter/internal/metrics"
)

const brokerName = "mqtt"

// MQTTBroker implements the broker.Broker interface for MQTT
type MQTTBroker struct {
	client  mqtt.Client
	logger  *logger.Logger
	config  *config.Config
	engine  *engine.Engine
	metrics *metrics.Metrics
	stats   broker.BrokerStats
}

// NewBroker creates a new MQTT broker instance
func NewBroker(cfg *config.Config, log *logger.Logger, eng *engine.Engine, metricsService *metrics.Metrics) (broker.Broker, error) {
	b := &MQTTBroker{
		logger:  log,
		config:  cfg,
		engine:  eng,
		metrics: metricsService,
		stats: broker.BrokerStats{
			LastReconnect: time.Now(),
		},
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID).
		SetUsername(cfg.MQTT.Username).
		SetPassword(cfg.MQTT.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetOnConnectHandler(b.handleConnect).
		SetConnectionLostHandler(b.handleConnectionLost)

	if cfg.MQTT.TLS.Enable {
		tlsConfig, err := newTLSConfig(cfg.MQTT.TLS.CertFile, cfg.MQTT.TLS.KeyFile, cfg.MQTT.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", token.Error())
	}

	b.client = client
	return b, nil
}

// Start implements broker.Broker interface
func (b *MQTTBroker) Start(ctx context.Context) error {
	topic := b.config.MQTT.CheckTopic

	if token := b.client.Subscribe(topic, 0, b.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	b.logger.Info("subscribed to check topic", "topic", topic)

	go func() {
		<-ctx.Done()
		if token := b.client.Unsubscribe(topic); token.Wait() && token.Error() != nil {
			b.logger.Error("failed to unsubscribe", "error", token.Error())
		}
	}()

	return nil
}

// handleMessage processes a received check request
func (b *MQTTBroker) handleMessage(client mqtt.Client, msg mqtt.Message) {
	atomic.AddUint64(&b.stats.ChecksReceived, 1)

	b.logger.Debug("processing check request",
		"topic", msg.Topic(),
		"payloadSize", len(msg.Payload()))

	var req engine.CheckRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		atomic.AddUint64(&b.stats.Errors, 1)
		if b.metrics != nil {
			b.metrics.IncChecksTotal("error")
		}
		b.logger.Error("failed to parse check request",
			"error", err,
			"topic", msg.Topic())
		return
	}

	err := b.engine.Submit(&req, func(decision *engine.Decision, err error) {
		if err != nil {
			atomic.AddUint64(&b.stats.Errors, 1)
			b.logger.Error("failed to answer check request",
				"error", err,
				"workflow", req.WorkflowID,
				"step", req.StepID)
			return
		}
		b.publishDecision(&req, decision)
	})
	if err != nil {
		atomic.AddUint64(&b.stats.Errors, 1)
		b.logger.Error("failed to queue check request",
			"error", err,
			"workflow", req.WorkflowID,
			"step", req.StepID)
	}
}

// publishDecision publishes to the request's reply topic when present, else
// to the configured decision topic
func (b *MQTTBroker) publishDecision(req *engine.CheckRequest, decision *engine.Decision) {
	topic := req.ReplyTopic
	if topic == "" {
		topic = b.config.MQTT.DecisionTopic
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		atomic.AddUint64(&b.stats.Errors, 1)
		b.logger.Error("failed to serialize decision", "error", err)
		return
	}

	if token := b.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		atomic.AddUint64(&b.stats.Errors, 1)
		b.logger.Error("failed to publish decision",
			"error", token.Error(),
			"topic", topic)
		return
	}

	atomic.AddUint64(&b.stats.DecisionsPublished, 1)

	b.logger.Debug("published decision",
		"topic", topic,
		"workflow", decision.WorkflowID,
		"step", decision.StepID,
		"enabled", decision.Enabled)
}

func (b *MQTTBroker) handleConnect(client mqtt.Client) {
	b.logger.Info("connected to MQTT broker", "broker", b.config.MQTT.Broker)
	if b.metrics != nil {
		b.metrics.SetBrokerConnectionStatus(brokerName, true)
	}
}

func (b *MQTTBroker) handleConnectionLost(client mqtt.Client, err error) {
	b.stats.LastReconnect = time.Now()
	b.logger.Error("lost connection to MQTT broker", "error", err)
	if b.metrics != nil {
		b.metrics.SetBrokerConnectionStatus(brokerName, false)
		b.metrics.IncBrokerReconnects(brokerName)
	}
}

// Close implements broker.Broker interface
func (b *MQTTBroker) Close() {
	b.logger.Info("shutting down MQTT broker")
	b.client.Disconnect(250)
}

// GetStats implements broker.Broker interface
func (b *MQTTBroker) GetStats() broker.BrokerStats {
	return b.stats
}

func newTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caCertPool,
	}, nil
}
