package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

type Config struct {
	NATS       NATSConfig    `json:"nats"`
	MQTT       MQTTConfig    `json:"mqtt"`
	Webhook    WebhookConfig `json:"webhook"`
	Logging    LogConfig     `json:"logging"`
	Metrics    MetricsConfig `json:"metrics"`
	Processing ProcConfig    `json:"processing"`
}

// TLSConfig holds client TLS settings shared by both transports
type TLSConfig struct {
	Enable   bool   `json:"enable"`
	CertFile string `json:"certFile"`
	KeyFile  string `json:"keyFile"`
	CAFile   string `json:"caFile"`
}

type NATSConfig struct {
	Enabled         bool      `json:"enabled"`
	URLs            []string  `json:"urls"`
	ClientID        string    `json:"clientId"`
	Username        string    `json:"username"`
	Password        string    `json:"password"`
	CheckSubject    string    `json:"checkSubject"`
	DecisionSubject string    `json:"decisionSubject"`
	QueueGroup      string    `json:"queueGroup"`
	TLS             TLSConfig `json:"tls"`
}

type MQTTConfig struct {
	Enabled       bool      `json:"enabled"`
	Broker        string    `json:"broker"`
	ClientID      string    `json:"clientId"`
	Username      string    `json:"username"`
	Password      string    `json:"password"`
	CheckTopic    string    `json:"checkTopic"`
	DecisionTopic string    `json:"decisionTopic"`
	TLS           TLSConfig `json:"tls"`
}

// WebhookConfig controls the outbound webhook condition calls
type WebhookConfig struct {
	Timeout     string `json:"timeout"`     // per-request timeout, duration string
	MaxAttempts int    `json:"maxAttempts"` // total attempts including the first
	RetryWait   string `json:"retryWait"`   // initial retry delay, duration string
}

type LogConfig struct {
	Level      string `json:"level"`      // debug, info, warn, error
	OutputPath string `json:"outputPath"` // file path or "stdout"
	Encoding   string `json:"encoding"`   // json or console
	MaxSize    int    `json:"maxSize"`    // megabytes before rotation
	MaxAge     int    `json:"maxAge"`     // days to retain rotated files
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled        bool   `json:"enabled"`
	Address        string `json:"address"`
	Path           string `json:"path"`
	UpdateInterval string `json:"updateInterval"` // Duration string
}

type ProcConfig struct {
	Workers   int `json:"workers"`
	QueueSize int `json:"queueSize"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults for logging
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.OutputPath == "" {
		config.Logging.OutputPath = "stdout"
	}
	if config.Logging.Encoding == "" {
		config.Logging.Encoding = "json"
	}
	if config.Logging.MaxSize <= 0 {
		config.Logging.MaxSize = 100
	}

	// Set defaults for the webhook gateway
	if config.Webhook.Timeout == "" {
		config.Webhook.Timeout = "10s"
	}
	if config.Webhook.MaxAttempts <= 0 {
		config.Webhook.MaxAttempts = 3
	}
	if config.Webhook.RetryWait == "" {
		config.Webhook.RetryWait = "500ms"
	}

	// Set defaults for NATS
	if config.NATS.CheckSubject == "" {
		config.NATS.CheckSubject = "notify.steps.check"
	}
	if config.NATS.DecisionSubject == "" {
		config.NATS.DecisionSubject = "notify.steps.decision"
	}
	if config.NATS.QueueGroup == "" {
		config.NATS.QueueGroup = "step-filter"
	}

	// Set defaults for MQTT
	if config.MQTT.CheckTopic == "" {
		config.MQTT.CheckTopic = "notify/steps/check"
	}
	if config.MQTT.DecisionTopic == "" {
		config.MQTT.DecisionTopic = "notify/steps/decision"
	}

	// Set defaults for metrics
	if config.Metrics.Address == "" {
		config.Metrics.Address = ":2112"
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}
	if config.Metrics.UpdateInterval == "" {
		config.Metrics.UpdateInterval = "15s"
	}

	// Set defaults for processing
	if config.Processing.Workers <= 0 {
		config.Processing.Workers = runtime.NumCPU()
	}
	if config.Processing.QueueSize <= 0 {
		config.Processing.QueueSize = 1000
	}

	// Validate the configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig performs validation of all configuration values
func validateConfig(cfg *Config) error {
	if !cfg.NATS.Enabled && !cfg.MQTT.Enabled {
		return fmt.Errorf("at least one transport (nats or mqtt) must be enabled")
	}

	if cfg.NATS.Enabled {
		if len(cfg.NATS.URLs) == 0 {
			return fmt.Errorf("nats server urls are required when nats is enabled")
		}
		if err := validateTLS(&cfg.NATS.TLS); err != nil {
			return fmt.Errorf("nats: %w", err)
		}
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker address is required when mqtt is enabled")
		}
		if err := validateTLS(&cfg.MQTT.TLS); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Validate webhook config
	if _, err := time.ParseDuration(cfg.Webhook.Timeout); err != nil {
		return fmt.Errorf("invalid webhook timeout: %w", err)
	}
	if _, err := time.ParseDuration(cfg.Webhook.RetryWait); err != nil {
		return fmt.Errorf("invalid webhook retry wait: %w", err)
	}
	if cfg.Webhook.MaxAttempts < 1 {
		return fmt.Errorf("webhook max attempts must be greater than 0")
	}

	// Validate logging config
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	switch cfg.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding: %s", cfg.Logging.Encoding)
	}

	// Validate metrics config
	if cfg.Metrics.Enabled {
		if _, err := time.ParseDuration(cfg.Metrics.UpdateInterval); err != nil {
			return fmt.Errorf("invalid metrics update interval: %w", err)
		}
	}

	// Validate processing config
	if cfg.Processing.Workers < 1 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if cfg.Processing.QueueSize < 1 {
		return fmt.Errorf("queue size must be greater than 0")
	}

	return nil
}

func validateTLS(tls *TLSConfig) error {
	if !tls.Enable {
		return nil
	}
	if tls.CertFile == "" {
		return fmt.Errorf("tls cert file is required when tls is enabled")
	}
	if tls.KeyFile == "" {
		return fmt.Errorf("tls key file is required when tls is enabled")
	}
	if tls.CAFile == "" {
		return fmt.Errorf("tls ca file is required when tls is enabled")
	}
	return nil
}

// WebhookTimeout returns the parsed webhook request timeout
func (c *Config) WebhookTimeout() time.Duration {
	d, err := time.ParseDuration(c.Webhook.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// WebhookRetryWait returns the parsed initial retry delay
func (c *Config) WebhookRetryWait() time.Duration {
	d, err := time.ParseDuration(c.Webhook.RetryWait)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ApplyOverrides applies command line flag overrides to the configuration
func (c *Config) ApplyOverrides(workers, queueSize int, metricsAddr, metricsPath string, metricsInterval time.Duration) {
	if workers > 0 {
		c.Processing.Workers = workers
	}
	if queueSize > 0 {
		c.Processing.QueueSize = queueSize
	}
	if metricsAddr != "" {
		c.Metrics.Address = metricsAddr
	}
	if metricsPath != "" {
		c.Metrics.Path = metricsPath
	}
	if metricsInterval > 0 {
		c.Metrics.UpdateInterval = metricsInterval.String()
	}
}
