package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notify-step-filter/config"
	"notify-step-filter/internal/broker"
	mqttbroker "notify-step-filter/internal/broker/mqtt"
	natsbroker "notify-step-filter/internal/broker/nats"
	"notify-step-filter/internal/engine"
	"notify-step-filter/internal/filter"
	"notify-step-filter/internal/logger"
	"notify-step-filter/internal/metrics"
	"notify-step-filter/internal/stats"
)

func main() {
	// Command line flags for config and step definitions
	configPath := flag.String("config", "config/config.json", "path to config file")
	stepsPath := flag.String("steps", "steps", "path to step definitions directory")

	// Optional override flags
	workersOverride := flag.Int("workers", 0, "override number of worker threads (0 = use config)")
	queueSizeOverride := flag.Int("queue-size", 0, "override size of processing queue (0 = use config)")
	metricsAddrOverride := flag.String("metrics-addr", "", "override metrics server address (empty = use config)")
	metricsPathOverride := flag.String("metrics-path", "", "override metrics endpoint path (empty = use config)")
	metricsIntervalOverride := flag.Duration("metrics-interval", 0, "override metrics collection interval (0 = use config)")

	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Apply any command line overrides
	cfg.ApplyOverrides(
		*workersOverride,
		*queueSizeOverride,
		*metricsAddrOverride,
		*metricsPathOverride,
		*metricsIntervalOverride,
	)

	// Initialize logger
	logger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Setup metrics if enabled
	var metricsService *metrics.Metrics
	var metricsCollector *metrics.MetricsCollector
	var metricsServer *http.Server

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metricsService, err = metrics.NewMetrics(reg)
		if err != nil {
			logger.Fatal("failed to create metrics service", "error", err)
		}

		updateInterval, err := time.ParseDuration(cfg.Metrics.UpdateInterval)
		if err != nil {
			logger.Fatal("invalid metrics update interval", "error", err)
		}

		metricsCollector = metrics.NewMetricsCollector(metricsService, updateInterval)
		metricsCollector.Start()
		defer metricsCollector.Stop()

		// Setup metrics HTTP server
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry:          reg,
			EnableOpenMetrics: true,
		}))

		metricsServer = &http.Server{
			Addr:    cfg.Metrics.Address,
			Handler: mux,
		}

		go func() {
			logger.Info("starting metrics server",
				"address", cfg.Metrics.Address,
				"path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// Setup signal handlers
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Build the evaluation pipeline: webhook gateway, tree evaluator, engine
	gateway := filter.NewGateway(filter.GatewayConfig{
		Timeout:     cfg.WebhookTimeout(),
		MaxAttempts: cfg.Webhook.MaxAttempts,
		RetryWait:   cfg.WebhookRetryWait(),
	}, logger, metricsService)

	evaluator := filter.NewEvaluator(gateway, logger)

	eng := engine.NewEngine(engine.EngineConfig{
		Workers:   cfg.Processing.Workers,
		QueueSize: cfg.Processing.QueueSize,
	}, evaluator, logger, metricsService)

	// Load step definitions
	stepLoader := filter.NewStepLoader(logger)
	steps, err := stepLoader.LoadFromDirectory(*stepsPath)
	if err != nil {
		logger.Fatal("failed to load steps", "error", err)
	}

	if err := eng.LoadSteps(steps); err != nil {
		logger.Fatal("failed to index steps", "error", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodically snapshot engine counters into the stats collector and log
	// a throughput summary
	statsCollector := stats.NewStatsCollector()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				es := eng.GetStats()
				statsCollector.Update(es.Received, es.Answered, es.Enabled,
					es.Filtered, gateway.CallCount(), es.Errors)
				logger.Info("engine statistics",
					"checksReceived", es.Received,
					"checksAnswered", es.Answered,
					"stepsEnabled", es.Enabled,
					"stepsFiltered", es.Filtered,
					"webhookCalls", gateway.CallCount(),
					"errors", es.Errors,
					"checksPerSecond", statsCollector.CalculateRate())
			}
		}
	}()

	// Start the enabled transports
	var brokers []broker.Broker

	if cfg.NATS.Enabled {
		natsBroker, err := natsbroker.NewBroker(cfg, logger, eng, metricsService)
		if err != nil {
			logger.Fatal("failed to create NATS broker", "error", err)
		}
		if err := natsBroker.Start(ctx); err != nil {
			logger.Fatal("failed to start NATS broker", "error", err)
		}
		brokers = append(brokers, natsBroker)
	}

	if cfg.MQTT.Enabled {
		mqttBroker, err := mqttbroker.NewBroker(cfg, logger, eng, metricsService)
		if err != nil {
			logger.Fatal("failed to create MQTT broker", "error", err)
		}
		if err := mqttBroker.Start(ctx); err != nil {
			logger.Fatal("failed to start MQTT broker", "error", err)
		}
		brokers = append(brokers, mqttBroker)
	}

	logger.Info("notify-step-filter started",
		"workers", cfg.Processing.Workers,
		"queueSize", cfg.Processing.QueueSize,
		"stepsCount", len(steps),
		"natsEnabled", cfg.NATS.Enabled,
		"mqttEnabled", cfg.MQTT.Enabled,
		"metricsEnabled", cfg.Metrics.Enabled)

	// Handle signals
	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGHUP:
			logger.Info("received SIGHUP, reloading step definitions")
			steps, err := stepLoader.LoadFromDirectory(*stepsPath)
			if err != nil {
				logger.Error("failed to reload steps", "error", err)
				continue
			}
			if err := eng.LoadSteps(steps); err != nil {
				logger.Error("failed to reindex steps", "error", err)
			}
		case syscall.SIGINT, syscall.SIGTERM:
			logger.Info("shutting down...")

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if cfg.Metrics.Enabled && metricsServer != nil {
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("failed to shutdown metrics server", "error", err)
				}
			}

			cancel()
			for _, b := range brokers {
				b.Close()
			}
			eng.Close()
			return
		}
	}
}
