package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v5"

	"notify-step-filter/internal/logger"
	"notify-step-filter/internal/metrics"
)

// WebhookEvaluator resolves webhook-backed conditions. The tree evaluator
// depends on this interface so remote leaves can be mocked in tests.
type WebhookEvaluator interface {
	Evaluate(ctx context.Context, cond *Condition, vars *Variables) bool
}

// GatewayConfig holds webhook gateway configuration
type GatewayConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryWait   time.Duration
}

// Gateway performs the remote call for webhook-backed conditions. Every
// failure mode resolves to "condition not satisfied"; no error ever reaches
// the caller.
type Gateway struct {
	client      *http.Client
	logger      *logger.Logger
	metrics     *metrics.Metrics
	maxAttempts uint
	retryWait   time.Duration
	calls       uint64
}

// NewGateway creates a webhook gateway
func NewGateway(cfg GatewayConfig, log *logger.Logger, m *metrics.Metrics) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}

	return &Gateway{
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      log,
		metrics:     m,
		maxAttempts: uint(cfg.MaxAttempts),
		retryWait:   cfg.RetryWait,
	}
}

// Evaluate resolves a webhook condition. The variables context is posted to
// the configured URL and the parsed response becomes the webhook domain the
// condition is evaluated against.
func (g *Gateway) Evaluate(ctx context.Context, cond *Condition, vars *Variables) bool {
	if cond.WebhookURL == "" {
		// Unresolved leaf: judged against an absent webhook value
		return EvaluateCondition(&Variables{}, cond)
	}

	atomic.AddUint64(&g.calls, 1)

	response, err := g.fetch(ctx, cond.WebhookURL, vars)
	if err != nil {
		if g.metrics != nil {
			g.metrics.IncWebhookCalls("failure")
		}
		g.logger.Error("webhook condition unresolved, treating as not satisfied",
			"url", cond.WebhookURL,
			"field", cond.Field,
			"error", err)
		return false
	}

	if g.metrics != nil {
		g.metrics.IncWebhookCalls("success")
	}

	return EvaluateCondition(&Variables{Webhook: response}, cond)
}

// CallCount returns the number of webhook calls performed so far
func (g *Gateway) CallCount() uint64 {
	return atomic.LoadUint64(&g.calls)
}

// fetch posts the variables context and parses the JSON response, retrying
// transient failures up to the configured number of attempts
func (g *Gateway) fetch(ctx context.Context, url string, vars *Variables) (map[string]interface{}, error) {
	body, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize variables: %w", err)
	}

	start := time.Now()
	defer func() {
		if g.metrics != nil {
			g.metrics.ObserveWebhookDuration(time.Since(start).Seconds())
		}
	}()

	operation := func() (map[string]interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d from webhook", resp.StatusCode)
		}

		var parsed map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			// A malformed body will not improve on retry
			return nil, backoff.Permanent(fmt.Errorf("failed to decode webhook response: %w", err))
		}

		return parsed, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.retryWait

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(g.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if g.metrics != nil {
				g.metrics.IncWebhookRetries()
			}
			g.logger.Warn("webhook call failed, retrying",
				"url", url,
				"retryIn", wait.String(),
				"error", err)
		}))
}
