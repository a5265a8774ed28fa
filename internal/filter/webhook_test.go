package filter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-step-filter/internal/logger"
)

func newTestGateway() *Gateway {
	return NewGateway(GatewayConfig{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		RetryWait:   time.Millisecond,
	}, logger.NewNop(), nil)
}

func TestGatewayEvaluateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "payload")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"approved": true, "score": 0.9}`))
	}))
	defer server.Close()

	gateway := newTestGateway()
	vars := &Variables{Payload: map[string]interface{}{"severity": "critical"}}

	cond := &Condition{
		On:         OnWebhook,
		Field:      "approved",
		Operator:   OperatorEqual,
		Value:      "true",
		WebhookURL: server.URL,
	}
	assert.True(t, gateway.Evaluate(context.Background(), cond, vars))

	cond = &Condition{
		On:         OnWebhook,
		Field:      "score",
		Operator:   OperatorLarger,
		Value:      0.95,
		WebhookURL: server.URL,
	}
	assert.False(t, gateway.Evaluate(context.Background(), cond, vars))
}

func TestGatewayRetriesOnServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"approved": true}`))
	}))
	defer server.Close()

	gateway := newTestGateway()
	cond := &Condition{
		On:         OnWebhook,
		Field:      "approved",
		Operator:   OperatorEqual,
		Value:      "true",
		WebhookURL: server.URL,
	}

	assert.True(t, gateway.Evaluate(context.Background(), cond, &Variables{}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGatewayFailsClosedAfterRetriesExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gateway := newTestGateway()
	cond := &Condition{
		On:         OnWebhook,
		Field:      "approved",
		Operator:   OperatorNotEqual, // would match an absent value, must still fail
		Value:      "true",
		WebhookURL: server.URL,
	}

	assert.False(t, gateway.Evaluate(context.Background(), cond, &Variables{}),
		"unreachable webhook must not satisfy its condition")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestGatewayFailsClosedOnNetworkError(t *testing.T) {
	gateway := newTestGateway()
	cond := &Condition{
		On:         OnWebhook,
		Field:      "approved",
		Operator:   OperatorNotEqual,
		Value:      "true",
		WebhookURL: "http://127.0.0.1:1", // nothing listens here
	}

	assert.False(t, gateway.Evaluate(context.Background(), cond, &Variables{}))
}

func TestGatewayMalformedResponseIsPermanent(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	gateway := newTestGateway()
	cond := &Condition{
		On:         OnWebhook,
		Field:      "approved",
		Operator:   OperatorEqual,
		Value:      "true",
		WebhookURL: server.URL,
	}

	assert.False(t, gateway.Evaluate(context.Background(), cond, &Variables{}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts),
		"a malformed body is not retried")
}

func TestGatewayMissingURLEvaluatesAgainstAbsentValue(t *testing.T) {
	gateway := newTestGateway()

	cond := &Condition{
		On:       OnWebhook,
		Field:    "approved",
		Operator: OperatorEqual,
		Value:    "true",
	}
	assert.False(t, gateway.Evaluate(context.Background(), cond, &Variables{}))

	cond = &Condition{
		On:       OnWebhook,
		Field:    "approved",
		Operator: OperatorNotEqual,
		Value:    "true",
	}
	assert.True(t, gateway.Evaluate(context.Background(), cond, &Variables{}),
		"without a URL the condition is judged against an absent value")
}

func TestGatewayConfigDefaults(t *testing.T) {
	gateway := NewGateway(GatewayConfig{}, logger.NewNop(), nil)

	assert.Equal(t, 10*time.Second, gateway.client.Timeout)
	assert.Equal(t, uint(3), gateway.maxAttempts)
	assert.Equal(t, 500*time.Millisecond, gateway.retryWait)
}
