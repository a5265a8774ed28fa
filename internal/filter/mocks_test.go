package filter

import (
	"context"
	"sync"
)

// mockWebhookEvaluator records webhook condition evaluations and answers
// from a canned per-URL result table
type mockWebhookEvaluator struct {
	mu      sync.Mutex
	results map[string]bool
	calls   []string
	def     bool
}

func newMockWebhookEvaluator(def bool) *mockWebhookEvaluator {
	return &mockWebhookEvaluator{
		results: make(map[string]bool),
		def:     def,
	}
}

func (m *mockWebhookEvaluator) Evaluate(ctx context.Context, cond *Condition, vars *Variables) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, cond.WebhookURL)
	if result, ok := m.results[cond.WebhookURL]; ok {
		return result
	}
	return m.def
}

func (m *mockWebhookEvaluator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockWebhookEvaluator) calledURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
