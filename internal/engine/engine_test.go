package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-step-filter/internal/filter"
	"notify-step-filter/internal/logger"
)

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()

	evaluator := filter.NewEvaluator(nil, logger.NewNop())
	eng := NewEngine(EngineConfig{
		Workers:   1,
		QueueSize: 10,
	}, evaluator, logger.NewNop(), nil)
	t.Cleanup(eng.Close)

	require.NoError(t, eng.LoadSteps([]filter.Step{
		{
			ID:         "digest",
			WorkflowID: "onboarding",
			Filters: []filter.FilterGroup{{
				Value: filter.CombinatorAnd,
				Children: []filter.Condition{
					{On: filter.OnPayload, Field: "severity", Operator: filter.OperatorEqual, Value: "critical"},
					{On: filter.OnSubscriber, Field: "plan", Operator: filter.OperatorEqual, Value: "pro"},
				},
			}},
		},
		{
			ID:         "welcome",
			WorkflowID: "onboarding",
		},
	}))

	return eng
}

func TestEngineCheck(t *testing.T) {
	eng := setupTestEngine(t)

	tests := []struct {
		name        string
		req         *CheckRequest
		wantEnabled bool
		wantErr     bool
	}{
		{
			name: "filters satisfied",
			req: &CheckRequest{
				WorkflowID: "onboarding",
				StepID:     "digest",
				Payload:    map[string]interface{}{"severity": "critical"},
				Subscriber: map[string]interface{}{"plan": "pro"},
			},
			wantEnabled: true,
		},
		{
			name: "filters not satisfied",
			req: &CheckRequest{
				WorkflowID: "onboarding",
				StepID:     "digest",
				Payload:    map[string]interface{}{"severity": "low"},
				Subscriber: map[string]interface{}{"plan": "pro"},
			},
			wantEnabled: false,
		},
		{
			name: "step without filters is enabled",
			req: &CheckRequest{
				WorkflowID: "onboarding",
				StepID:     "welcome",
			},
			wantEnabled: true,
		},
		{
			name: "unknown step",
			req: &CheckRequest{
				WorkflowID: "onboarding",
				StepID:     "missing",
			},
			wantErr: true,
		},
		{
			name:    "missing workflow id",
			req:     &CheckRequest{StepID: "digest"},
			wantErr: true,
		},
		{
			name:    "missing step id",
			req:     &CheckRequest{WorkflowID: "onboarding"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := eng.Check(context.Background(), tt.req)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, decision)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, decision.Enabled)
			assert.Equal(t, tt.req.WorkflowID, decision.WorkflowID)
			assert.Equal(t, tt.req.StepID, decision.StepID)
			assert.NotEmpty(t, decision.RequestID)
			assert.False(t, decision.EvaluatedAt.IsZero())
		})
	}
}

func TestEngineCheckPreservesRequestID(t *testing.T) {
	eng := setupTestEngine(t)

	decision, err := eng.Check(context.Background(), &CheckRequest{
		RequestID:  "req-123",
		WorkflowID: "onboarding",
		StepID:     "welcome",
	})
	require.NoError(t, err)
	assert.Equal(t, "req-123", decision.RequestID)
}

func TestEngineSubmit(t *testing.T) {
	eng := setupTestEngine(t)

	done := make(chan *Decision, 1)
	err := eng.Submit(&CheckRequest{
		WorkflowID: "onboarding",
		StepID:     "welcome",
	}, func(decision *Decision, err error) {
		require.NoError(t, err)
		done <- decision
	})
	require.NoError(t, err)

	select {
	case decision := <-done:
		assert.True(t, decision.Enabled)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decision callback")
	}
}

func TestEngineSubmitQueueFull(t *testing.T) {
	evaluator := filter.NewEvaluator(nil, logger.NewNop())
	eng := &Engine{
		index:     NewStepIndex(logger.NewNop(), nil),
		evaluator: evaluator,
		jobPool:   NewJobPool(),
		jobChan:   make(chan *CheckJob, 1),
		logger:    logger.NewNop(),
	}

	// No workers draining: second submit must be rejected, not block
	require.NoError(t, eng.Submit(&CheckRequest{WorkflowID: "w", StepID: "s"}, nil))
	err := eng.Submit(&CheckRequest{WorkflowID: "w", StepID: "s"}, nil)
	assert.Error(t, err)
}

func TestEngineLoadStepsReplaces(t *testing.T) {
	eng := setupTestEngine(t)

	require.NoError(t, eng.LoadSteps([]filter.Step{
		{ID: "fresh", WorkflowID: "w2"},
	}))

	_, err := eng.Check(context.Background(), &CheckRequest{WorkflowID: "onboarding", StepID: "welcome"})
	assert.Error(t, err, "previous steps must be gone after reload")

	decision, err := eng.Check(context.Background(), &CheckRequest{WorkflowID: "w2", StepID: "fresh"})
	require.NoError(t, err)
	assert.True(t, decision.Enabled)
}

func TestEngineLoadStepsDuplicate(t *testing.T) {
	eng := setupTestEngine(t)

	err := eng.LoadSteps([]filter.Step{
		{ID: "s1", WorkflowID: "w1"},
		{ID: "s1", WorkflowID: "w1"},
	})
	assert.Error(t, err)
}

func TestEngineStats(t *testing.T) {
	eng := setupTestEngine(t)

	_, err := eng.Check(context.Background(), &CheckRequest{
		WorkflowID: "onboarding",
		StepID:     "welcome",
	})
	require.NoError(t, err)

	_, err = eng.Check(context.Background(), &CheckRequest{
		WorkflowID: "onboarding",
		StepID:     "digest",
		Payload:    map[string]interface{}{"severity": "low"},
	})
	require.NoError(t, err)

	_, err = eng.Check(context.Background(), &CheckRequest{
		WorkflowID: "onboarding",
		StepID:     "missing",
	})
	require.Error(t, err)

	stats := eng.GetStats()
	assert.Equal(t, uint64(3), stats.Received)
	assert.Equal(t, uint64(2), stats.Answered)
	assert.Equal(t, uint64(1), stats.Enabled)
	assert.Equal(t, uint64(1), stats.Filtered)
	assert.Equal(t, uint64(1), stats.Errors)
}
