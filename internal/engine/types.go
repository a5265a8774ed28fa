// Package engine answers step check requests by evaluating the step's
// filter tree against the request's variables
package engine

import "time"

// CheckRequest asks whether a workflow step should fire for a notification
type CheckRequest struct {
	RequestID  string                 `json:"requestId,omitempty"`
	WorkflowID string                 `json:"workflowId"`
	StepID     string                 `json:"stepId"`
	Payload    map[string]interface{} `json:"payload"`
	Subscriber map[string]interface{} `json:"subscriber,omitempty"`
	ReplyTopic string                 `json:"replyTopic,omitempty"`
}

// Decision is the boolean answer to a check request
type Decision struct {
	RequestID   string    `json:"requestId"`
	WorkflowID  string    `json:"workflowId"`
	StepID      string    `json:"stepId"`
	Enabled     bool      `json:"enabled"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// EngineStats tracks engine processing counters
type EngineStats struct {
	Received uint64
	Answered uint64
	Enabled  uint64
	Filtered uint64
	Errors   uint64
}
