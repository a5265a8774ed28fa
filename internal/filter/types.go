// Package filter implements the boolean filter tree that gates
// notification workflow steps
package filter

// Step defines a workflow step whose execution is gated by filters
type Step struct {
	ID         string        `json:"id" yaml:"id"`
	WorkflowID string        `json:"workflowId" yaml:"workflowId"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	Filters    []FilterGroup `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// FilterGroup combines child conditions with a boolean combinator.
// Groups hold leaves only; there is no deeper nesting.
type FilterGroup struct {
	Value    string      `json:"value,omitempty" yaml:"value,omitempty"` // "AND" or "OR"
	Children []Condition `json:"children" yaml:"children"`
}

// Condition is a single comparison between a resolved data value and a
// configured literal
type Condition struct {
	On         string      `json:"on" yaml:"on"` // payload, subscriber or webhook
	Field      string      `json:"field" yaml:"field"`
	Operator   string      `json:"operator" yaml:"operator"`
	Value      interface{} `json:"value" yaml:"value"`
	WebhookURL string      `json:"webhookUrl,omitempty" yaml:"webhookUrl,omitempty"`
}

// Variables is the data universe a condition is evaluated against
type Variables struct {
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Subscriber map[string]interface{} `json:"subscriber,omitempty"`
	Webhook    map[string]interface{} `json:"webhook,omitempty"`
}

// StepValidationError reports an invalid step definition
type StepValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *StepValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Group combinators
const (
	CombinatorAnd = "AND"
	CombinatorOr  = "OR"
)

// Condition domains
const (
	OnPayload    = "payload"
	OnSubscriber = "subscriber"
	OnWebhook    = "webhook"
)

// Comparison operators
const (
	OperatorEqual        = "EQUAL"
	OperatorNotEqual     = "NOT_EQUAL"
	OperatorLarger       = "LARGER"
	OperatorSmaller      = "SMALLER"
	OperatorLargerEqual  = "LARGER_EQUAL"
	OperatorSmallerEqual = "SMALLER_EQUAL"
	OperatorIn           = "IN"
	OperatorNotIn        = "NOT_IN"
)

// ValidOperators contains all valid comparison operators
var ValidOperators = map[string]bool{
	OperatorEqual:        true,
	OperatorNotEqual:     true,
	OperatorLarger:       true,
	OperatorSmaller:      true,
	OperatorLargerEqual:  true,
	OperatorSmallerEqual: true,
	OperatorIn:           true,
	OperatorNotIn:        true,
}

// ValidDomains contains all valid condition domains
var ValidDomains = map[string]bool{
	OnPayload:    true,
	OnSubscriber: true,
	OnWebhook:    true,
}

// domain returns the variables mapping a condition reads from
func (v *Variables) domain(on string) map[string]interface{} {
	if v == nil {
		return nil
	}
	switch on {
	case OnPayload:
		return v.Payload
	case OnSubscriber:
		return v.Subscriber
	case OnWebhook:
		return v.Webhook
	default:
		return nil
	}
}
