package filter

import (
	"context"
	"sync"

	"notify-step-filter/internal/logger"
)

// Evaluator walks a step's filter tree and produces the final boolean
// decision. Local conditions are pure and evaluated inline; webhook
// conditions go through the WebhookEvaluator.
type Evaluator struct {
	webhooks WebhookEvaluator
	logger   *logger.Logger
}

// NewEvaluator creates a filter tree evaluator
func NewEvaluator(webhooks WebhookEvaluator, log *logger.Logger) *Evaluator {
	return &Evaluator{
		webhooks: webhooks,
		logger:   log,
	}
}

// IsStepEnabled reports whether a step should fire. A step with no filter
// configuration is always enabled; otherwise the step is enabled iff at
// least one filter group matches, first match wins.
func (e *Evaluator) IsStepEnabled(ctx context.Context, step *Step, vars *Variables) bool {
	if step == nil || len(step.Filters) == 0 {
		return true
	}

	for i := range step.Filters {
		if e.evaluateGroup(ctx, &step.Filters[i], vars) {
			return true
		}
	}

	return false
}

// evaluateGroup applies the group combinator over its children. Groups with
// a single child bypass the combinator entirely.
func (e *Evaluator) evaluateGroup(ctx context.Context, group *FilterGroup, vars *Variables) bool {
	children := group.Children
	if len(children) == 0 {
		return true
	}
	if len(children) == 1 {
		return e.evaluateChild(ctx, &children[0], vars)
	}

	// Partition into cheap local conditions and remote webhook conditions,
	// preserving relative order within each subset
	var local, remote []*Condition
	for i := range children {
		if children[i].On == OnWebhook {
			remote = append(remote, &children[i])
		} else {
			local = append(local, &children[i])
		}
	}

	switch group.Value {
	case CombinatorAnd:
		return e.evaluateAnd(ctx, local, remote, vars)
	case CombinatorOr:
		return e.evaluateOr(ctx, local, remote, vars)
	default:
		e.logger.Debug("unknown group combinator, group not satisfied",
			"combinator", group.Value)
		return false
	}
}

// evaluateAnd resolves all local conditions before any network side effect
// is considered. Remote conditions only run once every local one holds, and
// then all of them are dispatched concurrently and joined.
func (e *Evaluator) evaluateAnd(ctx context.Context, local, remote []*Condition, vars *Variables) bool {
	for _, cond := range local {
		if !EvaluateCondition(vars, cond) {
			return false
		}
	}

	if len(remote) == 0 {
		return true
	}

	// Fan-out the webhook calls; the batch always runs to completion, there
	// is no cancellation of in-flight calls
	results := make([]bool, len(remote))
	var wg sync.WaitGroup
	for i, cond := range remote {
		wg.Add(1)
		go func(i int, cond *Condition) {
			defer wg.Done()
			results[i] = e.evaluateWebhook(ctx, cond, vars)
		}(i, cond)
	}
	wg.Wait()

	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

// evaluateOr returns on the first satisfied condition. Remote conditions are
// tried one at a time to keep network calls to a minimum.
func (e *Evaluator) evaluateOr(ctx context.Context, local, remote []*Condition, vars *Variables) bool {
	for _, cond := range local {
		if EvaluateCondition(vars, cond) {
			return true
		}
	}

	for _, cond := range remote {
		if e.evaluateWebhook(ctx, cond, vars) {
			return true
		}
	}

	return false
}

// evaluateChild evaluates a bare leaf condition
func (e *Evaluator) evaluateChild(ctx context.Context, cond *Condition, vars *Variables) bool {
	if cond.On == OnWebhook {
		return e.evaluateWebhook(ctx, cond, vars)
	}
	return EvaluateCondition(vars, cond)
}

func (e *Evaluator) evaluateWebhook(ctx context.Context, cond *Condition, vars *Variables) bool {
	if e.webhooks == nil {
		e.logger.Warn("no webhook evaluator configured, webhook condition not satisfied",
			"field", cond.Field)
		return false
	}
	return e.webhooks.Evaluate(ctx, cond, vars)
}
