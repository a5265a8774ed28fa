package filter

import (
	"fmt"
	"regexp"
)

var (
	// validFieldPattern matches valid field paths:
	// - Must start with a letter or underscore
	// - Can contain letters, numbers, underscores
	// - Can have dot notation for nested fields
	validFieldPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)*$`)
)

// validateStep performs validation of a step definition. Runtime evaluation
// is fail-closed regardless; validation exists to reject broken definitions
// at load time instead of silently filtering every notification.
func validateStep(step *Step) error {
	if step == nil {
		return &StepValidationError{
			Field:   "step",
			Message: "step cannot be nil",
		}
	}

	if step.ID == "" {
		return &StepValidationError{
			Field:   "id",
			Message: "step id cannot be empty",
		}
	}

	if step.WorkflowID == "" {
		return &StepValidationError{
			Field:   "workflowId",
			Message: "workflow id cannot be empty",
		}
	}

	for i := range step.Filters {
		if err := validateGroup(&step.Filters[i]); err != nil {
			return &StepValidationError{
				Field:   fmt.Sprintf("filters[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

// validateGroup validates one filter group and its children
func validateGroup(group *FilterGroup) error {
	// A group with zero or one children never consults its combinator
	if len(group.Children) > 1 {
		switch group.Value {
		case CombinatorAnd, CombinatorOr:
		default:
			return fmt.Errorf("invalid combinator: %s", group.Value)
		}
	}

	for i := range group.Children {
		if err := validateCondition(&group.Children[i]); err != nil {
			return fmt.Errorf("children[%d]: %w", i, err)
		}
	}

	return nil
}

// validateCondition validates a single condition
func validateCondition(cond *Condition) error {
	if !ValidDomains[cond.On] {
		return fmt.Errorf("invalid condition domain: %s", cond.On)
	}

	if cond.Field == "" {
		return fmt.Errorf("field cannot be empty")
	}

	if !validFieldPattern.MatchString(cond.Field) {
		return fmt.Errorf("invalid field path: %s", cond.Field)
	}

	if !ValidOperators[cond.Operator] {
		return fmt.Errorf("invalid operator: %s", cond.Operator)
	}

	// A webhook condition without a URL is legal: it evaluates against an
	// absent webhook value at runtime

	return nil
}
