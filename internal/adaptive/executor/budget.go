package executor

import (
	"fmt"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// BudgetMode selects how the retry budget of an execution is sized.
type BudgetMode string

const (
	// BudgetFieldCount allows one repair per field of the initial query.
	BudgetFieldCount BudgetMode = "field_count"
	// BudgetFixed allows a constant number of repairs.
	BudgetFixed BudgetMode = "fixed"
)

// BudgetPolicy sizes the retry budget. Every repair removes at least one
// field, so no policy can push an execution past field count + 1 attempts.
type BudgetPolicy struct {
	Mode  BudgetMode
	Fixed int
	// Max caps the budget when positive.
	Max int
}

// DefaultBudgetPolicy grants one repair per field.
var DefaultBudgetPolicy = BudgetPolicy{Mode: BudgetFieldCount}

// Validate reports configuration errors.
func (p BudgetPolicy) Validate() error {
	switch p.Mode {
	case "", BudgetFieldCount:
	case BudgetFixed:
		if p.Fixed < 0 {
			return fmt.Errorf("fixed budget must not be negative, got %d", p.Fixed)
		}
	default:
		return fmt.Errorf("unknown budget mode %q", p.Mode)
	}
	if p.Max < 0 {
		return fmt.Errorf("max budget must not be negative, got %d", p.Max)
	}
	return nil
}

// Initial returns the budget for an execution starting with q.
func (p BudgetPolicy) Initial(q domain.Query) int {
	n := q.FieldCount()
	if p.Mode == BudgetFixed {
		n = p.Fixed
	}
	if p.Max > 0 && n > p.Max {
		n = p.Max
	}
	if n < 0 {
		n = 0
	}
	return n
}

// state is a step of the execution state machine.
type state string

const (
	stateSending     state = "sending"
	stateParsing     state = "parsing"
	stateClassifying state = "classifying"
	stateRepairing   state = "repairing"
	stateSucceeded   state = "succeeded"
	stateFailed      state = "failed"
)

// retryState is owned by a single execution.
type retryState struct {
	query  domain.Query
	budget int
	state  state
}
