// Package repair rewrites a rejected query so that it can be retried.
package repair

import (
	"errors"
	"fmt"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

var (
	// ErrNotRepairable is returned for classifications with no mechanical
	// fix: object errors, query-structure errors, and unclassified errors.
	ErrNotRepairable = errors.New("no mechanical repair for classification")

	// ErrRepairMiss is returned when the reported field is not in the select
	// list. The query comes back unchanged.
	ErrRepairMiss = errors.New("reported field not in select list")
)

// Repair returns a new query that addresses c. For a field error every
// select item on that exact identifier is dropped, including aggregate
// wrappers, and the remaining order is kept. q itself is never modified.
func Repair(q domain.Query, c domain.Classification) (domain.Query, error) {
	switch c.Kind {
	case domain.ClassFieldError:
		next, removed := q.WithoutField(c.FieldName)
		if !removed {
			return q, fmt.Errorf("%w: %q", ErrRepairMiss, c.FieldName)
		}
		return next, nil
	case domain.ClassObjectError, domain.ClassQueryStructureError, domain.ClassUnclassified:
		return q, fmt.Errorf("%w: %s", ErrNotRepairable, c)
	default:
		return q, fmt.Errorf("%w: kind %q", ErrNotRepairable, c.Kind)
	}
}
