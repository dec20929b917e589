package domain

import (
	"encoding/json"
	"time"
)

// OutcomeKind is the terminal state of an adaptive execution.
type OutcomeKind string

const (
	OutcomeSucceeded        OutcomeKind = "succeeded"
	OutcomeFailed           OutcomeKind = "failed"
	OutcomeTransportFailure OutcomeKind = "transport_failure"
	OutcomeTimeout          OutcomeKind = "timeout"
)

// Tristate is a boolean that may be undetermined.
type Tristate int

const (
	Indeterminate Tristate = iota
	False
	True
)

func TristateOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "indeterminate"
	}
}

// MarshalJSON encodes Indeterminate as null.
func (t Tristate) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *Tristate) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b == nil {
		*t = Indeterminate
	} else {
		*t = TristateOf(*b)
	}
	return nil
}

// RepairAction records what the repairer did after an attempt.
type RepairAction string

const (
	RepairNone         RepairAction = ""
	RepairRemovedField RepairAction = "removed_field"
	RepairMiss         RepairAction = "miss"
	RepairNotPossible  RepairAction = "not_repairable"
	RepairBudgetSpent  RepairAction = "budget_exhausted"
)

// Attempt is one entry of the diagnostic trail.
type Attempt struct {
	Number         int             `json:"number"`
	QueryText      string          `json:"query"`
	StatusCode     int             `json:"status_code"`
	ErrorCode      string          `json:"error_code,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	Classification *Classification `json:"classification,omitempty"`
	Repair         RepairAction    `json:"repair,omitempty"`
	RemovedField   string          `json:"removed_field,omitempty"`
	Latency        time.Duration   `json:"latency"`
}

// ExecutionResult is what a caller always receives from an adaptive run.
type ExecutionResult struct {
	ID               string          `json:"id"`
	Endpoint         string          `json:"endpoint"`
	Kind             OutcomeKind     `json:"kind"`
	Succeeded        bool            `json:"succeeded"`
	InitialQueryText string          `json:"initial_query"`
	FinalQueryText   string          `json:"final_query"`
	FinalFields      []string        `json:"final_fields"`
	Records          []Record        `json:"records"`
	RecordCount      int             `json:"record_count"`
	Done             bool            `json:"done"`
	Aggregate        Tristate        `json:"aggregate"`
	Classification   *Classification `json:"classification,omitempty"`
	AttemptsUsed     int             `json:"attempts_used"`
	RemovedFields    []string        `json:"removed_fields,omitempty"`
	Trail            []Attempt       `json:"trail"`
	Error            string          `json:"error,omitempty"`
	StartedAt        time.Time       `json:"started_at"`
	Duration         time.Duration   `json:"duration"`

	// Err carries the transport or context error for non-application
	// failures.
	Err error `json:"-"`
}
