// Package response wraps a raw query-endpoint response and exposes its
// status, error envelope, and record payload. Accessors never fail: a body
// that cannot be read degrades to a conservative default and the problem
// is recorded as a Fault.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// FaultKind names a recoverable parse problem.
type FaultKind string

const (
	FaultMissingStatus  FaultKind = "missing_status"
	FaultBody           FaultKind = "undecodable_body"
	FaultErrorEnvelope  FaultKind = "error_envelope"
	FaultRecords        FaultKind = "records_shape"
	FaultAggregateShape FaultKind = "aggregate_shape"
)

// Fault is a recoverable problem met while reading the response.
type Fault struct {
	Kind   FaultKind
	Detail string
}

func (f Fault) String() string { return string(f.Kind) + ": " + f.Detail }

type errorEntry struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type queryEnvelope struct {
	TotalSize      *int            `json:"totalSize"`
	Done           bool            `json:"done"`
	NextRecordsURL string          `json:"nextRecordsUrl"`
	Records        []domain.Record `json:"records"`
}

// Outcome is a read-only view over one RawResponse. It is safe for
// concurrent use.
type Outcome struct {
	raw       domain.RawResponse
	queryText string
	log       *slog.Logger

	once     sync.Once
	envelope *queryEnvelope
	errors   []errorEntry

	mu     sync.Mutex
	faults []Fault
}

// New wraps raw. queryText is the statement that produced it and is only
// used for diagnostics.
func New(raw domain.RawResponse, queryText string, log *slog.Logger) *Outcome {
	if log == nil {
		log = slog.Default()
	}
	return &Outcome{
		raw:       raw,
		queryText: queryText,
		log:       log.With("component", "response"),
	}
}

// QueryText returns the statement this response answers.
func (o *Outcome) QueryText() string { return o.queryText }

// Text returns the raw body as text.
func (o *Outcome) Text() string { return string(o.raw.Body) }

// StatusCode returns the HTTP status, or 0 when the transport supplied none.
func (o *Outcome) StatusCode() int {
	if o.raw.StatusCode <= 0 {
		o.fault(FaultMissingStatus, "response carries no status code")
		return 0
	}
	return o.raw.StatusCode
}

// IsSuccess reports whether the status is 2xx.
func (o *Outcome) IsSuccess() bool {
	code := o.StatusCode()
	return code >= 200 && code < 300
}

// ErrorCode returns the machine code of the first error envelope entry,
// empty on success or when there is none.
func (o *Outcome) ErrorCode() string {
	if e, ok := o.firstError(); ok {
		return e.ErrorCode
	}
	return ""
}

// ErrorMessage returns the human-readable message of the first error
// envelope entry, empty on success or when there is none.
func (o *Outcome) ErrorMessage() string {
	if e, ok := o.firstError(); ok {
		return e.Message
	}
	return ""
}

// Records returns the decoded rows. An absent or unreadable body yields an
// empty slice. On a non-2xx response the rows are diagnostic only.
func (o *Outcome) Records() []domain.Record {
	o.decode()
	if o.envelope == nil || o.envelope.Records == nil {
		return []domain.Record{}
	}
	return o.envelope.Records
}

// RecordCount returns the service-reported totalSize, or 0.
func (o *Outcome) RecordCount() int {
	o.decode()
	if o.envelope == nil || o.envelope.TotalSize == nil {
		return 0
	}
	return *o.envelope.TotalSize
}

// Done reports the service's done flag. Pagination is not followed.
func (o *Outcome) Done() bool {
	o.decode()
	return o.envelope != nil && o.envelope.Done
}

// IsAggregateResult inspects the type tag of the first record. When there
// is no first record, or it carries no type tag, the answer is
// Indeterminate and a FaultAggregateShape is recorded.
func (o *Outcome) IsAggregateResult() domain.Tristate {
	records := o.Records()
	if len(records) == 0 {
		o.fault(FaultAggregateShape, "no first record to inspect")
		return domain.Indeterminate
	}
	typ := records[0].Attributes.Type
	if typ == "" {
		o.fault(FaultAggregateShape, "first record has no attributes.type")
		return domain.Indeterminate
	}
	return domain.TristateOf(typ == domain.AggregateResultType)
}

// Faults returns the recoverable problems recorded so far.
func (o *Outcome) Faults() []Fault {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Fault, len(o.faults))
	copy(out, o.faults)
	return out
}

// LogValue summarises the outcome for structured logs.
func (o *Outcome) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("status", o.StatusCode()),
		slog.String("error_code", o.ErrorCode()),
		slog.String("error_message", o.ErrorMessage()),
		slog.Int("record_count", o.RecordCount()),
		slog.String("query", o.queryText),
	)
}

func (o *Outcome) firstError() (errorEntry, bool) {
	if o.IsSuccess() {
		return errorEntry{}, false
	}
	o.decode()
	if len(o.errors) == 0 {
		o.fault(FaultErrorEnvelope, "no error entry in non-2xx response")
		return errorEntry{}, false
	}
	return o.errors[0], true
}

func (o *Outcome) decode() {
	o.once.Do(func() {
		body := bytes.TrimSpace(o.raw.Body)
		if len(body) == 0 {
			return
		}

		switch body[0] {
		case '[':
			var entries []errorEntry
			if err := json.Unmarshal(body, &entries); err != nil {
				o.fault(FaultErrorEnvelope, err.Error())
				return
			}
			o.errors = entries
		case '{':
			var env queryEnvelope
			if err := json.Unmarshal(body, &env); err != nil {
				o.fault(FaultRecords, err.Error())
				return
			}
			o.envelope = &env
		default:
			o.fault(FaultBody, fmt.Sprintf("body is not JSON (%d bytes)", len(body)))
		}
	})
}

func (o *Outcome) fault(kind FaultKind, detail string) {
	o.mu.Lock()
	for _, f := range o.faults {
		if f.Kind == kind {
			o.mu.Unlock()
			return
		}
	}
	o.faults = append(o.faults, Fault{Kind: kind, Detail: detail})
	o.mu.Unlock()

	o.log.Debug("Recoverable response fault",
		"kind", kind,
		"detail", detail,
		"query", o.queryText,
	)
}
