// Package executor runs a query against the remote query service and, when
// the service rejects a field, removes that field and tries again.
//
// An execution follows Sending → Parsing → Classifying → Repairing → Sending
// until it reaches Succeeded or Failed. The retry budget bounds the loop; a
// query with N fields is sent at most N+1 times.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/soqlguard/internal/adaptive/classify"
	"github.com/vietddude/soqlguard/internal/adaptive/metrics"
	"github.com/vietddude/soqlguard/internal/adaptive/repair"
	"github.com/vietddude/soqlguard/internal/adaptive/response"
	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/soql"
)

var (
	// ErrEmptyObject is returned for a query without an object name.
	ErrEmptyObject = errors.New("query has no object")

	// ErrUnauthorized marks a 401 response. The session is never renewed
	// here; the caller decides whether to log in again.
	ErrUnauthorized = errors.New("session rejected by query service")
)

// Transport sends query text to an endpoint. A non-nil error means no
// well-formed response was received.
type Transport interface {
	Execute(ctx context.Context, endpoint domain.Endpoint, queryText string) (domain.RawResponse, error)
}

// Recorder persists terminal results.
type Recorder interface {
	Record(ctx context.Context, result *domain.ExecutionResult) error
}

// ClassifyFunc decides what a failed outcome means.
type ClassifyFunc func(classify.Outcome) domain.Classification

// RepairFunc rewrites a query for a classification.
type RepairFunc func(domain.Query, domain.Classification) (domain.Query, error)

// Config holds executor configuration.
type Config struct {
	Endpoint domain.Endpoint
	Budget   BudgetPolicy
}

// Option customises an Executor.
type Option func(*Executor)

// WithClassifier replaces the default pattern-table classifier.
func WithClassifier(fn ClassifyFunc) Option {
	return func(e *Executor) { e.classify = fn }
}

// WithRepairer replaces the default field-removal repairer.
func WithRepairer(fn RepairFunc) Option {
	return func(e *Executor) { e.repair = fn }
}

// WithRecorder stores every terminal result.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// Executor is safe for concurrent use; each execution owns its own state.
type Executor struct {
	cfg       Config
	transport Transport
	classify  ClassifyFunc
	repair    RepairFunc
	recorder  Recorder
	log       *slog.Logger
	now       func() time.Time
}

// New creates an Executor.
func New(cfg Config, transport Transport, log *slog.Logger, opts ...Option) (*Executor, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if err := cfg.Budget.Validate(); err != nil {
		return nil, fmt.Errorf("invalid budget policy: %w", err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = domain.EndpointData
	}
	if cfg.Budget.Mode == "" {
		cfg.Budget.Mode = BudgetFieldCount
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "executor")

	e := &Executor{
		cfg:       cfg,
		transport: transport,
		classify:  classify.New(log).Classify,
		repair:    repair.Repair,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExecuteAdaptive runs q against the configured endpoint.
func (e *Executor) ExecuteAdaptive(ctx context.Context, q domain.Query) (*domain.ExecutionResult, error) {
	return e.ExecuteOn(ctx, e.cfg.Endpoint, q)
}

// ExecuteText parses text and runs it against endpoint.
func (e *Executor) ExecuteText(ctx context.Context, endpoint domain.Endpoint, text string) (*domain.ExecutionResult, error) {
	q, err := soql.Parse(text)
	if err != nil {
		return nil, err
	}
	return e.ExecuteOn(ctx, endpoint, q)
}

// ExecuteOn runs q against endpoint. The error is non-nil only for input
// that cannot be sent at all; every other outcome, including transport
// failures, is described by the returned result.
func (e *Executor) ExecuteOn(ctx context.Context, endpoint domain.Endpoint, q domain.Query) (*domain.ExecutionResult, error) {
	if q.Object() == "" {
		return nil, ErrEmptyObject
	}
	if endpoint == "" {
		endpoint = e.cfg.Endpoint
	}

	res := e.run(ctx, endpoint, q)

	metrics.ExecutionsTotal.WithLabelValues(string(endpoint), string(res.Kind)).Inc()
	metrics.AttemptsPerExecution.Observe(float64(res.AttemptsUsed))

	if e.recorder != nil {
		if err := e.recorder.Record(context.WithoutCancel(ctx), res); err != nil {
			e.log.Warn("Failed to record execution", "id", res.ID, "error", err)
		}
	}
	return res, nil
}

func (e *Executor) run(ctx context.Context, endpoint domain.Endpoint, q domain.Query) *domain.ExecutionResult {
	st := &retryState{query: q, budget: e.cfg.Budget.Initial(q)}
	res := &domain.ExecutionResult{
		ID:               uuid.NewString(),
		Endpoint:         string(endpoint),
		InitialQueryText: q.Text(),
		Records:          []domain.Record{},
		StartedAt:        e.now(),
	}
	log := e.log.With("execution_id", res.ID, "endpoint", endpoint)
	log.Debug("Starting execution", "query", res.InitialQueryText, "budget", st.budget)

	for {
		attempt := domain.Attempt{Number: len(res.Trail) + 1, QueryText: st.query.Text()}
		e.enter(log, st, stateSending, "attempt", attempt.Number, "query", attempt.QueryText)

		raw, err := e.send(ctx, endpoint, attempt.QueryText, &attempt)
		if err == nil && raw.StatusCode == http.StatusUnauthorized {
			attempt.StatusCode = raw.StatusCode
			err = fmt.Errorf("%w: status %d", ErrUnauthorized, raw.StatusCode)
		}
		if err != nil {
			res.Trail = append(res.Trail, attempt)
			return e.finishTransport(ctx, log, res, st, err)
		}

		e.enter(log, st, stateParsing, "status", raw.StatusCode)
		outcome := response.New(raw, attempt.QueryText, log)
		attempt.StatusCode = outcome.StatusCode()

		if outcome.IsSuccess() {
			res.Trail = append(res.Trail, attempt)
			res.Records = outcome.Records()
			res.RecordCount = outcome.RecordCount()
			res.Done = outcome.Done()
			if len(res.Records) > 0 {
				res.Aggregate = outcome.IsAggregateResult()
			}
			countFaults(outcome)
			e.enter(log, st, stateSucceeded, "records", len(res.Records))
			return e.finish(log, res, st, domain.OutcomeSucceeded, nil)
		}

		e.enter(log, st, stateClassifying, "error_code", outcome.ErrorCode())
		c := e.classify(outcome)
		countFaults(outcome)
		attempt.ErrorCode = outcome.ErrorCode()
		attempt.ErrorMessage = outcome.ErrorMessage()
		attempt.Classification = &c
		res.Classification = &c
		metrics.ClassificationsTotal.WithLabelValues(string(c.Kind), c.Rule).Inc()

		if c.Kind != domain.ClassFieldError {
			attempt.Repair = domain.RepairNotPossible
			return e.fail(log, res, st, attempt)
		}
		if st.budget <= 0 {
			attempt.Repair = domain.RepairBudgetSpent
			return e.fail(log, res, st, attempt)
		}

		e.enter(log, st, stateRepairing, "field", c.FieldName, "budget", st.budget)
		next, rerr := e.repair(st.query, c)
		st.budget--
		switch {
		case errors.Is(rerr, repair.ErrRepairMiss):
			attempt.Repair = domain.RepairMiss
			return e.fail(log, res, st, attempt)
		case rerr != nil:
			attempt.Repair = domain.RepairNotPossible
			return e.fail(log, res, st, attempt)
		case next.FieldCount() >= st.query.FieldCount():
			// A repairer that keeps the field count could loop forever.
			attempt.Repair = domain.RepairMiss
			return e.fail(log, res, st, attempt)
		}

		attempt.Repair = domain.RepairRemovedField
		attempt.RemovedField = c.FieldName
		metrics.RepairsTotal.WithLabelValues(string(attempt.Repair)).Inc()
		res.Trail = append(res.Trail, attempt)
		res.RemovedFields = append(res.RemovedFields, c.FieldName)
		log.Info("Removed rejected field", "field", c.FieldName, "remaining", next.FieldCount(), "budget", st.budget)
		st.query = next
	}
}

func (e *Executor) send(ctx context.Context, endpoint domain.Endpoint, text string, attempt *domain.Attempt) (domain.RawResponse, error) {
	metrics.AttemptsTotal.WithLabelValues(string(endpoint)).Inc()
	start := time.Now()
	raw, err := e.transport.Execute(ctx, endpoint, text)
	attempt.Latency = time.Since(start)
	metrics.RoundTripLatency.WithLabelValues(string(endpoint)).Observe(attempt.Latency.Seconds())
	return raw, err
}

func (e *Executor) enter(log *slog.Logger, st *retryState, next state, args ...any) {
	log.Debug("Execution state", append([]any{"from", st.state, "to", next}, args...)...)
	st.state = next
}

func (e *Executor) fail(log *slog.Logger, res *domain.ExecutionResult, st *retryState, attempt domain.Attempt) *domain.ExecutionResult {
	if attempt.Repair != domain.RepairNone {
		metrics.RepairsTotal.WithLabelValues(string(attempt.Repair)).Inc()
	}
	res.Trail = append(res.Trail, attempt)
	e.enter(log, st, stateFailed, "repair", attempt.Repair)
	return e.finish(log, res, st, domain.OutcomeFailed, nil)
}

func (e *Executor) finishTransport(ctx context.Context, log *slog.Logger, res *domain.ExecutionResult, st *retryState, err error) *domain.ExecutionResult {
	kind := domain.OutcomeTransportFailure
	if isTimeout(ctx, err) {
		kind = domain.OutcomeTimeout
	}
	e.enter(log, st, stateFailed, "error", err)
	return e.finish(log, res, st, kind, err)
}

func (e *Executor) finish(log *slog.Logger, res *domain.ExecutionResult, st *retryState, kind domain.OutcomeKind, err error) *domain.ExecutionResult {
	res.Kind = kind
	res.Succeeded = kind == domain.OutcomeSucceeded
	res.FinalQueryText = st.query.Text()
	res.FinalFields = st.query.FieldNames()
	res.AttemptsUsed = len(res.Trail)
	res.Duration = e.now().Sub(res.StartedAt)
	res.Err = err

	switch {
	case err != nil:
		res.Error = err.Error()
	case !res.Succeeded && res.Classification != nil:
		res.Error = res.Classification.String()
	}

	if res.Succeeded {
		log.Info("Execution succeeded",
			"attempts", res.AttemptsUsed,
			"records", res.RecordCount,
			"removed", res.RemovedFields,
		)
	} else {
		log.Warn("Execution failed",
			"kind", res.Kind,
			"attempts", res.AttemptsUsed,
			"error", res.Error,
		)
	}
	return res
}

// isTimeout reports whether err means no answer arrived in time, as
// opposed to the service refusing the request.
func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func countFaults(o *response.Outcome) {
	for _, f := range o.Faults() {
		metrics.ParseFaultsTotal.WithLabelValues(string(f.Kind)).Inc()
	}
}
