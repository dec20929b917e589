package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/infra/storage"
	"github.com/vietddude/soqlguard/internal/infra/storage/memory"
)

type fakeRunner struct {
	endpoint domain.Endpoint
	text     string
	kind     domain.OutcomeKind
	err      error
}

func (f *fakeRunner) ExecuteText(_ context.Context, endpoint domain.Endpoint, text string) (*domain.ExecutionResult, error) {
	f.endpoint, f.text = endpoint, text
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ExecutionResult{
		ID:             "exec-1",
		Kind:           f.kind,
		Succeeded:      f.kind == domain.OutcomeSucceeded,
		FinalQueryText: text,
		Records:        []domain.Record{},
	}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		kind     domain.OutcomeKind
		err      error
		status   int
		endpoint domain.Endpoint
	}{
		{"success", `{"query":"SELECT Id FROM Account"}`, domain.OutcomeSucceeded, nil, 200, ""},
		{"tooling", `{"query":"SELECT Id FROM ApexClass","endpoint":"tooling"}`, domain.OutcomeSucceeded, nil, 200, domain.EndpointTooling},
		{"failed execution", `{"query":"SELECT Id FROM Bad"}`, domain.OutcomeFailed, nil, 200, ""},
		{"transport failure", `{"query":"SELECT Id FROM Account"}`, domain.OutcomeTransportFailure, nil, 502, ""},
		{"timeout", `{"query":"SELECT Id FROM Account"}`, domain.OutcomeTimeout, nil, 504, ""},
		{"parse error", `{"query":"DELETE Account"}`, "", errors.New("not a SELECT statement"), 400, ""},
		{"empty query", `{"query":""}`, "", nil, 400, ""},
		{"bad endpoint", `{"query":"SELECT Id FROM A","endpoint":"metadata"}`, "", nil, 400, ""},
		{"bad json", `{"query":`, "", nil, 400, ""},
		{"unknown field", `{"query":"SELECT Id FROM A","q":1}`, "", nil, 400, ""},
	}

	for _, tt := range tests {
		runner := &fakeRunner{kind: tt.kind, err: tt.err}
		s := NewServer(Deps{Runner: runner}, 0)

		rec := do(t, s.Handler(), http.MethodPost, "/query", tt.body)
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.status, rec.Body)
			continue
		}
		if rec.Code != 200 && tt.kind == "" {
			continue
		}
		var res domain.ExecutionResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Errorf("%s: decode body: %v", tt.name, err)
			continue
		}
		if res.Kind != tt.kind {
			t.Errorf("%s: kind = %s, want %s", tt.name, res.Kind, tt.kind)
		}
		if runner.endpoint != tt.endpoint {
			t.Errorf("%s: endpoint = %q, want %q", tt.name, runner.endpoint, tt.endpoint)
		}
	}
}

func TestExecutions(t *testing.T) {
	repo := memory.NewHistoryRepo()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = repo.Save(ctx, storage.Execution{ID: id})
	}
	h := NewServer(Deps{Runner: &fakeRunner{}, History: repo}, 0).Handler()

	rec := do(t, h, http.MethodGet, "/executions?limit=2", "")
	var items []storage.Execution
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil || len(items) != 2 || items[0].ID != "c" {
		t.Errorf("GET /executions = %d %s", rec.Code, rec.Body)
	}

	if rec := do(t, h, http.MethodGet, "/executions?limit=x", ""); rec.Code != 400 {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/executions/b", ""); rec.Code != 200 {
		t.Errorf("GET /executions/b status = %d, want 200", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/executions/zzz", ""); rec.Code != 404 {
		t.Errorf("GET /executions/zzz status = %d, want 404", rec.Code)
	}

	noHistory := NewServer(Deps{Runner: &fakeRunner{}}, 0).Handler()
	if rec := do(t, noHistory, http.MethodGet, "/executions", ""); rec.Code != 404 {
		t.Errorf("history disabled status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		checks []Check
		status int
		want   SystemStatus
	}{
		{"no checks", nil, 200, StatusHealthy},
		{"all ok", []Check{{Name: "db", Critical: true, Probe: ok}}, 200, StatusHealthy},
		{"degraded", []Check{{Name: "redis", Probe: down}, {Name: "db", Critical: true, Probe: ok}}, 200, StatusDegraded},
		{"critical", []Check{{Name: "redis", Probe: down}, {Name: "db", Critical: true, Probe: down}}, 503, StatusCritical},
	}

	for _, tt := range tests {
		h := NewServer(Deps{Runner: &fakeRunner{}, Checks: tt.checks}, 0).Handler()
		rec := do(t, h, http.MethodGet, "/health", "")
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["status"] != string(tt.want) {
			t.Errorf("%s: body status = %q, want %q", tt.name, body["status"], tt.want)
		}
	}
}

func TestHealthDetailedAndMetrics(t *testing.T) {
	h := NewServer(Deps{
		Runner:         &fakeRunner{},
		TransportStats: func() any { return map[string]int{"requests": 3} },
	}, 0).Handler()

	rec := do(t, h, http.MethodGet, "/health/detailed", "")
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), `"requests":3`) {
		t.Errorf("GET /health/detailed = %d %s", rec.Code, rec.Body)
	}

	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != 200 {
		t.Errorf("GET /metrics status = %d, want 200", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/query", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /query status = %d, want 405", rec.Code)
	}
}
