// Package server exposes adaptive query execution over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/infra/storage"
)

const maxRequestBytes = 1 << 20

// QueryRunner runs query text adaptively.
type QueryRunner interface {
	ExecuteText(ctx context.Context, endpoint domain.Endpoint, text string) (*domain.ExecutionResult, error)
}

// Deps are the collaborators of the server. History, Checks, and
// TransportStats are optional.
type Deps struct {
	Runner         QueryRunner
	History        storage.HistoryRepository
	Checks         []Check
	TransportStats func() any
	Log            *slog.Logger
}

// Server provides the query API plus health and metrics endpoints.
type Server struct {
	deps   Deps
	server *http.Server
	log    *slog.Logger
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query    string `json:"query"`
	Endpoint string `json:"endpoint,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new server listening on port.
func NewServer(deps Deps, port int) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	s := &Server{deps: deps, log: log.With("component", "server")}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /executions", s.handleExecutions)
	mux.HandleFunc("GET /executions/{id}", s.handleExecution)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	var endpoint domain.Endpoint
	if req.Endpoint != "" {
		e, ok := domain.ParseEndpoint(req.Endpoint)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown endpoint %q", req.Endpoint)})
			return
		}
		endpoint = e
	}

	res, err := s.deps.Runner.ExecuteText(r.Context(), endpoint, req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, statusFor(res.Kind), res)
}

// statusFor maps a terminal outcome to an HTTP status. Application
// failures are a successful API call that reports a failed execution.
func statusFor(kind domain.OutcomeKind) int {
	switch kind {
	case domain.OutcomeTransportFailure:
		return http.StatusBadGateway
	case domain.OutcomeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusOK
	}
}

func (s *Server) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history is disabled"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	items, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("Failed to list executions", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list executions"})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleExecution(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history is disabled"})
		return
	}
	e, err := s.deps.History.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrExecutionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.log.Error("Failed to get execution", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get execution"})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := runChecks(r.Context(), s.deps.Checks)
	status := http.StatusOK
	if report.SystemStatus == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := runChecks(r.Context(), s.deps.Checks)
	if s.deps.TransportStats != nil {
		report.Transport = s.deps.TransportStats()
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
