package salesforce

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

// DefaultAPIVersion is used when no version is configured.
const DefaultAPIVersion = "58.0"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 32 << 20

// SessionProvider supplies the session used for every request.
type SessionProvider interface {
	Session(ctx context.Context) (domain.Session, error)
}

// SessionEvicter is implemented by providers that can drop a session the
// service rejected with 401.
type SessionEvicter interface {
	Evict(ctx context.Context, rejected domain.Session) error
}

// Config holds transport configuration.
type Config struct {
	APIVersion        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Stats summarises the requests a Transport has made.
type Stats struct {
	Requests     int           `json:"requests"`
	Failures     int           `json:"failures"`
	AvgLatency   time.Duration `json:"avg_latency"`
	LastStatus   int           `json:"last_status"`
	LastFailure  string        `json:"last_failure,omitempty"`
	LastActivity time.Time     `json:"last_activity"`
}

// Transport sends SOQL text to the REST query endpoints.
type Transport struct {
	cfg        Config
	sessions   SessionProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger

	mu           sync.RWMutex
	stats        Stats
	totalLatency time.Duration
}

// NewTransport creates a Transport. A zero RequestsPerSecond disables
// pacing.
func NewTransport(cfg Config, sessions SessionProvider, log *slog.Logger) *Transport {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Transport{
		cfg:      cfg,
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: limiter,
		log:     log.With("component", "salesforce"),
	}
}

// QueryURL returns the query endpoint URL for an instance.
func QueryURL(instanceURL, apiVersion string, endpoint domain.Endpoint) string {
	base := strings.TrimRight(InstanceOf(instanceURL), "/")
	path := "/services/data/v" + apiVersion + "/query"
	if endpoint == domain.EndpointTooling {
		path = "/services/data/v" + apiVersion + "/tooling/query"
	}
	return base + path
}

// InstanceOf cuts a server URL at /services, leaving the instance root.
func InstanceOf(serverURL string) string {
	if before, _, ok := strings.Cut(serverURL, "/services"); ok {
		return before
	}
	return serverURL
}

// Execute sends one GET request. Any HTTP status other than 401 is
// returned as a RawResponse; 401 and failures to get a response at all are
// returned as *TransportError.
func (t *Transport) Execute(ctx context.Context, endpoint domain.Endpoint, queryText string) (domain.RawResponse, error) {
	session, err := t.sessions.Session(ctx)
	if err != nil {
		return domain.RawResponse{}, t.failure(classifyAuthError(err))
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return domain.RawResponse{}, t.failure(&TransportError{Kind: KindTimeout, Err: err})
	}

	u := QueryURL(session.InstanceURL, t.cfg.APIVersion, endpoint) + "?q=" + url.QueryEscape(queryText)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.RawResponse{}, t.failure(&TransportError{Kind: KindEncoding, Err: fmt.Errorf("create request: %w", err)})
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return domain.RawResponse{}, t.failure(classifyError(fmt.Errorf("query request: %w", err)))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawResponse{}, t.failure(classifyError(fmt.Errorf("read response: %w", err)))
	}
	latency := time.Since(start)

	if resp.StatusCode == http.StatusUnauthorized {
		t.evict(ctx, session)
		return domain.RawResponse{}, t.failure(unauthorized(resp.StatusCode, body))
	}

	t.recordResponse(resp.StatusCode, latency)
	t.log.Debug("Query response",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"latency", latency,
	)

	return domain.RawResponse{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (t *Transport) evict(ctx context.Context, session domain.Session) {
	ev, ok := t.sessions.(SessionEvicter)
	if !ok {
		return
	}
	if err := ev.Evict(context.WithoutCancel(ctx), session); err != nil {
		t.log.Warn("Failed to evict rejected session", "error", err)
	}
}

// Stats returns a snapshot of request statistics.
func (t *Transport) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.stats
	if s.Requests > 0 {
		s.AvgLatency = t.totalLatency / time.Duration(s.Requests)
	}
	return s
}

func (t *Transport) recordResponse(status int, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Requests++
	t.stats.LastStatus = status
	t.stats.LastActivity = time.Now()
	t.totalLatency += latency
}

func (t *Transport) failure(te *TransportError) *TransportError {
	t.mu.Lock()
	t.stats.Failures++
	t.stats.LastFailure = string(te.Kind)
	t.stats.LastActivity = time.Now()
	if te.StatusCode > 0 {
		t.stats.LastStatus = te.StatusCode
	}
	t.mu.Unlock()

	t.log.Debug("Query transport failure", "kind", te.Kind, "error", te.Err)
	return te
}

// classifyAuthError keeps login failures that already carry a kind and
// treats anything else as an unauthorized session.
func classifyAuthError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Kind: KindUnauthorized, Err: fmt.Errorf("obtain session: %w", err)}
}
