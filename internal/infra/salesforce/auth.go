package salesforce

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

const (
	ProductionLoginURL = "https://login.salesforce.com"
	SandboxLoginURL    = "https://test.salesforce.com"
)

// ErrNoCredentials is returned when neither a static session nor a
// username is available.
var ErrNoCredentials = errors.New("no salesforce credentials configured")

// Credentials are the inputs of a partner SOAP login.
type Credentials struct {
	LoginURL      string
	Sandbox       bool
	Username      string
	Password      string
	SecurityToken string
	APIVersion    string
}

// Endpoint returns the SOAP login URL.
func (c Credentials) Endpoint() string {
	base := c.LoginURL
	if base == "" {
		base = ProductionLoginURL
		if c.Sandbox {
			base = SandboxLoginURL
		}
	}
	version := c.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return strings.TrimRight(base, "/") + "/services/Soap/u/" + version
}

type loginEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Result struct {
				SessionID string `xml:"sessionId"`
				ServerURL string `xml:"serverUrl"`
				UserName  string `xml:"userInfo>userName"`
			} `xml:"result"`
		} `xml:"loginResponse"`
		Fault *struct {
			Code   string `xml:"faultcode"`
			String string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

func loginBody(c Credentials) ([]byte, error) {
	var user, pass bytes.Buffer
	if err := xml.EscapeText(&user, []byte(c.Username)); err != nil {
		return nil, err
	}
	if err := xml.EscapeText(&pass, []byte(c.Password+c.SecurityToken)); err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, `<?xml version="1.0" encoding="utf-8" ?>
<env:Envelope xmlns:xsd="http://www.w3.org/2001/XMLSchema"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <n1:login xmlns:n1="urn:partner.soap.sforce.com">
      <n1:username>%s</n1:username>
      <n1:password>%s</n1:password>
    </n1:login>
  </env:Body>
</env:Envelope>`, user.String(), pass.String()), nil
}

// Login performs a partner SOAP login.
func Login(ctx context.Context, client *http.Client, c Credentials) (domain.Session, error) {
	if c.Username == "" {
		return domain.Session{}, ErrNoCredentials
	}
	body, err := loginBody(c)
	if err != nil {
		return domain.Session{}, &TransportError{Kind: KindEncoding, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return domain.Session{}, &TransportError{Kind: KindEncoding, Err: fmt.Errorf("create login request: %w", err)}
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := client.Do(req)
	if err != nil {
		return domain.Session{}, classifyError(fmt.Errorf("login request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Session{}, classifyError(fmt.Errorf("read login response: %w", err))
	}

	var env loginEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return domain.Session{}, &TransportError{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: fmt.Errorf("login failed: %s", http.StatusText(resp.StatusCode))}
		}
		return domain.Session{}, &TransportError{Kind: KindEncoding, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode login response: %w", err)}
	}
	if f := env.Body.Fault; f != nil {
		return domain.Session{}, unauthorized(resp.StatusCode, []byte(f.Code+": "+f.String))
	}

	result := env.Body.Response.Result
	if result.SessionID == "" || result.ServerURL == "" {
		return domain.Session{}, &TransportError{Kind: KindEncoding, StatusCode: resp.StatusCode, Err: errors.New("login response has no session")}
	}

	username := result.UserName
	if username == "" {
		username = c.Username
	}
	return domain.Session{
		Token:       result.SessionID,
		InstanceURL: InstanceOf(result.ServerURL),
		Username:    username,
		IssuedAt:    time.Now(),
	}, nil
}

// SessionCache stores sessions across processes.
type SessionCache interface {
	GetSession(ctx context.Context, username string) (domain.Session, bool, error)
	PutSession(ctx context.Context, username string, s domain.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, username string) error
}

// Authenticator resolves the session once and then hands out the same
// session for the lifetime of the process. It never renews.
type Authenticator struct {
	creds  Credentials
	static domain.Session
	cache  SessionCache
	ttl    time.Duration
	client *http.Client
	log    *slog.Logger

	mu      sync.Mutex
	session *domain.Session
}

// NewAuthenticator creates an Authenticator. When static is valid it is
// used as-is and no login happens. cache may be nil.
func NewAuthenticator(creds Credentials, static domain.Session, cache SessionCache, ttl time.Duration, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{
		creds:  creds,
		static: static,
		cache:  cache,
		ttl:    ttl,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With("component", "auth"),
	}
}

// Session implements SessionProvider.
func (a *Authenticator) Session(ctx context.Context) (domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return *a.session, nil
	}
	if a.static.Valid() {
		a.session = &a.static
		a.log.Debug("Using static session", "instance", a.static.InstanceURL, "token", Mask(a.static.Token))
		return a.static, nil
	}
	if a.creds.Username == "" {
		return domain.Session{}, ErrNoCredentials
	}

	if a.cache != nil {
		s, ok, err := a.cache.GetSession(ctx, a.creds.Username)
		if err != nil {
			a.log.Warn("Session cache lookup failed", "error", err)
		} else if ok && s.Valid() {
			a.session = &s
			a.log.Debug("Using cached session", "username", a.creds.Username, "token", Mask(s.Token))
			return s, nil
		}
	}

	return a.login(ctx)
}

// Login always performs the partner login, skipping any static or cached
// session, and replaces the cached entry on success.
func (a *Authenticator) Login(ctx context.Context) (domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.login(ctx)
}

func (a *Authenticator) login(ctx context.Context) (domain.Session, error) {
	s, err := Login(ctx, a.client, a.creds)
	if err != nil {
		return domain.Session{}, err
	}
	a.session = &s
	a.log.Info("Logged in", "username", s.Username, "instance", s.InstanceURL)

	if a.cache != nil {
		if err := a.cache.PutSession(ctx, a.creds.Username, s, a.ttl); err != nil {
			a.log.Warn("Failed to cache session", "error", err)
		}
	}
	return s, nil
}

// Evict removes a rejected session from the cache so that the next process
// logs in again. The session held by this Authenticator is kept; it is not
// renewed. A cached entry with a different token is left alone.
func (a *Authenticator) Evict(ctx context.Context, rejected domain.Session) error {
	if a.cache == nil || a.creds.Username == "" {
		return nil
	}
	cached, ok, err := a.cache.GetSession(ctx, a.creds.Username)
	if err != nil {
		return err
	}
	if !ok || cached.Token != rejected.Token {
		return nil
	}
	a.log.Info("Evicted rejected session from cache", "username", a.creds.Username, "token", Mask(rejected.Token))
	return a.cache.DeleteSession(ctx, a.creds.Username)
}

// Forget drops the session from memory and from the cache.
func (a *Authenticator) Forget(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	if a.cache == nil || a.creds.Username == "" {
		return nil
	}
	return a.cache.DeleteSession(ctx, a.creds.Username)
}
