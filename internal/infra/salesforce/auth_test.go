package salesforce

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/soqlguard/internal/core/domain"
)

const loginOK = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns="urn:partner.soap.sforce.com">
 <soapenv:Body>
  <loginResponse>
   <result>
    <serverUrl>https://na1.my.salesforce.com/services/Soap/u/58.0/00D000000000001</serverUrl>
    <sessionId>00D000000000001!AQ0AQ</sessionId>
    <userInfo><userName>ada@example.com</userName></userInfo>
   </result>
  </loginResponse>
 </soapenv:Body>
</soapenv:Envelope>`

const loginFault = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
 <soapenv:Body>
  <soapenv:Fault>
   <faultcode>INVALID_LOGIN</faultcode>
   <faultstring>INVALID_LOGIN: Invalid username, password, security token; or user locked out.</faultstring>
  </soapenv:Fault>
 </soapenv:Body>
</soapenv:Envelope>`

func TestCredentialsEndpoint(t *testing.T) {
	tests := []struct {
		creds Credentials
		want  string
	}{
		{Credentials{}, "https://login.salesforce.com/services/Soap/u/58.0"},
		{Credentials{Sandbox: true}, "https://test.salesforce.com/services/Soap/u/58.0"},
		{Credentials{LoginURL: "https://acme.my.salesforce.com/", APIVersion: "61.0"}, "https://acme.my.salesforce.com/services/Soap/u/61.0"},
	}
	for _, tt := range tests {
		if got := tt.creds.Endpoint(); got != tt.want {
			t.Errorf("Endpoint(%+v) = %q, want %q", tt.creds, got, tt.want)
		}
	}
}

func TestLogin(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/Soap/u/58.0" || r.Header.Get("SOAPAction") != "login" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("SOAPAction"))
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		io.WriteString(w, loginOK)
	}))
	defer srv.Close()

	creds := Credentials{LoginURL: srv.URL, Username: "ada@example.com", Password: "p<w>&", SecurityToken: "TOK"}
	s, err := Login(context.Background(), srv.Client(), creds)
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if s.Token != "00D000000000001!AQ0AQ" {
		t.Errorf("Token = %q", s.Token)
	}
	if s.InstanceURL != "https://na1.my.salesforce.com" {
		t.Errorf("InstanceURL = %q", s.InstanceURL)
	}
	if s.Username != "ada@example.com" {
		t.Errorf("Username = %q", s.Username)
	}
	if !strings.Contains(body, "<n1:password>p&lt;w&gt;&amp;TOK</n1:password>") {
		t.Errorf("password not escaped in body:\n%s", body)
	}
}

func TestLoginFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, loginFault)
	}))
	defer srv.Close()

	_, err := Login(context.Background(), srv.Client(), Credentials{LoginURL: srv.URL, Username: "ada"})
	if !IsKind(err, KindUnauthorized) {
		t.Fatalf("Login() error = %v, want unauthorized", err)
	}
	if !strings.Contains(err.Error(), "INVALID_LOGIN") {
		t.Errorf("error %q does not carry the fault code", err)
	}
}

func TestLoginRequiresUsername(t *testing.T) {
	if _, err := Login(context.Background(), http.DefaultClient, Credentials{}); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Login() error = %v, want ErrNoCredentials", err)
	}
}

type mapCache struct {
	sessions map[string]domain.Session
	puts     int
}

func (c *mapCache) GetSession(_ context.Context, username string) (domain.Session, bool, error) {
	s, ok := c.sessions[username]
	return s, ok, nil
}

func (c *mapCache) PutSession(_ context.Context, username string, s domain.Session, _ time.Duration) error {
	c.sessions[username] = s
	c.puts++
	return nil
}

func (c *mapCache) DeleteSession(_ context.Context, username string) error {
	delete(c.sessions, username)
	return nil
}

func TestAuthenticator(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		io.WriteString(w, loginOK)
	}))
	defer srv.Close()

	creds := Credentials{LoginURL: srv.URL, Username: "ada@example.com", Password: "pw"}
	ctx := context.Background()

	static := domain.Session{Token: "static", InstanceURL: "https://static.example.com"}
	a := NewAuthenticator(creds, static, nil, time.Hour, nil)
	if s, err := a.Session(ctx); err != nil || s.Token != "static" {
		t.Errorf("static Session() = %v, %v", s, err)
	}
	if logins.Load() != 0 {
		t.Errorf("static session triggered %d logins", logins.Load())
	}

	cache := &mapCache{sessions: map[string]domain.Session{}}
	a = NewAuthenticator(creds, domain.Session{}, cache, time.Hour, nil)
	for range 3 {
		if _, err := a.Session(ctx); err != nil {
			t.Fatalf("Session() error: %v", err)
		}
	}
	if logins.Load() != 1 || cache.puts != 1 {
		t.Errorf("logins=%d puts=%d, want 1 and 1", logins.Load(), cache.puts)
	}

	b := NewAuthenticator(creds, domain.Session{}, cache, time.Hour, nil)
	if s, err := b.Session(ctx); err != nil || s.Token != "00D000000000001!AQ0AQ" {
		t.Errorf("cached Session() = %v, %v", s, err)
	}
	if logins.Load() != 1 {
		t.Errorf("cached session triggered a login")
	}

	if err := b.Forget(ctx); err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	if _, ok := cache.sessions[creds.Username]; ok {
		t.Error("Forget() left the cached session")
	}

	none := NewAuthenticator(Credentials{}, domain.Session{}, nil, 0, nil)
	if _, err := none.Session(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Session() error = %v, want ErrNoCredentials", err)
	}
}

func TestAuthenticatorLoginSkipsCache(t *testing.T) {
	var logins atomic.Int32
	var accept atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		if accept.Load() {
			io.WriteString(w, loginOK)
			return
		}
		io.WriteString(w, loginFault)
	}))
	defer srv.Close()

	ctx := context.Background()
	creds := Credentials{LoginURL: srv.URL, Username: "ada@example.com", Password: "wrong"}
	stale := domain.Session{Token: "expired", InstanceURL: "https://na1.my.salesforce.com"}
	cache := &mapCache{sessions: map[string]domain.Session{creds.Username: stale}}

	a := NewAuthenticator(creds, domain.Session{}, cache, time.Hour, nil)
	if _, err := a.Login(ctx); !IsKind(err, KindUnauthorized) {
		t.Fatalf("Login() error = %v, want unauthorized", err)
	}
	if logins.Load() != 1 {
		t.Errorf("login requests = %d, want 1", logins.Load())
	}
	if cache.sessions[creds.Username].Token != "expired" {
		t.Error("failed Login() changed the cache")
	}

	accept.Store(true)
	s, err := a.Login(ctx)
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if s.Token != "00D000000000001!AQ0AQ" || cache.sessions[creds.Username].Token != s.Token {
		t.Errorf("Login() = %q, cached %q", s.Token, cache.sessions[creds.Username].Token)
	}
	if got, _ := a.Session(ctx); got.Token != s.Token {
		t.Errorf("Session() after Login() = %q, want %q", got.Token, s.Token)
	}
}

func TestAuthenticatorEvict(t *testing.T) {
	ctx := context.Background()
	creds := Credentials{Username: "ada@example.com"}
	stale := domain.Session{Token: "expired", InstanceURL: "https://na1.my.salesforce.com"}

	tests := []struct {
		name     string
		cached   string
		rejected string
		wantKept bool
	}{
		{"same token", "expired", "expired", false},
		{"newer token in cache", "fresh", "expired", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &mapCache{sessions: map[string]domain.Session{
				creds.Username: {Token: tt.cached, InstanceURL: stale.InstanceURL},
			}}
			a := NewAuthenticator(creds, domain.Session{}, cache, time.Hour, nil)
			if err := a.Evict(ctx, domain.Session{Token: tt.rejected}); err != nil {
				t.Fatalf("Evict() error: %v", err)
			}
			if _, ok := cache.sessions[creds.Username]; ok != tt.wantKept {
				t.Errorf("cached entry kept = %v, want %v", ok, tt.wantKept)
			}
		})
	}

	cache := &mapCache{sessions: map[string]domain.Session{creds.Username: stale}}
	a := NewAuthenticator(creds, domain.Session{}, cache, time.Hour, nil)
	if s, err := a.Session(ctx); err != nil || s.Token != "expired" {
		t.Fatalf("Session() = %v, %v", s, err)
	}
	_ = a.Evict(ctx, stale)
	if s, _ := a.Session(ctx); s.Token != "expired" {
		t.Errorf("Evict() renewed the in-process session: %q", s.Token)
	}
}
