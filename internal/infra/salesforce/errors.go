package salesforce

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TransportKind is the category of a failure to obtain a response.
type TransportKind string

const (
	KindNetwork      TransportKind = "network"
	KindTimeout      TransportKind = "timeout"
	KindUnauthorized TransportKind = "unauthorized"
	KindTLS          TransportKind = "tls"
	KindDNS          TransportKind = "dns"
	KindEncoding     TransportKind = "encoding"
)

// TransportError is returned when no usable response was received. It is
// never used for well-formed application error responses.
type TransportError struct {
	Kind       TransportKind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout lets callers that only know about net.Error detect timeouts.
func (e *TransportError) Timeout() bool {
	return e.Kind == KindTimeout
}

var errUnauthorized = errors.New("session rejected")

// IsKind reports whether err is a TransportError of the given kind.
func IsKind(err error, kind TransportKind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == kind
}

// classifyError wraps an error from http.Client.Do.
func classifyError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	return &TransportError{Kind: kindOf(err), Err: err}
}

func unauthorized(status int, body []byte) *TransportError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	err := errUnauthorized
	if msg != "" {
		err = fmt.Errorf("%w: %s", errUnauthorized, msg)
	}
	if status == 0 {
		status = http.StatusUnauthorized
	}
	return &TransportError{Kind: KindUnauthorized, StatusCode: status, Err: err}
}

func kindOf(err error) TransportKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return KindTLS
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return KindTLS
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "tls:") || strings.Contains(lower, "certificate") {
		return KindTLS
	}

	return KindNetwork
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
