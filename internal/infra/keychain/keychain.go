// Package keychain stores query-service credentials in the OS credential
// store so that they do not have to live in config files.
package keychain

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our namespace in the credential store.
const ServiceName = "soqlguard"

const keyCredentials = "salesforce_credentials"

// ErrNotFound is returned when nothing has been stored yet.
var ErrNotFound = errors.New("no credentials in keychain")

// Credentials are the secrets written by the login command.
type Credentials struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	SecurityToken string `json:"security_token,omitempty"`
	LoginURL      string `json:"login_url,omitempty"`
	Sandbox       bool   `json:"sandbox,omitempty"`
}

// Manager provides thread-safe access to the credential store.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the native credential store for this platform.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

func openRing() (keyring.Keyring, error) {
	var backends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		backends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		backends = []keyring.BackendType{keyring.WinCredBackend}
	default:
		backends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: backends,
		PassPrefix:      ServiceName,
		WinCredPrefix:   ServiceName,
	}
	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return ring, nil
}

// SaveCredentials replaces the stored credentials.
func (m *Manager) SaveCredentials(c Credentials) error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{
		Key:         keyCredentials,
		Data:        data,
		Label:       ServiceName + " credentials",
		Description: "Salesforce login for " + c.Username,
	})
}

// LoadCredentials returns the stored credentials or ErrNotFound.
func (m *Manager) LoadCredentials() (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(keyCredentials)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, err
	}
	if len(it.Data) == 0 {
		return Credentials{}, ErrNotFound
	}

	var c Credentials
	if err := json.Unmarshal(it.Data, &c); err != nil {
		return Credentials{}, fmt.Errorf("decode stored credentials: %w", err)
	}
	return c, nil
}

// Clear removes the stored credentials. Missing entries are not an error.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ring.Remove(keyCredentials); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
