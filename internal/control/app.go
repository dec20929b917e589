package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/soqlguard/internal/adaptive/executor"
	"github.com/vietddude/soqlguard/internal/core/config"
	"github.com/vietddude/soqlguard/internal/core/domain"
	"github.com/vietddude/soqlguard/internal/core/worker"
	"github.com/vietddude/soqlguard/internal/infra/keychain"
	redisclient "github.com/vietddude/soqlguard/internal/infra/redis"
	"github.com/vietddude/soqlguard/internal/infra/salesforce"
	"github.com/vietddude/soqlguard/internal/infra/storage"
	"github.com/vietddude/soqlguard/internal/infra/storage/memory"
	"github.com/vietddude/soqlguard/internal/infra/storage/postgres"
	"github.com/vietddude/soqlguard/internal/server"
)

// CredentialStore is the subset of the keychain used to resolve logins.
type CredentialStore interface {
	LoadCredentials() (keychain.Credentials, error)
}

// Options adjust how an App is assembled.
type Options struct {
	// Keychain is consulted when no username is configured. Nil skips it.
	Keychain CredentialStore
	// Transport replaces the Salesforce REST transport.
	Transport executor.Transport
	// SkipHistory disables the history store.
	SkipHistory bool
}

// App wires configuration to the executor and its collaborators.
type App struct {
	cfg       *config.AppConfig
	Auth      *salesforce.Authenticator
	Transport executor.Transport
	Executor  *executor.Executor
	History   storage.HistoryRepository
	db        *postgres.DB
	redis     *redisclient.Client
	log       *slog.Logger
}

// Credentials resolves login credentials: config and environment first,
// then the keychain.
func Credentials(cfg *config.AppConfig, kc CredentialStore) salesforce.Credentials {
	sf := cfg.Salesforce
	creds := salesforce.Credentials{
		LoginURL:      sf.LoginURL,
		Sandbox:       sf.Sandbox,
		Username:      sf.Username,
		Password:      sf.Password,
		SecurityToken: sf.SecurityToken,
		APIVersion:    sf.APIVersion,
	}
	if creds.Username != "" || kc == nil {
		return creds
	}

	stored, err := kc.LoadCredentials()
	if err != nil {
		if !errors.Is(err, keychain.ErrNotFound) {
			slog.Debug("Keychain lookup failed", "error", err)
		}
		return creds
	}
	creds.Username = stored.Username
	creds.Password = stored.Password
	creds.SecurityToken = stored.SecurityToken
	if creds.LoginURL == "" {
		creds.LoginURL = stored.LoginURL
	}
	creds.Sandbox = creds.Sandbox || stored.Sandbox
	return creds
}

// BudgetPolicy converts the retry section.
func BudgetPolicy(cfg config.RetryConfig) executor.BudgetPolicy {
	return executor.BudgetPolicy{
		Mode:  executor.BudgetMode(cfg.Policy),
		Fixed: cfg.FixedBudget,
		Max:   cfg.MaxBudget,
	}
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	log := slog.Default()
	a := &App{cfg: cfg, log: log}

	// 1. Session cache
	var cache salesforce.SessionCache
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, sessions will not be cached", "error", err)
		} else {
			a.redis = client
			cache = client
		}
	}

	// 2. Auth and transport
	static := domain.Session{Token: cfg.Salesforce.SessionToken, InstanceURL: cfg.Salesforce.InstanceURL}
	a.Auth = salesforce.NewAuthenticator(Credentials(cfg, opts.Keychain), static, cache, cfg.Redis.SessionTTL, log)

	a.Transport = opts.Transport
	if a.Transport == nil {
		a.Transport = salesforce.NewTransport(salesforce.Config{
			APIVersion:        cfg.Salesforce.APIVersion,
			Timeout:           cfg.Salesforce.Timeout,
			RequestsPerSecond: cfg.Salesforce.RequestsPerSecond,
			Burst:             cfg.Salesforce.Burst,
		}, a.Auth, log)
	}

	// 3. History
	if !opts.SkipHistory {
		if err := a.initHistory(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	// 4. Executor
	endpoint, ok := domain.ParseEndpoint(cfg.Salesforce.Endpoint)
	if !ok {
		a.Close()
		return nil, fmt.Errorf("unknown endpoint %q", cfg.Salesforce.Endpoint)
	}
	var execOpts []executor.Option
	if a.History != nil {
		execOpts = append(execOpts, executor.WithRecorder(storage.Recorder{Repo: a.History}))
	}
	exec, err := executor.New(executor.Config{
		Endpoint: endpoint,
		Budget:   BudgetPolicy(cfg.Retry),
	}, a.Transport, log, execOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Executor = exec

	return a, nil
}

func (a *App) initHistory(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		a.History = memory.NewHistoryRepo()
		a.log.Debug("Using in-memory history")
		return nil
	}

	db, err := postgres.NewDB(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	a.History = postgres.NewHistoryRepo(db)
	a.log.Debug("Using PostgreSQL history", "driver", a.cfg.Database.Driver)
	return nil
}

// StartWorkers launches background maintenance that lives until ctx is
// done.
func (a *App) StartWorkers(ctx context.Context) {
	if a.History != nil && a.cfg.History.Retention > 0 {
		go worker.NewPruner(a.cfg.History.Retention, a.History, a.log).Start(ctx)
	}
}

// Server builds the HTTP server over this App.
func (a *App) Server(ctx context.Context) *server.Server {
	var checks []server.Check
	if a.db != nil {
		checks = append(checks, server.Check{Name: "database", Critical: true, Probe: a.db.Health})
		a.db.StartMetricsCollector(ctx)
	}
	if a.redis != nil {
		checks = append(checks, server.Check{Name: "redis", Probe: a.redis.Ping})
	}

	deps := server.Deps{
		Runner:  a.Executor,
		History: a.History,
		Checks:  checks,
		Log:     a.log,
	}
	if t, ok := a.Transport.(*salesforce.Transport); ok {
		deps.TransportStats = func() any { return t.Stats() }
	}
	return server.NewServer(deps, a.cfg.Server.Port)
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
