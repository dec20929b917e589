package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
	"github.com/vietddude/soqlguard/internal/control"
	"github.com/vietddude/soqlguard/internal/core/config"
	"github.com/vietddude/soqlguard/internal/infra/keychain"
)

var (
	cfgPath      string
	isDebug      bool
	outputFormat string

	// cfg is loaded once by the root pre-run hook.
	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "soqlguard",
	Short: "Adaptive SOQL query runner",
	Long: `soqlguard runs SOQL queries and repairs them when the service rejects
individual fields, retrying until the query succeeds or the repair budget
runs out.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		presentError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, csv, json")
}

func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	loaded, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		return err
	}
	cfg = loaded

	slogLevel := parseLevel(cfg.Logging.Level)
	if isDebug {
		slogLevel = slog.LevelDebug
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
		return nil
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newApp assembles the runtime with the OS keychain as a credential
// fallback when one is available.
func newApp(ctx context.Context, opts control.Options) (*control.App, error) {
	if opts.Keychain == nil {
		if km, err := keychain.NewManager(); err == nil {
			opts.Keychain = km
		} else {
			slog.Debug("Keychain unavailable", "error", err)
		}
	}
	return control.NewApp(ctx, cfg, opts)
}
