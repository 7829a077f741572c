package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/credit-guardian/internal/config"
	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
	"github.com/ogulcanaydogan/credit-guardian/pkg/reaper"
	"github.com/ogulcanaydogan/credit-guardian/pkg/storage"
	"github.com/ogulcanaydogan/credit-guardian/pkg/upstream"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Credit Guardian - initial credits alerts and exhaustion",
	Long: `Credit Guardian watches what users spend against their initial credits.
It warns users as they pass configured fractions of their limit and, once the
limit is exceeded, deactivates their credit-funded workspaces, tears down their
runtimes and tells them, exactly once.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.guardian/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (*storage.SQLite, error) {
	return storage.NewSQLite(cfg.Storage.Path, storage.WithEligibilityPolicy(storage.EligibilityPolicy{
		Mode:            storage.EligibilityMode(cfg.Credits.EligibilityMode),
		BillingAccounts: cfg.Credits.BenefitBillingAccounts,
	}))
}

// initNotifier combines the configured channels. Email reaches the user
// and decides delivery; Slack and webhook receive ops copies. With email
// disabled the copies decide. At least one channel is required.
func initNotifier(cfg *config.Config, logger *slog.Logger) (*alerts.Fanout, error) {
	var (
		primary alerts.Notifier
		copies  []alerts.Notifier
	)

	if cfg.Alerts.Email.Enabled {
		client := upstream.New(upstream.Settings{
			Name:      "mail",
			Timeout:   cfg.Alerts.Email.Timeout,
			UserAgent: "credit-guardian/" + Version,
			Logger:    logger,
		})
		primary = alerts.NewEmailNotifier(client, alerts.EmailConfig{
			APIKey:      cfg.Alerts.Email.APIKey,
			BaseURL:     cfg.Alerts.Email.BaseURL,
			FromAddress: cfg.Alerts.Email.FromAddress,
			FromName:    cfg.Alerts.Email.FromName,
		})
	}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		copies = append(copies, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		copies = append(copies, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	fanout := alerts.NewFanout(logger, primary, copies...)
	if fanout.Len() == 0 {
		return nil, fmt.Errorf("init notifier: %w: enable alerts.email, alerts.slack or alerts.webhook", alerts.ErrNoChannels)
	}
	if primary == nil {
		logger.Warn("alerts.email disabled, users will not be notified directly")
	}
	return fanout, nil
}

// initReaper creates the runtime teardown client. Without a base URL
// teardown is skipped and logged.
func initReaper(cfg *config.Config, logger *slog.Logger) credits.ResourceReaper {
	if cfg.Teardown.BaseURL == "" {
		logger.Warn("teardown.base_url not set, runtimes will not be deleted")
		return skipReaper{logger: logger}
	}
	client := upstream.New(upstream.Settings{
		Name:             "runtime",
		Timeout:          cfg.Teardown.Timeout,
		FailureThreshold: cfg.Teardown.FailureThreshold,
		UserAgent:        "credit-guardian/" + Version,
		Logger:           logger,
	})
	return reaper.New(client, cfg.Teardown.BaseURL, cfg.Teardown.Token, logger)
}

// engine bundles what every credits command needs.
type engine struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *storage.SQLite
	limits     *credits.LimitResolver
	thresholds credits.Thresholds
}

func newEngine() (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	limits, err := credits.NewLimitResolver(cfg.Credits.DefaultLimitUSD)
	if err != nil {
		return nil, err
	}
	thresholds, err := credits.NewThresholds(cfg.Credits.AlertThresholds...)
	if err != nil {
		return nil, err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	return &engine{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		limits:     limits,
		thresholds: thresholds,
	}, nil
}

func (e *engine) processor(observer credits.Observer) (*credits.Processor, error) {
	notifier, err := initNotifier(e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	return credits.NewProcessor(credits.ProcessorConfig{
		Users:       e.store,
		Eligibility: e.store,
		Reaper:      initReaper(e.cfg, e.logger),
		Notifier:    notifier,
		Limits:      e.limits,
		Thresholds:  e.thresholds,
		Workers:     e.cfg.Credits.Workers,
		Observer:    observer,
		Logger:      e.logger,
	}), nil
}

func (e *engine) limitManager() *credits.LimitManager {
	return credits.NewLimitManager(e.store, e.limits, e.logger)
}

func (e *engine) Close() error {
	return e.store.Close()
}

// skipReaper logs the workspaces it would have torn down.
type skipReaper struct {
	logger *slog.Logger
}

func (r skipReaper) DeleteAllResources(_ context.Context, ws model.Workspace) error {
	r.logger.Info("teardown skipped", "workspace_id", ws.ID, "google_project", ws.GoogleProject)
	return nil
}
