package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all Credit Guardian configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Credits  CreditsConfig  `mapstructure:"credits"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Teardown TeardownConfig `mapstructure:"teardown"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	MaxBodySize  int64         `mapstructure:"max_body_size" validate:"gt=0"`
}

// CreditsConfig defines the initial credits program.
type CreditsConfig struct {
	DefaultLimitUSD        float64   `mapstructure:"default_limit_usd" validate:"gt=0"`
	AlertThresholds        []float64 `mapstructure:"alert_thresholds" validate:"dive,gt=0,lt=1"`
	EligibilityMode        string    `mapstructure:"eligibility_mode" validate:"oneof=exhausted_flag billing_status"`
	BenefitBillingAccounts []string  `mapstructure:"benefit_billing_accounts" validate:"dive,required"`
	Workers                int       `mapstructure:"workers" validate:"min=1,max=64"`
	BatchSize              int       `mapstructure:"batch_size" validate:"min=1"`
}

// AlertsConfig defines notification channels.
type AlertsConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// EmailConfig defines the user-facing mail channel.
type EmailConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key" validate:"required_if=Enabled true"`
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	FromAddress string        `mapstructure:"from_address" validate:"required_if=Enabled true,omitempty,email"`
	FromName    string        `mapstructure:"from_name"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"required_if=Enabled true,omitempty,url"`
	Secret  string `mapstructure:"secret"`
}

// TeardownConfig defines the runtime manager used to delete compute.
type TeardownConfig struct {
	BaseURL          string        `mapstructure:"base_url" validate:"omitempty,url"`
	Token            string        `mapstructure:"token"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"min=1"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Load reads configuration from a .env file, the config file and
// environment variables, then validates it.
func Load(cfgFile string) (*Config, error) {
	// A missing .env is fine; existing environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".guardian"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.path", filepath.Join(home, ".guardian", "guardian.db"))

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.max_body_size", 1<<20) // 1 MB

	v.SetDefault("credits.default_limit_usd", 300.0)
	v.SetDefault("credits.alert_thresholds", []float64{0.5, 0.75, 0.9})
	v.SetDefault("credits.eligibility_mode", "exhausted_flag")
	v.SetDefault("credits.benefit_billing_accounts", []string{})
	v.SetDefault("credits.workers", 4)
	v.SetDefault("credits.batch_size", 50)

	v.SetDefault("alerts.email.enabled", false)
	v.SetDefault("alerts.email.api_key", "")
	v.SetDefault("alerts.email.base_url", "")
	v.SetDefault("alerts.email.from_address", "")
	v.SetDefault("alerts.email.from_name", "Credit Guardian")
	v.SetDefault("alerts.email.timeout", "10s")
	v.SetDefault("alerts.slack.enabled", false)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#initial-credits")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")

	v.SetDefault("teardown.base_url", "")
	v.SetDefault("teardown.token", "")
	v.SetDefault("teardown.timeout", "30s")
	v.SetDefault("teardown.failure_threshold", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	seen := make(map[float64]struct{}, len(c.Credits.AlertThresholds))
	for _, t := range c.Credits.AlertThresholds {
		if _, dup := seen[t]; dup {
			return fmt.Errorf("validate config: duplicate alert threshold %v", t)
		}
		seen[t] = struct{}{}
	}
	return nil
}
