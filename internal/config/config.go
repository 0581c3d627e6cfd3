// Package config loads rfq-cli configuration from config.yaml and RFQ_*
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Questions    QuestionsConfig    `yaml:"questions" mapstructure:"questions"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Auth         AuthConfig         `yaml:"auth" mapstructure:"auth"`
	Mail         MailConfig         `yaml:"mail" mapstructure:"mail"`
	SMTP         SMTPConfig         `yaml:"smtp" mapstructure:"smtp"`
	SES          SESConfig          `yaml:"ses" mapstructure:"ses"`
	Payment      PaymentConfig      `yaml:"payment" mapstructure:"payment"`
	Redis        RedisConfig        `yaml:"redis" mapstructure:"redis"`
	Distribution DistributionConfig `yaml:"distribution" mapstructure:"distribution"`
	Notion       NotionConfig       `yaml:"notion" mapstructure:"notion"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	WizardTTLMins  int      `yaml:"wizard_ttl_mins" mapstructure:"wizard_ttl_mins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// QuestionsConfig locates the per-product question tables.
type QuestionsConfig struct {
	// Dir is a directory or http(s) URL prefix that relative source
	// references are resolved against.
	Dir           string  `yaml:"dir" mapstructure:"dir"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// CatalogConfig optionally replaces the built-in product list.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AuthConfig configures magic links and session tokens.
type AuthConfig struct {
	Secret          string `yaml:"secret" mapstructure:"secret"`
	LinkTTLMins     int    `yaml:"link_ttl_mins" mapstructure:"link_ttl_mins"`
	SessionTTLHours int    `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
	CallbackURL     string `yaml:"callback_url" mapstructure:"callback_url"`
	SignupTTLMins   int    `yaml:"signup_ttl_mins" mapstructure:"signup_ttl_mins"`
}

// MailConfig selects the mail transport.
type MailConfig struct {
	// Provider is "smtp", "ses" or "log".
	Provider string `yaml:"provider" mapstructure:"provider"`
	From     string `yaml:"from" mapstructure:"from"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// SESConfig holds Amazon SES settings. Credentials come from the default
// AWS chain.
type SESConfig struct {
	Region string `yaml:"region" mapstructure:"region"`
}

// PaymentConfig configures the payment gateway.
type PaymentConfig struct {
	ServerKey  string `yaml:"server_key" mapstructure:"server_key"`
	Production bool   `yaml:"production" mapstructure:"production"`
	FinishURL  string `yaml:"finish_url" mapstructure:"finish_url"`
	Fee        int64  `yaml:"fee" mapstructure:"fee"`
}

// RedisConfig holds the signup cache connection. An empty address keeps
// the cache in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// DistributionConfig bounds invitation fan-out.
type DistributionConfig struct {
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// NotionConfig holds the token used for notion:// question sources.
type NotionConfig struct {
	Token         string  `yaml:"token" mapstructure:"token"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// RetryConfig configures retries of transient outbound failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RFQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key needs one so env overrides reach Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "rfq.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.wizard_ttl_mins", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("questions.dir", "questions")
	v.SetDefault("questions.timeout_secs", 30)
	v.SetDefault("questions.rate_per_second", 5)
	v.SetDefault("catalog.path", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.link_ttl_mins", 15)
	v.SetDefault("auth.session_ttl_hours", 24*7)
	v.SetDefault("auth.callback_url", "http://localhost:3000/auth/callback")
	v.SetDefault("auth.signup_ttl_mins", 60)
	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", "Sanctuari <no-reply@sanctuari.in>")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("ses.region", "ap-south-1")
	v.SetDefault("payment.server_key", "")
	v.SetDefault("payment.production", false)
	v.SetDefault("payment.finish_url", "http://localhost:3000/rfq/payment/finish")
	v.SetDefault("payment.fee", 1599)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("distribution.concurrency", 5)
	v.SetDefault("distribution.rate_per_second", 10)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.rate_per_second", 3)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "serve", "migrate"
// or "import".
func (c *Config) Validate(mode string) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}
	require(c.Store.DatabaseURL != "", "store.database_url is required")

	switch mode {
	case "migrate", "import":
	case "serve":
		require(c.Server.Port > 0, "server.port must be > 0")
		require(len(c.Auth.Secret) >= 32, "auth.secret must be at least 32 characters")
		require(c.Distribution.Concurrency >= 1 && c.Distribution.Concurrency <= 50,
			"distribution.concurrency must be between 1 and 50")
		require(c.Payment.Fee > 0, "payment.fee must be > 0")
		switch c.Mail.Provider {
		case "log", "ses":
		case "smtp":
			require(c.SMTP.Host != "", "smtp.host is required for mail.provider smtp")
		default:
			problems = append(problems, fmt.Sprintf("mail.provider %q must be smtp, ses or log", c.Mail.Provider))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
