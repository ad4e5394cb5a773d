// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // postgres | mongo | memory
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PaymentConfig struct {
	KeySecret       string `yaml:"key_secret"`        // gateway shared secret for HMAC
	Currency        string `yaml:"currency"`          // stored on recorded transactions
	TestModeEnabled bool   `yaml:"test_mode_enabled"` // must stay false in production
	VerifyRateLimit int    `yaml:"verify_rate_limit"` // per user per minute, 0 disables
}

type EmailConfig struct {
	Provider string `yaml:"provider"` // resend | smtp | noop
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	Resend   struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"resend"`
	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"smtp"`
	AppURL string `yaml:"app_url"` // base link used in e-mail bodies
}

type NotifyConfig struct {
	Workers     int           `yaml:"workers"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

type RemindersConfig struct {
	CronSecret        string        `yaml:"cron_secret"`
	Cron              string        `yaml:"cron"` // optional in-process schedule, e.g. "@hourly"
	SendInterval      time.Duration `yaml:"send_interval"`
	SweepBudget       time.Duration `yaml:"sweep_budget"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
	ClaimTTL          time.Duration `yaml:"claim_ttl"`
	StalePendingAfter time.Duration `yaml:"stale_pending_after"`
	AuditInterval     time.Duration `yaml:"audit_interval"`
}

type AuthConfig struct {
	OperatorSecret string        `yaml:"operator_secret"` // HS256 key for operator tokens
	OperatorTTL    time.Duration `yaml:"operator_ttl"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Email     EmailConfig     `yaml:"email"`
	Notify    NotifyConfig    `yaml:"notify"`
	Reminders RemindersConfig `yaml:"reminders"`
	Auth      AuthConfig      `yaml:"auth"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path. A .env file next to the process is
// loaded first so ${VAR} references in the YAML can point at secrets.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes, defaults and validates a YAML document.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "masterclass"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "INR"
	}
	cfg.Email.Provider = strings.ToLower(strings.TrimSpace(cfg.Email.Provider))
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "noop"
	}
	if cfg.Email.Resend.BaseURL == "" {
		cfg.Email.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = 587
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.SendTimeout <= 0 {
		cfg.Notify.SendTimeout = 10 * time.Second
	}
	if cfg.Reminders.SendInterval <= 0 {
		cfg.Reminders.SendInterval = 100 * time.Millisecond
	}
	if cfg.Reminders.SweepBudget <= 0 {
		cfg.Reminders.SweepBudget = 5 * time.Minute
	}
	if cfg.Reminders.LockTTL <= 0 {
		cfg.Reminders.LockTTL = cfg.Reminders.SweepBudget + time.Minute
	}
	if cfg.Reminders.ClaimTTL <= 0 {
		cfg.Reminders.ClaimTTL = 72 * time.Hour
	}
	if cfg.Reminders.StalePendingAfter <= 0 {
		cfg.Reminders.StalePendingAfter = 30 * time.Minute
	}
	if cfg.Reminders.AuditInterval <= 0 {
		cfg.Reminders.AuditInterval = 15 * time.Minute
	}
	if cfg.Auth.OperatorTTL <= 0 {
		cfg.Auth.OperatorTTL = 30 * time.Minute
	}
}

func validate(cfg *Config) error {
	if cfg.Payment.KeySecret == "" {
		return errors.New("payment.key_secret is required")
	}
	if cfg.Reminders.CronSecret == "" {
		return errors.New("reminders.cron_secret is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case "mongo":
		if cfg.Mongo.URI == "" {
			return errors.New("mongo.uri is required")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver %q is not supported", cfg.Store.Driver)
	}
	switch cfg.Email.Provider {
	case "resend":
		if cfg.Email.Resend.APIKey == "" {
			return errors.New("email.resend.api_key is required")
		}
	case "smtp":
		if cfg.Email.SMTP.Host == "" {
			return errors.New("email.smtp.host is required")
		}
	case "noop":
	default:
		return fmt.Errorf("email.provider %q is not supported", cfg.Email.Provider)
	}
	if cfg.Email.Provider != "noop" && cfg.Email.From == "" {
		return errors.New("email.from is required")
	}
	if cfg.Payment.TestModeEnabled && cfg.Auth.OperatorSecret == "" {
		return errors.New("auth.operator_secret is required when payment.test_mode_enabled is set")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
