// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" env:"SERVER_ADDR"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // per-request context deadline
}

type AdminConfig struct {
	Addr string `yaml:"addr" env:"ADMIN_ADDR"` // /metrics and /health
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" env:"REDIS_URL"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // profile cache entries
}

type AuthConfig struct {
	Issuer             string        `yaml:"issuer" env:"CLERK_ISSUER"`
	JWKSURL            string        `yaml:"jwks_url" env:"CLERK_JWKS_URL"`
	ClockSkew          time.Duration `yaml:"clock_skew"`
	KeyTTL             time.Duration `yaml:"key_ttl"`              // max age of a cached key set
	RefreshInterval    time.Duration `yaml:"refresh_interval"`     // background refresh, 0 disables
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval"` // throttle for unknown-kid refreshes
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	PublicPaths        []string      `yaml:"public_paths"`
}

type RazorpayConfig struct {
	KeyID     string        `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret string        `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PaymentConfig struct {
	Razorpay        RazorpayConfig `yaml:"razorpay"`
	OrderRateLimit  int            `yaml:"order_rate_limit"` // orders per user per window, 0 disables
	OrderRateWindow time.Duration  `yaml:"order_rate_window"`
	LockTTL         time.Duration  `yaml:"lock_ttl"`        // per-order settlement lease
	PendingTTL      time.Duration  `yaml:"pending_ttl"`     // PENDING orders older than this expire, 0 disables
	ExpiryInterval  time.Duration  `yaml:"expiry_interval"` // how often the expiry worker scans
}

type WebhookConfig struct {
	Secret    string        `yaml:"secret" env:"CLERK_WEBHOOK_SECRET"`
	Tolerance time.Duration `yaml:"tolerance"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Payment  PaymentConfig  `yaml:"payment"`
	Webhook  WebhookConfig  `yaml:"webhook"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies environment overrides,
// fills defaults and validates what the selected mode needs.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse is LoadConfig without the file read.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	cfg.Server.ReadTimeout = orDefault(cfg.Server.ReadTimeout, 10*time.Second)
	cfg.Server.WriteTimeout = orDefault(cfg.Server.WriteTimeout, 15*time.Second)
	cfg.Server.IdleTimeout = orDefault(cfg.Server.IdleTimeout, 60*time.Second)
	cfg.Server.RequestTimeout = orDefault(cfg.Server.RequestTimeout, 20*time.Second)
	if cfg.Admin.Addr == "" {
		cfg.Admin.Addr = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = orDefault(cfg.Redis.TTL, time.Hour)

	cfg.Auth.ClockSkew = orDefault(cfg.Auth.ClockSkew, 60*time.Second)
	cfg.Auth.KeyTTL = orDefault(cfg.Auth.KeyTTL, time.Hour)
	cfg.Auth.MinRefreshInterval = orDefault(cfg.Auth.MinRefreshInterval, 30*time.Second)
	cfg.Auth.FetchTimeout = orDefault(cfg.Auth.FetchTimeout, 5*time.Second)
	if len(cfg.Auth.PublicPaths) == 0 {
		cfg.Auth.PublicPaths = []string{"/webhooks", "/public", "/download"}
	}
	if cfg.Auth.JWKSURL == "" && cfg.Auth.Issuer != "" {
		cfg.Auth.JWKSURL = strings.TrimRight(cfg.Auth.Issuer, "/") + "/.well-known/jwks.json"
	}

	if cfg.Payment.Razorpay.BaseURL == "" {
		cfg.Payment.Razorpay.BaseURL = "https://api.razorpay.com"
	}
	cfg.Payment.Razorpay.Timeout = orDefault(cfg.Payment.Razorpay.Timeout, 15*time.Second)
	cfg.Payment.OrderRateWindow = orDefault(cfg.Payment.OrderRateWindow, time.Minute)
	cfg.Payment.LockTTL = orDefault(cfg.Payment.LockTTL, 30*time.Second)
	cfg.Payment.ExpiryInterval = orDefault(cfg.Payment.ExpiryInterval, 10*time.Minute)

	cfg.Webhook.Tolerance = orDefault(cfg.Webhook.Tolerance, 5*time.Minute)
}

// Validate checks the minimal set of fields each mode cannot run without.
func (c *Config) Validate() error {
	if c.Auth.Issuer == "" {
		return errors.New("auth.issuer is required")
	}
	if c.Payment.Razorpay.KeySecret == "" {
		return errors.New("payment.razorpay.key_secret is required")
	}
	if c.Webhook.Secret == "" {
		return errors.New("webhook.secret is required")
	}
	if c.Runtime.Dev {
		return nil
	}
	if c.Payment.Razorpay.KeyID == "" {
		return errors.New("payment.razorpay.key_id is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
