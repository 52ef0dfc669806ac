// Package config reads the server configuration from a .env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Redis struct {
	Host     string
	Password string
}

// Enabled reports whether a Redis mirror should be used.
func (r Redis) Enabled() bool { return r.Host != "" }

type Payment struct {
	Delay       time.Duration
	FailureRate float64
	SessionTTL  time.Duration
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (s SMTP) Enabled() bool { return s.Host != "" }

type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
	URLTTL    time.Duration
}

func (m MinIO) Enabled() bool { return m.Endpoint != "" }

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	JWTSecret   string
	CORSOrigins []string
	// RateLimit is the number of API requests allowed per customer and
	// minute when Redis is configured. Zero disables it.
	RateLimit int

	CatalogFile       string
	WalletsFile       string
	InstalledWallets  string
	WalletOpenCommand string

	Redis   Redis
	Payment Payment
	SMTP    SMTP
	MinIO   MinIO
}

// Load reads .env into the process environment when the file exists and
// returns whether it did. Variables already set are not overridden.
func Load(files ...string) bool {
	if len(files) == 0 {
		files = []string{".env"}
	}
	return godotenv.Load(files...) == nil
}

// FromEnv builds a Config from the environment, applying defaults.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

// FromMap is FromEnv over a fixed set of variables.
func FromMap(env map[string]string) (Config, error) {
	return fromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}
	cfg := Config{
		Port:      r.str("PORT", "8080"),
		GinMode:   r.str("GIN_MODE", "release"),
		LogLevel:  r.str("LOG_LEVEL", "info"),
		LogFormat: r.str("LOG_FORMAT", "json"),

		JWTSecret:   r.str("JWT_SECRET", ""),
		CORSOrigins: r.list("CORS_ORIGINS", []string{"*"}),
		RateLimit:   r.integer("RATE_LIMIT", 100),

		CatalogFile:       r.str("CATALOG_FILE", ""),
		WalletsFile:       r.str("WALLETS_FILE", ""),
		InstalledWallets:  r.str("INSTALLED_WALLETS", ""),
		WalletOpenCommand: r.str("WALLET_OPEN_COMMAND", ""),

		Redis: Redis{
			Host:     r.str("REDIS_HOST", ""),
			Password: r.str("REDIS_PASSWORD", ""),
		},
		Payment: Payment{
			Delay:       r.duration("PAYMENT_DELAY", 2*time.Second),
			FailureRate: r.float("PAYMENT_FAILURE_RATE", 0.1),
			SessionTTL:  r.duration("PAYMENT_SESSION_TTL", 30*time.Minute),
		},
		SMTP: SMTP{
			Host:     r.str("SMTP_HOST", ""),
			Port:     r.integer("SMTP_PORT", 587),
			Username: r.str("SMTP_USERNAME", ""),
			Password: r.str("SMTP_PASSWORD", ""),
			From:     r.str("SMTP_FROM", "no-reply@freetimemaker.shop"),
		},
		MinIO: MinIO{
			Endpoint:  r.str("MINIO_ENDPOINT", ""),
			AccessKey: r.str("MINIO_ACCESS_KEY", ""),
			SecretKey: r.str("MINIO_SECRET_KEY", ""),
			Bucket:    r.str("MINIO_BUCKET", "wallpapers"),
			UseSSL:    r.boolean("MINIO_USE_SSL", false),
			Region:    r.str("MINIO_REGION", "us-east-1"),
			URLTTL:    r.duration("DOWNLOAD_URL_TTL", time.Hour),
		},
	}

	if cfg.JWTSecret == "" {
		r.errs = append(r.errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.Payment.FailureRate < 0 || cfg.Payment.FailureRate > 1 {
		r.errs = append(r.errs, fmt.Errorf("PAYMENT_FAILURE_RATE must be within [0,1], got %v", cfg.Payment.FailureRate))
	}
	if cfg.Payment.Delay < 0 {
		r.errs = append(r.errs, fmt.Errorf("PAYMENT_DELAY must not be negative, got %s", cfg.Payment.Delay))
	}
	if cfg.Payment.SessionTTL <= 0 {
		r.errs = append(r.errs, fmt.Errorf("PAYMENT_SESSION_TTL must be positive, got %s", cfg.Payment.SessionTTL))
	}
	if cfg.RateLimit < 0 {
		r.errs = append(r.errs, fmt.Errorf("RATE_LIMIT must not be negative, got %d", cfg.RateLimit))
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		r.errs = append(r.errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat))
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) list(key string, def []string) []string {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) float(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
