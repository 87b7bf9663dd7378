package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	EmailSendGrid = "sendgrid"
	EmailSES      = "ses"
	EmailStub     = "stub"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	GRPCPort       string        `mapstructure:"GRPC_PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	StoreDriver    string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	MongoURI       string        `mapstructure:"MONGO_URI"`
	MongoDatabase  string        `mapstructure:"MONGO_DATABASE"`
	TokenSecret    string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	StrictSlots    bool          `mapstructure:"STRICT_SLOTS"`
	EmailProvider  string        `mapstructure:"EMAIL_PROVIDER"`
	SendGridAPIKey string        `mapstructure:"SENDGRID_API_KEY"`
	EmailFrom      string        `mapstructure:"EMAIL_FROM"`
	EmailFromName  string        `mapstructure:"EMAIL_FROM_NAME"`
	AWSRegion      string        `mapstructure:"AWS_REGION"`
	NotifyAttempts int           `mapstructure:"NOTIFY_ATTEMPTS"`
	NotifyTimeout  time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	TrustProxy     bool          `mapstructure:"TRUST_PROXY"`
}

var defaults = map[string]any{
	"PORT":             "5000",
	"GRPC_PORT":        "50051",
	"ENV":              "development",
	"LOG_LEVEL":        "info",
	"STORE_DRIVER":     DriverPostgres,
	"DB_MAX_CONNS":     10,
	"MONGO_DATABASE":   "doctors_portal",
	"TOKEN_TTL":        "1h",
	"STRICT_SLOTS":     false,
	"EMAIL_PROVIDER":   EmailStub,
	"EMAIL_FROM_NAME":  "Doctors Portal",
	"AWS_REGION":       "us-east-1",
	"NOTIFY_ATTEMPTS":  3,
	"NOTIFY_TIMEOUT":   "10s",
	"RATE_LIMIT_RPS":   5,
	"RATE_LIMIT_BURST": 10,
	"CORS_ORIGINS":     "*",
	"TRUST_PROXY":      false,
}

var keys = []string{
	"PORT", "GRPC_PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS",
	"MONGO_URI", "MONGO_DATABASE", "ACCESS_TOKEN_SECRET", "TOKEN_TTL", "STRICT_SLOTS",
	"EMAIL_PROVIDER", "SENDGRID_API_KEY", "EMAIL_FROM", "EMAIL_FROM_NAME", "AWS_REGION",
	"NOTIFY_ATTEMPTS", "NOTIFY_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ORIGINS",
	"TRUST_PROXY",
}

// Load reads the environment (a .env file is loaded by the caller) and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env values arrive as one comma separated string
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsDev switches the logger to human readable console output.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	var errs []error
	if c.TokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be postgres, mongo or memory, got %q", c.StoreDriver))
	}
	switch c.EmailProvider {
	case EmailSendGrid:
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required for the sendgrid provider"))
		}
	case EmailSES, EmailStub:
	default:
		errs = append(errs, fmt.Errorf("EMAIL_PROVIDER must be sendgrid, ses or stub, got %q", c.EmailProvider))
	}
	if c.NotifyAttempts < 1 {
		errs = append(errs, errors.New("NOTIFY_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}
