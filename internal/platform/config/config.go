package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Addr               string
	Environment        string
	StoreDriver        string
	DatabaseURL        string
	SQLitePath         string
	JWTSecret          string
	DirectoryURL       string
	DirectoryFile      string
	DirectoryTimeout   time.Duration
	BreakerFailures    int
	BreakerCooldown    time.Duration
	HROverrideRoles    []string
	EmailFrom          string
	EmailEnabled       bool
	SMTPHost           string
	SMTPPort           int
	SMTPUser           string
	SMTPPassword       string
	SMTPUseTLS         bool
	RunMigrations      bool
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
}

var defaults = map[string]any{
	"APP_ADDR":                   ":8080",
	"APP_ENV":                    "development",
	"STORE_DRIVER":               DriverPostgres,
	"DATABASE_URL":               "",
	"SQLITE_PATH":                "data/appraisal.db",
	"JWT_SECRET":                 "",
	"DIRECTORY_URL":              "",
	"DIRECTORY_FILE":             "",
	"DIRECTORY_TIMEOUT":          "3s",
	"DIRECTORY_BREAKER_FAILURES": 5,
	"DIRECTORY_BREAKER_COOLDOWN": "30s",
	"HR_OVERRIDE_ROLES":          "hr,admin",
	"EMAIL_FROM":                 "no-reply@example.com",
	"EMAIL_ENABLED":              false,
	"SMTP_HOST":                  "",
	"SMTP_PORT":                  587,
	"SMTP_USER":                  "",
	"SMTP_PASSWORD":              "",
	"SMTP_USE_TLS":               true,
	"RUN_MIGRATIONS":             true,
	"MAX_BODY_BYTES":             1048576,
	"RATE_LIMIT_PER_MINUTE":      60,
	"METRICS_ENABLED":            true,
}

// Load reads configuration from the environment, layered over the YAML file named
// by APP_CONFIG_FILE when it is set.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	return LoadWith(v, v.GetString("APP_CONFIG_FILE"))
}

// LoadWith reads configuration through v. Environment variables win over file values.
func LoadWith(v *viper.Viper, file string) (Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	return Config{
		Addr:               v.GetString("APP_ADDR"),
		Environment:        v.GetString("APP_ENV"),
		StoreDriver:        strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		SQLitePath:         v.GetString("SQLITE_PATH"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		DirectoryURL:       v.GetString("DIRECTORY_URL"),
		DirectoryFile:      v.GetString("DIRECTORY_FILE"),
		DirectoryTimeout:   v.GetDuration("DIRECTORY_TIMEOUT"),
		BreakerFailures:    v.GetInt("DIRECTORY_BREAKER_FAILURES"),
		BreakerCooldown:    v.GetDuration("DIRECTORY_BREAKER_COOLDOWN"),
		HROverrideRoles:    splitList(v.GetString("HR_OVERRIDE_ROLES")),
		EmailFrom:          v.GetString("EMAIL_FROM"),
		EmailEnabled:       v.GetBool("EMAIL_ENABLED"),
		SMTPHost:           v.GetString("SMTP_HOST"),
		SMTPPort:           v.GetInt("SMTP_PORT"),
		SMTPUser:           v.GetString("SMTP_USER"),
		SMTPPassword:       v.GetString("SMTP_PASSWORD"),
		SMTPUseTLS:         v.GetBool("SMTP_USE_TLS"),
		RunMigrations:      v.GetBool("RUN_MIGRATIONS"),
		MaxBodyBytes:       v.GetInt64("MAX_BODY_BYTES"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or sqlite, got %q", c.StoreDriver)
	}
	if c.Environment == "production" && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
	}
	hasURL := strings.TrimSpace(c.DirectoryURL) != ""
	hasFile := strings.TrimSpace(c.DirectoryFile) != ""
	if hasURL == hasFile {
		return fmt.Errorf("exactly one of DIRECTORY_URL or DIRECTORY_FILE must be set")
	}
	if c.DirectoryTimeout <= 0 {
		return fmt.Errorf("DIRECTORY_TIMEOUT must be positive")
	}
	if c.BreakerFailures <= 0 {
		return fmt.Errorf("DIRECTORY_BREAKER_FAILURES must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
