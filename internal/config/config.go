package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath  = "configs/config.yaml"
	defaultHTTPAddr    = ":8080"
	defaultDatabaseURL = "file:data/schoolbooking.db?_pragma=foreign_keys(1)"
	defaultJWTSecret   = "change-me-jwt-secret"
	defaultTokenTTL    = "24h"
)

type Config struct {
	App struct {
		Env  string `yaml:"env"`
		Name string `yaml:"name"`
	} `yaml:"app"`

	HTTP struct {
		Addr               string   `yaml:"addr"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"http"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret      string `yaml:"jwt_secret"`
		TokenTTL       string `yaml:"token_ttl"`
		LoginPerMinute int    `yaml:"login_per_minute"`
		LoginBurst     int    `yaml:"login_burst"`
	} `yaml:"auth"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
	} `yaml:"redis"`

	School struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"school"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Housekeeping struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
		RetentionDays   int  `yaml:"retention_days"`
	} `yaml:"housekeeping"`
}

// Load reads the YAML file at path (CONFIG_PATH or configs/config.yaml when empty),
// applies environment overrides and validates the result. A missing file is not an
// error; the service then runs on defaults plus environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getEnv("CONFIG_PATH", defaultConfigPath)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("APP_ENV")); v != "" {
		c.App.Env = v
	} else if v := strings.TrimSpace(os.Getenv("ENV")); v != "" && c.App.Env == "" {
		c.App.Env = v
	}
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Redis.Address = getEnv("REDIS_ADDR", c.Redis.Address)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.School.Timezone = getEnv("SCHOOL_TIMEZONE", c.School.Timezone)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		c.HTTP.CORSAllowedOrigins = splitCSV(v)
	}
}

func (c *Config) applyDefaults() {
	c.App.Env = strings.ToLower(strings.TrimSpace(c.App.Env))
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "schoolbooking"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	if c.HTTP.ReadTimeout == "" {
		c.HTTP.ReadTimeout = "15s"
	}
	if c.HTTP.WriteTimeout == "" {
		c.HTTP.WriteTimeout = "30s"
	}
	if len(c.HTTP.CORSAllowedOrigins) == 0 {
		c.HTTP.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Database.URL == "" {
		c.Database.URL = defaultDatabaseURL
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = defaultJWTSecret
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = defaultTokenTTL
	}
	if c.Auth.LoginPerMinute <= 0 {
		c.Auth.LoginPerMinute = 10
	}
	if c.Auth.LoginBurst <= 0 {
		c.Auth.LoginBurst = 5
	}
	if c.School.Timezone == "" {
		c.School.Timezone = "UTC"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		if isProdLike(c.App.Env) {
			c.Log.Format = "json"
		} else {
			c.Log.Format = "console"
		}
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8081
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Housekeeping.IntervalMinutes <= 0 {
		c.Housekeeping.IntervalMinutes = 60
	}
	if c.Housekeeping.RetentionDays <= 0 {
		c.Housekeeping.RetentionDays = 90
	}
}

func validateConfig(cfg *Config) error {
	if _, err := parseDuration("auth.token_ttl", cfg.Auth.TokenTTL); err != nil {
		return err
	}
	if _, err := parseDuration("http.read_timeout", cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("http.write_timeout", cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if cfg.TokenTTL() <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}
	if _, err := time.LoadLocation(cfg.School.Timezone); err != nil {
		return fmt.Errorf("invalid school.timezone %q: %w", cfg.School.Timezone, err)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be one of: json, console")
	}

	if isProdLike(cfg.App.Env) {
		if isEmptyOrDefault(cfg.Auth.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if len(cfg.Auth.JWTSecret) < 32 {
			return fmt.Errorf("in prod/release JWT_SECRET must be at least 32 characters")
		}
		for _, o := range cfg.HTTP.CORSAllowedOrigins {
			if o == "*" {
				return fmt.Errorf("in prod/release CORS_ALLOWED_ORIGINS must not contain *")
			}
		}
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.App.Env)
}

func (c *Config) TokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.TokenTTL)
	return d
}

func (c *Config) ReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.ReadTimeout)
	return d
}

func (c *Config) WriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.WriteTimeout)
	return d
}

// Location is validated by Load, so the fallback only covers hand-built configs.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.School.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	if c.Redis.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

func (c *Config) HousekeepingInterval() time.Duration {
	return time.Duration(c.Housekeeping.IntervalMinutes) * time.Minute
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Housekeeping.RetentionDays) * 24 * time.Hour
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
