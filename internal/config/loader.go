package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the service configuration after defaults, the optional
// YAML file and the environment have been applied in that order.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret"`
	TokenTTL  Duration `yaml:"token_ttl"`
}

// RedisConfig enables the shared revocation list when Addr is set.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Duration accepts Go duration strings such as "24h" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// ConfigFileEnv names the environment variable that points at the YAML file.
const ConfigFileEnv = "COUNSELING_CONFIG_FILE"

var validDrivers = map[string]bool{"sqlite": true, "postgres": true, "memory": true}

func defaults() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "counseling.db"},
		Auth:     AuthConfig{TokenTTL: Duration(24 * time.Hour)},
		Log:      LogConfig{Level: "info", Format: "json"},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// COUNSELING_CONFIG_FILE when set, and COUNSELING_* environment variables.
//
// Missing and invalid values are collected and reported together.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if v, ok := lookup("COUNSELING_HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			invalid = append(invalid, "COUNSELING_HTTP_PORT")
		} else {
			cfg.HTTP.Port = port
		}
	}
	if v, ok := lookup("COUNSELING_DB_DRIVER"); ok {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v, ok := lookup("COUNSELING_DB_DSN"); ok {
		cfg.Database.DSN = v
	}
	if v, ok := lookup("COUNSELING_JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := lookup("COUNSELING_TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			invalid = append(invalid, "COUNSELING_TOKEN_TTL")
		} else {
			cfg.Auth.TokenTTL = Duration(ttl)
		}
	}
	if v, ok := lookup("COUNSELING_REDIS_ADDR"); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := lookup("COUNSELING_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookup("COUNSELING_LOG_FORMAT"); ok {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v, ok := lookup("COUNSELING_METRICS_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "COUNSELING_METRICS_ENABLED")
		} else {
			cfg.Metrics.Enabled = enabled
		}
	}

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		invalid = appendOnce(invalid, "COUNSELING_HTTP_PORT")
	}
	if !validDrivers[cfg.Database.Driver] {
		invalid = append(invalid, "COUNSELING_DB_DRIVER")
	}
	if cfg.Database.Driver != "memory" && strings.TrimSpace(cfg.Database.DSN) == "" {
		missing = append(missing, "COUNSELING_DB_DSN")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		missing = append(missing, "COUNSELING_JWT_SECRET")
	}
	if cfg.Auth.TokenTTL <= 0 {
		invalid = appendOnce(invalid, "COUNSELING_TOKEN_TTL")
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "console" {
		invalid = append(invalid, "COUNSELING_LOG_FORMAT")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("필수 설정값이 없습니다: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("설정값이 올바르지 않습니다: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// TokenTTL returns the token lifetime as a time.Duration.
func (c Config) TokenTTL() time.Duration { return time.Duration(c.Auth.TokenTTL) }

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.HTTP.Port) }

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("설정 파일을 읽을 수 없습니다: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("설정 파일 형식이 올바르지 않습니다 (%s): %w", path, err)
	}
	return nil
}

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func appendOnce(list []string, key string) []string {
	for _, existing := range list {
		if existing == key {
			return list
		}
	}
	return append(list, key)
}
