package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	ConfigFileEnv,
	"COUNSELING_HTTP_PORT",
	"COUNSELING_DB_DRIVER",
	"COUNSELING_DB_DSN",
	"COUNSELING_JWT_SECRET",
	"COUNSELING_TOKEN_TTL",
	"COUNSELING_REDIS_ADDR",
	"COUNSELING_LOG_LEVEL",
	"COUNSELING_LOG_FORMAT",
	"COUNSELING_METRICS_ENABLED",
}

// clearEnv blanks every key for the duration of the test. Load treats blank
// values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counseling.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when only the secret is set", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COUNSELING_JWT_SECRET", "super-secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTP.Port != 8080 || cfg.Addr() != ":8080" {
			t.Fatalf("expected default port, got %d", cfg.HTTP.Port)
		}
		if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "counseling.db" {
			t.Fatalf("unexpected database defaults %+v", cfg.Database)
		}
		if cfg.TokenTTL() != 24*time.Hour || !cfg.Metrics.Enabled || cfg.Log.Format != "json" || cfg.Redis.Addr != "" {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
	})

	t.Run("reports every missing and invalid value together", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("COUNSELING_HTTP_PORT", "eighty")
		t.Setenv("COUNSELING_DB_DRIVER", "oracle")
		t.Setenv("COUNSELING_TOKEN_TTL", "forever")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error")
		}
		msg := err.Error()
		for _, want := range []string{
			"필수 설정값이 없습니다: COUNSELING_JWT_SECRET",
			"설정값이 올바르지 않습니다: COUNSELING_HTTP_PORT, COUNSELING_TOKEN_TTL, COUNSELING_DB_DRIVER",
		} {
			if !strings.Contains(msg, want) {
				t.Fatalf("expected %q in %q", want, msg)
			}
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigFileEnv, writeFile(t, `
http:
  port: 9090
database:
  driver: postgres
  dsn: postgres://localhost/counseling
auth:
  jwt_secret: from-file
  token_ttl: 2h
redis:
  addr: localhost:6379
log:
  level: debug
  format: console
metrics:
  enabled: false
`))
		t.Setenv("COUNSELING_HTTP_PORT", "7070")
		t.Setenv("COUNSELING_JWT_SECRET", "from-env")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTP.Port != 7070 || cfg.Auth.JWTSecret != "from-env" {
			t.Fatalf("environment should win, got %+v", cfg)
		}
		if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://localhost/counseling" {
			t.Fatalf("unexpected database %+v", cfg.Database)
		}
		if cfg.TokenTTL() != 2*time.Hour || cfg.Redis.Addr != "localhost:6379" || cfg.Log.Format != "console" || cfg.Metrics.Enabled {
			t.Fatalf("file values not applied: %+v", cfg)
		}
	})

	t.Run("memory driver needs no dsn", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigFileEnv, writeFile(t, "database:\n  driver: memory\n  dsn: \"\"\n"))
		t.Setenv("COUNSELING_JWT_SECRET", "s")

		cfg, err := Load()
		if err != nil || cfg.Database.Driver != "memory" {
			t.Fatalf("expected memory config, got %+v, %v", cfg, err)
		}
	})

	t.Run("malformed file is reported", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigFileEnv, writeFile(t, "auth:\n  token_ttl: soon\n"))
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "설정 파일 형식이 올바르지 않습니다") {
			t.Fatalf("expected file format error, got %v", err)
		}
	})

	t.Run("missing file is reported", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := Load(); err == nil || !strings.Contains(err.Error(), "설정 파일을 읽을 수 없습니다") {
			t.Fatalf("expected read error, got %v", err)
		}
	})
}
