package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearConfigEnv blanks every variable Load consults so tests start from the
// defaults regardless of the developer's shell.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "DATABASE_URL", "JWT_SECRET",
		"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "LOCKOUT_DURATION", "MAX_LOGIN_ATTEMPTS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/kb_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5050" {
		t.Errorf("expected default port 5050, got %q", cfg.Port)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("expected 15m access TTL, got %v", cfg.AccessTokenTTL)
	}
	if cfg.MaxLoginAttempts != 5 {
		t.Errorf("expected 5 max attempts, got %d", cfg.MaxLoginAttempts)
	}
	if cfg.LockoutDuration != 15*time.Minute {
		t.Errorf("expected 15m lockout, got %v", cfg.LockoutDuration)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/kb_test")

	if _, err := Load(); !errors.Is(err, ErrMissingJWTSecret) {
		t.Fatalf("expected ErrMissingJWTSecret, got %v", err)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://localhost/kb_test")
	t.Setenv("PORT", "9999")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %q", cfg.Port)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("expected 5m access TTL, got %v", cfg.AccessTokenTTL)
	}
	if cfg.MaxLoginAttempts != 3 {
		t.Errorf("expected 3 max attempts, got %d", cfg.MaxLoginAttempts)
	}
}

func TestConfigFileOverlayThenEnvWins(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"7070\"\njwt_secret: file-secret\ndatabase_url: postgres://localhost/kb_file\nmax_login_attempts: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6060") // env beats file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "6060" {
		t.Errorf("expected env port 6060, got %q", cfg.Port)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Errorf("expected jwt secret from file, got %q", cfg.JWTSecret)
	}
	if cfg.MaxLoginAttempts != 8 {
		t.Errorf("expected 8 max attempts from file, got %d", cfg.MaxLoginAttempts)
	}
}
