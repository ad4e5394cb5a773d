//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
store:
  driver: memory
redis:
  url: localhost:6379
payment:
  key_secret: ${TEST_GATEWAY_SECRET}
reminders:
  cron_secret: cron-s3cret
  send_interval: 250ms
`

func TestParse(t *testing.T) {
	t.Run("should expand env references and apply defaults", func(t *testing.T) {
		// --- Arrange ---
		t.Setenv("TEST_GATEWAY_SECRET", "gw-secret")

		// --- Act ---
		cfg, err := Parse([]byte(minimalYAML))

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Payment.KeySecret != "gw-secret" {
			t.Errorf("expected expanded secret, got %q", cfg.Payment.KeySecret)
		}
		if cfg.Reminders.SendInterval != 250*time.Millisecond {
			t.Errorf("expected send interval 250ms, got %s", cfg.Reminders.SendInterval)
		}
		if cfg.HTTP.Port != 8080 {
			t.Errorf("expected default port 8080, got %d", cfg.HTTP.Port)
		}
		if cfg.Email.Provider != "noop" {
			t.Errorf("expected noop email provider by default, got %q", cfg.Email.Provider)
		}
		if cfg.Notify.Workers != 4 {
			t.Errorf("expected 4 notify workers, got %d", cfg.Notify.Workers)
		}
		if cfg.Payment.TestModeEnabled {
			t.Error("expected test mode to be disabled by default")
		}
	})

	t.Run("should fail without gateway secret", func(t *testing.T) {
		t.Setenv("TEST_GATEWAY_SECRET", "")
		_, err := Parse([]byte(minimalYAML))
		if err == nil || !strings.Contains(err.Error(), "payment.key_secret") {
			t.Fatalf("expected key_secret error, got %v", err)
		}
	})

	t.Run("should require operator secret when test mode is enabled", func(t *testing.T) {
		t.Setenv("TEST_GATEWAY_SECRET", "gw-secret")
		y := minimalYAML + "\n" + strings.TrimSpace(`
auth:
  operator_secret: ""
`)
		y = strings.Replace(y, "  key_secret: ${TEST_GATEWAY_SECRET}", "  key_secret: ${TEST_GATEWAY_SECRET}\n  test_mode_enabled: true", 1)

		_, err := Parse([]byte(y))
		if err == nil || !strings.Contains(err.Error(), "operator_secret") {
			t.Fatalf("expected operator_secret error, got %v", err)
		}
	})

	t.Run("should reject unknown store driver", func(t *testing.T) {
		t.Setenv("TEST_GATEWAY_SECRET", "gw-secret")
		y := strings.Replace(minimalYAML, "driver: memory", "driver: firestore", 1)
		_, err := Parse([]byte(y))
		if err == nil {
			t.Fatal("expected error for unsupported driver")
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("should read file and set runtime dev flag", func(t *testing.T) {
		t.Setenv("TEST_GATEWAY_SECRET", "gw-secret")
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}

		cfg, err := LoadConfig(path, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !cfg.Runtime.Dev {
			t.Error("expected Runtime.Dev to be true")
		}
	})

	t.Run("should fail on missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false)
		if err == nil {
			t.Fatal("expected read error")
		}
	})
}
