package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Store != "memory" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.RecencyWindow != 5*time.Minute || cfg.NotificationLimit != 10 {
		t.Errorf("unexpected notification defaults %v/%d", cfg.RecencyWindow, cfg.NotificationLimit)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "TABLE_ORDER_STORE=sqlite\nTABLE_ORDER_DSN=/tmp/orders.db\nTABLE_ORDER_SOUND_COMMAND=paplay bell.oga\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv.Load sets process env; undo it for other tests
	t.Setenv("TABLE_ORDER_STORE", "")
	t.Setenv("TABLE_ORDER_DSN", "")
	t.Setenv("TABLE_ORDER_SOUND_COMMAND", "")
	os.Unsetenv("TABLE_ORDER_STORE")
	os.Unsetenv("TABLE_ORDER_DSN")
	os.Unsetenv("TABLE_ORDER_SOUND_COMMAND")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store != "sqlite" || cfg.DSN != "/tmp/orders.db" {
		t.Errorf("expected values from file, got %+v", cfg)
	}
	if len(cfg.SoundCommand) != 2 || cfg.SoundCommand[0] != "paplay" {
		t.Errorf("unexpected sound command %v", cfg.SoundCommand)
	}
}

func TestLoadEnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("TABLE_ORDER_HTTP_ADDR=:9999\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TABLE_ORDER_HTTP_ADDR", ":7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("expected env value :7070, got %s", cfg.HTTPAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("TABLE_ORDER_POLL_INTERVAL", "soon")
	_, err := Load(missing)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Errorf("expected parse env error, got %v", err)
	}

	t.Setenv("TABLE_ORDER_POLL_INTERVAL", "1s")
	t.Setenv("TABLE_ORDER_STORE", "mysql")
	if _, err := Load(missing); err == nil {
		t.Error("expected error for mysql without dsn")
	}

	t.Setenv("TABLE_ORDER_STORE", "cassandra")
	if _, err := Load(missing); err == nil {
		t.Error("expected error for unknown store")
	}
}
