package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
database_path: /tmp/games.db
remote:
  kind: http
  base_url: https://api.example.test
  timeout: 5s
updates:
  interval: 2h
  archived_games_disable_update_checks: true
  max_concurrent_fetches: 4
cache:
  redis_url: redis://localhost:6379/0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "/tmp/games.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Remote.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Remote.Timeout)
	}
	if cfg.Updates.Interval != 2*time.Hour || !cfg.Updates.ArchivedGamesDisableUpdateChecks {
		t.Errorf("Updates = %+v", cfg.Updates)
	}
	if cfg.Updates.MaxConcurrentFetches != 4 {
		t.Errorf("MaxConcurrentFetches = %d", cfg.Updates.MaxConcurrentFetches)
	}
	// untouched sections keep defaults
	if cfg.Remote.Retries != 3 || cfg.Log.Level != "info" || !cfg.Updates.StartOnLaunch {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("AVN_REMOTE_URL", "https://api.example.test")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Updates.Interval != 6*time.Hour {
		t.Errorf("Interval = %v, want 6h", cfg.Updates.Interval)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "remote:\n  base_url: https://a.test\n")
	t.Setenv("AVN_DB_PATH", "/data/x.db")
	t.Setenv("AVN_UPDATE_INTERVAL", "90m")
	t.Setenv("LOG_TO_FILE", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "/data/x.db" || cfg.Updates.Interval != 90*time.Minute || cfg.Log.ToFile {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{"http without url", func(c *AppConfig) {}, true},
		{"http with url", func(c *AppConfig) { c.Remote.BaseURL = "https://a.test" }, false},
		{"mysql without dsn", func(c *AppConfig) { c.Remote.Kind = RemoteMySQL }, true},
		{"postgres with dsn", func(c *AppConfig) { c.Remote.Kind = RemotePostgres; c.Remote.DSN = "postgres://x" }, false},
		{"unknown kind", func(c *AppConfig) { c.Remote.Kind = "ftp" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func encrypt(t *testing.T, plaintext, key string) string {
	t.Helper()
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("gcm: %v", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		t.Fatalf("nonce: %v", err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil))
}

func TestEncryptedDSN(t *testing.T) {
	const key = "0123456789abcdef0123456789abcdef"
	enc := encrypt(t, "user:pw@tcp(db:3306)/avn", key)

	path := writeConfig(t, "remote:\n  kind: mysql\n  encrypted_dsn: "+enc+"\n")
	t.Setenv("AVN_DSN_KEY", key)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Remote.DSN != "user:pw@tcp(db:3306)/avn" {
		t.Errorf("DSN = %q", cfg.Remote.DSN)
	}
}

func TestDecryptDSNErrors(t *testing.T) {
	if _, err := DecryptDSN("%%%", "0123456789abcdef"); err == nil {
		t.Error("expected base64 error")
	}
	if _, err := DecryptDSN(base64.StdEncoding.EncodeToString([]byte("short")), "0123456789abcdef"); err == nil {
		t.Error("expected short data error")
	}
	enc := encrypt(t, "dsn", "0123456789abcdef")
	if _, err := DecryptDSN(enc, "fedcba9876543210"); err == nil {
		t.Error("expected wrong key error")
	}
}
