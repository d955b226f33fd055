package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	RemoteHTTP     = "http"
	RemoteMySQL    = "mysql"
	RemotePostgres = "postgres"
	RemoteSQLite   = "sqlite3"
)

type AppConfig struct {
	DatabasePath string        `yaml:"database_path"`
	Remote       RemoteConfig  `yaml:"remote"`
	Cache        CacheConfig   `yaml:"cache"`
	Updates      UpdatesConfig `yaml:"updates"`
	Log          LogConfig     `yaml:"log"`
}

type RemoteConfig struct {
	Kind         string            `yaml:"kind"`
	BaseURL      string            `yaml:"base_url"`
	DSN          string            `yaml:"dsn"`
	EncryptedDSN string            `yaml:"encrypted_dsn"`
	Timeout      time.Duration     `yaml:"timeout"`
	Retries      int               `yaml:"retries"`
	Headers      map[string]string `yaml:"headers"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type UpdatesConfig struct {
	Interval                         time.Duration `yaml:"interval"`
	ArchivedGamesDisableUpdateChecks bool          `yaml:"archived_games_disable_update_checks"`
	MaxConcurrentFetches             int           `yaml:"max_concurrent_fetches"`
	StartOnLaunch                    bool          `yaml:"start_on_launch"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	ToFile    bool   `yaml:"to_file"`
	ToConsole bool   `yaml:"to_console"`
	Caller    bool   `yaml:"caller"`
}

func Default() *AppConfig {
	return &AppConfig{
		DatabasePath: "AVNLauncher.db",
		Remote: RemoteConfig{
			Kind:    RemoteHTTP,
			Timeout: 30 * time.Second,
			Retries: 3,
		},
		Cache: CacheConfig{
			TTL: 10 * time.Minute,
		},
		Updates: UpdatesConfig{
			Interval:             6 * time.Hour,
			MaxConcurrentFetches: 8,
			StartOnLaunch:        true,
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "legacy",
			File:      "logs/avn-launcher.log",
			ToFile:    true,
			ToConsole: true,
		},
	}
}

// Load reads the YAML file at path when it exists, then applies environment overrides.
// A missing file is not an error; the launcher runs on defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Remote.DSN == "" && cfg.Remote.EncryptedDSN != "" {
		key := os.Getenv("AVN_DSN_KEY")
		if key == "" {
			return nil, errors.New("AVN_DSN_KEY is required to decrypt remote.encrypted_dsn")
		}
		dsn, err := DecryptDSN(cfg.Remote.EncryptedDSN, key)
		if err != nil {
			return nil, fmt.Errorf("decrypt remote dsn: %w", err)
		}
		cfg.Remote.DSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := strings.TrimSpace(os.Getenv("AVN_DB_PATH")); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("AVN_REMOTE_KIND")); v != "" {
		cfg.Remote.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("AVN_REMOTE_URL")); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AVN_REMOTE_DSN")); v != "" {
		cfg.Remote.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("AVN_REMOTE_ENCRYPTED_DSN")); v != "" {
		cfg.Remote.EncryptedDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("AVN_REDIS_URL")); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AVN_UPDATE_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("AVN_UPDATE_INTERVAL: %w", err)
		}
		cfg.Updates.Interval = d
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_FILE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.ToFile = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_CONSOLE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.ToConsole = b
		}
	}
	return nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.New("database_path is required")
	}
	switch c.Remote.Kind {
	case RemoteHTTP:
		if strings.TrimSpace(c.Remote.BaseURL) == "" {
			return errors.New("remote.base_url is required for the http source")
		}
	case RemoteMySQL, RemotePostgres, RemoteSQLite:
		if strings.TrimSpace(c.Remote.DSN) == "" {
			return fmt.Errorf("remote.dsn is required for the %s source", c.Remote.Kind)
		}
	default:
		return fmt.Errorf("unknown remote.kind %q", c.Remote.Kind)
	}
	if c.Updates.MaxConcurrentFetches <= 0 {
		c.Updates.MaxConcurrentFetches = 1
	}
	return nil
}
