package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Offline    OfflineConfig    `yaml:"offline"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// AuthConfig holds the API key expected from the cashier integration and
// the admin surface. Device tokens live per store in the database.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// MigrateHeartbeat controls whether the liveness table is created by
	// this service. Deployments where another system owns the table leave
	// this off and the schema adapter works with whatever is there.
	MigrateHeartbeat bool `yaml:"migrate_heartbeat"`
}

// DispatchConfig holds the transaction claim settings.
type DispatchConfig struct {
	// ClaimAttempts bounds the optimistic retry loop when concurrent polls
	// race for the same row. Raising it trades latency for less starvation.
	ClaimAttempts int `yaml:"claim_attempts"`
}

// OfflineConfig holds the offline-alert scheduler settings.
type OfflineConfig struct {
	Enabled            bool          `yaml:"enabled"`
	IntervalSeconds    int           `yaml:"interval_seconds"`
	Interval           time.Duration `yaml:"-"` // Ignored by YAML parser
	StaleAfterMinutes  int           `yaml:"stale_after_minutes"`
	SuppressAfterHours int           `yaml:"suppress_after_hours"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the alert worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Dispatch.ClaimAttempts <= 0 {
		cfg.Dispatch.ClaimAttempts = 3
	}

	if cfg.Offline.IntervalSeconds <= 0 {
		cfg.Offline.IntervalSeconds = 300
	}
	cfg.Offline.Interval = time.Duration(cfg.Offline.IntervalSeconds) * time.Second

	if cfg.Offline.StaleAfterMinutes <= 0 {
		cfg.Offline.StaleAfterMinutes = 30
	}
	if cfg.Offline.SuppressAfterHours <= 0 {
		cfg.Offline.SuppressAfterHours = 24
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
