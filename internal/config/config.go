package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Sync     SyncConfig     `yaml:"sync"`
	FileDrop FileDropConfig `yaml:"filedrop"`
	Reach    ReachConfig    `yaml:"reach"`
	Callwise CallwiseConfig `yaml:"callwise"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the canonical-store connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis connection for cross-host sync locks.
// When disabled, single-flight falls back to PG advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// SyncConfig holds orchestrator scheduling settings
type SyncConfig struct {
	IntervalSeconds   int `yaml:"interval_seconds"`
	LockTTLMinutes    int `yaml:"lock_ttl_minutes"`
	TenantParallelism int `yaml:"tenant_parallelism"`
	LookbackMonths    int `yaml:"lookback_months"`
}

// Interval returns the recurring sync interval as a duration
func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// LockTTL returns the single-flight lock TTL as a duration
func (c SyncConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMinutes) * time.Minute
}

// FileDropConfig holds bulk-file delivery channel settings. Files land in
// an S3 bucket (or a local directory for development) and are discovered by
// listing and diffing against the imported-file set.
type FileDropConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSProfile string `yaml:"aws_profile"` // empty uses the default credential chain
	LocalPath  string `yaml:"local_path"`  // takes precedence over S3 when set
}

// ReachConfig holds the marketing-automation API settings
type ReachConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	TokenURL       string `yaml:"token_url"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c ReachConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CallwiseConfig holds the call-center API settings
type CallwiseConfig struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c CallwiseConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Sync.IntervalSeconds == 0 {
		cfg.Sync.IntervalSeconds = 900
	}
	if cfg.Sync.LockTTLMinutes == 0 {
		cfg.Sync.LockTTLMinutes = 30
	}
	if cfg.Sync.TenantParallelism == 0 {
		cfg.Sync.TenantParallelism = 4
	}
	if cfg.Sync.LookbackMonths == 0 {
		cfg.Sync.LookbackMonths = 3
	}
	if cfg.FileDrop.S3Region == "" {
		cfg.FileDrop.S3Region = "us-west-2"
	}
	if cfg.Reach.TimeoutSeconds == 0 {
		cfg.Reach.TimeoutSeconds = 60
	}
	if cfg.Callwise.TimeoutSeconds == 0 {
		cfg.Callwise.TimeoutSeconds = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("FILEDROP_S3_BUCKET"); v != "" {
		cfg.FileDrop.S3Bucket = v
	}
	if v := os.Getenv("FILEDROP_S3_REGION"); v != "" {
		cfg.FileDrop.S3Region = v
	}
	if v := os.Getenv("REACH_BASE_URL"); v != "" {
		cfg.Reach.BaseURL = v
	}
	if v := os.Getenv("REACH_CLIENT_ID"); v != "" {
		cfg.Reach.ClientID = v
	}
	if v := os.Getenv("REACH_CLIENT_SECRET"); v != "" {
		cfg.Reach.ClientSecret = v
	}
	if v := os.Getenv("CALLWISE_BASE_URL"); v != "" {
		cfg.Callwise.BaseURL = v
	}
	if v := os.Getenv("CALLWISE_API_KEY"); v != "" {
		cfg.Callwise.APIKey = v
	}

	return cfg, nil
}
