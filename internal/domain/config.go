package domain

import (
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Model     ModelConfig     `mapstructure:"model"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Explain   ExplainConfig   `mapstructure:"explain"`
	Feedback  FeedbackConfig  `mapstructure:"feedback"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxUploadMB  int           `mapstructure:"max_upload_mb"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
	Output string `mapstructure:"output"`
}

// ModelConfig represents neural fallback classifier configuration.
type ModelConfig struct {
	CheckpointPath string `mapstructure:"checkpoint_path"`
	Window         int    `mapstructure:"window"` // flank length; total window = 2*window+1
	DemoSeed       int64  `mapstructure:"demo_seed"`
}

// ReferenceConfig represents PGx reference table configuration. Empty paths
// mean the embedded defaults are used.
type ReferenceConfig struct {
	TablePath     string `mapstructure:"table_path"`     // curated variant table (YAML)
	GuidelinePath string `mapstructure:"guideline_path"` // drug-gene-phenotype decision table (YAML)
}

// CacheConfig represents prediction cache configuration. The in-memory LRU
// tier is always on; the Redis tier is optional and disabled by default.
type CacheConfig struct {
	MemorySize   int           `mapstructure:"memory_size"`
	RedisEnabled bool          `mapstructure:"redis_enabled"`
	RedisURL     string        `mapstructure:"redis_url"`
	RedisTTL     time.Duration `mapstructure:"redis_ttl"`
}

// ExplainConfig represents the external explanation-service collaborator.
type ExplainConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeedbackConfig represents the clinician feedback store.
type FeedbackConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// RateLimitConfig represents per-client request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}
