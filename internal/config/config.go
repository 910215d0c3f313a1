package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// Manager loads and validates application configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from file, environment, and defaults.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pharmaguard/")

	viper.SetEnvPrefix("PHARMAGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars apply without one.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.max_upload_mb", 5)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Model defaults
	viper.SetDefault("model.checkpoint_path", "./weights/variant_classifier.json")
	viper.SetDefault("model.window", 50)
	viper.SetDefault("model.demo_seed", 1)

	// Reference table defaults (empty = embedded tables)
	viper.SetDefault("reference.table_path", "")
	viper.SetDefault("reference.guideline_path", "")

	// Prediction cache defaults
	viper.SetDefault("cache.memory_size", 2048)
	viper.SetDefault("cache.redis_enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.redis_ttl", "24h")

	// Explanation collaborator defaults
	viper.SetDefault("explain.enabled", false)
	viper.SetDefault("explain.base_url", "http://localhost:9000")
	viper.SetDefault("explain.timeout", "20s")

	// Feedback store defaults
	viper.SetDefault("feedback.enabled", true)
	viper.SetDefault("feedback.db_path", "./data/feedback.db")

	// Rate limit defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 5.0)
	viper.SetDefault("rate_limit.burst", 10)
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration.
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetModelConfig returns model configuration.
func (m *Manager) GetModelConfig() *domain.ModelConfig {
	return &m.config.Model
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d MB", config.Server.MaxUploadMB)
	}

	if config.Model.Window <= 0 {
		return fmt.Errorf("invalid model window: %d", config.Model.Window)
	}

	if config.Cache.MemorySize <= 0 {
		return fmt.Errorf("invalid cache memory size: %d", config.Cache.MemorySize)
	}
	if config.Cache.RedisEnabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis cache enabled but redis URL is empty")
	}

	if config.Explain.Enabled && config.Explain.BaseURL == "" {
		return fmt.Errorf("explanation service enabled but base URL is empty")
	}

	if config.Feedback.Enabled && config.Feedback.DBPath == "" {
		return fmt.Errorf("feedback store enabled but db path is empty")
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %.2f requests/second", config.RateLimit.RequestsPerSecond)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode.
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}
