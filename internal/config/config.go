package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Stream   StreamConfig
	Workers  WorkersConfig
	External ExternalConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// StreamConfig holds websocket event stream configuration.
type StreamConfig struct {
	// AllowedOrigins are origin patterns accepted for websocket upgrades.
	AllowedOrigins []string
	// SubscriberBuffer is the per-connection event buffer size. Events are
	// dropped for a subscriber whose buffer is full.
	SubscriberBuffer int
	// ActivityBuffer is the write-behind activity ledger queue size.
	ActivityBuffer int
}

// WorkersConfig holds background worker configuration.
type WorkersConfig struct {
	// LeadRescanSchedule is the cron expression for re-running agent matching
	// against properties that still have no assigned agent.
	LeadRescanSchedule string
	// LeadRescanEnabled toggles the reconciliation worker.
	LeadRescanEnabled bool
}

// ExternalConfig holds the endpoints of outside collaborators. An empty URL
// disables the collaborator; callers fall back to doing without it where the
// workflow allows.
type ExternalConfig struct {
	VerifierURL  string
	VerifierKey  string
	ExtractorURL string
	RendererURL  string
	// BlobDir is the local directory for rendered agreement documents.
	BlobDir string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "dwelora")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("WS_ALLOWED_ORIGINS", "localhost:3000,localhost:3001")
	v.SetDefault("WS_SUBSCRIBER_BUFFER", 64)
	v.SetDefault("ACTIVITY_BUFFER", 256)
	v.SetDefault("LEAD_RESCAN_CRON", "@every 5m")
	v.SetDefault("LEAD_RESCAN_ENABLED", true)
	v.SetDefault("VERIFIER_URL", "")
	v.SetDefault("EXTRACTOR_URL", "")
	v.SetDefault("RENDERER_URL", "")
	v.SetDefault("BLOB_DIR", "./data/documents")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseList(v.GetString("CORS_ORIGINS")),
		},
		Stream: StreamConfig{
			AllowedOrigins:   parseList(v.GetString("WS_ALLOWED_ORIGINS")),
			SubscriberBuffer: v.GetInt("WS_SUBSCRIBER_BUFFER"),
			ActivityBuffer:   v.GetInt("ACTIVITY_BUFFER"),
		},
		Workers: WorkersConfig{
			LeadRescanSchedule: v.GetString("LEAD_RESCAN_CRON"),
			LeadRescanEnabled:  v.GetBool("LEAD_RESCAN_ENABLED"),
		},
		External: ExternalConfig{
			VerifierURL:  v.GetString("VERIFIER_URL"),
			VerifierKey:  v.GetString("VERIFIER_API_KEY"),
			ExtractorURL: v.GetString("EXTRACTOR_URL"),
			RendererURL:  v.GetString("RENDERER_URL"),
			BlobDir:      v.GetString("BLOB_DIR"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate stream config
	if c.Stream.SubscriberBuffer < 1 {
		return fmt.Errorf("WS_SUBSCRIBER_BUFFER must be at least 1")
	}
	if c.Stream.ActivityBuffer < 1 {
		return fmt.Errorf("ACTIVITY_BUFFER must be at least 1")
	}

	// Validate worker config
	if c.Workers.LeadRescanEnabled && c.Workers.LeadRescanSchedule == "" {
		return fmt.Errorf("LEAD_RESCAN_CRON is required when the rescan worker is enabled")
	}

	return nil
}

// parseList splits a comma-separated string into a slice.
func parseList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
