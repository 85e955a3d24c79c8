package config

import (
	"os"
	"testing"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear all environment variables
	clearConfigEnvVars()

	// Set only required env var (password has no default)
	os.Setenv("DB_PASSWORD", "testpass")
	defer os.Unsetenv("DB_PASSWORD")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Verify defaults
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "development" {
		t.Errorf("Expected env development, got %s", cfg.Server.Env)
	}
	if cfg.Database.Host != "host.docker.internal" {
		t.Errorf("Expected host host.docker.internal, got %s", cfg.Database.Host)
	}
	if cfg.Database.Name != "dwelora" {
		t.Errorf("Expected db name dwelora, got %s", cfg.Database.Name)
	}
	if cfg.Database.PoolMin != 2 {
		t.Errorf("Expected pool min 2, got %d", cfg.Database.PoolMin)
	}
	if cfg.Database.PoolMax != 10 {
		t.Errorf("Expected pool max 10, got %d", cfg.Database.PoolMax)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.Stream.SubscriberBuffer != 64 {
		t.Errorf("Expected subscriber buffer 64, got %d", cfg.Stream.SubscriberBuffer)
	}
	if cfg.Stream.ActivityBuffer != 256 {
		t.Errorf("Expected activity buffer 256, got %d", cfg.Stream.ActivityBuffer)
	}
	if cfg.Workers.LeadRescanSchedule != "@every 5m" {
		t.Errorf("Expected rescan schedule @every 5m, got %s", cfg.Workers.LeadRescanSchedule)
	}
	if !cfg.Workers.LeadRescanEnabled {
		t.Error("Expected rescan worker enabled by default")
	}
	if cfg.External.VerifierURL != "" {
		t.Errorf("Expected verifier disabled by default, got %s", cfg.External.VerifierURL)
	}
	if cfg.External.BlobDir != "./data/documents" {
		t.Errorf("Expected blob dir ./data/documents, got %s", cfg.External.BlobDir)
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("ENV", "production")
	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_PASSWORD", "testpass")
	os.Setenv("CORS_ORIGINS", "http://example.com,https://app.example.com")
	os.Setenv("WS_ALLOWED_ORIGINS", "app.example.com")
	os.Setenv("WS_SUBSCRIBER_BUFFER", "128")
	os.Setenv("LEAD_RESCAN_ENABLED", "false")
	os.Setenv("VERIFIER_URL", "https://verify.example.com")
	os.Setenv("VERIFIER_API_KEY", "secret")
	defer clearConfigEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.Env != "production" {
		t.Errorf("Expected env production, got %s", cfg.Server.Env)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected host localhost, got %s", cfg.Database.Host)
	}
	if len(cfg.CORS.Origins) != 2 {
		t.Errorf("Expected 2 CORS origins, got %d", len(cfg.CORS.Origins))
	}
	if cfg.CORS.Origins[0] != "http://example.com" {
		t.Errorf("Expected first origin http://example.com, got %s", cfg.CORS.Origins[0])
	}
	if len(cfg.Stream.AllowedOrigins) != 1 || cfg.Stream.AllowedOrigins[0] != "app.example.com" {
		t.Errorf("Expected websocket origin app.example.com, got %v", cfg.Stream.AllowedOrigins)
	}
	if cfg.Stream.SubscriberBuffer != 128 {
		t.Errorf("Expected subscriber buffer 128, got %d", cfg.Stream.SubscriberBuffer)
	}
	if cfg.Workers.LeadRescanEnabled {
		t.Error("Expected rescan worker disabled")
	}
	if cfg.External.VerifierURL != "https://verify.example.com" {
		t.Errorf("Expected verifier URL from env, got %s", cfg.External.VerifierURL)
	}
	if cfg.External.VerifierKey != "secret" {
		t.Errorf("Expected verifier key from env, got %s", cfg.External.VerifierKey)
	}
}

func TestLoad_MissingPassword(t *testing.T) {
	// Clear all environment variables (password has no default)
	clearConfigEnvVars()

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DB_PASSWORD is missing")
	}
}

func TestValidate_InvalidPoolSizes(t *testing.T) {
	tests := []struct {
		name    string
		poolMin int
		poolMax int
		wantErr bool
	}{
		{
			name:    "negative pool min",
			poolMin: -1,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "zero pool max",
			poolMin: 0,
			poolMax: 0,
			wantErr: true,
		},
		{
			name:    "pool min greater than max",
			poolMin: 15,
			poolMax: 10,
			wantErr: true,
		},
		{
			name:    "valid pool sizes",
			poolMin: 2,
			poolMax: 10,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.PoolMin = tt.poolMin
			cfg.Database.PoolMax = tt.poolMax

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "missing port",
			mutate: func(c *Config) { c.Server.Port = "" },
		},
		{
			name:   "missing db host",
			mutate: func(c *Config) { c.Database.Host = "" },
		},
		{
			name:   "missing db password",
			mutate: func(c *Config) { c.Database.Password = "" },
		},
		{
			name:   "missing CORS origins",
			mutate: func(c *Config) { c.CORS.Origins = []string{} },
		},
		{
			name:   "zero subscriber buffer",
			mutate: func(c *Config) { c.Stream.SubscriberBuffer = 0 },
		},
		{
			name:   "zero activity buffer",
			mutate: func(c *Config) { c.Stream.ActivityBuffer = 0 },
		},
		{
			name:   "rescan enabled without schedule",
			mutate: func(c *Config) { c.Workers.LeadRescanSchedule = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "single value",
			input:  "http://localhost:3000",
			expect: []string{"http://localhost:3000"},
		},
		{
			name:   "multiple values",
			input:  "http://localhost:3000,http://localhost:3001",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "values with spaces",
			input:  " http://localhost:3000 , http://localhost:3001 ",
			expect: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		{
			name:   "empty string",
			input:  "",
			expect: []string{},
		},
		{
			name:   "only commas",
			input:  ",,,",
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseList(tt.input)
			if len(result) != len(tt.expect) {
				t.Errorf("Expected %d values, got %d", len(tt.expect), len(result))
				return
			}
			for i, value := range result {
				if value != tt.expect[i] {
					t.Errorf("Expected value %s at index %d, got %s", tt.expect[i], i, value)
				}
			}
		})
	}
}

// validConfig returns a config that passes Validate; tests mutate one field
// at a time.
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Env:  "development",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			Name:     "dwelora",
			User:     "postgres",
			Password: "postgres",
			PoolMin:  2,
			PoolMax:  10,
		},
		CORS: CORSConfig{
			Origins: []string{"http://localhost:3000"},
		},
		Stream: StreamConfig{
			AllowedOrigins:   []string{"localhost:3000"},
			SubscriberBuffer: 64,
			ActivityBuffer:   256,
		},
		Workers: WorkersConfig{
			LeadRescanSchedule: "@every 5m",
			LeadRescanEnabled:  true,
		},
	}
}

// Helper function to clear all config-related environment variables
func clearConfigEnvVars() {
	os.Unsetenv("PORT")
	os.Unsetenv("ENV")
	os.Unsetenv("DB_HOST")
	os.Unsetenv("DB_PORT")
	os.Unsetenv("DB_NAME")
	os.Unsetenv("DB_USER")
	os.Unsetenv("DB_PASSWORD")
	os.Unsetenv("DB_POOL_MIN")
	os.Unsetenv("DB_POOL_MAX")
	os.Unsetenv("CORS_ORIGINS")
	os.Unsetenv("WS_ALLOWED_ORIGINS")
	os.Unsetenv("WS_SUBSCRIBER_BUFFER")
	os.Unsetenv("ACTIVITY_BUFFER")
	os.Unsetenv("LEAD_RESCAN_CRON")
	os.Unsetenv("LEAD_RESCAN_ENABLED")
	os.Unsetenv("VERIFIER_URL")
	os.Unsetenv("VERIFIER_API_KEY")
	os.Unsetenv("EXTRACTOR_URL")
	os.Unsetenv("RENDERER_URL")
	os.Unsetenv("BLOB_DIR")
}
