package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if len(cfg.Server.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.Server.WebSocket.AllowedOrigins)
	}

	if cfg.Server.WebSocket.MaxMessageSize != 4096 {
		t.Errorf("expected max message size 4096, got %d", cfg.Server.WebSocket.MaxMessageSize)
	}

	if cfg.Solver.Order != "lowest" {
		t.Errorf("expected lowest entropy order, got %q", cfg.Solver.Order)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}

	// Should return defaults
	if len(cfg.Server.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "wfc.yaml")

	content := `
solver:
  seed: 99
  order: highest
field:
  shape: hex
  radius: 3
server:
  websocket:
    allowed_origins:
      - "https://example.com"
      - "http://localhost:3000"
    max_message_size: 8192
logging:
  level: DEBUG
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Server.WebSocket.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 allowed origins, got %d", len(cfg.Server.WebSocket.AllowedOrigins))
	}

	if cfg.Server.WebSocket.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("expected first origin 'https://example.com', got %s", cfg.Server.WebSocket.AllowedOrigins[0])
	}

	if cfg.Server.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.Server.WebSocket.MaxMessageSize)
	}

	if cfg.Solver.Seed != 99 || cfg.Solver.Order != "highest" {
		t.Errorf("solver = %+v", cfg.Solver)
	}

	// Unset values keep their defaults
	if cfg.Solver.MaxAttempts != 50 {
		t.Errorf("expected default max attempts 50, got %d", cfg.Solver.MaxAttempts)
	}

	if cfg.Field.Shape != "hex" || cfg.Field.Radius != 3 {
		t.Errorf("field = %+v", cfg.Field)
	}

	if cfg.Logging.Level != "DEBUG" || !cfg.Logging.ConsoleEnabled {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("solver: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected parse error")
	}
	if cfg == nil || cfg.Field.Shape != "square" {
		t.Error("expected defaults alongside the parse error")
	}
}

func TestLoadConfig_EnvOverridesLogging(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("expected LOG_LEVEL override, got %q", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad order", func(c *Config) { c.Solver.Order = "random" }, "solver.order"},
		{"no attempts", func(c *Config) { c.Solver.MaxAttempts = 0 }, "solver.max_attempts"},
		{"bad shape", func(c *Config) { c.Field.Shape = "cube" }, "field.shape"},
		{"empty grid", func(c *Config) { c.Field.Height = 0 }, "field.width and field.height"},
		{"empty line", func(c *Config) { c.Field.Shape = "line"; c.Field.Width = 0 }, "field.width"},
		{"negative radius", func(c *Config) { c.Field.Shape = "hex"; c.Field.Radius = -1 }, "field.radius"},
		{"no modules", func(c *Config) { c.Modules.Path = "" }, "modules.path"},
		{"bad driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"postgres without database", func(c *Config) { c.Store.Driver = "postgres" }, "store.postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{},
	}

	// Same origin (no Origin header)
	if !cfg.IsOriginAllowed("", "localhost:4000") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}

	// Same origin (matching host)
	if !cfg.IsOriginAllowed("http://localhost:4000", "localhost:4000") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}

	// Different origin should be rejected
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4000") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_Wildcard(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{"*"},
	}

	// Wildcard allows everything
	if !cfg.IsOriginAllowed("http://anything.com", "localhost:4000") {
		t.Error("expected wildcard to allow any origin")
	}

	if !cfg.IsOriginAllowed("", "localhost:4000") {
		t.Error("expected wildcard to allow empty origin")
	}
}

func TestIsOriginAllowed_ExactMatch(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{
			"https://example.com",
			"http://localhost:3000",
		},
	}

	// Exact matches
	if !cfg.IsOriginAllowed("https://example.com", "localhost:4000") {
		t.Error("expected exact match to be allowed")
	}

	if !cfg.IsOriginAllowed("http://localhost:3000", "localhost:4000") {
		t.Error("expected exact match to be allowed")
	}

	// Non-matching origin
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4000") {
		t.Error("expected non-matching origin to be rejected")
	}

	// Partial match should not work
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:4000") {
		t.Error("expected partial match to be rejected")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:4000", true},                                // No origin header
		{"http://localhost:4000", "localhost:4000", true},           // HTTP match
		{"https://localhost:4000", "localhost:4000", true},          // HTTPS match
		{"http://localhost:4000/", "localhost:4000", true},          // Trailing slash
		{"http://example.com", "localhost:4000", false},             // Different host
		{"http://localhost:3000", "localhost:4000", false},          // Different port
		{"ws://localhost:4000", "localhost:4000", true},             // WebSocket scheme
	}

	for _, tt := range tests {
		result := isSameOrigin(tt.origin, tt.requestHost)
		if result != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v",
				tt.origin, tt.requestHost, result, tt.expected)
		}
	}
}

