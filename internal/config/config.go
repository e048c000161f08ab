// Package config loads the YAML configuration shared by every wfc command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lawnchairsociety/wavecollapse/internal/logger"
	"gopkg.in/yaml.v3"
)

// Config holds every configuration section.
type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Field   FieldConfig   `yaml:"field"`
	Modules ModulesConfig `yaml:"modules"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Logging logger.Config `yaml:"logging"`
}

// SolverConfig controls the collapse engine.
type SolverConfig struct {
	// Seed is the base random seed. Retries use Seed + attempt*1000.
	Seed int64 `yaml:"seed"`

	// Order is "lowest" or "highest" entropy first.
	Order string `yaml:"order"`

	// MaxAttempts is how many whole solves are tried before giving up on contradictions.
	MaxAttempts int `yaml:"max_attempts"`
}

// FieldConfig describes the tessellation to solve.
type FieldConfig struct {
	// Shape is one of line, ring, square, hex.
	Shape string `yaml:"shape"`

	// Width is the line/ring length or the square grid width.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Radius applies to hex regions only.
	Radius int `yaml:"radius"`
}

// ModulesConfig points at the module set.
type ModulesConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig holds database connection configuration.
type StoreConfig struct {
	// Driver specifies which database to use: "sqlite" or "postgres"
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen      string            `yaml:"listen"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`

	// Persist stores every solve streamed over the WebSocket.
	Persist bool `yaml:"persist"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent solves streamed to a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent solves.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a Config that solves a 16x8 coast map.
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			Seed:        1,
			Order:       "lowest",
			MaxAttempts: 50,
		},
		Field: FieldConfig{
			Shape:  "square",
			Width:  16,
			Height: 8,
			Radius: 4,
		},
		Modules: ModulesConfig{
			Path: "data/modules/coast.yaml",
		},
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "data/wfc.db",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				SSLMode:         "disable",
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Server: ServerConfig{
			Listen: ":4000",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 4096,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
		},
		Logging: logger.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file and applies LOG_*
// environment overrides. If the file doesn't exist, returns the default
// config; if it can't be parsed, returns the default config and the error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.ApplyEnv(&config.Logging)
			return config, nil // Use defaults if file doesn't exist
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	logger.ApplyEnv(&config.Logging)
	return config, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Solver.Order {
	case "", "lowest", "highest":
	default:
		errs = append(errs, fmt.Errorf("solver.order %q must be lowest or highest", c.Solver.Order))
	}
	if c.Solver.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("solver.max_attempts must be at least 1"))
	}

	switch c.Field.Shape {
	case "line", "ring":
		if c.Field.Width < 1 {
			errs = append(errs, fmt.Errorf("field.width must be positive for %s", c.Field.Shape))
		}
	case "square":
		if c.Field.Width < 1 || c.Field.Height < 1 {
			errs = append(errs, fmt.Errorf("field.width and field.height must be positive"))
		}
	case "hex":
		if c.Field.Radius < 0 {
			errs = append(errs, fmt.Errorf("field.radius must not be negative"))
		}
	default:
		errs = append(errs, fmt.Errorf("field.shape %q must be line, ring, square or hex", c.Field.Shape))
	}

	if c.Modules.Path == "" {
		errs = append(errs, fmt.Errorf("modules.path is required"))
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("store.sqlite_path is required for sqlite"))
		}
	case "postgres":
		if c.Store.Postgres.Host == "" || c.Store.Postgres.Database == "" {
			errs = append(errs, fmt.Errorf("store.postgres.host and store.postgres.database are required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	return errors.Join(errs...)
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	// If no origins configured, enforce same-origin policy
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
