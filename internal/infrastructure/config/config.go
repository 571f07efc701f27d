// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for vardb configuration.
	DefaultConfigDir = ".vardb"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite file name inside the config directory.
	DefaultDatabaseFile = "vardb.db"
)

// Graph backends.
const (
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Graph    GraphConfig    `yaml:"graph,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Neo4j    Neo4jConfig    `yaml:"neo4j,omitempty"`
	Stratify StratifyConfig `yaml:"stratify,omitempty"`
	Workflow WorkflowConfig `yaml:"workflow,omitempty"`
	Retry    RetryConfig    `yaml:"retry,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// GraphConfig selects the graph store.
type GraphConfig struct {
	Backend string `yaml:"backend,omitempty"`
}

// SQLiteConfig holds configuration for the embedded SQLite graph store.
type SQLiteConfig struct {
	// Path is the database file. Relative paths resolve against the project root;
	// ":memory:" keeps the graph in process.
	Path string `yaml:"path,omitempty"`
}

// Neo4jConfig holds connection settings for a Neo4j server.
type Neo4jConfig struct {
	URI            string `yaml:"uri,omitempty"`
	User           string `yaml:"user,omitempty"`
	Password       string `yaml:"password,omitempty"`
	Database       string `yaml:"database,omitempty"`
	MaxPoolSize    int    `yaml:"max_pool_size,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the per-transaction timeout.
func (c Neo4jConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StratifyConfig tunes the stratification filters.
type StratifyConfig struct {
	ScopeToPanel  bool    `yaml:"scope_to_panel"`
	ExACThreshold float64 `yaml:"exac_threshold,omitempty"`
	KGThreshold   float64 `yaml:"kg_threshold,omitempty"`
}

// WorkflowConfig holds dual-control settings.
type WorkflowConfig struct {
	AllowSelfAuthorisation bool `yaml:"allow_self_authorisation"`
}

// RetryConfig controls how transient store errors are retried.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts,omitempty"`
	BackoffMS   int `yaml:"backoff_ms,omitempty"`
}

// Backoff returns the base delay between attempts.
func (c RetryConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}

// LogConfig selects the logger mode ("dev" or "prod").
type LogConfig struct {
	Mode string `yaml:"mode,omitempty"`
}

// MetricsConfig holds metrics output settings.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in node_exporter textfile format on exit.
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Backend: BackendSQLite,
		},
		SQLite: SQLiteConfig{
			Path: filepath.Join(DefaultConfigDir, DefaultDatabaseFile),
		},
		Neo4j: Neo4jConfig{
			URI:            "neo4j://localhost:7687",
			User:           "neo4j",
			Database:       "neo4j",
			MaxPoolSize:    50,
			TimeoutSeconds: 30,
		},
		Stratify: StratifyConfig{
			ExACThreshold: 0.01,
			KGThreshold:   0.01,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffMS:   50,
		},
		Log: LogConfig{
			Mode: "prod",
		},
	}
}

// Load loads configuration from the .vardb directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'vardb init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VARDB_GRAPH_BACKEND"); v != "" {
		c.Graph.Backend = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_DATABASE"); v != "" {
		c.Neo4j.Database = v
	}
	if v := os.Getenv("VARDB_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("VARDB_ALLOW_SELF_AUTHORISATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Workflow.AllowSelfAuthorisation = b
		}
	}
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	switch c.Graph.Backend {
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite backend")
		}
	case BackendNeo4j:
		if c.Neo4j.URI == "" {
			return fmt.Errorf("neo4j.uri is required for the neo4j backend")
		}
	default:
		return fmt.Errorf("unknown graph.backend %q (want %s or %s)", c.Graph.Backend, BackendSQLite, BackendNeo4j)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Stratify.ExACThreshold < 0 || c.Stratify.KGThreshold < 0 {
		return fmt.Errorf("stratify thresholds must not be negative")
	}
	return nil
}

// SQLitePath resolves the configured database path against basePath.
func (c *Config) SQLitePath(basePath string) string {
	if c.SQLite.Path == ":memory:" || filepath.IsAbs(c.SQLite.Path) {
		return c.SQLite.Path
	}
	return filepath.Join(basePath, c.SQLite.Path)
}

// ConfigDir returns the path to the .vardb config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a vardb config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
