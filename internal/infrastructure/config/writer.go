package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# variantdb configuration

graph:
  backend: sqlite # or neo4j

sqlite:
  path: .vardb/vardb.db

neo4j:
  uri: neo4j://localhost:7687
  user: neo4j
  database: neo4j
  max_pool_size: 50
  timeout_seconds: 30
  # password: set NEO4J_PASSWORD instead

stratify:
  scope_to_panel: false
  exac_threshold: 0.01
  kg_threshold: 0.01

workflow:
  allow_self_authorisation: false

retry:
  max_attempts: 3
  backoff_ms: 50

log:
  mode: prod # or dev

metrics:
  # textfile: /var/lib/node_exporter/vardb.prom
`

// WriteDefault creates the .vardb directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
