// Package config provides the configuration system for Vapor.
// A single Config structure covers the batch pipelines and the lookup
// service; values come from one YAML file with ${VAR} environment
// substitution.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a Vapor process.
type Config struct {
	// Sources locates the three raw datasets
	Sources SourcesConfig `yaml:"sources" json:"sources"`

	// Artifacts controls where projections are written
	Artifacts ArtifactsConfig `yaml:"artifacts" json:"artifacts"`

	// Serve configures the lookup service
	Serve ServeConfig `yaml:"serve" json:"serve"`

	// Logging configures the zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SourcesConfig locates the raw inputs. The catalog is gzip-compressed
// newline-delimited JSON; reviews and items are plain-text literal-dict
// streams.
type SourcesConfig struct {
	// Games is the path to the compressed catalog feed
	Games string `yaml:"games" json:"games"`
	// Reviews is the path to the per-user review feed
	Reviews string `yaml:"reviews" json:"reviews"`
	// Items is the path to the per-user owned-items feed
	Items string `yaml:"items" json:"items"`
}

// ArtifactsConfig controls projection output.
type ArtifactsConfig struct {
	// Dir is the directory projection files are written to
	Dir string `yaml:"dir" json:"dir"`
	// Compression selects the parquet column codec (gzip, zstd, snappy, none)
	Compression string `yaml:"compression" json:"compression"`
}

// ServeConfig configures the lookup service.
type ServeConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `yaml:"addr" json:"addr"`
	// DatasetsDir holds the precomputed aggregate tables served by key
	DatasetsDir string `yaml:"datasets_dir" json:"datasets_dir"`
	// ReadTimeout bounds request reads
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`
	// WriteTimeout bounds response writes
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Encoding string `yaml:"encoding" json:"encoding"`
}

// Default returns a configuration with sensible defaults; paths must still
// be supplied by the caller or the YAML file.
func Default() *Config {
	return &Config{
		Artifacts: ArtifactsConfig{
			Dir:         "./datasets",
			Compression: "gzip",
		},
		Serve: ServeConfig{
			Addr:         ":8080",
			DatasetsDir:  "./datasets",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks the configuration for a pipeline run.
func (c *Config) Validate() error {
	if c.Sources.Games == "" && c.Sources.Reviews == "" && c.Sources.Items == "" {
		return fmt.Errorf("no sources configured")
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is required")
	}
	switch c.Artifacts.Compression {
	case "", "gzip", "zstd", "snappy", "none":
	default:
		return fmt.Errorf("unsupported artifact compression %q", c.Artifacts.Compression)
	}
	return nil
}

// Load loads a configuration from a YAML file into cfg.
func Load(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
