package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:"SERVER"`

	// Storage configuration
	Storage StorageConfig `env:"STORAGE"`

	// Logging configuration
	Logging LoggingConfig `env:"LOGGING"`

	// Metrics configuration
	Metrics MetricsConfig `env:"METRICS"`

	// Configuration file path
	ConfigFile string `env:"CONFIG_FILE"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	// ListenAddr is the TCP address the frame protocol listens on
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":5551"`

	// InitialSubscriptionCredit is the byte credit a SUBSCRIBE or QUERY
	// starts with, before any ACKEV/QUERYACK
	InitialSubscriptionCredit int64 `env:"INITIAL_SUBSCRIPTION_CREDIT" envDefault:"1048576"`
}

// StorageConfig holds storage-related configuration
type StorageConfig struct {
	// LogsDir holds each channel's chunk files
	LogsDir string `env:"LOGS_DIR" envDefault:"./data/logs"`

	// MaxLogChunkSize is the fixed size of a pre-allocated chunk file
	MaxLogChunkSize int64 `env:"MAX_LOG_CHUNK_SIZE" envDefault:"67108864"`

	// DocsDir holds one pebble instance per document binder
	DocsDir string `env:"DOCS_DIR" envDefault:"./data/docs"`

	// MetadataDir holds durable subscription cursors
	MetadataDir string `env:"METADATA_DIR" envDefault:"./data/metadata"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	// Log level: "debug", "info", "warn", "error"
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Log format: "json", "text"
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	// Log file path (empty for stdout)
	Output string `env:"LOG_OUTPUT" envDefault:""`

	// Enable log rotation
	Rotation bool `env:"LOG_ROTATION" envDefault:"true"`

	// Max log file size in MB
	MaxSize int `env:"LOG_MAX_SIZE" envDefault:"100"`

	// Number of backup files to keep
	MaxBackups int `env:"LOG_MAX_BACKUPS" envDefault:"7"`

	// Max age in days
	MaxAge int `env:"LOG_MAX_AGE" envDefault:"30"`
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	// Enable Prometheus metrics
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Metrics server address
	Addr string `env:"METRICS_ADDR" envDefault:":9090"`

	// Metrics path
	Path string `env:"METRICS_PATH" envDefault:"/metrics"`

	// Enable OpenTelemetry tracing
	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`

	// OpenTelemetry endpoint
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:""`
}

// Load loads configuration from default values, then environment
// variables, then command line flags. A configuration file named by
// -config is read but none of its settings are applied (see loadFromFile).
func Load() (*Config, error) {
	cfg := &Config{}

	// Load from environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Parse command line flags
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to configuration file")
	flag.StringVar(&cfg.Server.ListenAddr, "listen-addr", cfg.Server.ListenAddr, "Frame protocol listen address")
	flag.StringVar(&cfg.Storage.LogsDir, "logs-dir", cfg.Storage.LogsDir, "Channel log chunk directory")
	flag.StringVar(&cfg.Storage.DocsDir, "docs-dir", cfg.Storage.DocsDir, "Document binder directory")
	flag.StringVar(&cfg.Storage.MetadataDir, "metadata-dir", cfg.Storage.MetadataDir, "Durable cursor metadata directory")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "Log format (json, text)")
	flag.Parse()

	// Load from config file if specified
	if cfg.ConfigFile != "" {
		if err := loadFromFile(cfg, cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Normalize paths
	cfg.Storage.LogsDir = filepath.Clean(cfg.Storage.LogsDir)
	cfg.Storage.DocsDir = filepath.Clean(cfg.Storage.DocsDir)
	cfg.Storage.MetadataDir = filepath.Clean(cfg.Storage.MetadataDir)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address cannot be empty")
	}

	if c.Server.InitialSubscriptionCredit <= 0 {
		return fmt.Errorf("initial subscription credit must be positive")
	}

	if c.Storage.LogsDir == "" {
		return fmt.Errorf("logs directory cannot be empty")
	}

	if c.Storage.DocsDir == "" {
		return fmt.Errorf("docs directory cannot be empty")
	}

	if c.Storage.MetadataDir == "" {
		return fmt.Errorf("metadata directory cannot be empty")
	}

	if c.Storage.MaxLogChunkSize <= 0 {
		return fmt.Errorf("max log chunk size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// loadFromFile reads the file at path and returns an error if it cannot be
// read. It does not parse the contents and leaves cfg unchanged.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// The contents are not parsed; cfg is left as it is.
	_ = data
	return nil
}
