// Package config provides configuration types and defaults for contentgraph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/messaging"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/tracing"
)

// Event store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds all configuration options for contentgraph.
type Config struct {
	EventStore EventStoreConfig `mapstructure:"event_store"`
	NodeTypes  NodeTypesConfig  `mapstructure:"node_types"`
	Dimensions DimensionsConfig `mapstructure:"dimensions"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
	Tracing    tracing.Config   `mapstructure:"tracing"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Log        LogConfig        `mapstructure:"log"`
}

// EventStoreConfig selects where content streams and workspaces are persisted.
type EventStoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" (default) or "memory"
	Path   string `mapstructure:"path"`   // database file for the sqlite driver
}

// NodeTypesConfig locates the node type YAML files.
type NodeTypesConfig struct {
	Dir     string `mapstructure:"dir"`
	Pattern string `mapstructure:"pattern"` // doublestar pattern relative to Dir
	Watch   bool   `mapstructure:"watch"`   // reload the registry when files change
}

// DimensionsConfig locates the dimension space configuration.
type DimensionsConfig struct {
	File string `mapstructure:"file"`
}

// CacheConfig configures the node aggregate cache of the projection.
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ProcessorConfig configures the command processor.
type ProcessorConfig struct {
	QueueCapacity        int           `mapstructure:"queue_capacity"`
	DeduplicationTTL     time.Duration `mapstructure:"deduplication_ttl"`      // 0 disables deduplication
	SlowCommandThreshold time.Duration `mapstructure:"slow_command_threshold"` // commands slower than this are logged
}

// MetricsConfig configures the prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// NATSConfig configures forwarding of appended events to NATS.
type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// LogConfig configures the category logger.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Debug bool   `mapstructure:"debug"`
}

// DefaultDir returns the per-user configuration directory,
// ~/.config/contentgraph, or empty string if home dir unavailable.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "contentgraph")
}

// DefaultDatabasePath returns ~/.config/contentgraph/contentgraph.db, or
// empty string if home dir unavailable.
func DefaultDatabasePath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "contentgraph.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tracingCfg := tracing.DefaultConfig()
	tracingCfg.FilePath = DefaultTracesFilePath()

	return Config{
		EventStore: EventStoreConfig{
			Driver: DriverSQLite,
			Path:   DefaultDatabasePath(),
		},
		NodeTypes: NodeTypesConfig{
			Dir:     "NodeTypes",
			Pattern: nodetype.DefaultPattern,
			Watch:   false,
		},
		Dimensions: DimensionsConfig{
			File: "dimensions.yaml",
		},
		Cache: CacheConfig{
			TTL:             5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Processor: ProcessorConfig{
			QueueCapacity:        1000,
			SlowCommandThreshold: 100 * time.Millisecond,
		},
		Tracing: tracingCfg,
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "contentgraph",
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: messaging.DefaultSubjectPrefix,
		},
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	validators := []func() error{
		func() error { return ValidateEventStore(c.EventStore) },
		func() error { return ValidateNodeTypes(c.NodeTypes) },
		func() error { return ValidateCache(c.Cache) },
		func() error { return ValidateProcessor(c.Processor) },
		func() error { return ValidateTracing(c.Tracing) },
		func() error { return ValidateMetrics(c.Metrics) },
		func() error { return ValidateNATS(c.NATS) },
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEventStore checks the event store driver and its path.
func ValidateEventStore(es EventStoreConfig) error {
	switch es.Driver {
	case "", DriverMemory:
		return nil
	case DriverSQLite:
		if es.Path == "" {
			return fmt.Errorf("event_store.path is required when driver is %q", DriverSQLite)
		}
		return nil
	default:
		return fmt.Errorf("event_store.driver must be %q or %q, got %q", DriverMemory, DriverSQLite, es.Driver)
	}
}

// ValidateNodeTypes checks the node type file pattern.
func ValidateNodeTypes(nt NodeTypesConfig) error {
	if nt.Pattern != "" && !doublestar.ValidatePattern(nt.Pattern) {
		return fmt.Errorf("node_types.pattern is not a valid glob: %q", nt.Pattern)
	}
	if nt.Watch && nt.Dir == "" {
		return fmt.Errorf("node_types.dir is required when watch is enabled")
	}
	return nil
}

// ValidateCache checks cache durations. A negative ttl disables the cache.
func ValidateCache(c CacheConfig) error {
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cache.cleanup_interval must not be negative, got %v", c.CleanupInterval)
	}
	return nil
}

// ValidateProcessor checks the command processor settings.
func ValidateProcessor(p ProcessorConfig) error {
	if p.QueueCapacity < 0 {
		return fmt.Errorf("processor.queue_capacity must not be negative, got %d", p.QueueCapacity)
	}
	if p.DeduplicationTTL < 0 {
		return fmt.Errorf("processor.deduplication_ttl must not be negative, got %v", p.DeduplicationTTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// ValidateMetrics checks the metrics namespace.
func ValidateMetrics(m MetricsConfig) error {
	if m.Enabled && m.Namespace == "" {
		return fmt.Errorf("metrics.namespace is required when metrics are enabled")
	}
	return nil
}

// ValidateNATS checks the NATS connection settings.
func ValidateNATS(n NATSConfig) error {
	if !n.Enabled {
		return nil
	}
	if n.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled")
	}
	if n.SubjectPrefix == "" {
		return fmt.Errorf("nats.subject_prefix is required when nats is enabled")
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# contentgraph configuration

# Where content streams and workspaces are stored
event_store:
  driver: sqlite    # sqlite (default) or memory
  # path: ~/.config/contentgraph/contentgraph.db

# Node type definitions
node_types:
  dir: NodeTypes
  pattern: "**/NodeTypes*.yaml"
  watch: false      # reload node types when files change (serve only)

# Dimension space
dimensions:
  file: dimensions.yaml
  # Example:
  # dimensions:
  #   - name: language
  #     values:
  #       en:
  #         specializations: [en_US]
  #       en_US: {}
  #       de: {}

# Node aggregate cache of the projection (negative ttl disables it)
cache:
  ttl: 5m
  cleanup_interval: 10m

# Command processing
processor:
  queue_capacity: 1000
  # deduplication_ttl: 5s       # reject identical commands within the window
  slow_command_threshold: 100ms

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/contentgraph/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)

# Prometheus metrics, printed to stderr when 'contentgraph serve' exits
metrics:
  enabled: false
  namespace: contentgraph

# Forward appended events to NATS, one subject per content stream
nats:
  enabled: false
  url: nats://127.0.0.1:4222
  subject_prefix: contentgraph.streams

# Logging
# log:
#   path: contentgraph.log
#   debug: false
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
