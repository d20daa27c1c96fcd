package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/tracing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, DriverSQLite, cfg.EventStore.Driver)
	require.Equal(t, "NodeTypes", cfg.NodeTypes.Dir)
	require.Equal(t, "**/NodeTypes*.yaml", cfg.NodeTypes.Pattern)
	require.Equal(t, "dimensions.yaml", cfg.Dimensions.File)
	require.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	require.Equal(t, 1000, cfg.Processor.QueueCapacity)
	require.Zero(t, cfg.Processor.DeduplicationTTL)
	require.Equal(t, "contentgraph", cfg.Metrics.Namespace)
	require.Equal(t, "contentgraph.streams", cfg.NATS.SubjectPrefix)
	require.False(t, cfg.Tracing.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestDefaultPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.Equal(t, filepath.Join(home, ".config", "contentgraph"), DefaultDir())
	require.Equal(t, filepath.Join(home, ".config", "contentgraph", "contentgraph.db"), DefaultDatabasePath())
	require.Equal(t, filepath.Join(home, ".config", "contentgraph", "traces", "traces.jsonl"), DefaultTracesFilePath())
}

func TestValidateEventStore(t *testing.T) {
	tests := []struct {
		name    string
		es      EventStoreConfig
		wantErr string
	}{
		{"empty driver", EventStoreConfig{}, ""},
		{"memory", EventStoreConfig{Driver: DriverMemory}, ""},
		{"sqlite with path", EventStoreConfig{Driver: DriverSQLite, Path: "/tmp/x.db"}, ""},
		{"sqlite without path", EventStoreConfig{Driver: DriverSQLite}, "event_store.path is required"},
		{"unknown driver", EventStoreConfig{Driver: "postgres"}, "event_store.driver must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventStore(tt.es)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateNodeTypes(t *testing.T) {
	require.NoError(t, ValidateNodeTypes(NodeTypesConfig{Dir: "NodeTypes", Pattern: "**/*.yaml"}))
	require.NoError(t, ValidateNodeTypes(NodeTypesConfig{}))
	require.ErrorContains(t, ValidateNodeTypes(NodeTypesConfig{Pattern: "[unclosed"}), "not a valid glob")
	require.ErrorContains(t, ValidateNodeTypes(NodeTypesConfig{Watch: true}), "node_types.dir is required")
}

func TestValidateCache(t *testing.T) {
	require.NoError(t, ValidateCache(CacheConfig{TTL: -1}))
	require.ErrorContains(t, ValidateCache(CacheConfig{CleanupInterval: -time.Second}), "cache.cleanup_interval")
}

func TestValidateProcessor(t *testing.T) {
	require.NoError(t, ValidateProcessor(ProcessorConfig{}))
	require.ErrorContains(t, ValidateProcessor(ProcessorConfig{QueueCapacity: -1}), "queue_capacity")
	require.ErrorContains(t, ValidateProcessor(ProcessorConfig{DeduplicationTTL: -time.Second}), "deduplication_ttl")
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     tracing.Config
		wantErr string
	}{
		{"zero value", tracing.Config{}, ""},
		{"disabled file without path", tracing.Config{Exporter: "file"}, ""},
		{"sample rate too high", tracing.Config{SampleRate: 1.5}, "sample_rate"},
		{"sample rate negative", tracing.Config{SampleRate: -0.1}, "sample_rate"},
		{"unknown exporter", tracing.Config{Exporter: "jaeger"}, "tracing.exporter"},
		{"enabled file without path", tracing.Config{Enabled: true, Exporter: "file"}, "file_path is required"},
		{"enabled otlp without endpoint", tracing.Config{Enabled: true, Exporter: "otlp"}, "otlp_endpoint is required"},
		{"enabled otlp", tracing.Config{Enabled: true, Exporter: "otlp", OTLPEndpoint: "localhost:4317", SampleRate: 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateMetrics(t *testing.T) {
	require.NoError(t, ValidateMetrics(MetricsConfig{}))
	require.ErrorContains(t, ValidateMetrics(MetricsConfig{Enabled: true}), "metrics.namespace")
}

func TestValidateNATS(t *testing.T) {
	require.NoError(t, ValidateNATS(NATSConfig{}))
	require.ErrorContains(t, ValidateNATS(NATSConfig{Enabled: true, SubjectPrefix: "x"}), "nats.url")
	require.ErrorContains(t, ValidateNATS(NATSConfig{Enabled: true, URL: "nats://localhost:4222"}), "nats.subject_prefix")
}

func TestConfig_ValidateReportsFirstFailingSection(t *testing.T) {
	cfg := Defaults()
	cfg.Processor.QueueCapacity = -5
	cfg.NATS = NATSConfig{Enabled: true}

	require.ErrorContains(t, cfg.Validate(), "processor.queue_capacity")
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))

	want := Defaults()
	require.Equal(t, want.EventStore.Driver, cfg.EventStore.Driver)
	require.Equal(t, want.NodeTypes, cfg.NodeTypes)
	require.Equal(t, want.Dimensions, cfg.Dimensions)
	require.Equal(t, want.Cache, cfg.Cache)
	require.Equal(t, want.Processor, cfg.Processor)
	require.Equal(t, want.Metrics, cfg.Metrics)
	require.Equal(t, want.NATS, cfg.NATS)
	require.NoError(t, cfg.Validate())
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteDefaultConfig_ParentIsFile(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))

	err := WriteDefaultConfig(filepath.Join(parent, "config.yaml"))
	require.ErrorContains(t, err, "creating config directory")
}
