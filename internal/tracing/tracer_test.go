package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.False(t, cfg.Enabled, "tracing should be disabled by default")
	require.Equal(t, "file", cfg.Exporter)
	require.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, DefaultServiceName, cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid(), "disabled tracer creates no real spans")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "file", cfg: Config{Enabled: true, Exporter: "file", FilePath: filepath.Join(t.TempDir(), "traces", "traces.jsonl")}},
		{name: "stdout", cfg: Config{Enabled: true, Exporter: "stdout"}},
		{name: "none", cfg: Config{Enabled: true, Exporter: "none", SampleRate: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			require.NoError(t, err)
			require.True(t, provider.Enabled())

			_, span := provider.Tracer().Start(context.Background(), "test-span")
			require.True(t, span.SpanContext().IsValid())
			span.End()
			require.NoError(t, provider.Shutdown(context.Background()))

			if tt.cfg.FilePath != "" {
				_, err := os.Stat(tt.cfg.FilePath)
				require.NoError(t, err, "trace file should exist")
			}
		})
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	require.ErrorContains(t, err, "file_path required")

	_, err = NewProvider(Config{Enabled: true, Exporter: "jaeger"})
	require.ErrorContains(t, err, "unsupported exporter type")
}
