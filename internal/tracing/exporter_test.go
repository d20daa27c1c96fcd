package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestFileExporter_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "traces.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(`{"existing":"data"}`+"\n"), 0600))

	exporter, err := NewFileExporter(path)
	require.NoError(t, err)

	start := time.Now()
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	stub := tracetest.SpanStub{
		Name:       "command.process.create_workspace",
		SpanKind:   trace.SpanKindInternal,
		Parent:     parent,
		StartTime:  start,
		EndTime:    start.Add(1500 * time.Microsecond),
		Status:     sdktrace.Status{Code: codes.Error, Description: "workspace already exists"},
		Attributes: []attribute.KeyValue{attribute.String(AttrWorkspaceName, "user-alice")},
		Events:     []sdktrace.Event{{Name: EventConcurrencyConflict, Time: start}},
	}
	require.NoError(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()), "second shutdown is a no-op")

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2, "appends to existing content")

	var record SpanRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &record))
	require.Equal(t, "command.process.create_workspace", record.Name)
	require.Equal(t, "internal", record.Kind)
	require.Equal(t, parent.SpanID().String(), record.ParentSpanID)
	require.Equal(t, "ERROR", record.Status)
	require.Equal(t, "workspace already exists", record.StatusMsg)
	require.InDelta(t, 1.5, record.DurationMs, 0.001)
	require.Equal(t, "user-alice", record.Attributes[AttrWorkspaceName])
	require.Len(t, record.Events, 1)
}

func TestFileExporter_ExportAfterShutdown(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)
	require.NoError(t, exporter.Shutdown(context.Background()))

	stub := tracetest.SpanStub{Name: "late"}
	require.Error(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
}
