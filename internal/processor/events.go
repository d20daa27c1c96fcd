package processor

import (
	"time"

	"github.com/zjrosen/contentgraph/internal/command"
)

// CommandLogEvent is emitted after each command is processed.
type CommandLogEvent struct {
	CommandID   string
	CommandType command.CommandType
	// Source indicates where the command originated (cli, api, replay, internal).
	Source   command.CommandSource
	Success  bool
	Error    error
	Duration time.Duration
	// Timestamp is when the command finished processing.
	Timestamp time.Time
	// TraceID is the distributed trace ID for correlation (empty if tracing disabled).
	TraceID string
}

// CommandErrorEvent is published when a command is rejected.
type CommandErrorEvent struct {
	CommandID   string
	CommandType command.CommandType
	Error       error
}
