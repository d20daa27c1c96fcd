package tracing

// Span attribute keys.
const (
	AttrCommandID       = "command.id"
	AttrCommandType     = "command.type"
	AttrCommandPriority = "command.priority"
	AttrCommandSource   = "command.source"

	AttrWorkspaceName = "workspace.name"
	AttrNodeAggregate = "node_aggregate.id"

	AttrStreamID        = "content_stream.id"
	AttrSourceStreamID  = "content_stream.source_id"
	AttrExpectedVersion = "content_stream.expected_version"
	AttrVersion         = "content_stream.version"
	AttrEventCount      = "content_stream.event_count"
)

// Span name prefixes.
const (
	SpanPrefixCommand = "command.process."
	SpanPrefixStore   = "store."
)

// Event names for span events.
const (
	EventFollowUpCreated     = "follow_up.created"
	EventConcurrencyConflict = "concurrency.conflict"
)
