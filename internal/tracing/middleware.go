package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/processor"
)

// NewMiddleware creates middleware that opens a span per processed command.
// Follow-up commands inherit the span context so their spans become children.
// A nil tracer yields a pass-through.
func NewMiddleware(tracer trace.Tracer) processor.Middleware {
	if tracer == nil {
		return func(next processor.CommandHandler) processor.CommandHandler {
			return next
		}
	}

	return func(next processor.CommandHandler) processor.CommandHandler {
		return processor.HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			ctx = restoreSpanContext(ctx, cmd)
			ctx, span := tracer.Start(ctx, SpanPrefixCommand+cmd.Type().String(),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String(AttrCommandID, cmd.ID()),
				attribute.String(AttrCommandType, cmd.Type().String()),
				attribute.Int(AttrCommandPriority, cmd.Priority()),
			)
			if s, ok := cmd.(interface{ Source() command.CommandSource }); ok {
				span.SetAttributes(attribute.String(AttrCommandSource, s.Source().String()))
			}
			if w, ok := cmd.(interface{ Workspace() model.WorkspaceName }); ok {
				span.SetAttributes(attribute.String(AttrWorkspaceName, string(w.Workspace())))
			}
			if setter, ok := cmd.(interface{ SetSpanContext(trace.SpanContext) }); ok {
				setter.SetSpanContext(span.SpanContext())
			}

			result, err := next.Handle(ctx, cmd)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result != nil && !result.Success:
				if result.Error != nil {
					span.RecordError(result.Error)
					span.SetStatus(codes.Error, result.Error.Error())
				} else {
					span.SetStatus(codes.Error, "command failed without error details")
				}
			default:
				span.SetStatus(codes.Ok, "")
			}

			if result != nil {
				sc := span.SpanContext()
				for _, followUp := range result.FollowUp {
					span.AddEvent(EventFollowUpCreated, trace.WithAttributes(
						attribute.String(AttrCommandType, followUp.Type().String()),
						attribute.String(AttrCommandID, followUp.ID()),
					))
					if setter, ok := followUp.(interface{ SetSpanContext(trace.SpanContext) }); ok {
						setter.SetSpanContext(sc)
					}
				}
			}
			return result, err
		})
	}
}

// restoreSpanContext makes the span context carried by cmd the parent of new spans.
func restoreSpanContext(ctx context.Context, cmd command.Command) context.Context {
	if carrier, ok := cmd.(interface{ SpanContext() trace.SpanContext }); ok {
		if sc := carrier.SpanContext(); sc.IsValid() {
			return trace.ContextWithRemoteSpanContext(ctx, sc)
		}
	}
	return ctx
}
