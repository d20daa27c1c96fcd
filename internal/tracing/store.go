package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/contentgraph/internal/contentstream"
)

// Store records a span for every fork, append and load of the wrapped store.
// Appends rejected for a concurrency conflict get an event instead of an
// error status; the caller is expected to retry.
type Store struct {
	contentstream.Store
	tracer trace.Tracer
}

var _ contentstream.Store = (*Store)(nil)

// WrapStore wraps store. A nil tracer returns store unchanged.
func WrapStore(store contentstream.Store, tracer trace.Tracer) contentstream.Store {
	if tracer == nil {
		return store
	}
	return &Store{Store: store, tracer: tracer}
}

func (s *Store) start(ctx context.Context, op string, id contentstream.ID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, SpanPrefixStore+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String(AttrStreamID, string(id)))...),
	)
}

func end(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, contentstream.ErrConcurrencyConflict):
		span.AddEvent(EventConcurrencyConflict, trace.WithAttributes(attribute.String("error", err.Error())))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Store) Fork(ctx context.Context, source, target contentstream.ID) (int64, error) {
	ctx, span := s.start(ctx, "fork", target, attribute.String(AttrSourceStreamID, string(source)))
	v, err := s.Store.Fork(ctx, source, target)
	span.SetAttributes(attribute.Int64(AttrVersion, v))
	end(span, err)
	return v, err
}

func (s *Store) Append(ctx context.Context, id contentstream.ID, expectedVersion int64, events []contentstream.Event) (int64, error) {
	ctx, span := s.start(ctx, "append", id,
		attribute.Int64(AttrExpectedVersion, expectedVersion),
		attribute.Int(AttrEventCount, len(events)),
	)
	v, err := s.Store.Append(ctx, id, expectedVersion, events)
	span.SetAttributes(attribute.Int64(AttrVersion, v))
	end(span, err)
	return v, err
}

func (s *Store) Load(ctx context.Context, id contentstream.ID, after int64) ([]contentstream.Record, error) {
	ctx, span := s.start(ctx, "load", id)
	records, err := s.Store.Load(ctx, id, after)
	span.SetAttributes(attribute.Int(AttrEventCount, len(records)))
	end(span, err)
	return records, err
}
