package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/zjrosen/contentgraph/internal/cachemanager"
	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/pubsub"
)

// Middleware wraps a CommandHandler to add additional behavior.
// Middleware functions are composed using ChainMiddleware.
type Middleware func(CommandHandler) CommandHandler

// ChainMiddleware applies middlewares to a handler in reverse order.
// The first middleware in the list will be the outermost wrapper.
// For example: ChainMiddleware(handler, logging, dedup, timeout)
// Results in: logging(dedup(timeout(handler)))
func ChainMiddleware(handler CommandHandler, middlewares ...Middleware) CommandHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

func sourceOf(cmd command.Command) command.CommandSource {
	if s, ok := cmd.(interface{ Source() command.CommandSource }); ok {
		return s.Source()
	}
	return ""
}

func traceIDOf(cmd command.Command) string {
	if t, ok := cmd.(interface{ TraceID() string }); ok {
		return t.TraceID()
	}
	return ""
}

// outcome folds a handler error and a failure result into one error.
func outcome(result *command.CommandResult, err error) error {
	if err != nil {
		return err
	}
	if result != nil && !result.Success {
		return result.Error
	}
	return nil
}

// ===========================================================================
// Logging Middleware
// ===========================================================================

// NewLoggingMiddleware creates a middleware that logs command execution.
func NewLoggingMiddleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			duration := time.Since(start)

			fields := []any{
				"command_id", cmd.ID(),
				"command_type", cmd.Type().String(),
				"trace_id", traceIDOf(cmd),
				"duration", duration,
				"source", sourceOf(cmd),
			}
			switch {
			case err != nil:
				log.Error(log.CatCommand, "command failed", append(fields, "error", err.Error())...)
			case result != nil && !result.Success:
				errMsg := ""
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				log.Warn(log.CatCommand, "command completed with error result", append(fields, "error", errMsg)...)
			default:
				log.Debug(log.CatCommand, "command completed", fields...)
			}
			return result, err
		})
	}
}

// ===========================================================================
// Deduplication Middleware
// ===========================================================================

// DefaultDeduplicationTTL is the default time-to-live for deduplication cache entries.
const DefaultDeduplicationTTL = 5 * time.Second

// DeduplicationMiddlewareConfig configures the deduplication middleware.
type DeduplicationMiddlewareConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration // If 0, uses TTL/2
}

// DeduplicationMiddleware rejects a command whose content equals one
// processed within the TTL window. Ids and timestamps are not content.
type DeduplicationMiddleware struct {
	seen *cachemanager.InMemoryCacheManager[string, struct{}]
	ttl  time.Duration
}

// NewDeduplicationMiddleware creates a new deduplication middleware.
func NewDeduplicationMiddleware(cfg DeduplicationMiddlewareConfig) *DeduplicationMiddleware {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultDeduplicationTTL
	}
	cleanup := cfg.CleanupInterval
	if cleanup == 0 {
		cleanup = ttl / 2
	}
	return &DeduplicationMiddleware{
		seen: cachemanager.NewInMemoryCacheManager[string, struct{}]("command deduplication", ttl, cleanup),
		ttl:  ttl,
	}
}

// CacheSize returns the current number of remembered commands.
func (m *DeduplicationMiddleware) CacheSize() int {
	return m.seen.ItemCount()
}

// Middleware returns the middleware function.
func (m *DeduplicationMiddleware) Middleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			hash := contentHash(cmd)
			if _, ok := m.seen.Get(ctx, hash); ok {
				log.Warn(log.CatCommand, "duplicate command rejected",
					"command_id", cmd.ID(),
					"command_type", cmd.Type().String(),
					"content_hash", hash[:16],
				)
				return &command.CommandResult{Success: false, Error: command.ErrDuplicateCommand}, nil
			}
			m.seen.Set(ctx, hash, struct{}{}, m.ttl)
			return next.Handle(ctx, cmd)
		})
	}
}

// contentHasher is implemented by commands that want custom dedup hashing.
type contentHasher interface {
	ContentHash() string
}

// contentHash hashes the command type and its JSON form. Commands keep their
// id and timestamp in the untagged base, so JSON holds only content.
func contentHash(cmd command.Command) string {
	h := sha256.New()
	h.Write([]byte(cmd.Type().String()))
	if hasher, ok := cmd.(contentHasher); ok {
		h.Write([]byte(hasher.ContentHash()))
	} else if payload, err := json.Marshal(cmd); err == nil {
		h.Write(payload)
	} else {
		h.Write([]byte(cmd.ID()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ===========================================================================
// Command Log Middleware
// ===========================================================================

// NewCommandLogMiddleware creates a middleware that publishes a
// CommandLogEvent for each processed command. A nil bus makes it a no-op.
func NewCommandLogMiddleware(bus pubsub.Publisher[any]) Middleware {
	return func(next CommandHandler) CommandHandler {
		if bus == nil {
			return next
		}
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			cmdErr := outcome(result, err)

			bus.Publish(pubsub.UpdatedEvent, CommandLogEvent{
				CommandID:   cmd.ID(),
				CommandType: cmd.Type(),
				Source:      sourceOf(cmd),
				Success:     err == nil && (result == nil || result.Success),
				Error:       cmdErr,
				Duration:    time.Since(start),
				Timestamp:   time.Now(),
				TraceID:     traceIDOf(cmd),
			})
			return result, err
		})
	}
}

// ===========================================================================
// Timeout Middleware
// ===========================================================================

// DefaultTimeoutWarningThreshold is the default threshold for logging slow handler warnings.
const DefaultTimeoutWarningThreshold = 100 * time.Millisecond

// NewTimeoutMiddleware creates a middleware that logs a warning when a
// handler exceeds threshold. Slow handlers are never aborted; a workspace
// operation may be in the middle of its rollback.
func NewTimeoutMiddleware(threshold time.Duration) Middleware {
	if threshold == 0 {
		threshold = DefaultTimeoutWarningThreshold
	}
	return func(next CommandHandler) CommandHandler {
		return HandlerFunc(func(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
			start := time.Now()
			result, err := next.Handle(ctx, cmd)
			if duration := time.Since(start); duration > threshold {
				log.Warn(log.CatCommand, "handler exceeded time threshold",
					"command_id", cmd.ID(),
					"command_type", cmd.Type().String(),
					"trace_id", traceIDOf(cmd),
					"duration", duration,
					"threshold", threshold,
				)
			}
			return result, err
		})
	}
}
