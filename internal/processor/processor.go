// Package processor provides the FIFO command processor of the content repository.
// A single loop takes commands off a buffered queue and hands each one to the
// handler registered for its type, so commands against the same repository
// never interleave.
package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/pubsub"
)

// DefaultQueueCapacity is the default buffer size for the command queue.
const DefaultQueueCapacity = 1000

// ErrUnknownCommandType is returned when no handler is registered for a command type.
var ErrUnknownCommandType = errors.New("unknown command type")

// ErrNotRunning is returned when a command is submitted before Run or after Drain.
var ErrNotRunning = errors.New("command processor is not running")

// CommandHandler processes a single command.
type CommandHandler interface {
	Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error)
}

// HandlerFunc adapts a function to CommandHandler.
type HandlerFunc func(ctx context.Context, cmd command.Command) (*command.CommandResult, error)

// Handle calls f(ctx, cmd).
func (f HandlerFunc) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	return f(ctx, cmd)
}

// Option configures the CommandProcessor.
type Option func(*CommandProcessor)

// WithQueueCapacity sets the command queue buffer capacity.
func WithQueueCapacity(capacity int) Option {
	return func(p *CommandProcessor) {
		p.queueCapacity = capacity
	}
}

// WithEventBus sets the publisher receiving the events of handled commands
// and CommandErrorEvents for failures.
func WithEventBus(bus pubsub.Publisher[any]) Option {
	return func(p *CommandProcessor) {
		p.eventBus = bus
	}
}

// WithMiddleware adds middleware to be applied to all handlers.
// Middleware is applied in order: first middleware wraps outermost.
func WithMiddleware(middlewares ...Middleware) Option {
	return func(p *CommandProcessor) {
		p.middlewares = append(p.middlewares, middlewares...)
	}
}

// CommandProcessor processes commands sequentially in FIFO order.
type CommandProcessor struct {
	queue         chan queueItem
	queueCapacity int
	queueMu       sync.RWMutex // guards sends against Drain closing the queue

	handlers    map[command.CommandType]CommandHandler
	middlewares []Middleware

	eventBus pubsub.Publisher[any]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	running  atomic.Bool
	started  atomic.Bool
	readyCh  chan struct{} // closed once Run accepts commands
	readyMu  sync.Mutex
	readySet bool

	processedCount atomic.Int64
	errorCount     atomic.Int64
}

type queueItem struct {
	cmd      command.Command
	resultCh chan *commandResponse // nil for Submit
}

type commandResponse struct {
	result *command.CommandResult
	err    error
}

// NewCommandProcessor creates a new CommandProcessor with the given options.
func NewCommandProcessor(opts ...Option) *CommandProcessor {
	p := &CommandProcessor{
		queueCapacity: DefaultQueueCapacity,
		handlers:      make(map[command.CommandType]CommandHandler),
		readyCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterHandler registers a handler for a command type.
// Must be called before Run. The handler is wrapped with all configured middleware.
func (p *CommandProcessor) RegisterHandler(cmdType command.CommandType, handler CommandHandler) {
	p.handlers[cmdType] = ChainMiddleware(handler, p.middlewares...)
}

// Run starts the command processing loop.
// It blocks until the context is cancelled, Stop is called or Drain finished.
// Run can only be called once; subsequent calls return immediately.
func (p *CommandProcessor) Run(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.queue = make(chan queueItem, p.queueCapacity)

	// Add before running is set to avoid racing Drain.
	p.wg.Add(1)
	p.running.Store(true)

	p.readyMu.Lock()
	if !p.readySet {
		close(p.readyCh)
		p.readySet = true
	}
	p.readyMu.Unlock()

	defer func() {
		p.running.Store(false)
		p.wg.Done()
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case item, ok := <-p.queue:
			if !ok {
				return
			}
			p.processItem(item)
		}
	}
}

// WaitForReady blocks until the processor is ready to accept commands.
func (p *CommandProcessor) WaitForReady(ctx context.Context) error {
	select {
	case <-p.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit adds a command to the queue for asynchronous processing.
// Returns command.ErrQueueFull if the queue is at capacity.
func (p *CommandProcessor) Submit(cmd command.Command) error {
	return p.enqueue(queueItem{cmd: cmd})
}

func (p *CommandProcessor) enqueue(item queueItem) error {
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()
	if !p.running.Load() {
		return ErrNotRunning
	}
	select {
	case p.queue <- item:
		return nil
	default:
		return command.ErrQueueFull
	}
}

// SubmitAndWait adds a command to the queue and waits for its result.
// Handler errors are returned as the error, with the failed result.
func (p *CommandProcessor) SubmitAndWait(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resultCh := make(chan *commandResponse, 1)
	if err := p.enqueue(queueItem{cmd: cmd, resultCh: resultCh}); err != nil {
		return nil, err
	}

	select {
	case resp := <-resultCh:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, context.Canceled
	}
}

// Stop cancels the processing context and waits for shutdown.
// Pending commands are not processed.
func (p *CommandProcessor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Drain processes all queued commands before stopping.
func (p *CommandProcessor) Drain() {
	p.queueMu.Lock()
	if !p.running.Load() {
		p.queueMu.Unlock()
		return
	}
	p.running.Store(false)
	close(p.queue)
	p.queueMu.Unlock()
	p.wg.Wait()
}

// IsRunning returns true if the processor is currently accepting commands.
func (p *CommandProcessor) IsRunning() bool {
	return p.running.Load()
}

// ProcessedCount returns the total number of commands processed.
func (p *CommandProcessor) ProcessedCount() int64 {
	return p.processedCount.Load()
}

// ErrorCount returns the total number of commands that failed.
func (p *CommandProcessor) ErrorCount() int64 {
	return p.errorCount.Load()
}

// QueueLength returns the current number of pending commands.
func (p *CommandProcessor) QueueLength() int {
	if p.queue == nil {
		return 0
	}
	return len(p.queue)
}

func (p *CommandProcessor) processItem(item queueItem) {
	result := p.processCommand(item.cmd)

	p.processedCount.Add(1)
	if !result.Success {
		p.errorCount.Add(1)
	}

	if item.resultCh != nil {
		item.resultCh <- &commandResponse{result: result, err: result.Error}
		close(item.resultCh)
	}
}

// processCommand runs the pipeline for one command. Failures are reported
// in the returned result, which is never nil.
func (p *CommandProcessor) processCommand(cmd command.Command) *command.CommandResult {
	if err := cmd.Validate(); err != nil {
		return p.fail(cmd, err)
	}

	handler, ok := p.handlers[cmd.Type()]
	if !ok {
		return p.fail(cmd, ErrUnknownCommandType)
	}

	result, err := handler.Handle(p.ctx, cmd)
	if err != nil {
		return p.fail(cmd, err)
	}
	if result == nil {
		result = &command.CommandResult{Success: true}
	}
	if !result.Success {
		if result.Error == nil {
			result.Error = errors.New("command failed without error details")
		}
		p.emitErrorEvent(cmd, result.Error)
		return result
	}

	p.emitEvents(result.Events)
	for _, followUp := range result.FollowUp {
		// Follow-ups go to the end of the queue. The loop never blocks on
		// its own queue, so a full or draining queue drops them.
		if err := p.enqueue(queueItem{cmd: followUp}); err != nil {
			log.Warn(log.CatCommand, "follow-up command dropped", "command_type", followUp.Type(), "error", err)
		}
	}
	return result
}

func (p *CommandProcessor) fail(cmd command.Command, err error) *command.CommandResult {
	p.emitErrorEvent(cmd, err)
	return &command.CommandResult{Success: false, Error: err}
}

func (p *CommandProcessor) emitEvents(events []any) {
	if p.eventBus == nil {
		return
	}
	for _, event := range events {
		p.eventBus.Publish(pubsub.UpdatedEvent, event)
	}
}

func (p *CommandProcessor) emitErrorEvent(cmd command.Command, err error) {
	if p.eventBus == nil {
		return
	}
	p.eventBus.Publish(pubsub.UpdatedEvent, CommandErrorEvent{
		CommandID:   cmd.ID(),
		CommandType: cmd.Type(),
		Error:       err,
	})
}
