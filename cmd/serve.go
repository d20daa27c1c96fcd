package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/messaging"
	"github.com/zjrosen/contentgraph/internal/presentation"
	"github.com/zjrosen/contentgraph/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Handle a stream of JSON commands from stdin",
	Long: `Keep the content repository open and handle one command per input line:

  {"type": "set_node_properties", "payload": {...}}

Each result is written as one JSON line to stdout. Errors are reported per
line and do not stop the loop. Input ends at EOF, SIGINT or SIGTERM.

While serving, node type files are reloaded on change when node_types.watch
is set, and appended events are forwarded to NATS when nats.enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveFollowLog bool
	serveMetrics   bool
)

// request is one input line of serve.
type request struct {
	Type    command.CommandType `json:"type"`
	Payload json.RawMessage     `json:"payload"`
}

// response is one output line of serve.
type response struct {
	Result *presentation.ResultDTO `json:"result,omitempty"`
	Type   command.CommandType     `json:"type,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveMetrics {
		cfg.Metrics.Enabled = true
	}
	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	if serveFollowLog {
		go log.Follow(ctx, func(line string) {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), line)
		})
	}

	if cfg.NodeTypes.Watch {
		stopWatching, err := watchNodeTypes(ctx, env)
		if err != nil {
			return err
		}
		defer stopWatching()
	}

	if cfg.NATS.Enabled {
		conn, err := messaging.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer conn.Close()
		forwarder := messaging.NewForwarder(conn, cfg.NATS.SubjectPrefix)
		go forwarder.Run(ctx, env.repo.Changes())
		defer func() {
			_ = conn.Flush()
			log.Info(log.CatMessaging, "forwarder stopped", "forwarded", forwarder.Forwarded(), "failed", forwarder.Failed())
		}()
	}

	log.Info(log.CatCommand, "serving commands from stdin")
	if err := serveLines(ctx, env, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return err
	}

	if env.metrics != nil {
		samples, err := env.metrics.Snapshot()
		if err != nil {
			return fmt.Errorf("collecting metrics: %w", err)
		}
		return presentation.NewFormatter(cmd.ErrOrStderr()).Format(samples)
	}
	return nil
}

// serveLines handles requests from in until EOF or ctx is done.
func serveLines(ctx context.Context, env *environment, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	formatter := presentation.NewFormatter(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading commands: %w", err)
					}
				default:
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}
			if err := formatter.FormatLines(serveOne(ctx, env, line)); err != nil {
				return fmt.Errorf("writing result: %w", err)
			}
		}
	}
}

func serveOne(ctx context.Context, env *environment, line []byte) response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return response{Error: fmt.Sprintf("invalid request: %v", err)}
	}
	c, err := decodeCommand(req.Type, command.SourceAPI, req.Payload)
	if err != nil {
		return response{Type: req.Type, Error: err.Error()}
	}
	res, err := env.repo.Handle(ctx, c)
	if err != nil {
		return response{Type: req.Type, Error: err.Error()}
	}
	result := presentation.FromResult(c, res)
	return response{Result: &result}
}

// watchNodeTypes reloads the node type registry whenever a matching file
// changes. A failed reload keeps the previous registry.
func watchNodeTypes(ctx context.Context, env *environment) (func(), error) {
	w, err := watcher.New(watcher.Config{
		Dir:         cfg.NodeTypes.Dir,
		Pattern:     cfg.NodeTypes.Pattern,
		DebounceDur: 300 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, fmt.Errorf("watching %s: %w", cfg.NodeTypes.Dir, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				reg, err := env.repo.NodeTypes().Reload()
				if err != nil {
					log.ErrorErr(log.CatWatcher, "node type reload failed, keeping previous registry", err)
					_, _ = fmt.Fprintf(os.Stderr, "node type reload failed: %v\n", err)
					continue
				}
				log.Info(log.CatWatcher, "node types reloaded", "count", len(reg.All(true)))
			}
		}
	}()

	return func() { _ = w.Stop() }, nil
}

func init() {
	serveCmd.Flags().BoolVar(&serveFollowLog, "follow-log", false, "copy log lines to stderr (requires log.path or --debug)")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", false, "collect metrics and print them to stderr on exit")
	rootCmd.AddCommand(serveCmd)
}
