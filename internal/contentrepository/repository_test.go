package contentrepository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentrepository"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/infrastructure/sqlite"
	"github.com/zjrosen/contentgraph/internal/metrics"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/processor"
	"github.com/zjrosen/contentgraph/internal/testutil"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

const alice model.WorkspaceName = "user-alice"

var originEn = dimensionspace.OriginOf(testutil.En)

func newRepository(t *testing.T, configure ...func(*contentrepository.Config)) *contentrepository.ContentRepository {
	t.Helper()
	cfg := contentrepository.Config{
		Dimensions: testutil.Dimensions(t),
		NodeTypes:  testutil.NodeTypes(t),
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	r, err := contentrepository.New(cfg)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(r.Shutdown)
	return r
}

func handle(t *testing.T, r *contentrepository.ContentRepository, cmd command.Command) *command.CommandResult {
	t.Helper()
	res, err := r.Handle(context.Background(), cmd)
	require.NoError(t, err, "%s failed", cmd.Type())
	require.True(t, res.Success)
	return res
}

// seed creates live with sites and home, and alice based on live.
func seed(t *testing.T, r *contentrepository.ContentRepository) {
	t.Helper()
	handle(t, r, command.NewCreateRootWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "Live", ""))
	handle(t, r, command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, model.LiveWorkspace, testutil.Sites, "Acme:Sites"))
	handle(t, r, command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, model.LiveWorkspace, testutil.Home, "Acme:Page", originEn, testutil.Sites))
	handle(t, r, command.NewCreateWorkspaceCommand(command.SourceAPI, alice, model.LiveWorkspace, "Alice", ""))
}

func title(t *testing.T, r *contentrepository.ContentRepository, ws model.WorkspaceName, id model.NodeAggregateID) any {
	t.Helper()
	g, err := r.ContentGraph(context.Background(), ws)
	require.NoError(t, err)
	n, ok := g.Subgraph(testutil.En, graph.VisibilityConstraints{}).FindNodeByID(id)
	require.True(t, ok, "%s not visible in %s", id, ws)
	return n.Properties["title"]
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  contentrepository.Config
		want string
	}{
		{"missing dimensions", contentrepository.Config{NodeTypes: testutil.NodeTypes(t)}, "dimensions are required"},
		{"missing node types", contentrepository.Config{Dimensions: testutil.Dimensions(t)}, "node types are required"},
		{"negative queue", contentrepository.Config{Dimensions: testutil.Dimensions(t), NodeTypes: testutil.NodeTypes(t), QueueCapacity: -1}, "queue capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := contentrepository.New(tt.cfg)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestContentRepository_NodeCommandsFollowTheWorkspace(t *testing.T) {
	r := newRepository(t)
	seed(t, r)

	res := handle(t, r, command.NewSetNodePropertiesCommand(command.SourceAPI, alice, testutil.Home, originEn, model.PropertyValues{"title": "Welcome"}))
	hr, ok := res.Data.(*handler.Result)
	require.True(t, ok)
	require.Len(t, res.Events, 1)

	ws, err := r.Workspaces().Find(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, ws.StreamID(), hr.StreamID)

	require.Equal(t, "Welcome", title(t, r, alice, testutil.Home))
	require.Equal(t, "Untitled", title(t, r, model.LiveWorkspace, testutil.Home), "live is untouched until publish")

	handle(t, r, command.NewPublishWorkspaceCommand(command.SourceAPI, alice))
	require.Equal(t, "Welcome", title(t, r, model.LiveWorkspace, testutil.Home))
}

func TestContentRepository_UnknownWorkspace(t *testing.T) {
	r := newRepository(t)

	res, err := r.Handle(context.Background(),
		command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, "nowhere", testutil.Sites, "Acme:Sites"))
	require.ErrorIs(t, err, workspace.ErrWorkspaceDoesNotExist)
	require.False(t, res.Success)
}

func TestContentRepository_PublishesEvents(t *testing.T) {
	r := newRepository(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := r.Events().Subscribe(ctx)

	handle(t, r, command.NewCreateRootWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "", ""))
	handle(t, r, command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, model.LiveWorkspace, testutil.Sites, "Acme:Sites"))

	var logs []processor.CommandLogEvent
	var created bool
	timeout := time.After(time.Second)
	for len(logs) < 2 || !created {
		select {
		case e := <-events:
			switch p := e.Payload.(type) {
			case processor.CommandLogEvent:
				logs = append(logs, p)
			default:
				created = true
			}
		case <-timeout:
			t.Fatalf("got %d command logs, created=%v", len(logs), created)
		}
	}
	require.Equal(t, command.CmdCreateRootWorkspace, logs[0].CommandType)
	require.True(t, logs[1].Success)
}

func TestContentRepository_ForcedRebaseCountsConflicts(t *testing.T) {
	m := metrics.New("test")
	r := newRepository(t, func(c *contentrepository.Config) { c.Metrics = m })
	seed(t, r)

	handle(t, r, command.NewSetNodePropertiesCommand(command.SourceAPI, alice, testutil.Home, originEn, model.PropertyValues{"title": "Draft"}))
	handle(t, r, command.NewRemoveNodeAggregateCommand(command.SourceAPI, model.LiveWorkspace, testutil.Home, testutil.En, command.AllSpecializations))

	res := handle(t, r, command.NewRebaseWorkspaceCommand(command.SourceAPI, alice))
	wr, ok := res.Data.(*workspace.Result)
	require.True(t, ok)
	require.Len(t, wr.Conflicts, 1)

	samples, err := m.Snapshot()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, s := range samples {
		if len(s.Labels) == 0 {
			values[s.Name] = s.Value
		}
	}
	require.Equal(t, 1.0, values["test_rebase_conflicts_total"])
	require.Greater(t, values["test_events_appended_total"], 0.0)
}

func TestContentRepository_Deduplication(t *testing.T) {
	r := newRepository(t, func(c *contentrepository.Config) { c.DeduplicationTTL = time.Minute })
	handle(t, r, command.NewCreateRootWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "Live", ""))

	rename := func() error {
		_, err := r.Handle(context.Background(), command.NewRenameWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "Production", ""))
		return err
	}
	require.NoError(t, rename())
	require.ErrorIs(t, rename(), command.ErrDuplicateCommand)
}

func TestContentRepository_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	r := newRepository(t, func(c *contentrepository.Config) { c.Tracer = provider.Tracer("test") })
	handle(t, r, command.NewCreateRootWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "", ""))

	names := map[string]bool{}
	for _, s := range exporter.GetSpans() {
		names[s.Name] = true
	}
	require.True(t, names["command.process.create_root_workspace"], "spans: %v", names)
}

func TestContentRepository_SQLite(t *testing.T) {
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	defer db.Close()

	r := newRepository(t, func(c *contentrepository.Config) {
		c.Store = db.EventStore()
		c.Workspaces = db.WorkspaceRepository()
	})
	seed(t, r)
	handle(t, r, command.NewSetNodePropertiesCommand(command.SourceAPI, alice, testutil.Home, originEn, model.PropertyValues{"title": "Persisted"}))
	handle(t, r, command.NewPublishWorkspaceCommand(command.SourceAPI, alice))

	require.Equal(t, "Persisted", title(t, r, model.LiveWorkspace, testutil.Home))
}

func TestContentRepository_ShutdownStopsProcessing(t *testing.T) {
	cfg := contentrepository.Config{Dimensions: testutil.Dimensions(t), NodeTypes: testutil.NodeTypes(t)}
	r, err := contentrepository.New(cfg)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	r.Shutdown()

	require.ErrorIs(t, r.Submit(command.NewCreateRootWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "", "")), processor.ErrNotRunning)
}
