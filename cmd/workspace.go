package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/presentation"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Create, publish, discard and rebase workspaces",
}

var (
	wsBase        string
	wsTitle       string
	wsDescription string
	wsNodes       []string
	wsPoint       string
	wsStrategy    string
)

var workspaceCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a workspace (a root workspace when --base is omitted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := model.WorkspaceName(args[0])
		var c command.Command
		if wsBase == "" {
			c = command.NewCreateRootWorkspaceCommand(command.SourceCLI, name, wsTitle, wsDescription)
		} else {
			c = command.NewCreateWorkspaceCommand(command.SourceCLI, name, model.WorkspaceName(wsBase), wsTitle, wsDescription)
		}
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces with their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnvironment(cmd, func(env *environment) error {
			ctx := cmd.Context()
			manager := env.repo.Workspaces()
			workspaces, err := manager.List(ctx)
			if err != nil {
				return err
			}
			dtos := make([]presentation.WorkspaceDTO, 0, len(workspaces))
			for _, w := range workspaces {
				status, err := manager.Status(ctx, w.Name())
				if err != nil {
					return err
				}
				dtos = append(dtos, presentation.FromWorkspace(w, status))
			}
			return presentation.NewFormatter(cmd.OutOrStdout()).Format(dtos)
		})
	},
}

var workspaceStatusCmd = &cobra.Command{
	Use:   "status NAME",
	Short: "Show a workspace and whether its base has advanced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(env *environment) error {
			ctx := cmd.Context()
			name := model.WorkspaceName(args[0])
			w, err := env.repo.Workspaces().Find(ctx, name)
			if err != nil {
				return err
			}
			status, err := env.repo.Workspaces().Status(ctx, name)
			if err != nil {
				return err
			}
			return presentation.NewFormatter(cmd.OutOrStdout()).Format(presentation.FromWorkspace(w, status))
		})
	},
}

// nodeSelection turns --node id[@point] flags into a selection.
func nodeSelection(values []string) ([]command.NodeIDToPublishOrDiscard, error) {
	selection := make([]command.NodeIDToPublishOrDiscard, 0, len(values))
	for _, v := range values {
		id, pointSpec, hasPoint := cutLast(v, "@")
		n := command.NodeIDToPublishOrDiscard{NodeAggregateID: model.NodeAggregateID(id)}
		if hasPoint {
			p, err := parsePoint(pointSpec)
			if err != nil {
				return nil, fmt.Errorf("--node %s: %w", v, err)
			}
			n.DimensionSpacePoint = &p
		}
		selection = append(selection, n)
	}
	return selection, nil
}

// cutLast splits s around the last sep, since node ids may contain it.
func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

var workspacePublishCmd = &cobra.Command{
	Use:   "publish NAME",
	Short: "Publish a workspace, or only the selected nodes, to its base",
	Long: `Publish all changes of a workspace to its base workspace.

With --node only the commands touching the given node aggregates are
published; the rest stays in the workspace. A node may be narrowed to one
dimension space point with id@dimension=value.

Examples:
  contentgraph workspace publish user-alice
  contentgraph workspace publish user-alice --node home --node about@language=en`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := model.WorkspaceName(args[0])
		var c command.Command = command.NewPublishWorkspaceCommand(command.SourceCLI, name)
		if len(wsNodes) > 0 {
			selection, err := nodeSelection(wsNodes)
			if err != nil {
				return err
			}
			c = command.NewPublishIndividualNodesFromWorkspaceCommand(command.SourceCLI, name, selection...)
		}
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var workspaceDiscardCmd = &cobra.Command{
	Use:   "discard NAME",
	Short: "Discard a workspace's changes, or only those of the selected nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := model.WorkspaceName(args[0])
		var c command.Command = command.NewDiscardWorkspaceCommand(command.SourceCLI, name)
		if len(wsNodes) > 0 {
			selection, err := nodeSelection(wsNodes)
			if err != nil {
				return err
			}
			c = command.NewDiscardIndividualNodesFromWorkspaceCommand(command.SourceCLI, name, selection...)
		}
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var workspaceRebaseCmd = &cobra.Command{
	Use:   "rebase NAME",
	Short: "Replay a workspace's changes on the current state of its base",
	Long: `Replay the commands recorded in a workspace onto a fresh fork of its base.

With --strategy force (default) commands that no longer apply are reported
and skipped. With --strategy fail any such command aborts the rebase and the
workspace is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := model.WorkspaceName(args[0])
		c := command.NewRebaseWorkspaceCommand(command.SourceCLI, name).
			WithErrorStrategy(command.RebaseErrorHandlingStrategy(wsStrategy))
		return withEnvironment(cmd, func(env *environment) error {
			res, err := env.repo.Handle(cmd.Context(), c)
			var conflicts []workspace.CommandThatFailed
			var conflictErr *workspace.RebaseConflictError
			switch {
			case errors.As(err, &conflictErr):
				conflicts = conflictErr.Conflicts
			case err != nil:
				return err
			default:
				if wr, ok := res.Data.(*workspace.Result); ok {
					conflicts = wr.Conflicts
				}
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), presentation.RenderConflicts(name.String(), conflicts))
			return err
		})
	},
}

var workspaceRenameCmd = &cobra.Command{
	Use:   "rename NAME",
	Short: "Change the title and description of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := command.NewRenameWorkspaceCommand(command.SourceCLI, model.WorkspaceName(args[0]), wsTitle, wsDescription)
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a workspace that no other workspace is based on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := command.NewDeleteWorkspaceCommand(command.SourceCLI, model.WorkspaceName(args[0]))
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var workspaceChangesCmd = &cobra.Command{
	Use:   "changes NAME",
	Short: "Print the events recorded in a workspace since it was forked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironment(cmd, func(env *environment) error {
			records, err := env.repo.Workspaces().Changes(cmd.Context(), model.WorkspaceName(args[0]))
			if err != nil {
				return err
			}
			if records == nil {
				records = []contentstream.Record{}
			}
			return presentation.NewFormatter(cmd.OutOrStdout()).Format(records)
		})
	},
}

var workspaceDiffCmd = &cobra.Command{
	Use:   "diff NAME",
	Short: "Show how the content of a workspace differs from its base",
	Long: `Render the content tree of the workspace and of its base at one dimension
space point and print a line diff. Each line is one visible node with its
type, properties and references.

Example:
  contentgraph workspace diff user-alice --point language=en`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		point, err := parsePoint(wsPoint)
		if err != nil {
			return err
		}
		return withEnvironment(cmd, func(env *environment) error {
			ctx := cmd.Context()
			w, err := env.repo.Workspaces().Find(ctx, model.WorkspaceName(args[0]))
			if err != nil {
				return err
			}
			if w.IsRoot() {
				return fmt.Errorf("workspace %s has no base to diff against", w.Name())
			}
			if !env.repo.Dimensions().Has(point) {
				return fmt.Errorf("dimension space point %s is not allowed", point)
			}

			base, err := env.repo.ContentGraph(ctx, w.BaseName())
			if err != nil {
				return err
			}
			head, err := env.repo.ContentGraph(ctx, w.Name())
			if err != nil {
				return err
			}
			visibility := graph.VisibilityConstraints{}
			lines := presentation.DiffLines(
				presentation.Outline(base, point, visibility),
				presentation.Outline(head, point, visibility),
			)
			out := cmd.OutOrStdout()
			if !presentation.HasChanges(lines) {
				_, _ = fmt.Fprintf(out, "no changes in %s at %s\n", w.Name(), point)
				return nil
			}
			_, _ = fmt.Fprint(out, presentation.RenderDiff(lines))
			return nil
		})
	},
}

var workspacePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove closed content streams no workspace points at",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withEnvironment(cmd, func(env *environment) error {
			removed, err := env.repo.Workspaces().Prune(cmd.Context())
			if err != nil {
				return err
			}
			ids := make([]string, len(removed))
			for i, id := range removed {
				ids[i] = id.String()
			}
			return presentation.NewFormatter(cmd.OutOrStdout()).Format(ids)
		})
	},
}

func init() {
	workspaceCreateCmd.Flags().StringVarP(&wsBase, "base", "b", "", "base workspace (omit for a root workspace)")
	for _, c := range []*cobra.Command{workspaceCreateCmd, workspaceRenameCmd} {
		c.Flags().StringVarP(&wsTitle, "title", "t", "", "workspace title")
		c.Flags().StringVar(&wsDescription, "description", "", "workspace description")
	}
	for _, c := range []*cobra.Command{workspacePublishCmd, workspaceDiscardCmd} {
		c.Flags().StringArrayVarP(&wsNodes, "node", "n", nil, "node aggregate id, optionally id@dimension=value (repeatable)")
	}
	workspaceRebaseCmd.Flags().StringVarP(&wsStrategy, "strategy", "s", string(command.RebaseForce), "error handling strategy: force or fail")
	workspaceDiffCmd.Flags().StringVarP(&wsPoint, "point", "p", "", "dimension space point, e.g. language=en")

	workspaceCmd.AddCommand(
		workspaceCreateCmd,
		workspaceListCmd,
		workspaceStatusCmd,
		workspacePublishCmd,
		workspaceDiscardCmd,
		workspaceRebaseCmd,
		workspaceRenameCmd,
		workspaceDeleteCmd,
		workspaceChangesCmd,
		workspaceDiffCmd,
		workspacePruneCmd,
	)
	rootCmd.AddCommand(workspaceCmd)
}
