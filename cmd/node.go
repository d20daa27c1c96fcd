package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/presentation"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Create, change and inspect node aggregates in a workspace",
}

var (
	nodeOrigin       string
	nodePoint        string
	nodeName         string
	nodeBefore       string
	nodeUnset        []string
	nodeStrategy     string
	nodeShowDisabled bool
)

// parseProperties parses name=value pairs. Values that are valid JSON keep
// their type, anything else is a string.
func parseProperties(pairs []string) (model.PropertyValues, error) {
	values := make(model.PropertyValues, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid property %q, expected name=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		values[name] = v
	}
	return values, nil
}

func originFlag() (dimensionspace.OriginPoint, error) {
	p, err := parsePoint(nodeOrigin)
	if err != nil {
		return dimensionspace.OriginPoint{}, fmt.Errorf("--origin: %w", err)
	}
	return dimensionspace.OriginOf(p), nil
}

var nodeCreateRootCmd = &cobra.Command{
	Use:   "create-root WORKSPACE ID TYPE",
	Short: "Create a root node aggregate covering every allowed point",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceCLI,
			model.WorkspaceName(args[0]), model.NodeAggregateID(args[1]), nodetype.Name(args[2]))
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create WORKSPACE ID TYPE PARENT [name=value...]",
	Short: "Create a node aggregate below a parent",
	Long: `Create a node aggregate with one node at --origin below PARENT.

Example:
  contentgraph node create live about Acme:Page home title=About --origin language=en --name about`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		origin, err := originFlag()
		if err != nil {
			return err
		}
		values, err := parseProperties(args[4:])
		if err != nil {
			return err
		}
		var opts []command.CreateNodeOption
		if nodeName != "" {
			opts = append(opts, command.WithNodeName(model.NodeName(nodeName)))
		}
		if nodeBefore != "" {
			opts = append(opts, command.WithSucceedingSibling(model.NodeAggregateID(nodeBefore)))
		}
		if len(values) > 0 {
			opts = append(opts, command.WithInitialPropertyValues(values))
		}
		c := command.NewCreateNodeAggregateWithNodeCommand(command.SourceCLI,
			model.WorkspaceName(args[0]), model.NodeAggregateID(args[1]), nodetype.Name(args[2]),
			origin, model.NodeAggregateID(args[3]), opts...)
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

var nodeSetCmd = &cobra.Command{
	Use:   "set WORKSPACE ID [name=value...]",
	Short: "Set or unset properties of the node at --origin",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		origin, err := originFlag()
		if err != nil {
			return err
		}
		values, err := parseProperties(args[2:])
		if err != nil {
			return err
		}
		c := command.NewSetNodePropertiesCommand(command.SourceCLI,
			model.WorkspaceName(args[0]), model.NodeAggregateID(args[1]), origin, values, nodeUnset...)
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

// variantCommand builds disable, enable and remove commands, which share
// their arguments.
func variantCommand(use, short string, build func(model.WorkspaceName, model.NodeAggregateID, dimensionspace.Point, command.NodeVariantSelectionStrategy) command.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " WORKSPACE ID",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			point, err := parsePoint(nodePoint)
			if err != nil {
				return fmt.Errorf("--point: %w", err)
			}
			c := build(model.WorkspaceName(args[0]), model.NodeAggregateID(args[1]), point,
				command.NodeVariantSelectionStrategy(nodeStrategy))
			return withEnvironment(cmd, func(env *environment) error {
				return handleAndPrint(cmd, env, c)
			})
		},
	}
	c.Flags().StringVarP(&nodeStrategy, "strategy", "s", string(command.AllSpecializations),
		"variant selection: onlyGivenVariant, allSpecializations or allVariants")
	c.Flags().StringVarP(&nodePoint, "point", "p", "", "dimension space point, e.g. language=en")
	return c
}

var nodeShowCmd = &cobra.Command{
	Use:   "show WORKSPACE",
	Short: "Print the content tree of a workspace at --point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		point, err := parsePoint(nodePoint)
		if err != nil {
			return fmt.Errorf("--point: %w", err)
		}
		return withEnvironment(cmd, func(env *environment) error {
			g, err := env.repo.ContentGraph(cmd.Context(), model.WorkspaceName(args[0]))
			if err != nil {
				return err
			}
			visibility := graph.VisibilityConstraints{IncludeDisabled: nodeShowDisabled}
			_, err = fmt.Fprint(cmd.OutOrStdout(), presentation.Outline(g, point, visibility))
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{nodeCreateCmd, nodeSetCmd} {
		c.Flags().StringVarP(&nodeOrigin, "origin", "o", "", "origin dimension space point, e.g. language=en")
	}
	nodeCreateCmd.Flags().StringVar(&nodeName, "name", "", "node name, unique among siblings")
	nodeCreateCmd.Flags().StringVar(&nodeBefore, "before", "", "succeeding sibling node aggregate id")
	nodeSetCmd.Flags().StringArrayVar(&nodeUnset, "unset", nil, "property to unset (repeatable)")
	nodeShowCmd.Flags().StringVarP(&nodePoint, "point", "p", "", "dimension space point, e.g. language=en")
	nodeShowCmd.Flags().BoolVar(&nodeShowDisabled, "include-disabled", false, "include disabled nodes")

	nodeCmd.AddCommand(
		nodeCreateRootCmd,
		nodeCreateCmd,
		nodeSetCmd,
		variantCommand("disable", "Disable a node aggregate at --point", func(ws model.WorkspaceName, id model.NodeAggregateID, p dimensionspace.Point, s command.NodeVariantSelectionStrategy) command.Command {
			return command.NewDisableNodeAggregateCommand(command.SourceCLI, ws, id, p, s)
		}),
		variantCommand("enable", "Enable a node aggregate at --point", func(ws model.WorkspaceName, id model.NodeAggregateID, p dimensionspace.Point, s command.NodeVariantSelectionStrategy) command.Command {
			return command.NewEnableNodeAggregateCommand(command.SourceCLI, ws, id, p, s)
		}),
		variantCommand("remove", "Remove a node aggregate at --point", func(ws model.WorkspaceName, id model.NodeAggregateID, p dimensionspace.Point, s command.NodeVariantSelectionStrategy) command.Command {
			return command.NewRemoveNodeAggregateCommand(command.SourceCLI, ws, id, p, s)
		}),
		nodeShowCmd,
	)
	rootCmd.AddCommand(nodeCmd)
}
