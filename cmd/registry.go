package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/presentation"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the node type registry and dimension space",
}

var errCheckFailed = errors.New("configuration check failed")

var registryCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load the dimension space and node types and report errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var results []presentation.CheckResult

		dims, err := loadDimensions(cfg.Dimensions)
		dimResult := presentation.CheckResult{Source: cfg.Dimensions.File, Err: err}
		if err == nil {
			dimResult.Detail = fmt.Sprintf("%d dimension(s), %d allowed point(s)", len(dims.Dimensions()), dims.Points().Len())
		}
		results = append(results, dimResult)

		typesResult := presentation.CheckResult{Source: cfg.NodeTypes.Dir}
		manager, err := loadNodeTypes(cfg.NodeTypes)
		if err != nil {
			typesResult.Err = err
		} else {
			reg, _ := manager.Registry()
			typesResult.Detail = fmt.Sprintf("%d node type(s), %d abstract", len(reg.All(true)), len(reg.All(true))-len(reg.All(false)))
		}
		results = append(results, typesResult)

		_, _ = fmt.Fprint(cmd.OutOrStdout(), presentation.RenderCheck(results))
		for _, r := range results {
			if r.Err != nil {
				return errCheckFailed
			}
		}
		return nil
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List node types as JSON",
	Long: `List the resolved node types as JSON.

Examples:
  # List concrete node types
  contentgraph registry list

  # Include abstract node types
  contentgraph registry list --abstract

  # Only sub types of a type
  contentgraph registry list --of Acme:Content

  # Parse specific fields with jq
  contentgraph registry list | jq '.[].name'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		manager, err := loadNodeTypes(cfg.NodeTypes)
		if err != nil {
			return err
		}
		reg, err := manager.Registry()
		if err != nil {
			return err
		}

		includeAbstract, _ := cmd.Flags().GetBool("abstract")
		var types []*nodetype.NodeType
		if of, _ := cmd.Flags().GetString("of"); of != "" {
			if !reg.Has(nodetype.Name(of)) {
				return fmt.Errorf("%w: %s", nodetype.ErrNodeTypeNotFound, of)
			}
			types = reg.SubNodeTypes(nodetype.Name(of), includeAbstract)
		} else {
			types = reg.All(includeAbstract)
		}

		return presentation.NewFormatter(cmd.OutOrStdout()).Format(presentation.FromNodeTypes(types))
	},
}

func init() {
	registryListCmd.Flags().Bool("abstract", false, "include abstract node types")
	registryListCmd.Flags().String("of", "", "only list sub types of this node type")
	registryCmd.AddCommand(registryCheckCmd, registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
