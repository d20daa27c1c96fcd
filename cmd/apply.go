package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/command"
)

// decodeCommand builds a node or workspace command from its JSON payload.
func decodeCommand(cmdType command.CommandType, source command.CommandSource, payload json.RawMessage) (command.Command, error) {
	if slices.Contains(command.WorkspaceCommandTypes(), cmdType) {
		return command.DecodeWorkspace(cmdType, source, payload)
	}
	return command.DecodeNode(cmdType, source, payload)
}

var applyCmd = &cobra.Command{
	Use:   "apply TYPE [PAYLOAD|-]",
	Short: "Handle one command given as JSON",
	Long: `Decode a command of the given type from its JSON payload and handle it.
The payload is read from stdin when omitted or "-". Run 'contentgraph apply
--list' to print the command types.

Examples:
  contentgraph apply create_root_node_aggregate_with_node \
    '{"workspaceName":"live","nodeAggregateId":"sites","nodeTypeName":"Acme:Sites"}'
  contentgraph apply set_node_properties - < change.json`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if list, _ := cmd.Flags().GetBool("list"); list {
			out := cmd.OutOrStdout()
			for _, t := range append(command.NodeCommandTypes(), command.WorkspaceCommandTypes()...) {
				_, _ = fmt.Fprintln(out, t)
			}
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("command type is required")
		}

		var payload []byte
		if len(args) == 2 && args[1] != "-" {
			payload = []byte(args[1])
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			payload = data
		}

		c, err := decodeCommand(command.CommandType(args[0]), command.SourceCLI, payload)
		if err != nil {
			return err
		}
		return withEnvironment(cmd, func(env *environment) error {
			return handleAndPrint(cmd, env, c)
		})
	},
}

func init() {
	applyCmd.Flags().Bool("list", false, "list the command types and exit")
	rootCmd.AddCommand(applyCmd)
}
