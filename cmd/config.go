package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/contentgraph/internal/config"
	"github.com/zjrosen/contentgraph/internal/log"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	// an invalid config must stay fixable from here
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return setupLogging() },
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "# %s\n", configFilePath())
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(viper.AllSettings()); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return encoder.Close()
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the configuration keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, key := range config.Keys() {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set one key in the config file, keeping its comments",
	Long: `Set one key in the config file in use. Comments and the other sections
are kept as they are.

Example:
  contentgraph config set event_store.driver memory
  contentgraph config set tracing.enabled true`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !slices.Contains(config.Keys(), key) {
			return fmt.Errorf("unknown config key %q, run 'contentgraph config keys'", key)
		}

		// validate the result before touching the file
		candidate := viper.New()
		for k, v := range viper.AllSettings() {
			candidate.Set(k, v)
		}
		candidate.Set(key, value)
		next := config.Defaults()
		if err := candidate.Unmarshal(&next); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		if err := next.Validate(); err != nil {
			return err
		}

		path := configFilePath()
		if err := config.SaveValue(path, key, value); err != nil {
			return err
		}
		log.Info(log.CatConfig, "config value saved", "key", key, "path", path)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", key, value, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configKeysCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
