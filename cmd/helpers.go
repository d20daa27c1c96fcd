package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/presentation"
)

// parsePoint parses "language=en,region=de" into a dimension space point.
// The empty string is the empty point.
func parsePoint(s string) (dimensionspace.Point, error) {
	coordinates := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		dimension, value, ok := strings.Cut(pair, "=")
		if !ok || dimension == "" || value == "" {
			return dimensionspace.Point{}, fmt.Errorf("invalid coordinate %q, expected dimension=value", pair)
		}
		if _, dup := coordinates[dimension]; dup {
			return dimensionspace.Point{}, fmt.Errorf("dimension %q given twice", dimension)
		}
		coordinates[dimension] = value
	}
	return dimensionspace.NewPoint(coordinates), nil
}

// withEnvironment opens the repository for the duration of fn.
func withEnvironment(cmd *cobra.Command, fn func(env *environment) error) error {
	env, err := openEnvironment(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}

// handleAndPrint submits c, waits for its result and prints it as JSON.
func handleAndPrint(cmd *cobra.Command, env *environment, c command.Command) error {
	res, err := env.repo.Handle(cmd.Context(), c)
	if err != nil {
		return err
	}
	return presentation.NewFormatter(cmd.OutOrStdout()).Format(presentation.FromResult(c, res))
}
