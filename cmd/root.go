package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/contentgraph/internal/config"
	"github.com/zjrosen/contentgraph/internal/log"
)

const localConfigPath = ".contentgraph/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "contentgraph",
	Short: "An event-sourced content graph",
	Long: `contentgraph stores content as node aggregates that vary across a
dimension space, typed by a YAML node type registry, and isolates changes
in workspaces that are published to, discarded from, or rebased onto
their base.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .contentgraph/config.yaml, then ~/.config/contentgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs to stderr (or log.path when set)")
	rootCmd.PersistentFlags().String("db", "",
		"sqlite database path (overrides event_store.path)")

	_ = viper.BindPFlag("event_store.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// setDefaults registers every default so viper.Unmarshal sees keys the
// config file leaves out.
func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("event_store.driver", d.EventStore.Driver)
	v.SetDefault("event_store.path", d.EventStore.Path)
	v.SetDefault("node_types.dir", d.NodeTypes.Dir)
	v.SetDefault("node_types.pattern", d.NodeTypes.Pattern)
	v.SetDefault("node_types.watch", d.NodeTypes.Watch)
	v.SetDefault("dimensions.file", d.Dimensions.File)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("processor.queue_capacity", d.Processor.QueueCapacity)
	v.SetDefault("processor.deduplication_ttl", d.Processor.DeduplicationTTL)
	v.SetDefault("processor.slow_command_threshold", d.Processor.SlowCommandThreshold)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("nats.enabled", d.NATS.Enabled)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.subject_prefix", d.NATS.SubjectPrefix)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.debug", d.Log.Debug)
}

func initConfig() {
	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("CONTENTGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .contentgraph/config.yaml (current directory)
		// 2. ~/.config/contentgraph/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(config.DefaultDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .contentgraph/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	cfg = config.Defaults()
	_ = viper.Unmarshal(&cfg)
}

// initLogging sets up logging and validates the loaded config.
func initLogging(_ *cobra.Command, _ []string) error {
	if err := setupLogging(); err != nil {
		return err
	}
	return cfg.Validate()
}

// setupLogging routes the category logger to log.path, or to stderr when
// only --debug is given. Logging stays disabled otherwise.
func setupLogging() error {
	switch {
	case cfg.Log.Path != "":
		if err := os.MkdirAll(filepath.Dir(cfg.Log.Path), 0o750); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
		cleanup, err := log.Init(cfg.Log.Path)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		if !cfg.Log.Debug {
			log.SetMinLevel(log.LevelInfo)
		}
	case cfg.Log.Debug:
		log.InitWriter(os.Stderr, log.LevelDebug)
	}
	log.Debug(log.CatConfig, "config loaded", "file", viper.ConfigFileUsed(), "driver", cfg.EventStore.Driver)
	return nil
}

var logCleanup func()

// configFilePath returns the config file in use, or the local default.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return localConfigPath
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	defer func() {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
