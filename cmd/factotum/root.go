package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"factotum/internal/agents"
	"factotum/internal/engine"
	"factotum/internal/logging"
	"factotum/internal/storage"
	"factotum/internal/workflow"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "factotum",
		Short:         "Assistant runtime with a declarative workflow engine",
		Long:          "Factotum runs JSON automation playbooks and exposes its agents over MCP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ~/.factotum/settings.yaml)")
	flags.String("workflows-dir", "workflows", "directory holding workflow JSON documents")
	flags.String("storage-root", storage.DefaultRoot, "local storage root directory")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Duration("command-timeout", 60*time.Second, "timeout for az_command steps")

	root.AddCommand(
		newServeCmd(v),
		newAgentsCmd(v),
		newRunCmd(v),
		newListCmd(v),
		newDescribeCmd(v),
		newValidateCmd(v),
		newDryRunCmd(v),
	)
	return root
}

// initConfig layers configuration: defaults, then the settings file, then
// FACTOTUM_* environment variables, then flags.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetDefault("workflows_dir", "workflows")
	v.SetDefault("storage_root", storage.DefaultRoot)
	v.SetDefault("log_level", "info")
	v.SetDefault("command_timeout", 60*time.Second)
	v.SetDefault("azure.resource_group", "rappai")

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".factotum"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("settings")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FACTOTUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	bind := func(key, flag string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	bind("workflows_dir", "workflows-dir")
	bind("storage_root", "storage-root")
	bind("log_level", "log-level")
	bind("command_timeout", "command-timeout")
	return nil
}

// runtime bundles the wired application components.
type runtime struct {
	logger   *slog.Logger
	registry *agents.Registry
	store    storage.Manager
}

// buildRuntime wires storage, the workflow engine, and the agents from the
// resolved configuration.
func buildRuntime(v *viper.Viper) (*runtime, error) {
	logger := newLogger(v.GetString("log_level"))
	fs := afero.NewOsFs()

	store, err := storage.NewLocalManager(fs, v.GetString("storage_root"))
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Config{
		Fs:             fs,
		CommandTimeout: v.GetDuration("command_timeout"),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	loader := workflow.NewLoader(fs, v.GetString("workflows_dir"))
	validator, err := workflow.NewValidator()
	if err != nil {
		return nil, err
	}

	registry := agents.NewRegistry()
	if err := registry.Register(agents.NewWorkflowRunner(loader, validator, eng, logger)); err != nil {
		return nil, err
	}
	if err := registry.Register(agents.NewBooster(boosterConfig(v), fs, logger)); err != nil {
		return nil, err
	}
	if err := registry.Register(agents.NewContextAnalyzer(analyzerConfig(v), registry, store)); err != nil {
		return nil, err
	}

	return &runtime{logger: logger, registry: registry, store: store}, nil
}

func boosterConfig(v *viper.Viper) agents.BoosterConfig {
	return agents.BoosterConfig{
		Endpoint:       v.GetString("azure.openai_endpoint"),
		Deployment:     v.GetString("azure.openai_deployment_name"),
		APIKey:         v.GetString("azure.openai_api_key"),
		StorageAccount: v.GetString("azure.storage_account_name"),
		FunctionApp:    v.GetString("azure.function_app_name"),
		ResourceGroup:  v.GetString("azure.resource_group"),
	}
}

func analyzerConfig(v *viper.Viper) agents.ContextAnalyzerConfig {
	return agents.ContextAnalyzerConfig{
		Deployment:     v.GetString("azure.openai_deployment_name"),
		AssistantName:  v.GetString("assistant_name"),
		Characteristic: v.GetString("characteristic_description"),
	}
}

// newLogger builds the slog logger with correlation IDs injected from context.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
