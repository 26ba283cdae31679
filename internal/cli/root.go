package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/macropower/rulepack/api/v1beta1/configs"
	"github.com/macropower/rulepack/pkg/config"
	"github.com/macropower/rulepack/pkg/log"
)

const (
	cmdName = "rulepack"
	cmdDesc = `Pack cleanup rule documents into a compact binary container.`
)

type RootArgs struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "info", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", fmt.Sprintf("Path to the configuration file, default is the nearest %s", configs.FileNames[0]))

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

// LoadConfig reads the file named by --config, or the nearest configuration
// file above the working directory. Without either, it returns the defaults.
func (ra *RootArgs) LoadConfig() (*configs.Config, error) {
	path := ra.ConfigPath
	if path == "" {
		found, err := configs.Find(".")
		if err != nil {
			return nil, err //nolint:wrapcheck // Already wrapped.
		}
		if found == "" {
			slog.Debug("no configuration file found, using defaults")
			return configs.New(), nil
		}

		path = found
	}

	cfg, err := config.Read(path, configs.New, configs.DefaultValidator)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	slog.Debug("loaded configuration", slog.String("path", path))

	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		SilenceUsage:      true,
	}

	args.AddFlags(cmd)
	cmd.AddCommand(
		NewPackCmd(NewPackArgs(args)),
		NewUnpackCmd(NewUnpackArgs(args)),
		NewInfoCmd(NewInfoArgs(args)),
	)

	bindEnvVars(cmd)

	return cmd
}

const cmdExamples = `  # Pack ./rules into ./dist/rules.bin:
  rulepack pack

  # Pack without compression, repacking on every change:
  rulepack pack --input ./rules --compress none --watch

  # Write every high risk rule back to YAML:
  rulepack unpack --input ./dist/rules.bin --filter 'risk == "high"'

  # Summarize a container as JSON:
  rulepack info --input ./dist/rules.bin --format json`

func setupLogging(rc *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), rc.LogLevel, rc.LogFormat)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		logger := slog.New(logHandler)
		slog.SetDefault(logger)
		cmd.SetContext(log.NewContext(cmd.Context(), logger))

		return nil
	}
}
