package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindEnvVars binds environment variables to the flags of cmd. Variable
// names are RULEPACK_<FLAG_NAME>, upper case with dashes replaced by
// underscores:
//   - Flag "log-level" becomes "RULEPACK_LOG_LEVEL"
//   - Flag "compress" becomes "RULEPACK_COMPRESS"
//
// Arguments take precedence over environment variables. A flag set from the
// environment is marked as changed, so it also takes precedence over the
// configuration file.
//
// Flag usage descriptions are updated to include the variable name.
func bindEnvVars(cmd *cobra.Command) {
	cmd.Flags().VisitAll(bindFlagToEnv)
	cmd.PersistentFlags().VisitAll(bindFlagToEnv)
}

// bindFlagToEnv binds a single flag to its corresponding environment variable.
func bindFlagToEnv(flag *pflag.Flag) {
	envName := flagToEnvName(flag.Name)

	if !strings.Contains(flag.Usage, envName) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
	}

	// Skip if flag was already set via command line arguments.
	if flag.Changed {
		return
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok {
		return
	}

	err := flag.Value.Set(envValue)
	if err != nil {
		// Log error but don't fail - use default value instead.
		slog.Error("failed to set flag from environment variable",
			slog.String("flag", flag.Name),
			slog.String("env", envName),
			slog.String("value", envValue),
			slog.Any("error", err),
		)

		return
	}

	flag.Changed = true
}

// flagToEnvName converts a flag name to its corresponding environment variable name.
// Example: "log-level" -> "RULEPACK_LOG_LEVEL".
func flagToEnvName(flagName string) string {
	envName := strings.ReplaceAll(flagName, "-", "_")
	return strings.ToUpper(cmdName + "_" + envName)
}

// stringFlag returns the value of the named flag when it was set by an
// argument or environment variable, and fallback otherwise.
func stringFlag(cmd *cobra.Command, name, value, fallback string) string {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return value
	}

	return fallback
}
