package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/rulepack/pkg/expr"
	"github.com/macropower/rulepack/pkg/packer"
)

type InfoArgs struct {
	*RootArgs

	Input  string
	Filter string
	Format string
	Verify bool
}

func NewInfoArgs(rootArgs *RootArgs) *InfoArgs {
	return &InfoArgs{
		RootArgs: rootArgs,
	}
}

func (ia *InfoArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ia.Input, "input", "i", packer.DefaultPackOutput, "Container file to read")
	cmd.Flags().StringVar(&ia.Filter, "filter", "", "CEL expression selecting the listed rules (id, name and risk only)")
	cmd.Flags().StringVarP(&ia.Format, "format", "f", string(packer.FormatText),
		fmt.Sprintf("Output format, one of: %s", packer.AllFormats))
	cmd.Flags().BoolVar(&ia.Verify, "verify", false, "Also decode the payload and check its checksum")

	err := cmd.RegisterFlagCompletionFunc("format",
		cobra.FixedCompletions(packer.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

func NewInfoCmd(ia *InfoArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize a container from its header and index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInfo(cmd, ia)
		},
	}
	ia.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runInfo(cmd *cobra.Command, ia *InfoArgs) error {
	format, err := packer.ParseFormat(ia.Format)
	if err != nil {
		return err //nolint:wrapcheck // Names the value.
	}

	filter, err := expr.NewIndexFilter(ia.Filter)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	sum, err := packer.Info(cmd.Context(), packer.InfoOptions{
		Input:  ia.Input,
		Verify: ia.Verify,
		Filter: filter,
	})
	if err != nil {
		return err //nolint:wrapcheck // Rendered by the error handler.
	}

	out := cmd.OutOrStdout()

	err = sum.Render(out, format, isTerminal(out))
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	return nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: Fd fits in an int.
}
