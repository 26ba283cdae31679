package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/rulepack/pkg/expr"
	"github.com/macropower/rulepack/pkg/packer"
)

type UnpackArgs struct {
	*RootArgs

	Input  string
	Output string
	Filter string
}

func NewUnpackArgs(rootArgs *RootArgs) *UnpackArgs {
	return &UnpackArgs{
		RootArgs: rootArgs,
	}
}

func (ua *UnpackArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ua.Input, "input", "i", packer.DefaultPackOutput, "Container file to read")
	cmd.Flags().StringVarP(&ua.Output, "output", "o", packer.DefaultUnpackOutput, "Directory to write rule documents to")
	cmd.Flags().StringVar(&ua.Filter, "filter", "", "CEL expression selecting the rules to write")

	err := cmd.MarkFlagDirname("output")
	if err != nil {
		panic(fmt.Errorf("mark output flag: %w", err))
	}
}

func NewUnpackCmd(ua *UnpackArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack",
		Short: "Write the rules of a container back to YAML documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUnpack(cmd, ua)
		},
	}
	ua.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runUnpack(cmd *cobra.Command, ua *UnpackArgs) error {
	filter, err := expr.NewFilter(ua.Filter)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	res, err := packer.Unpack(cmd.Context(), packer.UnpackOptions{
		Input:  ua.Input,
		Output: ua.Output,
		Filter: filter,
	})
	if err != nil {
		return err //nolint:wrapcheck // Rendered by the error handler.
	}

	mustN(fmt.Fprintf(cmd.OutOrStdout(), "unpacked %d of %d rules into %s\n", len(res.Files), res.Total, ua.Output))

	return nil
}
