package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/macropower/rulepack/api/v1beta1/configs"
	"github.com/macropower/rulepack/pkg/container"
	"github.com/macropower/rulepack/pkg/packer"
)

type PackArgs struct {
	*RootArgs

	Input    string
	Output   string
	Compress string
	Level    string
	Watch    bool
}

func NewPackArgs(rootArgs *RootArgs) *PackArgs {
	return &PackArgs{
		RootArgs: rootArgs,
	}
}

func (pa *PackArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&pa.Input, "input", "i", packer.DefaultPackInput, "Rule directory")
	cmd.Flags().StringVarP(&pa.Output, "output", "o", packer.DefaultPackOutput, "Container file to write")
	cmd.Flags().StringVarP(&pa.Compress, "compress", "c", container.CompressionZstd.String(),
		fmt.Sprintf("Payload compression, one of: %s", container.Compressions))
	cmd.Flags().StringVar(&pa.Level, "level", container.DefaultLevel.String(),
		fmt.Sprintf("Compression level, one of: %s", container.Levels))
	cmd.Flags().BoolVarP(&pa.Watch, "watch", "w", false, "Repack whenever a rule file changes")

	var err error

	err = cmd.RegisterFlagCompletionFunc("compress",
		cobra.FixedCompletions(container.Compressions, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("level",
		cobra.FixedCompletions(container.Levels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkFlagDirname("input")
	if err != nil {
		panic(fmt.Errorf("mark input flag: %w", err))
	}
}

func NewPackCmd(pa *PackArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Validate a rule directory and write its container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPack(cmd, pa)
		},
	}
	pa.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

// packOptions merges flags over the configuration file.
func (pa *PackArgs) packOptions(cmd *cobra.Command, cfg *configs.Config) (packer.PackOptions, error) {
	pc := &configs.PackConfig{
		Input:    stringFlag(cmd, "input", pa.Input, cfg.Pack.Input),
		Output:   stringFlag(cmd, "output", pa.Output, cfg.Pack.Output),
		Compress: stringFlag(cmd, "compress", pa.Compress, cfg.Pack.Compress),
		Level:    stringFlag(cmd, "level", pa.Level, cfg.Pack.Level),
	}

	c, level, err := pc.Codec()
	if err != nil {
		return packer.PackOptions{}, err //nolint:wrapcheck // Names the value.
	}

	return packer.PackOptions{
		Input:          pc.Input,
		Output:         pc.Output,
		AllowedSystems: cfg.Validation.SystemInfo,
		Compression:    c,
		Level:          level,
	}, nil
}

func runPack(cmd *cobra.Command, pa *PackArgs) error {
	cfg, err := pa.LoadConfig()
	if err != nil {
		return err
	}

	opts, err := pa.packOptions(cmd, cfg)
	if err != nil {
		return err
	}

	if pa.Watch {
		err = packer.Watch(cmd.Context(), opts, func(res *packer.PackResult, err error) {
			if err != nil {
				renderError(cmd.ErrOrStderr(), err)
				return
			}

			mustN(fmt.Fprintln(cmd.OutOrStdout(), packSummary(res)))
		})
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}

		return nil
	}

	res, err := packer.Pack(cmd.Context(), opts)
	if err != nil {
		return err //nolint:wrapcheck // Rendered by the error handler.
	}

	mustN(fmt.Fprintln(cmd.OutOrStdout(), packSummary(res)))

	return nil
}

func packSummary(res *packer.PackResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "packed %d rules into %s (%s", res.Rules, res.Output, humanize.Bytes(uint64(res.FileSize)))
	if res.StoredSize != res.PayloadSize {
		fmt.Fprintf(&sb, ", payload %s compressed to %s",
			humanize.Bytes(res.PayloadSize), humanize.Bytes(res.StoredSize))
	}

	sb.WriteString(")")

	return sb.String()
}
