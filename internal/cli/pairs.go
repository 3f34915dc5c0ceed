package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"exprmap/internal/catalog"
)

// PairInfo describes one registered rule.
type PairInfo struct {
	Pair     string   `yaml:"pair"`
	Table    string   `yaml:"table,omitempty"`
	Warnings []string `yaml:"warnings,omitempty"`
	Ignored  []string `yaml:"ignored,omitempty"`
}

// NewPairsCommand creates the pairs command.
func NewPairsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pairs",
		Short: "List registered rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPairs(rootOpts, cmd)
		},
	}
}

func runPairs(opts *RootOptions, cmd *cobra.Command) error {
	reg, err := opts.registry(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var infos []PairInfo

	for _, rule := range reg.Rules() {
		info := PairInfo{Pair: rule.String()}

		if pair, err := catalog.Lookup(rule); err == nil {
			info.Table = pair.Table
		}

		diags := rule.Diagnostics()
		for _, d := range diags.Warnings {
			info.Warnings = append(info.Warnings, d.String())
		}

		for _, d := range diags.Infos {
			info.Ignored = append(info.Ignored, d.Member)
		}

		infos = append(infos, info)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	return out.Write(infos, func(w io.Writer) error {
		for _, info := range infos {
			line := info.Pair
			if info.Table != "" {
				line += "  (table " + info.Table + ")"
			}

			fmt.Fprintln(w, line)

			for _, warning := range info.Warnings {
				fmt.Fprintln(w, "  warning:", warning)
			}

			for _, member := range info.Ignored {
				fmt.Fprintln(w, "  ignored:", member)
			}
		}

		return nil
	})
}
