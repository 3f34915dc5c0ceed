// Package cli implements the exprmap command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"exprmap/internal/catalog"
	"exprmap/internal/match"
	"exprmap/mapper"
	"exprmap/profile"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Profile string
	Format  string // "text" | "yaml"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "yaml"}

// NewRootCommand creates the root command of the exprmap CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "exprmap",
		Short: "Inspect and run projection rules",
		Long: `exprmap compiles projection rules between Go types into expression trees
and runs them against in-memory or SQLite queries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug records to stderr")
	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", "", "YAML profile applied to the registry")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|yaml)")

	cmd.AddCommand(NewPairsCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// logger returns the logger selected by the verbose flag.
func (o *RootOptions) logger(stderr io.Writer) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// registry builds the catalog registry with the profile applied.
func (o *RootOptions) registry(stderr io.Writer) (*mapper.Registry, error) {
	cfg := mapper.DefaultConfig()
	cfg.Logger = o.logger(stderr)

	var prof *profile.File

	if o.Profile != "" {
		var err error

		prof, err = profile.LoadFile(o.Profile)
		if err != nil {
			return nil, err
		}

		cfg = prof.Config(cfg)
	}

	reg, err := catalog.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	if prof != nil {
		if err := prof.Apply(reg); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// findRule resolves the rule named by source and target type names.
func findRule(reg *mapper.Registry, source, target string) (*mapper.TypeMap, error) {
	rule, ok := reg.Find(source, target)
	if !ok {
		pair := source + " -> " + target

		return nil, fmt.Errorf("%w: %s%s", mapper.ErrMapNotFound, pair, match.Hint(pair, reg.Pairs()))
	}

	return rule, nil
}
