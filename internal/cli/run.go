package cli

import (
	"fmt"
	"io"
	"reflect"

	"github.com/spf13/cobra"

	"exprmap/internal/catalog"
	"exprmap/query"
	"exprmap/sqlite"
)

// RunOptions holds flags of the run command.
type RunOptions struct {
	DB   string
	Role string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <source> <target>",
		Short: "Materialize the sample rows through a projection",
		Long: `Project the catalog sample rows of source into target. With --db the rows
are stored in (and read back from) a SQLite database, so the projection runs
as SQL; otherwise it runs in memory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path (\":memory:\" for a scratch database)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "viewer role put in the resolution context")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, cmd *cobra.Command, source, target string) error {
	ctx := cmd.Context()
	logger := rootOpts.logger(cmd.ErrOrStderr())

	reg, err := rootOpts.registry(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	rule, err := findRule(reg, source, target)
	if err != nil {
		return err
	}

	pair, err := catalog.Lookup(rule)
	if err != nil {
		return err
	}

	var q query.Queryable

	if opts.DB == "" {
		q = pair.Memory()
	} else {
		db, err := sqlite.Open(opts.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		db.SetLogger(logger)

		if err := pair.Seed(ctx, db); err != nil {
			return err
		}

		q = pair.Stored(db)
	}

	var viewer *catalog.Viewer
	if opts.Role != "" {
		viewer = &catalog.Viewer{Role: opts.Role}
	}

	result, err := pair.Run(ctx, reg, q, viewer)
	if err != nil {
		return err
	}

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	return out.Write(result, func(w io.Writer) error {
		rows := reflect.ValueOf(result)
		for i := range rows.Len() {
			fmt.Fprintf(w, "%+v\n", rows.Index(i).Interface())
		}

		return nil
	})
}
