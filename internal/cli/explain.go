package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"exprmap/expr"
	"exprmap/internal/catalog"
	"exprmap/mapper"
	"exprmap/sqlite"
)

// Explanation shows the stages of one resolution.
type Explanation struct {
	Pair       string   `yaml:"pair"`
	Role       string   `yaml:"role,omitempty"`
	Unexpanded string   `yaml:"unexpanded"`
	Expanded   string   `yaml:"expanded"`
	Inlined    string   `yaml:"inlined"`
	SQL        string   `yaml:"sql,omitempty"`
	Args       []any    `yaml:"args,omitempty"`
	Warnings   []string `yaml:"warnings,omitempty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "explain <source> <target>",
		Short: "Show the expression tree and SQL of a projection",
		Long: `Resolve the rule from source to target and print its projection before
and after expanding references to other rules, inlined, and as SQLite SQL.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(rootOpts, cmd, args[0], args[1], role)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "viewer role put in the resolution context")

	return cmd
}

func runExplain(opts *RootOptions, cmd *cobra.Command, source, target, role string) error {
	reg, err := opts.registry(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	rule, err := findRule(reg, source, target)
	if err != nil {
		return err
	}

	var ctx *mapper.Context
	if role != "" {
		ctx = mapper.NewContext(catalog.Viewer{Role: role})
	}

	key := rule.Key()

	unexpanded, err := reg.Unexpanded(key.Source, key.Dest, ctx)
	if err != nil {
		return err
	}

	expanded, err := reg.GetMap(key.Source, key.Dest, ctx)
	if err != nil {
		return err
	}

	ex := Explanation{
		Pair:       rule.String(),
		Role:       role,
		Unexpanded: expr.Format(unexpanded),
		Expanded:   expr.Format(expanded),
		Inlined:    expr.Format(expr.InlineLambda(expanded)),
	}

	diags := rule.Diagnostics()
	for _, d := range diags.Warnings {
		ex.Warnings = append(ex.Warnings, d.String())
	}

	if pair, err := catalog.Lookup(rule); err == nil {
		stmt, args, err := sqlite.Render(pair.Stored(nil).Select(expanded))
		if err != nil {
			stmt = err.Error()
		}

		ex.SQL, ex.Args = stmt, args
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	return out.Write(ex, func(w io.Writer) error {
		fmt.Fprintf(w, "pair:       %s\n", ex.Pair)

		if ex.Role != "" {
			fmt.Fprintf(w, "role:       %s\n", ex.Role)
		}

		fmt.Fprintf(w, "unexpanded: %s\n", ex.Unexpanded)
		fmt.Fprintf(w, "expanded:   %s\n", ex.Expanded)
		fmt.Fprintf(w, "inlined:    %s\n", ex.Inlined)

		if ex.SQL != "" {
			fmt.Fprintf(w, "sql:        %s\n", ex.SQL)
			fmt.Fprintf(w, "args:       %v\n", ex.Args)
		}

		for _, warning := range ex.Warnings {
			fmt.Fprintf(w, "warning:    %s\n", warning)
		}

		return nil
	})
}
