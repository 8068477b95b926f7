package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	pg "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/infrastructure"
)

type sqlOptions struct {
	criteria string
	columns  map[string]string
	offset   int
}

func newSQLCmd(a *app) *cobra.Command {
	o := &sqlOptions{}
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Render a filter document as a PostgreSQL WHERE expression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.criteria, "criteria", "", "filter document (JSON or YAML)")
	f.StringToStringVar(&o.columns, "columns", nil, "field=column mappings")
	f.IntVar(&o.offset, "placeholder-index", 0, "parameters already bound by the enclosing statement")
	return cmd
}

func runSQL(cmd *cobra.Command, a *app, o *sqlOptions) error {
	g, err := readCriteria(o.criteria)
	if err != nil {
		return err
	}
	opts := []pg.CompilerOption{pg.WithColumns(o.columns), pg.PlaceholderIndex(o.offset)}
	if a.settings.Filter.IgnoreCase {
		opts = append(opts, pg.WithIgnoreCase())
	}
	sql, params, err := pg.Compile(g, opts...)
	if err != nil {
		return err
	}
	if params == nil {
		params = []any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, sql)
	fmt.Fprintln(out, string(encoded))
	return nil
}
