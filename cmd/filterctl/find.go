package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	pg "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/infrastructure"
)

type findOptions struct {
	criteria string
	table    string
	page     int
	size     int
	orderBy  []string
	count    bool
}

func newFindCmd(a *app) *cobra.Command {
	o := &findOptions{}
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Print the rows of a PostgreSQL table that satisfy a filter document",
		Long: `Connects with postgres.dsn from the settings file, or FILTER_POSTGRES_DSN,
and prints the matching rows as a JSON array, or their number with --count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.criteria, "criteria", "", "filter document (JSON or YAML)")
	f.StringVar(&o.table, "table", "", "table name, optionally schema-qualified")
	f.IntVar(&o.page, "page", 0, "1-based page number; 0 returns every match")
	f.IntVar(&o.size, "size", 0, "page size")
	f.StringSliceVar(&o.orderBy, "order", nil, "columns to order by, prefixed with - for descending")
	f.BoolVar(&o.count, "count", false, "print the number of matching rows")
	return cmd
}

func runFind(cmd *cobra.Command, a *app, o *findOptions) error {
	if o.table == "" {
		return errors.New("--table is required")
	}
	if a.settings.Postgres.DSN == "" {
		return errors.New("postgres.dsn is not set")
	}
	g, err := readCriteria(o.criteria)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, a.settings.Postgres.DSN)
	if err != nil {
		return errors.Wrap(err, "failed to connect")
	}
	defer pool.Close()

	opts := []pg.RepositoryOption{pg.WithRepositoryLogger(a.logger)}
	if a.settings.Filter.IgnoreCase {
		opts = append(opts, pg.WithCompilerOptions(pg.WithIgnoreCase()))
	}
	repo := pg.NewRepository[map[string]any](pool, o.table, opts...)

	out := cmd.OutOrStdout()
	if o.count {
		n, err := repo.Count(ctx, g)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		return nil
	}
	rows, err := repo.Find(ctx, g, pg.Page{Number: o.page, Size: o.size}, o.orderBy...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
