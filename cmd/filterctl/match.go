package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/collection"
	filter "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/criteria"
)

type record = map[string]any

type matchOptions struct {
	criteria     string
	input        string
	page         int
	size         int
	similarField string
	terms        []string
	descending   bool
	relevance    string
}

func newMatchCmd(a *app) *cobra.Command {
	o := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Print the records of a JSON array that satisfy a filter document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, a, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.criteria, "criteria", "", "filter document (JSON or YAML)")
	f.StringVar(&o.input, "input", "", "JSON array of records")
	f.IntVar(&o.page, "page", 0, "1-based page number; 0 returns every match")
	f.IntVar(&o.size, "size", 0, "page size")
	f.StringVar(&o.similarField, "similar-field", "", "field to order by similarity or relevance")
	f.StringSliceVar(&o.terms, "terms", nil, "terms for similarity ordering")
	f.BoolVar(&o.descending, "descending", false, "put the least similar records first")
	f.StringVar(&o.relevance, "relevance", "", "query for relevance ordering")
	return cmd
}

func runMatch(cmd *cobra.Command, a *app, o *matchOptions) error {
	g, err := readCriteria(o.criteria)
	if err != nil {
		return err
	}
	records, err := readRecords(o.input)
	if err != nil {
		return err
	}
	opts, err := a.settings.Options(a.logger)
	if err != nil {
		return err
	}
	b := filter.NewBuilder(opts...)

	p, err := criteria.Compile[record](b, g)
	if err != nil {
		return err
	}
	matched := collection.Where(records, p)

	if o.similarField != "" {
		field, err := filter.ResolvePath[record](b.Resolver(), o.similarField)
		if err != nil {
			return err
		}
		text := func(r record) string {
			if v := field.Value(r); v != nil {
				return fmt.Sprint(v)
			}
			return ""
		}
		switch {
		case o.relevance != "":
			matched = collection.OrderByRelevance(matched, text, o.relevance)
		case len(o.terms) > 0:
			matched = collection.OrderBySimilarity(matched, text, o.terms, !o.descending)
		}
	}
	if o.page > 0 {
		matched = collection.Page(matched, o.page, o.size)
	}

	a.logger.Debug("match",
		zap.Int("records", len(records)),
		zap.Int("matched", len(matched)),
		zap.Strings("fields", g.Fields()),
	)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(matched)
}

func readRecords(path string) ([]record, error) {
	if path == "" {
		return nil, errors.New("--input is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read input")
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "input must be a JSON array of objects")
	}
	return records, nil
}
