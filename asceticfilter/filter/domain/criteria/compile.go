package criteria

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	filter "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

// Compile builds the predicate of a group for entities of type T. Field paths
// are resolved through the builder's resolver. Every criterion that fails to
// build is reported in the returned error.
func Compile[T any](b *filter.Builder, g Group) (filter.Predicate[T], error) {
	var result error
	ps := make([]filter.Predicate[T], 0, len(g.Criteria)+len(g.Groups))

	for _, c := range g.Criteria {
		p, err := compileCriterion[T](b, c)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		ps = append(ps, p)
	}
	for _, sub := range g.Groups {
		p, err := Compile[T](b, sub)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		ps = append(ps, p)
	}
	if result != nil {
		return nil, result
	}

	p := filter.Combine(g.join(), ps...)
	if g.Not {
		p = filter.Not(p)
	}
	return p, nil
}

func compileCriterion[T any](b *filter.Builder, c Criterion) (filter.Predicate[T], error) {
	field, err := filter.ResolvePath[T](b.Resolver(), c.Field)
	if err != nil {
		return nil, err
	}
	p, err := filter.Build(b, field, c.Operator, c.Values, c.Join)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", c.Field, c.Operator)
	}
	return p, nil
}
