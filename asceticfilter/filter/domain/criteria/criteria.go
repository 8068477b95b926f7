// Package criteria describes filters as data: criteria documents decoded from
// JSON, YAML or plain maps and compiled to predicates or SQL.
package criteria

import (
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// Criterion is one (field, operator, values, join) filter term.
type Criterion struct {
	Field    string         `json:"field" yaml:"field"`
	Operator string         `json:"operator" yaml:"operator"`
	Values   []any          `json:"values,omitempty" yaml:"values,omitempty"`
	Join     operators.Join `json:"join,omitempty" yaml:"join,omitempty"`
}

// Group folds its criteria and nested groups with Join (AND when empty).
type Group struct {
	Join     operators.Join `json:"join,omitempty" yaml:"join,omitempty"`
	Not      bool           `json:"not,omitempty" yaml:"not,omitempty"`
	Criteria []Criterion    `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	Groups   []Group        `json:"groups,omitempty" yaml:"groups,omitempty"`
}

func (g Group) join() operators.Join {
	if g.Join == "" {
		return operators.JoinAnd
	}
	return g.Join
}

func (g Group) IsEmpty() bool {
	return len(g.Criteria) == 0 && len(g.Groups) == 0
}

// Accept walks the group depth first.
func (g Group) Accept(v Visitor) error {
	if err := v.VisitGroupStart(g); err != nil {
		return err
	}
	for _, c := range g.Criteria {
		if err := v.VisitCriterion(c); err != nil {
			return err
		}
	}
	for _, sub := range g.Groups {
		if err := sub.Accept(v); err != nil {
			return err
		}
	}
	return v.VisitGroupEnd(g)
}

type Visitor interface {
	VisitGroupStart(g Group) error
	VisitCriterion(c Criterion) error
	VisitGroupEnd(g Group) error
}

// Fields lists the distinct field paths a group refers to, in document order.
func (g Group) Fields() []string {
	c := &fieldCollector{seen: map[string]bool{}}
	_ = g.Accept(c)
	return c.fields
}

type fieldCollector struct {
	seen   map[string]bool
	fields []string
}

func (c *fieldCollector) VisitGroupStart(Group) error { return nil }
func (c *fieldCollector) VisitGroupEnd(Group) error   { return nil }

func (c *fieldCollector) VisitCriterion(cr Criterion) error {
	if !c.seen[cr.Field] {
		c.seen[cr.Field] = true
		c.fields = append(c.fields, cr.Field)
	}
	return nil
}
