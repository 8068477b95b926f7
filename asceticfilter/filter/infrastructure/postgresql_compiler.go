package filter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	domain "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/criteria"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// ErrNotCompilable is returned for criteria that have no SQL form, such as custom operators.
var ErrNotCompilable = errors.New("criterion cannot be compiled to SQL")

// Compile renders a criteria group as a PostgreSQL boolean expression with
// positional parameters. A NULL column fails a term and satisfies its
// negation, as in memory. Terms whose literal cannot be coerced to the column
// type are FALSE, negated or not.
func Compile(g criteria.Group, opts ...CompilerOption) (sql string, params []any, err error) {
	c := NewCompiler(opts...)
	if err := c.group(g); err != nil {
		return "", nil, err
	}
	return c.Result()
}

type CompilerOption func(*Compiler)

// PlaceholderIndex sets the number of parameters already bound by the
// enclosing statement; the first placeholder is index+1.
func PlaceholderIndex(index int) CompilerOption {
	return func(c *Compiler) {
		c.placeholderIndex = index
	}
}

// WithColumns maps criterion fields to column names. Unmapped fields are used
// as dotted identifiers.
func WithColumns(columns map[string]string) CompilerOption {
	return func(c *Compiler) {
		c.columns = columns
	}
}

// WithColumnTypes declares the Go type of criterion fields. Literals are
// coerced to it and it decides whether text operators apply, as Build does.
// Fields without a type fall back to the type of each literal.
func WithColumnTypes(types map[string]reflect.Type) CompilerOption {
	return func(c *Compiler) {
		if c.types == nil {
			c.types = make(map[string]reflect.Type, len(types))
		}
		for field, typ := range types {
			c.types[field] = domain.DeclaredType(typ)
		}
	}
}

// WithEntity declares columns and types from the fields of T: the db tag or
// lower-cased field name is the column, reachable by field name, json tag
// and column name.
func WithEntity[T any]() CompilerOption {
	_, columns, types := structColumns(reflect.TypeFor[T]())
	return func(c *Compiler) {
		WithColumns(columns)(c)
		WithColumnTypes(types)(c)
	}
}

// WithIgnoreCase compiles text operators and text equality case-insensitively.
func WithIgnoreCase() CompilerOption {
	return func(c *Compiler) {
		c.ignoreCase = true
	}
}

// WithRegistry sets the registry used to order range bounds.
func WithRegistry(registry *operators.OperatorRegistry) CompilerOption {
	return func(c *Compiler) {
		c.registry = registry
	}
}

func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{
		registry:          operators.NewDefaultRegistry(),
		precedenceMapping: make(map[string]int),
	}
	// https://www.postgresql.org/docs/14/sql-syntax-lexical.html#SQL-PRECEDENCE-TABLE
	c.setPrecedence(100, "(any other operator) LEFT")
	c.setPrecedence(90, "BETWEEN NON", "LIKE NON", "ILIKE NON")
	c.setPrecedence(80, "< NON", "> NON", "= NON", "<= NON", ">= NON", "<> NON")
	c.setPrecedence(70, "IS NON")
	c.setPrecedence(60, "NOT RIGHT")
	c.setPrecedence(50, "AND LEFT")
	c.setPrecedence(40, "OR LEFT")
	for i := range opts {
		opts[i](c)
	}
	return c
}

type Compiler struct {
	sql               string
	placeholderIndex  int
	parameters        []any
	columns           map[string]string
	types             map[string]reflect.Type
	ignoreCase        bool
	registry          *operators.OperatorRegistry
	precedence        int
	precedenceMapping map[string]int
}

func (c *Compiler) setPrecedence(precedence int, keys ...string) {
	for _, k := range keys {
		c.precedenceMapping[k] = precedence
	}
}

func (c *Compiler) visit(precedenceKey string, callable func() error) error {
	outerPrecedence := c.precedence
	innerPrecedence, ok := c.precedenceMapping[precedenceKey]
	if !ok {
		innerPrecedence = c.precedenceMapping["(any other operator) LEFT"]
	}
	c.precedence = innerPrecedence
	if innerPrecedence < outerPrecedence {
		c.sql += "("
	}
	if err := callable(); err != nil {
		return err
	}
	if innerPrecedence < outerPrecedence {
		c.sql += ")"
	}
	c.precedence = outerPrecedence
	return nil
}

// call writes a function call; its arguments start a fresh precedence context.
func (c *Compiler) call(name string, args ...func() error) error {
	outerPrecedence := c.precedence
	c.precedence = 0
	c.sql += name + "("
	for i, arg := range args {
		if i > 0 {
			c.sql += ", "
		}
		if err := arg(); err != nil {
			return err
		}
	}
	c.sql += ")"
	c.precedence = outerPrecedence
	return nil
}

func (c *Compiler) write(s string) func() error {
	return func() error {
		c.sql += s
		return nil
	}
}

func (c *Compiler) param(value any) func() error {
	return func() error {
		c.parameters = append(c.parameters, value)
		c.sql += fmt.Sprintf("$%d", c.placeholderIndex+len(c.parameters))
		return nil
	}
}

func (c *Compiler) Result() (sql string, params []any, err error) {
	return c.sql, c.parameters, nil
}

func (c *Compiler) group(g criteria.Group) error {
	parts := make([]func() error, 0, len(g.Criteria)+len(g.Groups))
	for _, cr := range g.Criteria {
		parts = append(parts, func() error { return c.criterion(cr) })
	}
	for _, sub := range g.Groups {
		parts = append(parts, func() error { return c.group(sub) })
	}
	join := g.Join
	if join == "" {
		join = operators.JoinAnd
	}
	body := func() error { return c.junction(join, parts) }
	if g.Not {
		return c.not(body)
	}
	return body()
}

// junction folds parts with join; no parts gives the join identity.
func (c *Compiler) junction(join operators.Join, parts []func() error) error {
	switch len(parts) {
	case 0:
		if join.Identity() {
			c.sql += "TRUE"
		} else {
			c.sql += "FALSE"
		}
		return nil
	case 1:
		return parts[0]()
	}
	return c.visit(string(join)+" LEFT", func() error {
		for i, part := range parts {
			if i > 0 {
				c.sql += " " + string(join) + " "
			}
			if err := part(); err != nil {
				return err
			}
		}
		return nil
	})
}

// not negates an expression, treating NULL as false first.
func (c *Compiler) not(operand func() error) error {
	return c.visit("NOT RIGHT", func() error {
		c.sql += "NOT "
		return c.call("COALESCE", operand, c.write("FALSE"))
	})
}

// compiled is one term of a criterion. A degraded term is FALSE whether
// negated or not.
type compiled struct {
	write    func() error
	degraded bool
}

func (c *Compiler) never() compiled {
	return compiled{write: c.write("FALSE")}
}

func (c *Compiler) criterion(cr criteria.Criterion) error {
	tok, err := operators.Parse(cr.Operator)
	if err != nil {
		return errors.Wrapf(ErrNotCompilable, "%s %s: %v", cr.Field, cr.Operator, err)
	}
	op, negated := tok.Operator, tok.Negated
	if op == operators.OperatorNe {
		op, negated = operators.OperatorEq, !negated
	}
	column := c.column(cr.Field)
	typ := c.types[cr.Field]
	join := cr.Join
	if join == "" {
		join = operators.JoinOr
	}

	var terms []compiled
	switch {
	case !op.RequiresValues():
		terms = append(terms, c.unary(op, column, typ))
	case op.IsRange() && len(cr.Values) > 0:
		terms = append(terms, c.between(op, column, typ, cr.Values))
	default:
		for _, v := range cr.Values {
			terms = append(terms, c.value(op, column, typ, v))
		}
	}

	parts := make([]func() error, len(terms))
	for i, t := range terms {
		switch {
		case t.degraded:
			parts[i] = c.write("FALSE")
		case negated:
			parts[i] = func() error { return c.not(t.write) }
		default:
			parts[i] = t.write
		}
	}
	return c.junction(join, parts)
}

func (c *Compiler) column(field string) string {
	name, ok := c.columns[field]
	if !ok {
		name = field
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func (c *Compiler) unary(op operators.Operator, column string, typ reflect.Type) compiled {
	switch {
	case op == operators.OperatorNull:
		return compiled{write: func() error {
			return c.visit("IS NON", func() error {
				c.sql += column + " IS NULL"
				return nil
			})
		}}
	case typ != nil && typ.Kind() != reflect.String:
		return c.never()
	}
	return compiled{write: func() error {
		return c.binary("=", c.write(column), c.write("''"))
	}}
}

// coerce converts a literal to the column type when it is known. Otherwise
// the literal is kept and its own type decides whether it is text.
func (c *Compiler) coerce(typ reflect.Type, literal any) (v any, text bool, err error) {
	if typ == nil {
		v = operators.Indirect(literal)
	} else if v, err = domain.Coerce(literal, typ); err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String && (typ == nil || typ.Kind() == reflect.String) {
		return rv.String(), true, nil
	}
	return v, false, nil
}

func (c *Compiler) value(op operators.Operator, column string, typ reflect.Type, literal any) compiled {
	v, text, err := c.coerce(typ, literal)
	if err != nil {
		return compiled{degraded: true}
	}
	if v == nil {
		return c.never()
	}
	if !text {
		op = op.NonText()
	}
	if s, ok := v.(string); ok && text {
		return compiled{write: c.text(op, column, s)}
	}
	return compiled{write: c.comparison(op, column, v)}
}

func (c *Compiler) text(op operators.Operator, column, s string) func() error {
	return func() error {
		switch op {
		case operators.OperatorStartsWith:
			return c.like(column, escapeLike(s)+"%")
		case operators.OperatorEndsWith:
			return c.like(column, "%"+escapeLike(s))
		case operators.OperatorContains:
			return c.like(column, "%"+escapeLike(s)+"%")
		case operators.OperatorIsIn:
			return c.inside(column, s)
		case operators.OperatorCrossContains:
			return c.visit("OR LEFT", func() error {
				if err := c.like(column, "%"+escapeLike(s)+"%"); err != nil {
					return err
				}
				c.sql += " OR "
				return c.inside(column, s)
			})
		case operators.OperatorEq:
			if c.ignoreCase {
				return c.binary("=", c.lower(c.write(column)), c.lower(c.param(s)))
			}
		}
		return c.comparison(op, column, s)()
	}
}

func (c *Compiler) comparison(op operators.Operator, column string, v any) func() error {
	return func() error {
		switch op {
		case operators.OperatorEq:
			return c.binary("=", c.write(column), c.param(v))
		case operators.OperatorGt:
			return c.binary(">", c.write(column), c.param(v))
		case operators.OperatorGte:
			return c.binary(">=", c.write(column), c.param(v))
		case operators.OperatorLt:
			return c.binary("<", c.write(column), c.param(v))
		case operators.OperatorLte:
			return c.binary("<=", c.write(column), c.param(v))
		}
		return errors.Wrapf(ErrNotCompilable, "operator %q", op)
	}
}

func (c *Compiler) binary(op string, left, right func() error) error {
	return c.visit(op+" NON", func() error {
		if err := left(); err != nil {
			return err
		}
		c.sql += " " + op + " "
		return right()
	})
}

func (c *Compiler) lower(operand func() error) func() error {
	return func() error { return c.call("lower", operand) }
}

func (c *Compiler) like(column, pattern string) error {
	op := "LIKE"
	if c.ignoreCase {
		op = "ILIKE"
	}
	return c.binary(op, c.write(column), c.param(pattern))
}

// inside matches columns whose value is a substring of s.
func (c *Compiler) inside(column, s string) error {
	haystack, needle := c.param(s), c.write(column)
	if c.ignoreCase {
		haystack, needle = c.lower(haystack), c.lower(needle)
	}
	return c.binary(">", func() error { return c.call("strpos", haystack, needle) }, c.write("0"))
}

// between compiles the whole value set as one term, null values left out.
// Text columns match by first and last value as prefix and suffix; others
// are bounded by the smallest and largest value.
func (c *Compiler) between(op operators.Operator, column string, typ reflect.Type, literals []any) compiled {
	if len(literals) == 1 {
		return c.value(operators.OperatorEq, column, typ, literals[0])
	}
	values := make([]any, 0, len(literals))
	for _, l := range literals {
		v, _, err := c.coerce(typ, l)
		if err != nil {
			return compiled{degraded: true}
		}
		if v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return c.never()
	}

	first, firstIsText := values[0].(string)
	last, lastIsText := values[len(values)-1].(string)
	if firstIsText && lastIsText && (typ == nil || typ.Kind() == reflect.String) {
		if first == last {
			return c.value(operators.OperatorEq, column, typ, first)
		}
		return compiled{write: func() error {
			return c.visit("AND LEFT", func() error {
				if err := c.like(column, escapeLike(first)+"%"); err != nil {
					return err
				}
				c.sql += " AND "
				return c.like(column, "%"+escapeLike(last))
			})
		}}
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		low, err := c.registry.Compare(v, lo)
		if err != nil {
			return compiled{degraded: true}
		}
		high, err := c.registry.Compare(v, hi)
		if err != nil {
			return compiled{degraded: true}
		}
		if low < 0 {
			lo = v
		}
		if high > 0 {
			hi = v
		}
	}
	if cmp, _ := c.registry.Compare(lo, hi); cmp == 0 {
		return compiled{write: c.comparison(operators.OperatorEq, column, lo)}
	}
	if op == operators.OperatorBetweenOrEqual {
		return compiled{write: func() error {
			return c.visit("BETWEEN NON", func() error {
				c.sql += column + " BETWEEN "
				if err := c.param(lo)(); err != nil {
					return err
				}
				c.sql += " AND "
				return c.param(hi)()
			})
		}}
	}
	return compiled{write: func() error {
		return c.visit("AND LEFT", func() error {
			if err := c.binary(">", c.write(column), c.param(lo)); err != nil {
				return err
			}
			c.sql += " AND "
			return c.binary("<", c.write(column), c.param(hi))
		})
	}}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
