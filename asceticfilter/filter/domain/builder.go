package filter

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

type Option func(*Builder)

func WithRegistry(registry *operators.OperatorRegistry) Option {
	return func(b *Builder) {
		b.registry = registry
	}
}

func WithResolver(resolver *Resolver) Option {
	return func(b *Builder) {
		b.resolver = resolver
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Lenient turns unknown operators into always-false terms instead of errors.
func Lenient() Option {
	return func(b *Builder) {
		b.lenient = true
	}
}

// WithIgnoreCase makes equality and text operators on string fields case-insensitive.
func WithIgnoreCase() Option {
	return func(b *Builder) {
		b.ignoreCase = true
	}
}

// WithLengthOrdering compares the rune length of fields that are neither
// numeric nor temporal when an ordering operator is used on them.
func WithLengthOrdering() Option {
	return func(b *Builder) {
		b.lengthOrdering = true
	}
}

// Builder holds the settings predicates are built with. It is immutable once
// created and may be shared.
type Builder struct {
	registry       *operators.OperatorRegistry
	resolver       *Resolver
	logger         *zap.Logger
	lenient        bool
	ignoreCase     bool
	lengthOrdering bool
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		registry: operators.NewDefaultRegistry(),
		resolver: defaultResolver,
		logger:   zap.NewNop(),
	}
	for i := range opts {
		opts[i](b)
	}
	return b
}

var defaultBuilder = NewBuilder()

func DefaultBuilder() *Builder {
	return defaultBuilder
}

func (b *Builder) Registry() *operators.OperatorRegistry {
	return b.registry
}

func (b *Builder) Resolver() *Resolver {
	return b.resolver
}

func (b *Builder) Logger() *zap.Logger {
	return b.logger
}

// Where builds a predicate with the default builder, folding values with OR.
func Where[T any](field Field[T], operator string, values ...any) (Predicate[T], error) {
	return Build(defaultBuilder, field, operator, values, operators.JoinOr)
}

// Build translates a field, an operator name and a value set into a predicate.
// Every value yields one term, negated when the operator starts with "!", and
// the terms are folded with join (OR when empty). Range operators consume the
// whole value set as a single term.
func Build[T any](b *Builder, field Field[T], operator string, values []any, join operators.Join) (Predicate[T], error) {
	if field.isZero() {
		return nil, errors.Wrap(ErrFieldNotFound, "field accessor is not set")
	}
	if join == "" {
		join = operators.JoinOr
	}
	logger := b.logger.With(zap.String("field", field.Name()), zap.String("operator", operator))
	f := termFactory{
		registry:       b.registry,
		ignoreCase:     b.ignoreCase,
		lengthOrdering: b.lengthOrdering,
		logger:         logger,
	}

	tok, err := operators.Parse(operator)
	if err != nil {
		if custom, ok := b.registry.Custom(tok.Name); ok {
			return buildCustom(field, custom, tok.Negated, values, join), nil
		}
		if !b.lenient {
			return nil, errors.Wrapf(err, "field %q", field.Name())
		}
		logger.Warn("unknown operator, filter term degrades to false", zap.Error(err))
		return False[T](), nil
	}

	op, negated := tok.Operator, tok.Negated
	if op == operators.OperatorNe {
		op, negated = operators.OperatorEq, !negated
	}

	switch {
	case !op.RequiresValues():
		return predicateOf(field, f.unary(op), negated), nil
	case len(values) == 0:
		return Combine[T](join), nil
	case op.IsRange():
		return predicateOf(field, f.between(op, field.Type(), values), negated), nil
	}

	ps := make([]Predicate[T], 0, len(values))
	for _, v := range values {
		ps = append(ps, predicateOf(field, f.value(op, field.Type(), v), negated))
	}
	return Combine(join, ps...), nil
}

func buildCustom[T any](field Field[T], custom operators.CustomOp, negated bool, values []any, join operators.Join) Predicate[T] {
	if len(values) == 0 {
		values = []any{nil}
	}
	ps := make([]Predicate[T], 0, len(values))
	for _, v := range values {
		m := func(actual any) (bool, bool) {
			result, err := custom(actual, v)
			return result, err == nil
		}
		ps = append(ps, predicateOf(field, m, negated))
	}
	return Combine(join, ps...)
}

func predicateOf[T any](field Field[T], m match, negated bool) Predicate[T] {
	return func(e T) bool {
		result, ok := m(field.Value(e))
		if !ok {
			return false
		}
		return result != negated
	}
}
