package filter

import (
	"database/sql/driver"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// match evaluates one term against a field value. ok is false when the term
// cannot be evaluated, which makes it false whether negated or not.
type match func(actual any) (result, ok bool)

func degraded(any) (bool, bool) {
	return false, false
}

type termFactory struct {
	registry       *operators.OperatorRegistry
	ignoreCase     bool
	lengthOrdering bool
	logger         *zap.Logger
}

func (f termFactory) unary(op operators.Operator) match {
	if op == operators.OperatorNull {
		return func(actual any) (bool, bool) {
			return isNull(actual), true
		}
	}
	return func(actual any) (bool, bool) {
		s, ok := stringOf(actual)
		return ok && s == "", true
	}
}

// value builds the term for a single literal. A nil type defers coercion to
// the runtime type of each field value.
func (f termFactory) value(op operators.Operator, typ reflect.Type, literal any) match {
	if typ != nil {
		return f.typed(op, typ, literal, true)
	}
	return func(actual any) (bool, bool) {
		actual = operators.Indirect(actual)
		if actual == nil {
			return false, true
		}
		return f.typed(op, reflect.TypeOf(actual), literal, false)(actual)
	}
}

func (f termFactory) typed(op operators.Operator, typ reflect.Type, literal any, logFailure bool) match {
	if typ.Kind() != reflect.String {
		op = op.NonText()
	}
	if f.lengthOrdering && op.IsOrdering() && !isOrdinal(typ) {
		return f.length(op, literal, logFailure)
	}
	v, err := coerce(literal, typ)
	if err != nil {
		f.coercionFailed(literal, err, logFailure)
		return degraded
	}
	if v == nil {
		return func(any) (bool, bool) { return false, true }
	}
	if typ.Kind() == reflect.String {
		if m := f.text(op, reflect.ValueOf(v).String()); m != nil {
			return m
		}
	}
	return f.compare(op, v)
}

func (f termFactory) compare(op operators.Operator, v any) match {
	return func(actual any) (bool, bool) {
		result, err := f.registry.Exec(actual, op, v)
		return result, err == nil
	}
}

func (f termFactory) text(op operators.Operator, needle string) match {
	var fn func(s, needle string) bool
	switch op {
	case operators.OperatorStartsWith:
		fn = strings.HasPrefix
	case operators.OperatorEndsWith:
		fn = strings.HasSuffix
	case operators.OperatorContains:
		fn = strings.Contains
	case operators.OperatorIsIn:
		fn = func(s, needle string) bool { return strings.Contains(needle, s) }
	case operators.OperatorCrossContains:
		fn = func(s, needle string) bool {
			return strings.Contains(s, needle) || strings.Contains(needle, s)
		}
	case operators.OperatorEq:
		if !f.ignoreCase {
			return nil
		}
		fn = func(s, needle string) bool { return s == needle }
	default:
		return nil
	}
	if f.ignoreCase {
		needle = strings.ToLower(needle)
	}
	return func(actual any) (bool, bool) {
		s, ok := stringOf(actual)
		if !ok {
			return false, true
		}
		if f.ignoreCase {
			s = strings.ToLower(s)
		}
		return fn(s, needle), true
	}
}

func (f termFactory) length(op operators.Operator, literal any, logFailure bool) match {
	n, err := lengthOperand(literal)
	if err != nil {
		f.coercionFailed(literal, err, logFailure)
		return degraded
	}
	return func(actual any) (bool, bool) {
		s, ok := stringOf(actual)
		if !ok {
			return false, true
		}
		result, err := f.registry.Exec(int64(utf8.RuneCountInString(s)), op, n)
		return result, err == nil
	}
}

// between builds a single term from the whole value set, null values left
// out. Strings match when they start with the first value and end with the
// last one; other types are bounded by the smallest and largest value.
func (f termFactory) between(op operators.Operator, typ reflect.Type, literals []any) match {
	if typ == nil {
		return func(actual any) (bool, bool) {
			actual = operators.Indirect(actual)
			if actual == nil {
				return false, true
			}
			return f.typedBetween(op, reflect.TypeOf(actual), literals, false)(actual)
		}
	}
	return f.typedBetween(op, typ, literals, true)
}

func (f termFactory) typedBetween(op operators.Operator, typ reflect.Type, literals []any, logFailure bool) match {
	if len(literals) == 1 {
		return f.typed(operators.OperatorEq, typ, literals[0], logFailure)
	}

	values := make([]any, 0, len(literals))
	for _, l := range literals {
		v, err := coerce(l, typ)
		if err != nil {
			f.coercionFailed(l, err, logFailure)
			return degraded
		}
		if v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return func(any) (bool, bool) { return false, true }
	}
	if typ.Kind() == reflect.String {
		return f.textBetween(typ, values[0], values[len(values)-1])
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		c, err := f.registry.Compare(v, lo)
		if err != nil {
			f.coercionFailed(v, err, logFailure)
			return degraded
		}
		if c < 0 {
			lo = v
		}
		if c, err = f.registry.Compare(v, hi); err != nil {
			f.coercionFailed(v, err, logFailure)
			return degraded
		} else if c > 0 {
			hi = v
		}
	}
	if c, _ := f.registry.Compare(lo, hi); c == 0 {
		return f.compare(operators.OperatorEq, lo)
	}
	lower, upper := operators.OperatorGt, operators.OperatorLt
	if op == operators.OperatorBetweenOrEqual {
		lower, upper = operators.OperatorGte, operators.OperatorLte
	}
	return both(f.compare(lower, lo), f.compare(upper, hi))
}

func (f termFactory) textBetween(typ reflect.Type, first, last any) match {
	lo, hi := reflect.ValueOf(first).String(), reflect.ValueOf(last).String()
	if lo == hi {
		return f.typed(operators.OperatorEq, typ, first, false)
	}
	return both(
		f.text(operators.OperatorStartsWith, lo),
		f.text(operators.OperatorEndsWith, hi),
	)
}

func (f termFactory) coercionFailed(literal any, err error, log bool) {
	if log {
		f.logger.Debug("filter term degrades to false", zap.Any("value", literal), zap.Error(err))
	}
}

func both(a, b match) match {
	return func(actual any) (bool, bool) {
		ra, oka := a(actual)
		rb, okb := b(actual)
		return ra && rb, oka && okb
	}
}

func isOrdinal(typ reflect.Type) bool {
	if isNumeric(typ.Kind()) {
		return true
	}
	return typ.Kind() == reflect.Struct && typ.ConvertibleTo(timeType)
}

func lengthOperand(literal any) (any, error) {
	literal = operators.Indirect(literal)
	if literal == nil {
		return nil, errors.Wrap(ErrCoercion, "null length")
	}
	rv := reflect.ValueOf(literal)
	switch k := rv.Kind(); {
	case isNumeric(k):
		return operators.Normalize(literal), nil
	case k == reflect.String:
		s := strings.TrimSpace(rv.String())
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		return int64(utf8.RuneCountInString(rv.String())), nil
	}
	return nil, errors.Wrapf(ErrCoercion, "%T to a length", literal)
}

// stringOf reads a string-kind field value; ok is false for null.
func stringOf(actual any) (string, bool) {
	actual = operators.Indirect(actual)
	if actual == nil {
		return "", false
	}
	rv := reflect.ValueOf(actual)
	if rv.Kind() != reflect.String {
		return "", false
	}
	return rv.String(), true
}

func isNull(actual any) bool {
	if actual == nil {
		return true
	}
	rv := reflect.ValueOf(actual)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
	}
	if v, ok := operators.Indirect(actual).(driver.Valuer); ok {
		dv, err := v.Value()
		return err == nil && dv == nil
	}
	return false
}
