package operators

import (
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("operator is not supported")

type BinaryOp func(left, right any) (bool, error)

// CustomOp receives the field value and one comparison value.
type CustomOp func(field, value any) (bool, error)

type binaryKey struct {
	left  reflect.Type
	op    Operator
	right reflect.Type
}

// OperatorRegistry is populated before use and read-only afterwards.
type OperatorRegistry struct {
	binary map[binaryKey]BinaryOp
	custom map[string]CustomOp
}

func NewOperatorRegistry() *OperatorRegistry {
	return &OperatorRegistry{
		binary: make(map[binaryKey]BinaryOp),
		custom: make(map[string]CustomOp),
	}
}

func RegisterBinary[L, R any](reg *OperatorRegistry, op Operator, fn func(L, R) bool) {
	var zeroL L
	var zeroR R
	key := binaryKey{
		left:  reflect.TypeOf(zeroL),
		op:    op,
		right: reflect.TypeOf(zeroR),
	}
	reg.binary[key] = func(left, right any) (bool, error) {
		return fn(left.(L), right.(R)), nil
	}
}

// RegisterCustom binds a named operator. Names are case-insensitive and may not
// shadow a built-in operator.
func (r *OperatorRegistry) RegisterCustom(name string, fn CustomOp) error {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || strings.HasPrefix(n, negationPrefix) {
		return errors.Errorf("invalid custom operator name %q", name)
	}
	if _, ok := aliases[n]; ok {
		return errors.Errorf("custom operator %q shadows a built-in operator", name)
	}
	r.custom[n] = fn
	return nil
}

func (r *OperatorRegistry) Custom(name string) (CustomOp, bool) {
	fn, ok := r.custom[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// Exec applies a comparison operator. A NULL operand never matches.
func (r *OperatorRegistry) Exec(left any, op Operator, right any) (bool, error) {
	left, right = Indirect(left), Indirect(right)
	if left == nil || right == nil {
		return false, nil
	}
	fn, err := r.lookupBinary(left, op, right)
	if err != nil {
		return false, err
	}
	return fn(left, right)
}

// Compare orders two values: -1, 0 or 1.
func (r *OperatorRegistry) Compare(left, right any) (int, error) {
	lt, err := r.Exec(left, OperatorLt, right)
	if err != nil {
		return 0, err
	}
	if lt {
		return -1, nil
	}
	gt, err := r.Exec(left, OperatorGt, right)
	if err != nil {
		return 0, err
	}
	if gt {
		return 1, nil
	}
	return 0, nil
}

func (r *OperatorRegistry) lookupBinary(left any, op Operator, right any) (BinaryOp, error) {
	if fn, ok := r.binary[binaryKey{reflect.TypeOf(left), op, reflect.TypeOf(right)}]; ok {
		return fn, nil
	}

	// Value objects
	if fallback := interfaceFallback(left, op, right); fallback != nil {
		return fallback, nil
	}

	nl, nr := Normalize(left), Normalize(right)
	if fn, ok := r.binary[binaryKey{reflect.TypeOf(nl), op, reflect.TypeOf(nr)}]; ok {
		return func(_, _ any) (bool, error) {
			return fn(nl, nr)
		}, nil
	}

	if fallback := comparableFallback(left, op, right); fallback != nil {
		return fallback, nil
	}

	return nil, errors.Wrapf(ErrUnsupported, "\"%s\" for %T and %T", op, left, right)
}

func comparableFallback(left any, op Operator, right any) BinaryOp {
	if op != OperatorEq && op != OperatorNe {
		return nil
	}
	lt := reflect.TypeOf(left)
	if lt != reflect.TypeOf(right) || !lt.Comparable() {
		return nil
	}
	return func(left, right any) (bool, error) {
		return (left == right) == (op == OperatorEq), nil
	}
}

func interfaceFallback(left any, op Operator, right any) BinaryOp {
	switch op {
	case OperatorEq, OperatorNe:
		l, ok := left.(EqualOperand)
		if !ok {
			return nil
		}
		return func(_, right any) (bool, error) {
			r, ok := right.(EqualOperand)
			if !ok {
				return false, errors.Errorf("right operand %T does not implement EqualOperand", right)
			}
			return l.Equal(r) == (op == OperatorEq), nil
		}
	case OperatorGt:
		l, ok := left.(GreaterThanOperand)
		if !ok {
			return nil
		}
		return func(_, right any) (bool, error) {
			r, ok := right.(GreaterThanOperand)
			if !ok {
				return false, errors.Errorf("right operand %T does not implement GreaterThanOperand", right)
			}
			return l.GreaterThan(r), nil
		}
	case OperatorGte:
		l, ok := left.(GreaterThanEqualOperand)
		if !ok {
			return nil
		}
		return func(_, right any) (bool, error) {
			r, ok := right.(GreaterThanEqualOperand)
			if !ok {
				return false, errors.Errorf("right operand %T does not implement GreaterThanEqualOperand", right)
			}
			return l.GreaterThanEqual(r), nil
		}
	case OperatorLt:
		l, ok := left.(LessThanOperand)
		if !ok {
			return nil
		}
		return func(_, right any) (bool, error) {
			r, ok := right.(LessThanOperand)
			if !ok {
				return false, errors.Errorf("right operand %T does not implement LessThanOperand", right)
			}
			return l.LessThan(r), nil
		}
	case OperatorLte:
		l, ok := left.(LessThanEqualOperand)
		if !ok {
			return nil
		}
		return func(_, right any) (bool, error) {
			r, ok := right.(LessThanEqualOperand)
			if !ok {
				return false, errors.Errorf("right operand %T does not implement LessThanEqualOperand", right)
			}
			return l.LessThanEqual(r), nil
		}
	}
	return nil
}

// Indirect follows pointers. A nil pointer or nil interface becomes nil.
func Indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Normalize maps sized and named scalar types onto int64, uint64, float64,
// string and bool. time.Time and time.Duration are kept.
func Normalize(v any) any {
	v = Indirect(v)
	switch v.(type) {
	case nil, int64, uint64, float64, string, bool, time.Time, time.Duration:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}
