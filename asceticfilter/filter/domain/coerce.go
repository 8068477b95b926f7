package filter

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

var (
	timeType          = reflect.TypeFor[time.Time]()
	durationType      = reflect.TypeFor[time.Duration]()
	textUnmarshalerTy = reflect.TypeFor[encoding.TextUnmarshaler]()
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
}

// Coerce converts a literal to typ the way Build does before comparing. Null
// literals and a nil typ return the literal unchanged.
func Coerce(value any, typ reflect.Type) (any, error) {
	return coerce(value, typ)
}

// coerce converts a literal to the field type. A nil target keeps the literal.
func coerce(value any, to reflect.Type) (any, error) {
	value = operators.Indirect(value)
	if to == nil || value == nil {
		return value, nil
	}
	from := reflect.TypeOf(value)
	if from == to {
		return value, nil
	}
	rv := reflect.ValueOf(value)

	switch {
	case to == timeType || to.ConvertibleTo(timeType) && to.Kind() == reflect.Struct:
		return coerceTime(rv, to)
	case to == durationType:
		return coerceDuration(rv)
	case reflect.PointerTo(to).Implements(textUnmarshalerTy) && isText(rv):
		ptr := reflect.New(to)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(textOf(rv))); err != nil {
			return nil, errors.Wrapf(ErrCoercion, "%v to %s: %v", value, to, err)
		}
		return ptr.Elem().Interface(), nil
	}

	switch to.Kind() {
	case reflect.String:
		return reflect.ValueOf(textOf(rv)).Convert(to).Interface(), nil
	case reflect.Bool:
		if rv.Kind() == reflect.Bool {
			return rv.Convert(to).Interface(), nil
		}
		if isText(rv) {
			b, err := strconv.ParseBool(strings.TrimSpace(textOf(rv)))
			if err != nil {
				return nil, errors.Wrapf(ErrCoercion, "%q to %s", textOf(rv), to)
			}
			return reflect.ValueOf(b).Convert(to).Interface(), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return coerceInt(rv, to)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return coerceUint(rv, to)
	case reflect.Float32, reflect.Float64:
		return coerceFloat(rv, to)
	}

	if from.AssignableTo(to) {
		return value, nil
	}
	if from.Kind() == to.Kind() && from.ConvertibleTo(to) {
		return rv.Convert(to).Interface(), nil
	}
	return nil, errors.Wrapf(ErrCoercion, "%T to %s", value, to)
}

func isText(rv reflect.Value) bool {
	if rv.Kind() == reflect.String {
		return true
	}
	_, ok := rv.Interface().(fmt.Stringer)
	return ok
}

func textOf(rv reflect.Value) string {
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(rv.Interface())
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}

func coerceInt(rv reflect.Value, to reflect.Type) (any, error) {
	var n int64
	switch k := rv.Kind(); {
	case isInt(k):
		n = rv.Int()
	case isUint(k):
		u := rv.Uint()
		if u > 1<<63-1 {
			return nil, errors.Wrapf(ErrCoercion, "%d overflows %s", u, to)
		}
		n = int64(u)
	case isFloat(k):
		f := rv.Float()
		if f != float64(int64(f)) {
			return nil, errors.Wrapf(ErrCoercion, "%v is not integral for %s", f, to)
		}
		n = int64(f)
	case k == reflect.String:
		var err error
		n, err = strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrCoercion, "%q to %s", rv.String(), to)
		}
	default:
		return nil, errors.Wrapf(ErrCoercion, "%s to %s", rv.Type(), to)
	}
	out := reflect.New(to).Elem()
	if out.OverflowInt(n) {
		return nil, errors.Wrapf(ErrCoercion, "%d overflows %s", n, to)
	}
	out.SetInt(n)
	return out.Interface(), nil
}

func coerceUint(rv reflect.Value, to reflect.Type) (any, error) {
	var n uint64
	switch k := rv.Kind(); {
	case isUint(k):
		n = rv.Uint()
	case isInt(k):
		i := rv.Int()
		if i < 0 {
			return nil, errors.Wrapf(ErrCoercion, "%d is negative for %s", i, to)
		}
		n = uint64(i)
	case isFloat(k):
		f := rv.Float()
		if f < 0 || f != float64(uint64(f)) {
			return nil, errors.Wrapf(ErrCoercion, "%v is not a natural number for %s", f, to)
		}
		n = uint64(f)
	case k == reflect.String:
		var err error
		n, err = strconv.ParseUint(strings.TrimSpace(rv.String()), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrCoercion, "%q to %s", rv.String(), to)
		}
	default:
		return nil, errors.Wrapf(ErrCoercion, "%s to %s", rv.Type(), to)
	}
	out := reflect.New(to).Elem()
	if out.OverflowUint(n) {
		return nil, errors.Wrapf(ErrCoercion, "%d overflows %s", n, to)
	}
	out.SetUint(n)
	return out.Interface(), nil
}

func coerceFloat(rv reflect.Value, to reflect.Type) (any, error) {
	var f float64
	switch k := rv.Kind(); {
	case isFloat(k):
		f = rv.Float()
	case isInt(k):
		f = float64(rv.Int())
	case isUint(k):
		f = float64(rv.Uint())
	case k == reflect.String:
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrCoercion, "%q to %s", rv.String(), to)
		}
	default:
		return nil, errors.Wrapf(ErrCoercion, "%s to %s", rv.Type(), to)
	}
	out := reflect.New(to).Elem()
	out.SetFloat(f)
	return out.Interface(), nil
}

func coerceTime(rv reflect.Value, to reflect.Type) (any, error) {
	var t time.Time
	switch {
	case rv.Type().ConvertibleTo(timeType) && rv.Kind() == reflect.Struct:
		t = rv.Convert(timeType).Interface().(time.Time)
	case rv.Kind() == reflect.String:
		s := strings.TrimSpace(rv.String())
		var err error
		for _, layout := range timeLayouts {
			if t, err = time.Parse(layout, s); err == nil {
				break
			}
		}
		if err != nil {
			return nil, errors.Wrapf(ErrCoercion, "%q to %s", s, to)
		}
	case isInt(rv.Kind()):
		t = time.Unix(rv.Int(), 0).UTC()
	default:
		return nil, errors.Wrapf(ErrCoercion, "%s to %s", rv.Type(), to)
	}
	return reflect.ValueOf(t).Convert(to).Interface(), nil
}

func coerceDuration(rv reflect.Value) (any, error) {
	switch k := rv.Kind(); {
	case k == reflect.String:
		d, err := time.ParseDuration(strings.TrimSpace(rv.String()))
		if err != nil {
			return nil, errors.Wrapf(ErrCoercion, "%q to %s", rv.String(), durationType)
		}
		return d, nil
	case isInt(k):
		return time.Duration(rv.Int()), nil
	case isFloat(k):
		return time.Duration(rv.Float()), nil
	}
	return nil, errors.Wrapf(ErrCoercion, "%s to %s", rv.Type(), durationType)
}
