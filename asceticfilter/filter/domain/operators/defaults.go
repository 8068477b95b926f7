package operators

import (
	"cmp"
	"time"
)

func registerComparison[T cmp.Ordered](reg *OperatorRegistry) {
	RegisterBinary[T, T](reg, OperatorEq, func(a, b T) bool { return a == b })
	RegisterBinary[T, T](reg, OperatorNe, func(a, b T) bool { return a != b })
	RegisterBinary[T, T](reg, OperatorGt, func(a, b T) bool { return a > b })
	RegisterBinary[T, T](reg, OperatorGte, func(a, b T) bool { return a >= b })
	RegisterBinary[T, T](reg, OperatorLt, func(a, b T) bool { return a < b })
	RegisterBinary[T, T](reg, OperatorLte, func(a, b T) bool { return a <= b })
}

// registerOrdering derives every comparison operator from a three-way compare.
func registerOrdering[L, R any](reg *OperatorRegistry, compare func(L, R) int) {
	RegisterBinary[L, R](reg, OperatorEq, func(a L, b R) bool { return compare(a, b) == 0 })
	RegisterBinary[L, R](reg, OperatorNe, func(a L, b R) bool { return compare(a, b) != 0 })
	RegisterBinary[L, R](reg, OperatorGt, func(a L, b R) bool { return compare(a, b) > 0 })
	RegisterBinary[L, R](reg, OperatorGte, func(a L, b R) bool { return compare(a, b) >= 0 })
	RegisterBinary[L, R](reg, OperatorLt, func(a L, b R) bool { return compare(a, b) < 0 })
	RegisterBinary[L, R](reg, OperatorLte, func(a L, b R) bool { return compare(a, b) <= 0 })
}

// registerPromoted compares an integer kind with float64 as float64.
func registerPromoted[L, R int64 | uint64 | float64](reg *OperatorRegistry) {
	registerOrdering[L, R](reg, func(a L, b R) int { return cmp.Compare(float64(a), float64(b)) })
}

// compareSigned orders an int64 against a uint64 without losing precision.
func compareSigned(a int64, b uint64) int {
	if a < 0 {
		return -1
	}
	return cmp.Compare(uint64(a), b)
}

// NewDefaultRegistry creates a registry with comparisons for the canonical
// types produced by Normalize.
func NewDefaultRegistry() *OperatorRegistry {
	reg := NewOperatorRegistry()

	// bool
	RegisterBinary[bool, bool](reg, OperatorEq, func(a, b bool) bool { return a == b })
	RegisterBinary[bool, bool](reg, OperatorNe, func(a, b bool) bool { return a != b })

	registerComparison[int64](reg)
	registerComparison[uint64](reg)
	registerComparison[float64](reg)
	registerComparison[string](reg)

	// Values decoded from JSON arrive as float64 while literals are often ints.
	registerPromoted[int64, float64](reg)
	registerPromoted[float64, int64](reg)
	registerPromoted[uint64, float64](reg)
	registerPromoted[float64, uint64](reg)
	registerOrdering[int64, uint64](reg, compareSigned)
	registerOrdering[uint64, int64](reg, func(a uint64, b int64) int { return -compareSigned(b, a) })

	// time.Duration (interval)
	registerComparison[time.Duration](reg)

	// time.Time (timestamp)
	RegisterBinary[time.Time, time.Time](reg, OperatorEq, func(a, b time.Time) bool { return a.Equal(b) })
	RegisterBinary[time.Time, time.Time](reg, OperatorNe, func(a, b time.Time) bool { return !a.Equal(b) })
	RegisterBinary[time.Time, time.Time](reg, OperatorGt, func(a, b time.Time) bool { return a.After(b) })
	RegisterBinary[time.Time, time.Time](reg, OperatorGte, func(a, b time.Time) bool { return !a.Before(b) })
	RegisterBinary[time.Time, time.Time](reg, OperatorLt, func(a, b time.Time) bool { return a.Before(b) })
	RegisterBinary[time.Time, time.Time](reg, OperatorLte, func(a, b time.Time) bool { return !a.After(b) })

	return reg
}
