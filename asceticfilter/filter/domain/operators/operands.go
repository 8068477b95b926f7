package operators

// Value objects implement these to take part in comparisons
// when their type is not registered.

type EqualOperand interface {
	Equal(other EqualOperand) bool
}

type GreaterThanOperand interface {
	GreaterThan(other GreaterThanOperand) bool
}

type GreaterThanEqualOperand interface {
	GreaterThanEqual(other GreaterThanEqualOperand) bool
}

type LessThanOperand interface {
	LessThan(other LessThanOperand) bool
}

type LessThanEqualOperand interface {
	LessThanEqual(other LessThanEqualOperand) bool
}
