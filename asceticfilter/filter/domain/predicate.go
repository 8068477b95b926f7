package filter

// Predicate is a pure function of the entity. Predicates hold no mutable state
// and may be shared between goroutines.
type Predicate[T any] func(T) bool

func True[T any]() Predicate[T] {
	return func(T) bool { return true }
}

func False[T any]() Predicate[T] {
	return func(T) bool { return false }
}

func (p Predicate[T]) And(others ...Predicate[T]) Predicate[T] {
	return And(append([]Predicate[T]{p}, others...)...)
}

func (p Predicate[T]) Or(others ...Predicate[T]) Predicate[T] {
	return Or(append([]Predicate[T]{p}, others...)...)
}

func (p Predicate[T]) Not() Predicate[T] {
	return Not(p)
}
