package filter

import (
	"strings"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

// And is true when every predicate is true. No predicates is always true.
func And[T any](ps ...Predicate[T]) Predicate[T] {
	switch len(ps) {
	case 0:
		return True[T]()
	case 1:
		return ps[0]
	}
	ps = append([]Predicate[T](nil), ps...)
	return func(e T) bool {
		for _, p := range ps {
			if !p(e) {
				return false
			}
		}
		return true
	}
}

// Or is true when any predicate is true. No predicates is always false.
func Or[T any](ps ...Predicate[T]) Predicate[T] {
	switch len(ps) {
	case 0:
		return False[T]()
	case 1:
		return ps[0]
	}
	ps = append([]Predicate[T](nil), ps...)
	return func(e T) bool {
		for _, p := range ps {
			if p(e) {
				return true
			}
		}
		return false
	}
}

func Not[T any](p Predicate[T]) Predicate[T] {
	return func(e T) bool {
		return !p(e)
	}
}

func Combine[T any](join operators.Join, ps ...Predicate[T]) Predicate[T] {
	if join == operators.JoinAnd {
		return And(ps...)
	}
	return Or(ps...)
}

// When returns p if cond holds and an always-true predicate otherwise,
// so that optional criteria can be chained with And.
func When[T any](cond bool, p Predicate[T]) Predicate[T] {
	if cond {
		return p
	}
	return True[T]()
}

// Search matches entities where any field contains any term, ignoring case.
// Blank terms are dropped; if none remain every entity matches.
func Search[T any](terms []string, fields ...func(T) string) Predicate[T] {
	needles := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t) == "" {
			continue
		}
		needles = append(needles, strings.ToLower(t))
	}
	if len(needles) == 0 {
		return True[T]()
	}

	ps := make([]Predicate[T], 0, len(fields)*len(needles))
	for _, field := range fields {
		for _, needle := range needles {
			ps = append(ps, func(e T) bool {
				return strings.Contains(strings.ToLower(field(e)), needle)
			})
		}
	}
	return Or(ps...)
}

// Any returns true if at least one item in the collection satisfies the predicate.
func Any[T any](collection []T, predicate Predicate[T]) bool {
	for _, item := range collection {
		if predicate(item) {
			return true
		}
	}
	return false
}

// All returns true if all items in the collection satisfy the predicate.
func All[T any](collection []T, predicate Predicate[T]) bool {
	for _, item := range collection {
		if !predicate(item) {
			return false
		}
	}
	return true
}
