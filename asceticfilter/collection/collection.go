// Package collection applies predicates and orderings to in-memory slices.
// Every function returns a new slice and leaves its input untouched.
package collection

import (
	"cmp"

	filter "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

// Where returns the items matching p, in input order.
func Where[T any](items []T, p filter.Predicate[T]) []T {
	result := make([]T, 0, len(items))
	for _, item := range items {
		if p(item) {
			result = append(result, item)
		}
	}
	return result
}

// PageBounds translates a 1-based page into an offset and a limit. paged is
// false when page is not positive, meaning no paging was requested. A negative
// total means the collection size is unknown and the bounds are not clamped.
//
// Example:
//
//	PageBounds(2, 3, 10) // 3, 3, true
//	PageBounds(4, 3, 10) // 9, 1, true
//	PageBounds(0, 3, 10) // 0, 0, false
func PageBounds(page, size, total int) (offset, limit int, paged bool) {
	if page <= 0 {
		return 0, 0, false
	}
	if size <= 0 {
		return 0, 0, true
	}
	offset = (page - 1) * size
	limit = size
	if total < 0 {
		return offset, limit, true
	}
	if offset > total {
		offset = total
	}
	if offset+limit > total {
		limit = total - offset
	}
	return offset, limit, true
}

// Page returns the 1-based page of items. A page number of zero or less
// returns items unchanged.
func Page[T any](items []T, page, size int) []T {
	offset, limit, paged := PageBounds(page, size, len(items))
	if !paged {
		return items
	}
	result := make([]T, limit)
	copy(result, items[offset:offset+limit])
	return result
}

// DistinctBy keeps one item per key, in order of first appearance. Among
// items sharing a key the one with the lowest order value wins, or the
// highest when descending. Ties keep the earlier item.
func DistinctBy[T any, K comparable, O cmp.Ordered](items []T, key func(T) K, order func(T) O, descending bool) []T {
	index := make(map[K]int, len(items))
	result := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		i, seen := index[k]
		if !seen {
			index[k] = len(result)
			result = append(result, item)
			continue
		}
		c := cmp.Compare(order(item), order(result[i]))
		if descending {
			c = -c
		}
		if c < 0 {
			result[i] = item
		}
	}
	return result
}
