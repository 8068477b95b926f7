package collection

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// similarity tiers per term, most specific first
const tiers = 4

// OrderBySimilarity orders items by how closely field matches each term, the
// terms taken in the order given. For every term an exact match ranks above a
// prefix match, which ranks above containment, which ranks above a suffix
// match. Matching ignores case and blank terms are skipped. ascending puts the
// closest matches first; otherwise the order is reversed. Items that match
// equally keep their input order.
func OrderBySimilarity[T any](items []T, field func(T) string, terms []string, ascending bool) []T {
	needles := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			needles = append(needles, strings.ToLower(t))
		}
	}

	type keyed struct {
		item T
		key  []bool
	}
	entries := make([]keyed, len(items))
	for i, item := range items {
		entries[i] = keyed{item: item, key: similarityKey(strings.ToLower(field(item)), needles)}
	}

	slices.SortStableFunc(entries, func(a, b keyed) int {
		for i := range a.key {
			if a.key[i] == b.key[i] {
				continue
			}
			c := 1
			if a.key[i] {
				c = -1
			}
			if !ascending {
				c = -c
			}
			return c
		}
		return 0
	})

	result := make([]T, len(entries))
	for i, e := range entries {
		result[i] = e.item
	}
	return result
}

func similarityKey(value string, needles []string) []bool {
	key := make([]bool, 0, len(needles)*tiers)
	for _, n := range needles {
		key = append(key,
			value == n,
			strings.HasPrefix(value, n),
			strings.Contains(value, n),
			strings.HasSuffix(value, n),
		)
	}
	return key
}

// OrderByRelevance orders items by fuzzy similarity of field to query,
// closest first. Exact and substring matches rank above any fuzzy score.
// A blank query keeps the input order.
func OrderByRelevance[T any](items []T, field func(T) string, query string) []T {
	result := slices.Clone(items)
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return result
	}

	scores := make([]float64, len(items))
	order := make([]int, len(items))
	for i, item := range items {
		order[i] = i
		scores[i] = relevance(strings.ToLower(field(item)), q)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	for i, idx := range order {
		result[i] = items[idx]
	}
	return result
}

func relevance(value, query string) float64 {
	score := levenshtein.Similarity(value, query, nil)
	switch {
	case value == query:
		score += 2
	case strings.Contains(value, query):
		score++
	}
	return score
}

// Rank writes a dense 1-based rank into every item through setRank, the
// largest value ranking first, and returns the items ordered by rank.
// Items of equal rank keep their input order.
func Rank[T any, V cmp.Ordered](items []T, value func(T) V, setRank func(*T, int)) []T {
	result := slices.Clone(items)
	values := make([]V, len(result))
	for i, item := range result {
		values[i] = value(item)
	}

	distinct := slices.Clone(values)
	slices.SortFunc(distinct, func(a, b V) int { return cmp.Compare(b, a) })
	distinct = slices.Compact(distinct)

	ranks := make([]int, len(result))
	for i := range result {
		r, _ := slices.BinarySearchFunc(distinct, values[i], func(e, t V) int { return cmp.Compare(t, e) })
		ranks[i] = r + 1
		setRank(&result[i], ranks[i])
	}

	order := make([]int, len(result))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(ranks[a], ranks[b]) })

	sorted := make([]T, len(result))
	for i, idx := range order {
		sorted[i] = result[idx]
	}
	return sorted
}
