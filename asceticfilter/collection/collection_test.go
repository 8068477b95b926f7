package collection

import (
	"testing"

	"github.com/icrowley/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	filter "github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain"
)

type Player struct {
	ID    int
	Name  string
	Team  string
	Score int
	Rank  int
}

func ints(n int) []int {
	result := make([]int, n)
	for i := range result {
		result[i] = i
	}
	return result
}

func playerNames(ps []Player) []string {
	result := make([]string, len(ps))
	for i, p := range ps {
		result[i] = p.Name
	}
	return result
}

func TestWhere(t *testing.T) {
	players := []Player{{Name: "Ana", Score: 17}, {Name: "Bruno", Score: 18}, {Name: "Marina", Score: 19}}
	score := filter.FieldOf("score", func(p Player) int { return p.Score })
	p, err := filter.Where(score, "greater", 18)
	require.NoError(t, err)
	assert.Equal(t, []string{"Marina"}, playerNames(Where(players, p)))

	search := filter.Search([]string{"an"}, func(p Player) string { return p.Name })
	players = append(players, Player{Name: "Mariana"})
	assert.Equal(t, []string{"Ana", "Mariana"}, playerNames(Where(players, search)))
	assert.Len(t, Where(players, filter.Search[Player]([]string{"", "  "}, func(p Player) string { return p.Name })), 4)
}

func TestPage(t *testing.T) {
	items := ints(10)
	tests := []struct {
		name     string
		page     int
		size     int
		expected []int
	}{
		{"second page", 2, 3, []int{3, 4, 5}},
		{"first page", 1, 3, []int{0, 1, 2}},
		{"last partial page", 4, 3, []int{9}},
		{"past the end", 5, 3, []int{}},
		{"zero size", 1, 0, []int{}},
		{"negative size", 2, -1, []int{}},
		{"whole list", 1, 100, ints(10)},
		{"zero page", 0, 3, ints(10)},
		{"negative page", -2, 3, ints(10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Page(items, tt.page, tt.size))
		})
	}
}

func TestPagesCoverTheCollection(t *testing.T) {
	for n := 0; n < 25; n++ {
		items := make([]string, n)
		for i := range items {
			items[i] = fake.Word()
		}
		for size := 1; size <= 7; size++ {
			var joined []string
			for page := 1; page <= n/size+1; page++ {
				chunk := Page(items, page, size)
				assert.LessOrEqual(t, len(chunk), size)
				joined = append(joined, chunk...)
			}
			assert.Equal(t, len(items), len(joined), "n=%d size=%d", n, size)
			if n > 0 {
				assert.Equal(t, items, joined)
			}
		}
	}
}

func TestPageBounds(t *testing.T) {
	offset, limit, paged := PageBounds(3, 20, -1)
	assert.True(t, paged)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 20, limit)

	offset, limit, paged = PageBounds(3, 20, 45)
	assert.True(t, paged)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 5, limit)

	_, _, paged = PageBounds(0, 20, 45)
	assert.False(t, paged)
}

func TestDistinctBy(t *testing.T) {
	players := []Player{
		{ID: 1, Team: "a", Score: 5},
		{ID: 2, Team: "b", Score: 1},
		{ID: 3, Team: "a", Score: 3},
		{ID: 4, Team: "b", Score: 1},
		{ID: 5, Team: "c", Score: 2},
		{ID: 6, Team: "a", Score: 3},
		{ID: 7, Team: "a", Score: 9},
	}
	team := func(p Player) string { return p.Team }
	score := func(p Player) int { return p.Score }
	ids := func(ps []Player) []int {
		result := make([]int, len(ps))
		for i, p := range ps {
			result[i] = p.ID
		}
		return result
	}

	assert.Equal(t, []int{3, 2, 5}, ids(DistinctBy(players, team, score, false)))
	assert.Equal(t, []int{7, 2, 5}, ids(DistinctBy(players, team, score, true)))
	assert.Empty(t, DistinctBy([]Player{}, team, score, false))
}

func TestOrderBySimilarity(t *testing.T) {
	name := func(s string) string { return s }

	t.Run("exact before prefix", func(t *testing.T) {
		assert.Equal(t,
			[]string{"apple", "apricot", "banana"},
			OrderBySimilarity([]string{"apple", "apricot", "banana"}, name, []string{"apple"}, true),
		)
		assert.Equal(t,
			[]string{"apple", "apricot", "banana"},
			OrderBySimilarity([]string{"banana", "apricot", "apple"}, name, []string{"apple", "apr"}, true),
		)
	})
	t.Run("tiers", func(t *testing.T) {
		items := []string{"xapple", "applex", "banana", "APPLE", "xapplex"}
		assert.Equal(t,
			[]string{"APPLE", "applex", "xapple", "xapplex", "banana"},
			OrderBySimilarity(items, name, []string{"Apple"}, true),
		)
		assert.Equal(t,
			[]string{"banana", "xapplex", "xapple", "applex", "APPLE"},
			OrderBySimilarity(items, name, []string{"Apple"}, false),
		)
	})
	t.Run("terms in order", func(t *testing.T) {
		assert.Equal(t,
			[]string{"banana", "apple"},
			OrderBySimilarity([]string{"apple", "banana"}, name, []string{"ban", "app"}, true),
		)
	})
	t.Run("no terms keeps order", func(t *testing.T) {
		items := []string{"b", "a", "c"}
		assert.Equal(t, items, OrderBySimilarity(items, name, []string{" "}, true))
	})
}

func TestOrderByRelevance(t *testing.T) {
	name := func(s string) string { return s }
	items := []string{"Apple", "Banana", "Bandana", "Band"}
	assert.Equal(t, []string{"Band", "Bandana", "Banana", "Apple"}, OrderByRelevance(items, name, "BAND"))
	assert.Equal(t, items, OrderByRelevance(items, name, ""))
	assert.Equal(t, []string{"Apple", "Banana", "Bandana", "Band"}, items)
}

func TestRank(t *testing.T) {
	players := []Player{
		{Name: "Ana", Score: 10},
		{Name: "Bruno", Score: 30},
		{Name: "Marina", Score: 20},
		{Name: "Joao", Score: 30},
	}
	ranked := Rank(players, func(p Player) int { return p.Score }, func(p *Player, r int) { p.Rank = r })

	assert.Equal(t, []string{"Bruno", "Joao", "Marina", "Ana"}, playerNames(ranked))
	ranks := make([]int, len(ranked))
	for i, p := range ranked {
		ranks[i] = p.Rank
	}
	assert.Equal(t, []int{1, 1, 2, 3}, ranks)
	assert.Zero(t, players[0].Rank)
	assert.Empty(t, Rank([]Player{}, func(p Player) int { return p.Score }, func(p *Player, r int) { p.Rank = r }))
}
