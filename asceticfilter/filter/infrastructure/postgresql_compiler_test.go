package filter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/criteria"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/operators"
)

func one(field, operator string, values ...any) criteria.Group {
	return criteria.Group{Criteria: []criteria.Criterion{{Field: field, Operator: operator, Values: values}}}
}

func TestCompileOperators(t *testing.T) {
	tests := []struct {
		name   string
		group  criteria.Group
		sql    string
		params []any
	}{
		{"equal", one("age", "=", 18), `"age" = $1`, []any{18}},
		{"not equal", one("age", "<>", 18), `NOT COALESCE("age" = $1, FALSE)`, []any{18}},
		{"greater", one("age", "greater", 18), `"age" > $1`, []any{18}},
		{"greater or equal", one("age", ">=", 18), `"age" >= $1`, []any{18}},
		{"less", one("age", "lt", 18), `"age" < $1`, []any{18}},
		{"less or equal", one("age", "<=", 18), `"age" <= $1`, []any{18}},
		{"starts", one("name", "starts", "An"), `"name" LIKE $1`, []any{"An%"}},
		{"ends", one("name", "ends", "na"), `"name" LIKE $1`, []any{"%na"}},
		{"contains", one("name", "contains", "ar"), `"name" LIKE $1`, []any{"%ar%"}},
		{"contains escapes patterns", one("name", "like", `50%_off\`), `"name" LIKE $1`, []any{`%50\%\_off\\%`}},
		{"isin", one("name", "isin", "Anakin"), `strpos($1, "name") > 0`, []any{"Anakin"}},
		{"cross", one("name", "cross", "run"), `"name" LIKE $1 OR strpos($2, "name") > 0`, []any{"%run%", "run"}},
		{"blank", one("name", "blank"), `"name" = ''`, nil},
		{"null", one("email", "null"), `"email" IS NULL`, nil},
		{"not null", one("email", "!isnull"), `NOT COALESCE("email" IS NULL, FALSE)`, nil},
		{"text operator on a number", one("age", "starts", 18), `"age" >= $1`, []any{18}},
		{"between", one("age", "between", 7, 3), `"age" > $1 AND "age" < $2`, []any{3, 7}},
		{"between or equal", one("age", "=><=", 3, 5, 7), `"age" BETWEEN $1 AND $2`, []any{3, 7}},
		{"between equal bounds", one("age", "between", 5, 5), `"age" = $1`, []any{5}},
		{"between single value", one("age", "between", 8), `"age" = $1`, []any{8}},
		{"between strings", one("name", "between", "A", "a"), `"name" LIKE $1 AND "name" LIKE $2`, []any{"A%", "%a"}},
		{"between incomparable", one("age", "between", 2, "nine"), `FALSE`, nil},
		{"negated between", one("age", "!><", 2, 9), `NOT COALESCE("age" > $1 AND "age" < $2, FALSE)`, []any{2, 9}},
		{"values fold with or", one("name", "=", "Ana", "Bruno"), `"name" = $1 OR "name" = $2`, []any{"Ana", "Bruno"}},
		{"no values", one("name", "contains"), `FALSE`, nil},
		{"nested field", one("address.city", "=", "Lisbon"), `"address"."city" = $1`, []any{"Lisbon"}},
		{"empty group", criteria.Group{}, `TRUE`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := Compile(tt.group)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestCompileDocument(t *testing.T) {
	g, err := criteria.Parse(map[string]any{
		"age":  map[string]any{">": 18},
		"name": map[string]any{"!contains": []any{"x", "y"}, "$join": "and"},
		"$or": []any{
			map[string]any{"city": "Lisbon"},
			map[string]any{"city": "Porto", "vip": true},
		},
		"$not": map[string]any{"email": nil},
	})
	require.NoError(t, err)

	sql, params, err := Compile(g, WithColumns(map[string]string{"city": "address.city"}), PlaceholderIndex(2))
	require.NoError(t, err)
	assert.Equal(t,
		`"age" > $3`+
			` AND NOT COALESCE("name" LIKE $4, FALSE) AND NOT COALESCE("name" LIKE $5, FALSE)`+
			` AND NOT COALESCE("email" IS NULL, FALSE)`+
			` AND ("address"."city" = $6 OR "address"."city" = $7 AND "vip" = $8)`,
		sql,
	)
	assert.Equal(t, []any{18, "%x%", "%y%", "Lisbon", "Porto", true}, params)
}

func TestCompileGroupPrecedence(t *testing.T) {
	g := criteria.Group{
		Join: operators.JoinOr,
		Criteria: []criteria.Criterion{
			{Field: "a", Operator: "=", Values: []any{1}},
		},
		Groups: []criteria.Group{
			{Criteria: []criteria.Criterion{
				{Field: "b", Operator: "=", Values: []any{2}},
				{Field: "c", Operator: "=", Values: []any{3, 4}},
			}},
			{Not: true, Join: operators.JoinOr, Criteria: []criteria.Criterion{
				{Field: "d", Operator: "=", Values: []any{5}},
				{Field: "e", Operator: "=", Values: []any{6}},
			}},
		},
	}
	sql, params, err := Compile(g)
	require.NoError(t, err)
	assert.Equal(t,
		`"a" = $1 OR "b" = $2 AND ("c" = $3 OR "c" = $4) OR NOT COALESCE("d" = $5 OR "e" = $6, FALSE)`,
		sql,
	)
	assert.Len(t, params, 6)
}

func TestCompileIgnoreCase(t *testing.T) {
	sql, _, err := Compile(one("name", "contains", "an"), WithIgnoreCase())
	require.NoError(t, err)
	assert.Equal(t, `"name" ILIKE $1`, sql)

	sql, _, err = Compile(one("name", "isin", "Anakin"), WithIgnoreCase())
	require.NoError(t, err)
	assert.Equal(t, `strpos(lower($1), lower("name")) > 0`, sql)

	sql, _, err = Compile(one("name", "=", "Ana"), WithIgnoreCase())
	require.NoError(t, err)
	assert.Equal(t, `lower("name") = lower($1)`, sql)

	sql, _, err = Compile(one("age", "=", 18), WithIgnoreCase())
	require.NoError(t, err)
	assert.Equal(t, `"age" = $1`, sql)
}

func TestCompileWithColumnTypes(t *testing.T) {
	types := map[string]reflect.Type{
		"age":  reflect.TypeFor[int](),
		"code": reflect.TypeFor[*string](),
		"born": reflect.TypeFor[time.Time](),
	}

	sql, params, err := Compile(one("age", "like", "7"), WithColumnTypes(types))
	require.NoError(t, err)
	assert.Equal(t, `"age" = $1`, sql)
	assert.Equal(t, []any{7}, params)

	sql, params, err = Compile(one("code", "ends", 7), WithColumnTypes(types))
	require.NoError(t, err)
	assert.Equal(t, `"code" LIKE $1`, sql)
	assert.Equal(t, []any{"%7"}, params)

	sql, params, err = Compile(one("born", ">=", "2024-01-02"), WithColumnTypes(types))
	require.NoError(t, err)
	assert.Equal(t, `"born" >= $1`, sql)
	assert.Equal(t, []any{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}, params)

	sql, params, err = Compile(one("age", "!blank"), WithColumnTypes(types))
	require.NoError(t, err)
	assert.Equal(t, `NOT COALESCE(FALSE, FALSE)`, sql)
	assert.Nil(t, params)

	sql, params, err = Compile(one("age", "!=", "seven", 8), WithColumnTypes(types))
	require.NoError(t, err)
	assert.Equal(t, `FALSE OR NOT COALESCE("age" = $1, FALSE)`, sql)
	assert.Equal(t, []any{8}, params)
}

func TestCompileRejectsCustomOperators(t *testing.T) {
	_, _, err := Compile(one("age", "divisibleby", 3))
	assert.True(t, errors.Is(err, ErrNotCompilable))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
