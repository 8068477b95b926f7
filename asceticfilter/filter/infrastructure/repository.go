package filter

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"github.com/jinzhu/inflection"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/collection"
	"github.com/krew-solutions/ascetic-filter-go/asceticfilter/filter/domain/criteria"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Page is a 1-based page request. A non-positive Number disables paging.
type Page struct {
	Number int
	Size   int
}

type RepositoryOption func(*repositoryConfig)

type repositoryConfig struct {
	columns         map[string]string
	types           map[string]reflect.Type
	compilerOptions []CompilerOption
	logger          *zap.Logger
}

// WithColumnMap adds or overrides field to column mappings. A field mapped
// onto a column of T takes that column's type.
func WithColumnMap(columns map[string]string) RepositoryOption {
	return func(c *repositoryConfig) {
		for field, column := range columns {
			c.columns[field] = column
			if typ, ok := c.types[column]; ok {
				c.types[field] = typ
			} else {
				delete(c.types, field)
			}
		}
	}
}

func WithCompilerOptions(opts ...CompilerOption) RepositoryOption {
	return func(c *repositoryConfig) {
		c.compilerOptions = append(c.compilerOptions, opts...)
	}
}

func WithRepositoryLogger(logger *zap.Logger) RepositoryOption {
	return func(c *repositoryConfig) {
		c.logger = logger
	}
}

// Repository runs criteria against the table holding rows of T. Columns are
// the exported fields of T, named by their db tag or lower-cased field name;
// criteria may refer to them by field name, json tag or column name. Literals
// are coerced to the field types as the in-memory builder does.
//
// A Repository[map[string]any] reads every column of the table, and criteria
// and order fields name columns directly.
type Repository[T any] struct {
	db      Querier
	table   string
	columns []string
	dynamic bool
	config  repositoryConfig
}

// NewRepository binds T to table. An empty table name is derived from the
// type name: OrderLine becomes order_lines.
func NewRepository[T any](db Querier, table string, opts ...RepositoryOption) *Repository[T] {
	typ := reflect.TypeFor[T]()
	if table == "" {
		table = inflection.Plural(snakeCase(typ.Name()))
	}
	columns, mapping, types := structColumns(typ)
	config := repositoryConfig{
		columns: mapping,
		types:   types,
		logger:  zap.NewNop(),
	}
	for i := range opts {
		opts[i](&config)
	}
	return &Repository[T]{
		db:      db,
		table:   pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		columns: columns,
		dynamic: typ == reflect.TypeFor[map[string]any](),
		config:  config,
	}
}

func (r *Repository[T]) Table() string {
	return r.table
}

// Find returns the rows matching g. orderBy names fields, prefixed with "-"
// for descending order.
func (r *Repository[T]) Find(ctx context.Context, g criteria.Group, page Page, orderBy ...string) ([]T, error) {
	where, params, err := r.compile(g)
	if err != nil {
		return nil, err
	}
	selection := "*"
	if !r.dynamic {
		quoted := make([]string, len(r.columns))
		for i, column := range r.columns {
			quoted[i] = pgx.Identifier{column}.Sanitize()
		}
		selection = strings.Join(quoted, ", ")
	}
	sql := "SELECT " + selection + " FROM " + r.table + " WHERE " + where

	if len(orderBy) > 0 {
		terms := make([]string, 0, len(orderBy))
		for _, field := range orderBy {
			direction := " ASC"
			if strings.HasPrefix(field, "-") {
				field, direction = field[1:], " DESC"
			}
			column, ok := r.config.columns[field]
			switch {
			case !ok && r.dynamic:
				column = field
			case !ok:
				return nil, errors.Errorf("unknown order field %q", field)
			}
			terms = append(terms, pgx.Identifier(strings.Split(column, ".")).Sanitize()+direction)
		}
		sql += " ORDER BY " + strings.Join(terms, ", ")
	}

	if offset, limit, paged := collection.PageBounds(page.Number, page.Size, -1); paged {
		params = append(params, limit, offset)
		sql += " LIMIT $" + strconv.Itoa(len(params)-1) + " OFFSET $" + strconv.Itoa(len(params))
	}

	r.config.logger.Debug("find", zap.String("sql", sql), zap.Int("params", len(params)))
	rows, err := r.db.Query(ctx, sql, params...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", r.table)
	}
	items, err := pgx.CollectRows(rows, r.scan)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", r.table)
	}
	return items, nil
}

func (r *Repository[T]) Count(ctx context.Context, g criteria.Group) (int64, error) {
	where, params, err := r.compile(g)
	if err != nil {
		return 0, err
	}
	sql := "SELECT count(*) FROM " + r.table + " WHERE " + where
	r.config.logger.Debug("count", zap.String("sql", sql), zap.Int("params", len(params)))

	var n int64
	if err := r.db.QueryRow(ctx, sql, params...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count %s", r.table)
	}
	return n, nil
}

func (r *Repository[T]) scan(row pgx.CollectableRow) (T, error) {
	if r.dynamic {
		m, err := pgx.RowToMap(row)
		return any(m).(T), err
	}
	return pgx.RowToStructByName[T](row)
}

func (r *Repository[T]) compile(g criteria.Group) (string, []any, error) {
	opts := append([]CompilerOption{
		WithColumns(r.config.columns),
		WithColumnTypes(r.config.types),
	}, r.config.compilerOptions...)
	return Compile(g, opts...)
}

func structColumns(typ reflect.Type) ([]string, map[string]string, map[string]reflect.Type) {
	var columns []string
	mapping := make(map[string]string)
	types := make(map[string]reflect.Type)
	if typ.Kind() != reflect.Struct {
		return columns, mapping, types
	}
	for _, sf := range reflect.VisibleFields(typ) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		column := strings.ToLower(sf.Name)
		if tag, _, _ := strings.Cut(sf.Tag.Get("db"), ","); tag == "-" {
			continue
		} else if tag != "" {
			column = tag
		}
		columns = append(columns, column)
		aliases := []string{sf.Name, column}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag != "-" {
			aliases = append(aliases, tag)
		}
		for _, alias := range aliases {
			mapping[alias] = column
			types[alias] = sf.Type
		}
	}
	return columns, mapping, types
}

func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
