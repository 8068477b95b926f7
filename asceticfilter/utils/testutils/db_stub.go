package testutils

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// QuerierStub records the last statement and answers it with canned rows.
type QuerierStub struct {
	Rows         *RowsStub
	ActualQuery  string
	ActualParams []any
}

func NewQuerierStub(rows *RowsStub) *QuerierStub {
	return &QuerierStub{Rows: rows}
}

func (q *QuerierStub) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	q.ActualQuery = query
	q.ActualParams = args
	return q.Rows, nil
}

func (q *QuerierStub) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	q.ActualQuery = query
	q.ActualParams = args
	return &RowStub{rows: q.Rows}
}

func NewRowsStub(columns []string, rows ...[]any) *RowsStub {
	return &RowsStub{
		columns: columns,
		rows:    rows,
		idx:     -1,
	}
}

type RowsStub struct {
	columns []string
	rows    [][]any
	idx     int
	Closed  bool
}

func (r *RowsStub) Close() {
	r.Closed = true
}

func (r *RowsStub) Err() error {
	return nil
}

func (r *RowsStub) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(r.rows)))
}

func (r *RowsStub) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.columns))
	for i, name := range r.columns {
		fields[i] = pgconn.FieldDescription{Name: name}
	}
	return fields
}

func (r *RowsStub) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *RowsStub) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.rows) {
		return errors.New("no current row")
	}
	if len(dest) == 1 {
		if scanner, ok := dest[0].(pgx.RowScanner); ok {
			return scanner.ScanRow(r)
		}
	}

	row := r.rows[r.idx]
	for i, val := range row {
		if i >= len(dest) {
			break
		}
		if err := assign(dest[i], val); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, val any) error {
	d := reflect.ValueOf(dest)
	if d.Kind() != reflect.Pointer || d.IsNil() {
		return errors.New("destination is not a pointer")
	}
	target := d.Elem()
	if val == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}
	v := reflect.ValueOf(val)
	if target.Kind() == reflect.Pointer {
		ptr := reflect.New(target.Type().Elem())
		if err := assign(ptr.Interface(), val); err != nil {
			return err
		}
		target.Set(ptr)
		return nil
	}
	if !v.Type().ConvertibleTo(target.Type()) {
		return fmt.Errorf("cannot scan %T into %s", val, target.Type())
	}
	target.Set(v.Convert(target.Type()))
	return nil
}

func (r *RowsStub) Values() ([]any, error) {
	if r.idx < 0 || r.idx >= len(r.rows) {
		return nil, errors.New("no current row")
	}
	return r.rows[r.idx], nil
}

func (r *RowsStub) RawValues() [][]byte {
	return nil
}

func (r *RowsStub) Conn() *pgx.Conn {
	return nil
}

type RowStub struct {
	rows *RowsStub
}

func (r *RowStub) Scan(dest ...any) error {
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	defer r.rows.Close()
	return r.rows.Scan(dest...)
}
