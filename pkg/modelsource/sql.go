// Package modelsource provides cursor-backed models that a SheetWriter can
// export lazily, one record at a time.
package modelsource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/locvowork/sheetwriter/pkg/sheetwriter"
)

// SQLModel exports the rows of a query. Each row becomes a Record keyed by
// column name in select order.
type SQLModel struct {
	DB    *sql.DB
	Query string
	Args  []interface{}
}

// NewSQLModel creates a SQLModel.
func NewSQLModel(db *sql.DB, query string, args ...interface{}) *SQLModel {
	return &SQLModel{DB: db, Query: query, Args: args}
}

// Cursor runs the query and returns a provider over its rows.
func (m *SQLModel) Cursor(ctx context.Context) (sheetwriter.DataProvider, error) {
	if m.DB == nil {
		return nil, fmt.Errorf("sql model: db is nil")
	}
	rows, err := m.DB.QueryContext(ctx, m.Query, m.Args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return sheetwriter.NewIteratorDataProvider(rowIterator(rows, columns), rows.Close), nil
}

func rowIterator(rows *sql.Rows, columns []string) func() (interface{}, bool, error) {
	return func() (interface{}, bool, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, false, fmt.Errorf("iterate rows: %w", err)
			}
			return nil, false, nil
		}

		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}

		rec := sheetwriter.NewRecord()
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rec.Set(col, string(b))
				continue
			}
			rec.Set(col, values[i])
		}
		return rec, true, nil
	}
}
