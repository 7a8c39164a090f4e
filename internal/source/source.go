// Package source loads tables from SQL databases.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/table"
)

var (
	ErrUnknownDialect = errors.New("unsupported database dialect")
	ErrInvalidDSN     = errors.New("invalid connection string")
	ErrNoTables       = errors.New("database has no tables")
)

// Source reads tables over a database/sql pool.
type Source struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// Open connects using the named dialect and verifies the connection.
func Open(ctx context.Context, dialect, dsn string, logger *zap.Logger) (*Source, error) {
	d, err := Lookup(dialect)
	if err != nil {
		return nil, err
	}
	if err := d.ValidateDSN(dsn); err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}
	return New(db, d, logger), nil
}

// New wraps an existing pool.
func New(db *sql.DB, d Dialect, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{db: db, dialect: d, logger: logger.Named("source")}
}

func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListTables returns base table names in the dialect's natural order.
func (s *Source) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ListTablesQuery())
	if err != nil {
		return nil, fmt.Errorf("error querying tables: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning table name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ReadTable loads a whole table. An empty name selects the first table.
func (s *Source) ReadTable(ctx context.Context, name string, limit int) (*table.Table, string, error) {
	if name == "" {
		tables, err := s.ListTables(ctx)
		if err != nil {
			return nil, "", err
		}
		if len(tables) == 0 {
			return nil, "", ErrNoTables
		}
		name = tables[0]
	}
	t, err := s.Query(ctx, s.dialect.SelectAll(name, limit))
	if err != nil {
		return nil, "", fmt.Errorf("read table %s: %w", name, err)
	}
	return t, name, nil
}

// Query runs an arbitrary query and returns its result set as a table.
func (s *Source) Query(ctx context.Context, query string, args ...any) (*table.Table, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	t, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query loaded", zap.Int("rows", t.RowCount()), zap.Int("columns", len(t.Columns)))
	return t, nil
}

func scanRows(rows *sql.Rows) (*table.Table, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	values := make([][]any, len(names))
	for rows.Next() {
		cells := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				c = string(b)
			}
			values[i] = append(values[i], c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	cols := make([]*table.Column, len(names))
	for i, n := range names {
		cols[i] = table.NewColumn(n, values[i])
	}
	return table.New(cols...)
}
