package source

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the SQL differences between supported databases.
type Dialect interface {
	// Driver is the database/sql driver name.
	Driver() string
	QuoteIdentifier(name string) string
	ListTablesQuery() string
	// SelectAll reads every column of a table, at most limit rows when limit > 0.
	SelectAll(table string, limit int) string
	// ValidateDSN rejects obviously malformed connection strings before dialing.
	ValidateDSN(dsn string) error
}

var (
	dialects = map[string]Dialect{}
	mu       sync.RWMutex
)

// Register makes a dialect available under name, replacing any previous one.
func Register(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[strings.ToLower(name)] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
	return d, nil
}

// Dialects lists registered dialect names, sorted.
func Dialects() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(dialects))
	for n := range dialects {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("postgres", postgresDialect{})
	Register("mysql", mysqlDialect{})
	Register("sqlserver", sqlServerDialect{})
	Register("sqlite", sqliteDialect{})
}

func limitClause(limit int) string {
	if limit > 0 {
		return fmt.Sprintf(" LIMIT %d", limit)
	}
	return ""
}

type postgresDialect struct{}

func (postgresDialect) Driver() string                     { return "pgx" }
func (postgresDialect) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }
func (postgresDialect) ListTablesQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`
}
func (d postgresDialect) SelectAll(table string, limit int) string {
	return "SELECT * FROM " + d.QuoteIdentifier(table) + limitClause(limit)
}
func (postgresDialect) ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("%w: empty postgres dsn", ErrInvalidDSN)
	}
	return nil
}

type mysqlDialect struct{}

func (mysqlDialect) Driver() string { return "mysql" }
func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
func (mysqlDialect) ListTablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`
}
func (d mysqlDialect) SelectAll(table string, limit int) string {
	return "SELECT * FROM " + d.QuoteIdentifier(table) + limitClause(limit)
}
func (mysqlDialect) ValidateDSN(dsn string) error {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	return nil
}

type sqlServerDialect struct{}

func (sqlServerDialect) Driver() string { return "sqlserver" }
func (sqlServerDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
func (sqlServerDialect) ListTablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}
func (d sqlServerDialect) SelectAll(table string, limit int) string {
	if limit > 0 {
		return fmt.Sprintf("SELECT TOP %d * FROM %s", limit, d.QuoteIdentifier(table))
	}
	return "SELECT * FROM " + d.QuoteIdentifier(table)
}
func (sqlServerDialect) ValidateDSN(dsn string) error {
	if !strings.Contains(dsn, "=") && !strings.HasPrefix(dsn, "sqlserver://") {
		return fmt.Errorf("%w: expected sqlserver:// url or key=value pairs", ErrInvalidDSN)
	}
	return nil
}

type sqliteDialect struct{}

func (sqliteDialect) Driver() string { return "sqlite3" }
func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (sqliteDialect) ListTablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY rowid`
}
func (d sqliteDialect) SelectAll(table string, limit int) string {
	return "SELECT * FROM " + d.QuoteIdentifier(table) + limitClause(limit)
}
func (sqliteDialect) ValidateDSN(dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("%w: empty sqlite path", ErrInvalidDSN)
	}
	return nil
}
