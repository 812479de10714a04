package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL engine. The value doubles as the
// database/sql driver name.
type Dialect string

const (
	DialectPostgres Dialect = "pgx"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect accepts the configured driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

var numberedParam = regexp.MustCompile(`\$\d+`)

// Rebind converts a query written with $N placeholders to the dialect's form.
// For SQLite every $N becomes "?", so each placeholder must appear once and
// in argument order.
func (d Dialect) Rebind(query string) string {
	if d != DialectSQLite {
		return query
	}
	return numberedParam.ReplaceAllString(query, "?")
}

// Open opens a connection pool for the dialect and checks connectivity.
// SQLite gets a single connection since it serializes writers anyway.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty %s DSN", d)
	}

	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, err
	}

	switch d {
	case DialectSQLite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
