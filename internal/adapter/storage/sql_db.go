package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case DialectMySQL, DialectPostgres, DialectSQLite:
		return d, nil
	}
	return "", fmt.Errorf("unknown sql dialect %q", name)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectSQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// rebind rewrites ? placeholders into $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	maxConnectAttempts = 10
	connectRetryDelay  = 2 * time.Second
	pingTimeout        = 5 * time.Second
)

// OpenDB connects and pings, retrying while the database container starts.
func OpenDB(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if dialect == DialectSQLite && !strings.Contains(dsn, "?") && dsn != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		db, err := sql.Open(dialect.DriverName(), dsn)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err = db.PingContext(pctx)
			cancel()
			if err == nil {
				configurePool(db, dialect)
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err

		select {
		case <-time.After(connectRetryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("connect %s canceled: %w", dialect, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%s unreachable after %d attempts: %w", dialect, maxConnectAttempts, lastErr)
}

func configurePool(db *sql.DB, dialect Dialect) {
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
}
