package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/t-voip/gwcheck/internal/probe"
)

// Dialects understood by Open. They double as database/sql driver names.
const (
	DialectSQLServer = "sqlserver"
	DialectPostgres  = "pgx"
	DialectSQLite    = "sqlite"
)

// DefaultQueryTimeout bounds a single connect-and-query attempt.
const DefaultQueryTimeout = 10 * time.Second

// DB wraps a database connection and remembers its SQL dialect.
type DB struct {
	db      *sql.DB
	dialect string
}

// OpenSQLite opens an existing SQLite database owned by another program.
// The file must exist: the driver would otherwise create an empty one.
// The journal mode is left alone.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: sqlite database %s: %v", probe.ErrConnection, path, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, busyTimeout.Milliseconds())
	db, err := sql.Open(DialectSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", probe.ErrConnection, err)
	}

	// One connection is enough for a single query
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify("ping database", err)
	}

	return &DB{db: db, dialect: DialectSQLite}, nil
}

// Open connects to a message log database of the given dialect.
func Open(ctx context.Context, dialect, dsn string) (*DB, error) {
	if dialect == DialectSQLite {
		return OpenSQLite(ctx, dsn, 5*time.Second)
	}
	if dialect != DialectSQLServer && dialect != DialectPostgres {
		return nil, fmt.Errorf("%w: unsupported dialect %q", probe.ErrConfiguration, dialect)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", probe.ErrConnection, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify("connect to database", err)
	}

	return &DB{db: db, dialect: dialect}, nil
}

// Close closes the database connection.
func (d *DB) Close() {
	d.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Dialect returns the SQL dialect of the connection.
func (d *DB) Dialect() string {
	return d.dialect
}

// IsLocked reports whether err is SQLite's busy or locked condition.
func IsLocked(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// classify maps driver errors onto the probe error kinds.
func classify(op string, err error) error {
	if IsLocked(err) {
		return fmt.Errorf("%w: %s: %v", probe.ErrTransientLock, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: timed out", probe.ErrConnection, op)
	}
	return fmt.Errorf("%w: %s: %v", probe.ErrConnection, op, err)
}
