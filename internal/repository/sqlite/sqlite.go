// Package sqlite implements the repository interfaces on top of SQLite.
//
// ONE FILE, ONE PROCESS:
// A blog with accounts and articles fits in a single SQLite file next to
// the binary. There is no database server to run; tests use ":memory:"
// and get a fresh, private database each time.
//
// THE DRIVER:
// modernc.org/sqlite is SQLite translated to Go, so the binary builds with
// CGO_ENABLED=0 and cross-compiles like any other Go program. It registers
// itself with database/sql under the name "sqlite" when imported.
//
// SCHEMA MIGRATIONS (goose):
// The tables are defined in numbered SQL files in the migrations package,
// embedded into the binary with //go:embed. On start, New asks goose to
// apply any file not yet recorded in its goose_db_version table:
//
//	00001_init.sql   applied on a fresh database
//	00002_xxx.sql    applied later, once, when it is added
//
// Each file has an "-- +goose Up" section and a "-- +goose Down" section.
//
// JSON COLUMNS:
// Nested profile data (social links, projects, bookshelf, skills, tools)
// is stored as JSON text in one column per field. Nothing queries inside
// those lists except the directory search, which uses SQLite's
// json_extract on the display name.
//
// ERRORS:
//   - sql.ErrNoRows becomes apperror.NotFound
//   - a UNIQUE constraint failure becomes apperror.Conflict
//   - everything else is wrapped with "sqlite: <what failed>: %w"
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	sqlitedriver "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sakif/minispace/internal/repository/sqlite/migrations"
)

// DB wraps a *sql.DB connection pool and implements both
// repository.UserRepository and repository.ArticleRepository.
type DB struct {
	conn *sql.DB
}

// goose keeps its FS and dialect in package globals. Tests open many
// databases in parallel, so migrate holds this lock while it sets them.
var migrateMu sync.Mutex

// New opens (or creates) the database at dbPath and migrates it.
// ":memory:" gives a private in-memory database.
//
// CONNECTION SETTINGS:
//   - busy_timeout(5000): a writer waits up to 5s for a lock instead of
//     failing at once with SQLITE_BUSY
//   - journal_mode=WAL: readers do not block the single writer, which
//     matters when a profile page is rendering while an article saves
//   - foreign_keys=ON: SQLite leaves them off unless asked, per connection
//
// An in-memory database lives inside one connection, so the pool is
// limited to one; a second connection would see an empty database.
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.conn, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
