// Package sqlite implements the repository interfaces on top of SQLite.
//
// ONE FILE, SIX TABLES:
// Everything fragmenthub persists lives in a single SQLite file: users,
// fragments, tags, the fragment_tags join table, likes and views. The schema
// is created idempotently at open time, so a fresh DB_PATH is all a new
// deployment needs.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite. No CGo, no C compiler, and
// cross-compilation just works. We also import its error type so that
// UNIQUE violations can be recognized by code instead of by message text.
//
// TYPED STORES:
// DB owns the connection pool. Each entity gets its own small store type
// (UserDB, TagDB, FragmentDB, LikeDB, ViewDB) that shares the pool. Services
// receive the store they need through the interfaces in package repository.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// querier is the subset of *sql.DB and *sql.Tx the stores use. Helpers that
// must run both inside and outside a transaction take a querier.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the connection pool and hands out the typed stores.
type DB struct {
	conn *sql.DB

	users     *UserDB
	tags      *TagDB
	fragments *FragmentDB
	likes     *LikeDB
	views     *ViewDB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/fragments.db" → file-based database
//   - ":memory:"          → in-memory database, used by tests
//
// PRAGMAS IN THE DSN:
// A PRAGMA executed with conn.Exec only affects the one pooled connection
// that happened to run it. Passing them as _pragma DSN parameters makes the
// driver apply them to every connection it opens, which matters most for
// foreign_keys: without it, ON DELETE CASCADE silently does nothing.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	memory := dbPath == ":memory:"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a brand new, empty database.
	// Pinning the pool to one connection keeps all queries on the same one.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := newFromConn(conn)
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// newFromConn wires the stores around an existing pool without migrating.
// Tests use it with go-sqlmock to drive driver-error paths.
func newFromConn(conn *sql.DB) *DB {
	return &DB{
		conn:      conn,
		users:     &UserDB{conn: conn},
		tags:      &TagDB{conn: conn},
		fragments: &FragmentDB{conn: conn},
		likes:     &LikeDB{conn: conn},
		views:     &ViewDB{conn: conn},
	}
}

func (db *DB) Users() *UserDB         { return db.users }
func (db *DB) Tags() *TagDB           { return db.tags }
func (db *DB) Fragments() *FragmentDB { return db.fragments }
func (db *DB) Likes() *LikeDB         { return db.likes }
func (db *DB) Views() *ViewDB         { return db.views }

// Ping checks that the database still answers. /healthz calls it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool. Defer it right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
//
// CASCADES:
//   - deleting a fragment removes its likes, views and tag links
//   - deleting a tag removes its links, never the fragments
//   - deleting a user removes the fragments they authored and their likes;
//     views they made are kept as anonymous views (user_id set to NULL)
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			bio           TEXT NOT NULL DEFAULT '',
			is_active     INTEGER NOT NULL DEFAULT 1,
			is_admin      INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fragments (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			content     TEXT NOT NULL,
			language    TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_public   INTEGER NOT NULL DEFAULT 1,
			author_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fragments_created_at ON fragments(created_at);
		CREATE INDEX IF NOT EXISTS idx_fragments_author_id ON fragments(author_id);
		CREATE INDEX IF NOT EXISTS idx_fragments_language ON fragments(language);

		CREATE TABLE IF NOT EXISTS tags (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fragment_tags (
			fragment_id TEXT NOT NULL REFERENCES fragments(id) ON DELETE CASCADE,
			tag_id      TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (fragment_id, tag_id)
		);
		CREATE INDEX IF NOT EXISTS idx_fragment_tags_tag_id ON fragment_tags(tag_id);

		CREATE TABLE IF NOT EXISTS likes (
			id          TEXT PRIMARY KEY,
			fragment_id TEXT NOT NULL REFERENCES fragments(id) ON DELETE CASCADE,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL,
			UNIQUE (fragment_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_likes_user_id ON likes(user_id);

		CREATE TABLE IF NOT EXISTS views (
			id          TEXT PRIMARY KEY,
			fragment_id TEXT NOT NULL REFERENCES fragments(id) ON DELETE CASCADE,
			user_id     TEXT REFERENCES users(id) ON DELETE SET NULL,
			ip_address  TEXT,
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_views_fragment_id ON views(fragment_id);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite refusing a duplicate value
// in a UNIQUE or PRIMARY KEY column.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// lower_unicode is registered for every connection the driver opens.
// SQLite's own lower() and LIKE fold only ASCII, so "ПРИВЕТ" would never
// match "привет" without it.
func init() {
	msqlite.MustRegisterDeterministicScalarFunction("lower_unicode", 1, lowerUnicode)
}

func lowerUnicode(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		// NULL stays NULL; numbers have no case
		return v, nil
	}
}

// likeEscaper escapes the LIKE wildcards so a search for "100%" matches the
// literal text. Queries using it declare ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a search term into a LIKE pattern matching it anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// stringArgs converts ids to the []any that QueryContext expects.
func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
