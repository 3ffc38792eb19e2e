package persistence

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL flavour of an SQLStore.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// String returns the database/sql driver name.
func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// SQLStore persists tree state in a SQL database. Several trees can share
// one database; each is stored under its own name.
type SQLStore struct {
	db       *sql.DB
	migrator *migrate.Migrate
	dialect  Dialect
	name     string
	mu       sync.RWMutex
}

// OpenSQLite opens (or creates) a SQLite database and stores state under
// name. Use ":memory:" for an in-memory database.
func OpenSQLite(dbPath, name string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	return NewSQLStore(db, DialectSQLite, name)
}

// OpenPostgres connects to a PostgreSQL database and stores state under
// name.
func OpenPostgres(dsn, name string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewSQLStore(db, DialectPostgres, name)
}

// NewSQLStore wraps an open database and applies the schema migrations.
// The store owns db from here on; Close closes it.
func NewSQLStore(db *sql.DB, dialect Dialect, name string) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, name: name}
	m, err := s.migrate()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	s.migrator = m
	return s, nil
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrate brings the database schema up to the latest version.
func (s *SQLStore) migrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	var driver database.Driver
	switch s.dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(s.db, &postgres.Config{})
	default:
		driver, err = sqlite3.WithInstance(s.db, &sqlite3.Config{})
	}
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, s.dialect.String(), driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return m, nil
}

// SchemaVersion returns the applied migration version.
func (s *SQLStore) SchemaVersion() (uint, error) {
	v, dirty, err := s.migrator.Version()
	if err != nil {
		return 0, err
	}
	if dirty {
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}

// Close releases the migration drivers and closes the database.
func (s *SQLStore) Close() error {
	srcErr, dbErr := s.migrator.Close()
	return errors.Join(srcErr, dbErr)
}

// rebind rewrites "?" placeholders for the dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
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

// Save replaces the stored state in one transaction.
func (s *SQLStore) Save(state *TreeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"tree_rows", "tree_tables", "tree_values", "tree_notifications", "tree_state"} {
		if _, err := tx.Exec(s.rebind("DELETE FROM "+table+" WHERE name = ?"), s.name); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(s.rebind(`
		INSERT INTO tree_state (name, version, root, saved_at) VALUES (?, ?, ?, ?)
	`), s.name, state.Version, state.Root, state.SavedAt.UTC()); err != nil {
		return err
	}

	for i, path := range state.Rows {
		if _, err := tx.Exec(s.rebind(`INSERT INTO tree_rows (name, seq, path) VALUES (?, ?, ?)`), s.name, i, path); err != nil {
			return err
		}
	}
	for _, t := range state.Tables {
		if _, err := tx.Exec(s.rebind(`INSERT INTO tree_tables (name, path, next_instance) VALUES (?, ?, ?)`),
			s.name, t.Path, int64(t.NextInstance)); err != nil {
			return err
		}
	}
	if err := s.insertValues(tx, state.Values); err != nil {
		return err
	}
	for _, n := range state.Notifications {
		if _, err := tx.Exec(s.rebind(`INSERT INTO tree_notifications (name, path, level) VALUES (?, ?, ?)`),
			s.name, n.Path, int(n.Notification)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// insertValues writes the parameter values. PostgreSQL uses COPY since a
// full tree holds thousands of values.
func (s *SQLStore) insertValues(tx *sql.Tx, values []ValueState) error {
	if s.dialect != DialectPostgres {
		for i, v := range values {
			if _, err := tx.Exec(`INSERT INTO tree_values (name, seq, path, type, value) VALUES (?, ?, ?, ?, ?)`,
				s.name, i, v.Path, v.Type, v.Value); err != nil {
				return err
			}
		}
		return nil
	}

	stmt, err := tx.Prepare(pq.CopyIn("tree_values", "name", "seq", "path", "type", "value"))
	if err != nil {
		return err
	}
	for i, v := range values {
		if _, err := stmt.Exec(s.name, i, v.Path, v.Type, v.Value); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		return err
	}
	return stmt.Close()
}

// Load reads the stored state. Returns nil, nil if nothing was saved
// under this store's name.
func (s *SQLStore) Load() (*TreeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := &TreeState{}
	err := s.db.QueryRow(s.rebind(`
		SELECT version, root, saved_at FROM tree_state WHERE name = ?
	`), s.name).Scan(&state.Version, &state.Root, &state.SavedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if state.Version != StateVersion {
		return nil, ErrVersion
	}

	rows, err := s.db.Query(s.rebind(`SELECT path FROM tree_rows WHERE name = ? ORDER BY seq`), s.name)
	if err != nil {
		return nil, err
	}
	err = scanAll(rows, func() error {
		var path string
		if err := rows.Scan(&path); err != nil {
			return err
		}
		state.Rows = append(state.Rows, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err = s.db.Query(s.rebind(`SELECT path, next_instance FROM tree_tables WHERE name = ? ORDER BY path`), s.name)
	if err != nil {
		return nil, err
	}
	err = scanAll(rows, func() error {
		var t TableState
		var next int64
		if err := rows.Scan(&t.Path, &next); err != nil {
			return err
		}
		t.NextInstance = uint32(next)
		state.Tables = append(state.Tables, t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err = s.db.Query(s.rebind(`SELECT path, type, value FROM tree_values WHERE name = ? ORDER BY seq`), s.name)
	if err != nil {
		return nil, err
	}
	err = scanAll(rows, func() error {
		var v ValueState
		if err := rows.Scan(&v.Path, &v.Type, &v.Value); err != nil {
			return err
		}
		state.Values = append(state.Values, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err = s.db.Query(s.rebind(`SELECT path, level FROM tree_notifications WHERE name = ? ORDER BY path`), s.name)
	if err != nil {
		return nil, err
	}
	err = scanAll(rows, func() error {
		var n NotificationState
		var level int
		if err := rows.Scan(&n.Path, &level); err != nil {
			return err
		}
		n.Notification = uint8(level)
		state.Notifications = append(state.Notifications, n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Clear removes the state stored under this store's name.
func (s *SQLStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(s.rebind(`DELETE FROM tree_state WHERE name = ?`), s.name)
	return err
}

func scanAll(rows *sql.Rows, scan func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	return rows.Err()
}
