package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Embed migration SQL files for schema versioning.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// Persisted keys in the registry table. The destinations key holds a JSON
// array of destination records; the active key holds a bare UUID string and
// the row is absent when no destination is active.
const (
	keyDestinations = "destinations"
	keyActive       = "active_destination"
)

// Store persists registry state in an embedded SQLite database with WAL
// mode. It is a plain key-to-blob table; the Registry owns all structure
// above the blob level. Use ":memory:" as the path for tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt, setStmt, deleteStmt *sql.Stmt
}

// OpenStore opens (creating if needed) the registry database at dbPath,
// applies migrations, and prepares the statements used on every mutation.
func OpenStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("registry: open sqlite: %w", err)
	}

	// One connection: registry writes are serialized by contract, and a
	// single connection keeps ":memory:" databases coherent in tests.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: prepare statements: %w", err)
	}

	return s, nil
}

// setPragmas configures SQLite for WAL mode and durability. Synchronous
// FULL because registry writes are rare and losing a healed token repeats
// work on every future launch.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("registry: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("registry: creating migration sub-filesystem: %w", err)
	}

	p, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("registry: creating migration provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("registry: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied registry migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

func (s *Store) prepareStatements(ctx context.Context) error {
	var err error

	if s.getStmt, err = s.db.PrepareContext(ctx,
		"SELECT value FROM registry WHERE key = ?"); err != nil {
		return err
	}

	if s.setStmt, err = s.db.PrepareContext(ctx,
		"INSERT INTO registry (key, value) VALUES (?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value"); err != nil {
		return err
	}

	if s.deleteStmt, err = s.db.PrepareContext(ctx,
		"DELETE FROM registry WHERE key = ?"); err != nil {
		return err
	}

	return nil
}

// Get returns the blob stored under key, or nil when the key is absent.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte

	err := s.getStmt.QueryRow(key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("registry: reading key %q: %w", key, err)
	}

	return value, nil
}

// Set writes the blob under key, replacing any previous value.
func (s *Store) Set(key string, value []byte) error {
	if _, err := s.setStmt.Exec(key, value); err != nil {
		return fmt.Errorf("registry: writing key %q: %w", key, err)
	}

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.deleteStmt.Exec(key); err != nil {
		return fmt.Errorf("registry: deleting key %q: %w", key, err)
	}

	return nil
}

// Close releases prepared statements and the database handle.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.deleteStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}

	return s.db.Close()
}
