package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goodtune/streak/internal/storage"
	_ "modernc.org/sqlite"
)

// Store implements the storage.Store interface on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates a new database connection and runs migrations
func Open(path string) (*Store, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite limitation
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// runMigrations applies every migration newer than the recorded version
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for i, migration := range getMigrations() {
		version := i + 1
		if version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(migration); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}

// getMigrations returns the ordered schema migrations. The slice index plus
// one is the version number.
func getMigrations() []string {
	return []string{
		migration001Timer,
	}
}

const migration001Timer = `
CREATE TABLE IF NOT EXISTS timer (
	id INTEGER PRIMARY KEY,
	time INTEGER NOT NULL
);
`

// SchemaVersion reports the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&version)
	return version, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the timer record.
func (s *Store) Load(ctx context.Context) (int64, error) {
	var seconds int64
	err := s.db.QueryRowContext(ctx, "SELECT time FROM timer WHERE id = ?", storage.RecordID).Scan(&seconds)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query timer: %w", err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("%w: negative value %d", storage.ErrCorrupt, seconds)
	}
	return seconds, nil
}

// Save upserts the timer record inside a transaction.
func (s *Store) Save(ctx context.Context, seconds int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO timer (id, time) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET time = excluded.time
	`, storage.RecordID, seconds); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert timer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit timer: %w", err)
	}
	return nil
}
