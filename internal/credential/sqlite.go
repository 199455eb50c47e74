package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/example/training-scheduler/internal/application"
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// DSN is the database file path or connection string.
	DSN string
	// BusyTimeout sets how long to wait for database locks.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the configuration used by the CLI.
func DefaultSQLiteConfig(dsn string) SQLiteConfig {
	return SQLiteConfig{DSN: dsn, BusyTimeout: 5 * time.Second}
}

// SQLite keeps one credential row in a local database file.
type SQLite struct {
	db     *sql.DB
	sealer *Sealer
	now    func() time.Time
}

// OpenSQLite opens the database at cfg.DSN and applies pending schema
// migrations.
func OpenSQLite(ctx context.Context, cfg SQLiteConfig, sealer *Sealer) (*SQLite, error) {
	if cfg.DSN == "" {
		return nil, errors.New("credential: sqlite DSN is required")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single connection keeps ":memory:" databases stable across calls.
	db.SetMaxOpenConns(1)

	if cfg.BusyTimeout > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set PRAGMA busy_timeout: %w", err)
		}
	}
	if _, err := migrate(ctx, db, embeddedMigrations, "migrations", time.Now); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate credential database: %w", err)
	}

	return &SQLite{db: db, sealer: sealer, now: time.Now}, nil
}

func (s *SQLite) load(ctx context.Context) (*record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM credentials WHERE slot = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	rec, err := decodeRecord(s.sealer, []byte(payload))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CurrentUser returns the persisted user, or nil when signed out.
func (s *SQLite) CurrentUser(ctx context.Context) (*application.User, error) {
	rec, err := s.load(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	return &rec.User, nil
}

// AuthToken returns the persisted token, or "" when signed out.
func (s *SQLite) AuthToken(ctx context.Context) (string, error) {
	rec, err := s.load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token, nil
}

// Persist stores user and token, replacing the previous row.
func (s *SQLite) Persist(ctx context.Context, user application.User, token string) error {
	payload, err := encodeRecord(s.sealer, user, token)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (slot, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, string(payload), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// Clear deletes the stored row.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE slot = 1`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
