package credential

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var (
	// ErrInvalidMigrationFile indicates a migration file that breaks the naming convention.
	ErrInvalidMigrationFile = errors.New("credential: invalid migration file")
	// ErrDuplicateVersion indicates two migrations share a version.
	ErrDuplicateVersion = errors.New("credential: duplicate migration version")
	// ErrChecksumMismatch indicates an applied migration whose file has since changed.
	ErrChecksumMismatch = errors.New("credential: applied migration was modified")
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// migration is one versioned schema step.
type migration struct {
	Version     string
	Description string
	SQL         string
	Checksum    string
}

// scanMigrations reads every NNN_description.sql file of dir in version order.
func scanMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m := migrationFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMigrationFile, entry.Name())
		}
		if prev, dup := seen[m[1]]; dup {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateVersion, prev, entry.Name())
		}
		seen[m[1]] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(stripComments(string(content))) == "" {
			return nil, fmt.Errorf("%w: %s has no statements", ErrInvalidMigrationFile, entry.Name())
		}
		sum := sha256.Sum256(content)
		out = append(out, migration{
			Version:     m[1],
			Description: strings.ReplaceAll(m[2], "_", " "),
			SQL:         string(content),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(out, func(i, j int) bool { return versionLess(out[i].Version, out[j].Version) })
	return out, nil
}

// versionLess orders numeric versions regardless of zero padding.
func versionLess(a, b string) bool {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func stripComments(sqlText string) string {
	var b strings.Builder
	for _, line := range strings.Split(sqlText, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// splitStatements breaks a migration on semicolons outside string literals.
func splitStatements(sqlText string) []string {
	var (
		out     []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range stripComments(sqlText) {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == ';' && !quoted:
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				out = append(out, stmt)
			}
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		out = append(out, stmt)
	}
	return out
}

const createVersionTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL,
		execution_time_ms INTEGER NOT NULL
	);
`

// migrate applies every pending migration of fsys/dir, each in its own
// transaction together with its schema_migrations row. It returns the
// versions applied by this call.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, now func() time.Time) ([]string, error) {
	migrations, err := scanMigrations(fsys, dir)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations table: %w", err)
	}

	applied := make(map[string]string)
	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			rows.Close()
			return nil, fmt.Errorf("read applied migrations: %w", err)
		}
		applied[version] = checksum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	var ran []string
	for _, m := range migrations {
		if checksum, ok := applied[m.Version]; ok {
			if checksum != m.Checksum {
				return ran, fmt.Errorf("%w: %s", ErrChecksumMismatch, m.Version)
			}
			continue
		}
		if err := applyMigration(ctx, db, m, now); err != nil {
			return ran, err
		}
		ran = append(ran, m.Version)
	}
	return ran, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration, now func() time.Time) (err error) {
	start := time.Now()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin transaction: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range splitStatements(m.SQL) {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s (%s): statement %d: %w", m.Version, m.Description, i+1, err)
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		m.Version, now().UTC().Format(time.RFC3339), m.Checksum, time.Since(start).Milliseconds(),
	); err != nil {
		return fmt.Errorf("migration %s: record version: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", m.Version, err)
	}
	return nil
}
