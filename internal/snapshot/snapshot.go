// Package snapshot copies the three CSV tables into a SQLite database so they
// can be queried with SQL. The CSV files stay the source of truth; a snapshot
// is rebuilt from scratch on every export.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"library-records/library"
)

// Database is a SQLite snapshot file.
type Database struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot at dbPath and applies the schema.
func Open(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            isbn INTEGER PRIMARY KEY,
            title TEXT,
            author TEXT,
            availability INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            user_id INTEGER PRIMARY KEY,
            name TEXT,
            is_checked_out BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS checkouts (
            isbn INTEGER PRIMARY KEY,
            user_id INTEGER
        );`,
		`CREATE TABLE IF NOT EXISTS sources (
            name TEXT PRIMARY KEY,
            path TEXT NOT NULL,
            digest TEXT NOT NULL,
            rows INTEGER NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// Source is one exported table file.
type Source struct {
	Name   string
	Path   string
	Digest string // hex blake2b-256 of the file, "" when missing
	Rows   int
}

// Result describes an export.
type Result struct {
	Sources []Source
	// Skipped is true when every source digest matched the previous export.
	Skipped bool
}

// Export replaces the snapshot content with the current tables in one
// transaction. Unless force is set, nothing is written when the source files
// have not changed since the last export.
func (d *Database) Export(ctx context.Context, lm *library.LibraryManager, force bool) (*Result, error) {
	sources := []Source{
		{Name: "books", Path: lm.Books().Store().Path()},
		{Name: "users", Path: lm.Users().Store().Path()},
		{Name: "checkouts", Path: lm.Checkouts().Store().Path()},
	}
	for i := range sources {
		digest, err := fileDigest(sources[i].Path)
		if err != nil {
			return nil, err
		}
		sources[i].Digest = digest
	}
	if !force {
		same, err := d.unchanged(ctx, sources)
		if err != nil {
			return nil, err
		}
		if same {
			prev, err := d.Sources(ctx)
			if err != nil {
				return nil, err
			}
			return &Result{Sources: prev, Skipped: true}, nil
		}
	}

	books, err := lm.Books().List()
	if err != nil {
		return nil, err
	}
	users, err := lm.Users().List()
	if err != nil {
		return nil, err
	}
	loans, err := lm.Checkouts().List()
	if err != nil {
		return nil, err
	}
	sources[0].Rows, sources[1].Rows, sources[2].Rows = len(books), len(users), len(loans)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, table := range []string{"books", "users", "checkouts", "sources"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return nil, fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, b := range books {
		if _, err := tx.ExecContext(ctx, `INSERT INTO books(isbn,title,author,availability) VALUES(?,?,?,?)`,
			b.ISBN, b.Title, b.Author, b.Availability); err != nil {
			return nil, fmt.Errorf("insert book %d: %w", b.ISBN, err)
		}
	}
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users(user_id,name,is_checked_out) VALUES(?,?,?)`,
			u.UserID, u.Name, u.IsCheckedOut); err != nil {
			return nil, fmt.Errorf("insert user %d: %w", u.UserID, err)
		}
	}
	for _, c := range loans {
		if _, err := tx.ExecContext(ctx, `INSERT INTO checkouts(isbn,user_id) VALUES(?,?)`, c.ISBN, c.UserID); err != nil {
			return nil, fmt.Errorf("insert checkout %d: %w", c.ISBN, err)
		}
	}
	for _, s := range sources {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sources(name,path,digest,rows) VALUES(?,?,?,?)`,
			s.Name, s.Path, s.Digest, s.Rows); err != nil {
			return nil, fmt.Errorf("record source %s: %w", s.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Result{Sources: sources}, nil
}

func (d *Database) unchanged(ctx context.Context, sources []Source) (bool, error) {
	prev, err := d.Sources(ctx)
	if err != nil {
		return false, err
	}
	if len(prev) != len(sources) {
		return false, nil
	}
	byName := make(map[string]Source, len(prev))
	for _, s := range prev {
		byName[s.Name] = s
	}
	for _, s := range sources {
		p, ok := byName[s.Name]
		if !ok || p.Path != s.Path || p.Digest != s.Digest {
			return false, nil
		}
	}
	return true, nil
}

// Sources returns the files recorded by the last export.
func (d *Database) Sources(ctx context.Context) ([]Source, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name,path,digest,rows FROM sources ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.Name, &s.Path, &s.Digest, &s.Rows); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of rows in one of books, users or checkouts.
func (d *Database) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "books", "users", "checkouts":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

// fileDigest hashes the file at path; a missing file has an empty digest.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
