package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/kingrea/brief-maestro/internal/brief"
)

// SQLiteBackend keeps every brief as one row in a SQLite database.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One connection serializes writers from the same process. Writers in
	// other processes are excluded by BEGIN IMMEDIATE in Update.
	db.SetMaxOpenConns(1)

	backend := &SQLiteBackend{db: db, path: path}
	if err := backend.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return backend, nil
}

func (s *SQLiteBackend) initialize() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS briefs (
		code TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		archived INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		record TEXT NOT NULL,
		rendered TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_briefs_archived ON briefs(archived);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: initialize schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteBackend) Path() string {
	return s.path
}

// Insert adds a new row, failing when the code is taken.
func (s *SQLiteBackend) Insert(ctx context.Context, b *brief.Brief, rendered []byte) error {
	rec := recordFrom(b)
	doc, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", b.Code, err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO briefs (code, status, archived, created_at, updated_at, record, rendered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO NOTHING`,
		rec.Code, string(rec.Status), boolInt(rec.Archived), rec.Created, rec.Updated, string(doc), string(rendered),
	)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", b.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", b.Code, err)
	}
	if n == 0 {
		return brief.ErrAlreadyExists
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Conn.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load decodes the stored record for code.
func (s *SQLiteBackend) Load(ctx context.Context, code string) (*brief.Brief, error) {
	return load(ctx, s.db, code)
}

func load(ctx context.Context, q queryer, code string) (*brief.Brief, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT record FROM briefs WHERE code = ?`, code).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, brief.ErrNotFound
		}
		return nil, fmt.Errorf("store: load %s: %w", code, err)
	}
	var rec record
	if err := yaml.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", code, err)
	}
	return rec.toBrief()
}

// Update runs the load, apply and save of one brief inside an immediate
// transaction, so the database write lock is held from the first read.
// Writers in other processes wait up to the busy timeout.
func (s *SQLiteBackend) Update(ctx context.Context, code string, apply UpdateFunc) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("store: update %s: %w", code, err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("store: begin update %s: %w", code, err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	b, err := load(ctx, conn, code)
	if err != nil {
		return err
	}
	rendered, err := apply(b)
	if err != nil {
		return err
	}
	if err := save(ctx, conn, b, rendered); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("store: commit %s: %w", code, err)
	}
	return nil
}

func save(ctx context.Context, conn *sql.Conn, b *brief.Brief, rendered []byte) error {
	rec := recordFrom(b)
	doc, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", b.Code, err)
	}
	res, err := conn.ExecContext(ctx, `
		UPDATE briefs
		SET status = ?, archived = ?, updated_at = ?, record = ?, rendered = ?
		WHERE code = ?`,
		string(rec.Status), boolInt(rec.Archived), rec.Updated, string(doc), string(rendered), rec.Code,
	)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", b.Code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: save %s: %w", b.Code, err)
	}
	if n == 0 {
		return brief.ErrNotFound
	}
	return nil
}

// List returns summaries ordered by code.
func (s *SQLiteBackend) List(ctx context.Context, includeArchived bool) ([]Summary, error) {
	query := `SELECT code, status, archived, updated_at FROM briefs`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY code`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			summary  Summary
			status   string
			archived int
			updated  string
		)
		if err := rows.Scan(&summary.Code, &status, &archived, &updated); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		summary.Status = brief.Status(status)
		summary.Archived = archived != 0
		if t, err := time.Parse(timeLayout, updated); err == nil {
			summary.UpdatedAt = t.UTC()
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
