package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/nbyapp/nbyapp/internal/app"
)

// Supported drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS apps (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		idea TEXT NOT NULL,
		service_id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		service_display_name TEXT NOT NULL DEFAULT '',
		model_display_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		files TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_apps_created_at ON apps(created_at)`,
}

const selectColumns = `id, display_name, idea, service_id, model_id, service_display_name, model_display_name, created_at, files`

// SQLStore persists records in SQLite or PostgreSQL. Files are kept as a JSON column.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQL opens the database, creates the schema and returns the store.
// For sqlite the DSN is a file path; its directory is created when missing.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite"
		if dsn == "" {
			return nil, fmt.Errorf("sqlite store: dsn is required")
		}
		if dir := filepath.Dir(dsn); dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite store: create directory: %w", err)
			}
		}
	case DriverPostgres:
		sqlDriver = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("postgres store: dsn is required")
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLStore{db: db, driver: driver}, nil
}

// Save inserts rec
func (s *SQLStore) Save(ctx context.Context, rec app.Record) (app.Record, error) {
	files, err := json.Marshal(rec.Files)
	if err != nil {
		return app.Record{}, &PersistenceError{Op: "save", Err: fmt.Errorf("encode files: %w", err)}
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO apps(`+selectColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID,
		rec.DisplayName,
		rec.Idea,
		rec.ServiceID,
		rec.ModelID,
		rec.ServiceDisplayName,
		rec.ModelDisplayName,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(files),
	)
	if err != nil {
		return app.Record{}, &PersistenceError{Op: "save", Err: err}
	}
	return rec, nil
}

// GetByID retrieves a record by id
func (s *SQLStore) GetByID(ctx context.Context, id string) (app.Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+selectColumns+` FROM apps WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return app.Record{}, ErrNotFound
	}
	if err != nil {
		return app.Record{}, &PersistenceError{Op: "get", Err: err}
	}
	return rec, nil
}

// GetAll returns every record
func (s *SQLStore) GetAll(ctx context.Context) ([]app.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM apps`)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	out := []app.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return out, nil
}

// DeleteByID removes a record
func (s *SQLStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM apps WHERE id = ?`), id)
	if err != nil {
		return false, &PersistenceError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &PersistenceError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (app.Record, error) {
	var (
		rec       app.Record
		createdAt string
		files     string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.DisplayName,
		&rec.Idea,
		&rec.ServiceID,
		&rec.ModelID,
		&rec.ServiceDisplayName,
		&rec.ModelDisplayName,
		&createdAt,
		&files,
	); err != nil {
		return app.Record{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return app.Record{}, fmt.Errorf("parse created_at of %s: %w", rec.ID, err)
	}
	rec.CreatedAt = t

	if err := json.Unmarshal([]byte(files), &rec.Files); err != nil {
		return app.Record{}, fmt.Errorf("decode files of %s: %w", rec.ID, err)
	}
	return rec, nil
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
