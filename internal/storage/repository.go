// Package storage persists web sessions and the export log in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashcount/internal/core"
	"cashcount/internal/session"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ session.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save implements session.Store
func (r *SQLiteRepository) Save(ctx context.Context, s session.Session) error {
	row := SessionRow{
		ID:        s.ID,
		Username:  s.Credentials.Username,
		Password:  s.Credentials.Password,
		CreatedAt: s.CreatedAt.Unix(),
	}
	if !s.ExpiresAt.IsZero() {
		row.ExpiresAt = s.ExpiresAt.Unix()
	}
	if err := r.queries.UpsertSession(ctx, row); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	slog.DebugContext(ctx, "Session saved", "user", s.Credentials.Username)
	return nil
}

// Load implements session.Store
func (r *SQLiteRepository) Load(ctx context.Context, id string) (session.Session, error) {
	row, err := r.queries.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}

	s := session.Session{
		ID:          row.ID,
		Credentials: core.Credentials{Username: row.Username, Password: row.Password},
		CreatedAt:   time.Unix(row.CreatedAt, 0).UTC(),
	}
	if row.ExpiresAt > 0 {
		s.ExpiresAt = time.Unix(row.ExpiresAt, 0).UTC()
	}
	if s.Expired(r.now()) {
		if err := r.queries.DeleteSession(ctx, id); err != nil {
			slog.WarnContext(ctx, "Failed to drop expired session", "error", err)
		}
		return session.Session{}, session.ErrExpired
	}
	return s, nil
}

// Delete implements session.Store
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if err := r.queries.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes every expired session.
func (r *SQLiteRepository) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged expired sessions", "count", n)
	}
	return n, nil
}

// MarkExported records that a cash count was written to the sheet. Marking
// the same count twice keeps the first reference.
func (r *SQLiteRepository) MarkExported(ctx context.Context, cashCountID int64, ref string) error {
	if err := r.queries.InsertExport(ctx, cashCountID, ref, r.now().Unix()); err != nil {
		return fmt.Errorf("mark cash count %d exported: %w", cashCountID, err)
	}
	return nil
}

// ExportRef returns the sheet reference of an exported cash count, or
// ok=false if it was never exported.
func (r *SQLiteRepository) ExportRef(ctx context.Context, cashCountID int64) (ref string, ok bool, err error) {
	ref, err = r.queries.GetExportRef(ctx, cashCountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get export ref: %w", err)
	}
	return ref, true, nil
}
