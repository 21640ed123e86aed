package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type SessionRow struct {
	ID        string
	Username  string
	Password  string
	CreatedAt int64
	ExpiresAt int64
}

const upsertSession = `
INSERT INTO sessions (id, username, password, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    username = excluded.username,
    password = excluded.password,
    expires_at = excluded.expires_at`

func (q *Queries) UpsertSession(ctx context.Context, arg SessionRow) error {
	_, err := q.db.ExecContext(ctx, upsertSession, arg.ID, arg.Username, arg.Password, arg.CreatedAt, arg.ExpiresAt)
	return err
}

const getSession = `SELECT id, username, password, created_at, expires_at FROM sessions WHERE id = ?`

func (q *Queries) GetSession(ctx context.Context, id string) (SessionRow, error) {
	var r SessionRow
	err := q.db.QueryRowContext(ctx, getSession, id).Scan(&r.ID, &r.Username, &r.Password, &r.CreatedAt, &r.ExpiresAt)
	return r, err
}

const deleteSession = `DELETE FROM sessions WHERE id = ?`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteExpiredSessions = `DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertExport = `
INSERT INTO exports (cash_count_id, sheet_ref, exported_at) VALUES (?, ?, ?)
ON CONFLICT(cash_count_id) DO NOTHING`

func (q *Queries) InsertExport(ctx context.Context, cashCountID int64, ref string, at int64) error {
	_, err := q.db.ExecContext(ctx, insertExport, cashCountID, ref, at)
	return err
}

const getExportRef = `SELECT sheet_ref FROM exports WHERE cash_count_id = ?`

func (q *Queries) GetExportRef(ctx context.Context, cashCountID int64) (string, error) {
	var ref string
	err := q.db.QueryRowContext(ctx, getExportRef, cashCountID).Scan(&ref)
	return ref, err
}
