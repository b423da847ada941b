package herds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/dbx"
	"github.com/dmitrijs2005/herdsync/internal/timex"
)

const columns = `local_id, remote_id, client_ref, name, active, updated_at, sync_state`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHerd(s scanner) (*models.Herd, error) {
	var (
		h       models.Herd
		remote  sql.NullInt64
		updated string
		state   string
	)
	if err := s.Scan(&h.LocalID, &remote, &h.ClientRef, &h.Name, &h.Active, &updated, &state); err != nil {
		return nil, err
	}
	t, err := timex.ParseDB(updated)
	if err != nil {
		return nil, fmt.Errorf("herd %d: bad updated_at %q: %w", h.LocalID, updated, err)
	}
	h.RemoteID = dbx.Int64Ptr(remote)
	h.UpdatedAt = t
	h.SyncState = models.SyncState(state)
	return &h, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, h *models.Herd) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO herds (remote_id, client_ref, name, active, updated_at, sync_state)
		VALUES (?, ?, ?, ?, ?, ?)`,
		dbx.NullInt64(h.RemoteID), h.ClientRef, h.Name, h.Active, timex.FormatDB(h.UpdatedAt), string(h.SyncState))
	if err != nil {
		return fmt.Errorf("insert herd: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert herd: %w", err)
	}
	h.LocalID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, h *models.Herd) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE herds
		SET remote_id = ?, client_ref = ?, name = ?, active = ?, updated_at = ?, sync_state = ?
		WHERE local_id = ?`,
		dbx.NullInt64(h.RemoteID), h.ClientRef, h.Name, h.Active, timex.FormatDB(h.UpdatedAt), string(h.SyncState), h.LocalID)
	if err != nil {
		return fmt.Errorf("update herd %d: %w", h.LocalID, err)
	}
	return requireOne(res, h.LocalID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM herds WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("delete herd %d: %w", localID, err)
	}
	return requireOne(res, localID)
}

func requireOne(res sql.Result, localID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("herd %d: %w", localID, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, where string, args ...any) (*models.Herd, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM herds WHERE `+where+` ORDER BY local_id LIMIT 1`, args...)
	h, err := scanHerd(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get herd: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID int64) (*models.Herd, error) {
	return r.getOne(ctx, `local_id = ?`, localID)
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID int64) (*models.Herd, error) {
	return r.getOne(ctx, `remote_id = ?`, remoteID)
}

func (r *SQLiteRepository) GetByClientRef(ctx context.Context, clientRef string) (*models.Herd, error) {
	return r.getOne(ctx, `client_ref = ?`, clientRef)
}

func (r *SQLiteRepository) FindUnlinkedByName(ctx context.Context, name string) (*models.Herd, error) {
	return r.getOne(ctx, `remote_id IS NULL AND name = ?`, name)
}

func (r *SQLiteRepository) list(ctx context.Context, where string, args ...any) ([]*models.Herd, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM herds WHERE `+where+` ORDER BY name, local_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list herds: %w", err)
	}
	defer rows.Close()

	var out []*models.Herd
	for rows.Next() {
		h, err := scanHerd(rows)
		if err != nil {
			return nil, fmt.Errorf("scan herd: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate herds: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) FindActiveByName(ctx context.Context, name string) ([]*models.Herd, error) {
	return r.list(ctx, `active = 1 AND name = ? COLLATE NOCASE`, name)
}

func (r *SQLiteRepository) List(ctx context.Context, includeInactive bool) ([]*models.Herd, error) {
	if includeInactive {
		return r.list(ctx, `1 = 1`)
	}
	return r.list(ctx, `active = 1`)
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]*models.Herd, error) {
	return r.list(ctx, `sync_state IN (?, ?, ?)`,
		string(models.SyncStateCreated), string(models.SyncStateUpdated), string(models.SyncStateDeleted))
}

func (r *SQLiteRepository) count(ctx context.Context, where string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM herds WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count herds: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, `1 = 1`)
}

func (r *SQLiteRepository) CountDirty(ctx context.Context) (int, error) {
	return r.count(ctx, `sync_state <> ?`, string(models.SyncStateSynced))
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM herds`); err != nil {
		return fmt.Errorf("clear herds: %w", err)
	}
	return nil
}
