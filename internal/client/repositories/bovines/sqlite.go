package bovines

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/dbx"
	"github.com/dmitrijs2005/herdsync/internal/timex"
)

const columns = `local_id, remote_id, client_ref, name, status, gender, breed, weight, birth_date, description,
	herd_local_id, herd_remote_id, mother_local_id, father_local_id, active, updated_at, sync_state`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBovine(s scanner) (*models.Bovine, error) {
	var (
		b                           models.Bovine
		remote, herdLocal, herdRem  sql.NullInt64
		mother, father              sql.NullInt64
		weight                      sql.NullFloat64
		status, gender, updated, st string
	)
	err := s.Scan(&b.LocalID, &remote, &b.ClientRef, &b.Name, &status, &gender, &b.Breed, &weight,
		&b.BirthDate, &b.Description, &herdLocal, &herdRem, &mother, &father, &b.Active, &updated, &st)
	if err != nil {
		return nil, err
	}
	t, err := timex.ParseDB(updated)
	if err != nil {
		return nil, fmt.Errorf("bovine %d: bad updated_at %q: %w", b.LocalID, updated, err)
	}
	b.RemoteID = dbx.Int64Ptr(remote)
	b.Status = models.Status(status)
	b.Gender = models.Gender(gender)
	b.Weight = dbx.Float64Ptr(weight)
	b.HerdLocalID = dbx.Int64Ptr(herdLocal)
	b.HerdRemoteID = dbx.Int64Ptr(herdRem)
	b.MotherLocalID = dbx.Int64Ptr(mother)
	b.FatherLocalID = dbx.Int64Ptr(father)
	b.UpdatedAt = t
	b.SyncState = models.SyncState(st)
	return &b, nil
}

func args(b *models.Bovine) []any {
	return []any{
		dbx.NullInt64(b.RemoteID), b.ClientRef, b.Name, string(b.Status), string(b.Gender), b.Breed,
		dbx.NullFloat64(b.Weight), b.BirthDate, b.Description,
		dbx.NullInt64(b.HerdLocalID), dbx.NullInt64(b.HerdRemoteID),
		dbx.NullInt64(b.MotherLocalID), dbx.NullInt64(b.FatherLocalID),
		b.Active, timex.FormatDB(b.UpdatedAt), string(b.SyncState),
	}
}

func (r *SQLiteRepository) Insert(ctx context.Context, b *models.Bovine) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bovines (remote_id, client_ref, name, status, gender, breed, weight, birth_date, description,
			herd_local_id, herd_remote_id, mother_local_id, father_local_id, active, updated_at, sync_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args(b)...)
	if err != nil {
		return fmt.Errorf("insert bovine: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert bovine: %w", err)
	}
	b.LocalID = id
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, b *models.Bovine) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bovines
		SET remote_id = ?, client_ref = ?, name = ?, status = ?, gender = ?, breed = ?, weight = ?,
			birth_date = ?, description = ?, herd_local_id = ?, herd_remote_id = ?,
			mother_local_id = ?, father_local_id = ?, active = ?, updated_at = ?, sync_state = ?
		WHERE local_id = ?`, append(args(b), b.LocalID)...)
	if err != nil {
		return fmt.Errorf("update bovine %d: %w", b.LocalID, err)
	}
	return requireOne(res, b.LocalID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bovines WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("delete bovine %d: %w", localID, err)
	}
	return requireOne(res, localID)
}

func requireOne(res sql.Result, localID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("bovine %d: %w", localID, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, where string, a ...any) (*models.Bovine, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM bovines WHERE `+where+` ORDER BY local_id LIMIT 1`, a...)
	b, err := scanBovine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bovine: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID int64) (*models.Bovine, error) {
	return r.getOne(ctx, `local_id = ?`, localID)
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID int64) (*models.Bovine, error) {
	return r.getOne(ctx, `remote_id = ?`, remoteID)
}

func (r *SQLiteRepository) GetByClientRef(ctx context.Context, clientRef string) (*models.Bovine, error) {
	return r.getOne(ctx, `client_ref = ?`, clientRef)
}

func (r *SQLiteRepository) FindUnlinkedByName(ctx context.Context, name string, herdLocalID *int64) (*models.Bovine, error) {
	if herdLocalID != nil {
		return r.getOne(ctx, `remote_id IS NULL AND name = ? AND herd_local_id = ?`, name, *herdLocalID)
	}
	return r.getOne(ctx, `remote_id IS NULL AND name = ?`, name)
}

func (r *SQLiteRepository) list(ctx context.Context, where string, a ...any) ([]*models.Bovine, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM bovines WHERE `+where+` ORDER BY name, local_id`, a...)
	if err != nil {
		return nil, fmt.Errorf("list bovines: %w", err)
	}
	defer rows.Close()

	var out []*models.Bovine
	for rows.Next() {
		b, err := scanBovine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bovine: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bovines: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]*models.Bovine, error) {
	conds := []string{"1 = 1"}
	var a []any
	if !f.IncludeInactive {
		conds = append(conds, "active = 1")
	}
	if f.HerdLocalID != nil {
		conds = append(conds, "herd_local_id = ?")
		a = append(a, *f.HerdLocalID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		a = append(a, string(f.Status))
	}
	if f.Gender != "" {
		conds = append(conds, "gender = ?")
		a = append(a, string(f.Gender))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "(name LIKE ? OR breed LIKE ?)")
		like := "%" + s + "%"
		a = append(a, like, like)
	}
	return r.list(ctx, strings.Join(conds, " AND "), a...)
}

func (r *SQLiteRepository) ListDirty(ctx context.Context) ([]*models.Bovine, error) {
	return r.list(ctx, `sync_state IN (?, ?, ?)`,
		string(models.SyncStateCreated), string(models.SyncStateUpdated), string(models.SyncStateDeleted))
}

func (r *SQLiteRepository) ListMissingHerdRemoteID(ctx context.Context) ([]*models.Bovine, error) {
	return r.list(ctx, `herd_local_id IS NOT NULL AND herd_remote_id IS NULL`)
}

func (r *SQLiteRepository) ListMissingHerdLocalID(ctx context.Context) ([]*models.Bovine, error) {
	return r.list(ctx, `herd_local_id IS NULL AND herd_remote_id IS NOT NULL`)
}

func (r *SQLiteRepository) SetHerdRemoteID(ctx context.Context, herdLocalID, remoteID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bovines SET herd_remote_id = ?
		WHERE herd_local_id = ? AND (herd_remote_id IS NULL OR herd_remote_id <> ?)`,
		remoteID, herdLocalID, remoteID)
	if err != nil {
		return 0, fmt.Errorf("cascade herd %d remote id: %w", herdLocalID, err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) count(ctx context.Context, where string, a ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bovines WHERE `+where, a...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bovines: %w", err)
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
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bovines`); err != nil {
		return fmt.Errorf("clear bovines: %w", err)
	}
	return nil
}
