package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	"github.com/dmitrijs2005/herdsync/internal/dbx"
	"github.com/dmitrijs2005/herdsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const herdColumns = `id, user_id, client_ref, name, active, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHerd(s scanner) (*models.Herd, error) {
	h := &models.Herd{}
	if err := s.Scan(&h.ID, &h.UserID, &h.ClientRef, &h.Name, &h.Active, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.UpdatedAt = h.UpdatedAt.UTC()
	return h, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) GetHerd(ctx context.Context, userID string, id int64) (*models.Herd, error) {
	query := `SELECT ` + herdColumns + ` FROM herds WHERE user_id = $1 AND id = $2`
	h, err := scanHerd(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

func (r *PostgresRepository) FindHerdByClientRef(ctx context.Context, userID, clientRef string) (*models.Herd, error) {
	query := `SELECT ` + herdColumns + ` FROM herds WHERE user_id = $1 AND client_ref = $2`
	h, err := scanHerd(r.db.QueryRowContext(ctx, query, userID, clientRef))
	if err != nil {
		return nil, notFound(err)
	}
	return h, nil
}

func (r *PostgresRepository) CreateHerd(ctx context.Context, h *models.Herd) error {
	query :=
		`INSERT INTO herds (user_id, client_ref, name, active, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, h.UserID, h.ClientRef, h.Name, h.Active, h.UpdatedAt).Scan(&h.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateHerd(ctx context.Context, h *models.Herd) error {
	query :=
		`UPDATE herds SET client_ref = $3, name = $4, active = $5, updated_at = $6
		 WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, h.UserID, h.ID, h.ClientRef, h.Name, h.Active, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) ListHerds(ctx context.Context, userID string, since *time.Time) ([]*models.Herd, error) {
	query := `SELECT ` + herdColumns + ` FROM herds
		 WHERE user_id = $1 AND ($2::timestamptz IS NULL OR updated_at >= $2)
		 ORDER BY updated_at, id`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Herd, 0)
	for rows.Next() {
		h, err := scanHerd(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

const bovineColumns = `id, user_id, client_ref, name, status, gender, breed, weight, birth_date, description, herd_id, active, updated_at`

func scanBovine(s scanner) (*models.Bovine, error) {
	b := &models.Bovine{}
	var (
		weight sql.NullFloat64
		herdID sql.NullInt64
	)
	err := s.Scan(&b.ID, &b.UserID, &b.ClientRef, &b.Name, &b.Status, &b.Gender, &b.Breed,
		&weight, &b.BirthDate, &b.Description, &herdID, &b.Active, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if weight.Valid {
		b.Weight = &weight.Float64
	}
	if herdID.Valid {
		b.HerdID = &herdID.Int64
	}
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

func (r *PostgresRepository) GetBovine(ctx context.Context, userID string, id int64) (*models.Bovine, error) {
	query := `SELECT ` + bovineColumns + ` FROM bovines WHERE user_id = $1 AND id = $2`
	b, err := scanBovine(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (r *PostgresRepository) FindBovineByClientRef(ctx context.Context, userID, clientRef string) (*models.Bovine, error) {
	query := `SELECT ` + bovineColumns + ` FROM bovines WHERE user_id = $1 AND client_ref = $2`
	b, err := scanBovine(r.db.QueryRowContext(ctx, query, userID, clientRef))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (r *PostgresRepository) CreateBovine(ctx context.Context, b *models.Bovine) error {
	query :=
		`INSERT INTO bovines (user_id, client_ref, name, status, gender, breed, weight, birth_date, description, herd_id, active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`
	err := r.db.QueryRowContext(ctx, query, b.UserID, b.ClientRef, b.Name, b.Status, b.Gender, b.Breed,
		b.Weight, b.BirthDate, b.Description, b.HerdID, b.Active, b.UpdatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateBovine(ctx context.Context, b *models.Bovine) error {
	query :=
		`UPDATE bovines SET client_ref = $3, name = $4, status = $5, gender = $6, breed = $7, weight = $8,
		        birth_date = $9, description = $10, herd_id = $11, active = $12, updated_at = $13
		 WHERE user_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, b.UserID, b.ID, b.ClientRef, b.Name, b.Status, b.Gender, b.Breed,
		b.Weight, b.BirthDate, b.Description, b.HerdID, b.Active, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) ListBovines(ctx context.Context, userID string, since *time.Time) ([]*models.Bovine, error) {
	query := `SELECT ` + bovineColumns + ` FROM bovines
		 WHERE user_id = $1 AND ($2::timestamptz IS NULL OR updated_at >= $2)
		 ORDER BY updated_at, id`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Bovine, 0)
	for rows.Next() {
		b, err := scanBovine(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
