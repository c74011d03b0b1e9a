package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"foundation_backend/internal/domain"
)

type FoundationRepo struct {
	db *sql.DB
}

func NewFoundationRepo(db *sql.DB) *FoundationRepo {
	return &FoundationRepo{db: db}
}

var _ domain.FoundationRepository = (*FoundationRepo)(nil)

func (r *FoundationRepo) Create(ctx context.Context, f *domain.Foundation) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO foundations (name, is_active, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, f.Name, true)
	if err != nil {
		return fmt.Errorf("insert foundation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	f.IsActive = true
	return nil
}

func (r *FoundationRepo) GetByID(ctx context.Context, id int64) (*domain.Foundation, error) {
	f := &domain.Foundation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at FROM foundations WHERE id = ?
	`, id).Scan(&f.ID, &f.Name, &f.IsActive, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get foundation: %w", err)
	}
	return f, nil
}

func (r *FoundationRepo) List(ctx context.Context) ([]*domain.Foundation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, is_active, created_at FROM foundations ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list foundations: %w", err)
	}
	defer rows.Close()

	var res []*domain.Foundation
	for rows.Next() {
		f := &domain.Foundation{}
		if err := rows.Scan(&f.ID, &f.Name, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan foundation: %w", err)
		}
		res = append(res, f)
	}
	return res, rows.Err()
}
