package postgres

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO foundations (name) VALUES ($1)
		RETURNING id, is_active, created_at
	`, f.Name).Scan(&f.ID, &f.IsActive, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert foundation: %w", err)
	}
	return nil
}

func (r *FoundationRepo) GetByID(ctx context.Context, id int64) (*domain.Foundation, error) {
	f := &domain.Foundation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, is_active, created_at FROM foundations WHERE id = $1
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
