package service

import (
	"context"

	"foundation_backend/internal/domain"
)

// FoundationService provides tenant-level operations.
type FoundationService struct {
	foundations domain.FoundationRepository
}

func NewFoundationService(foundations domain.FoundationRepository) *FoundationService {
	return &FoundationService{foundations: foundations}
}

func (s *FoundationService) Create(ctx context.Context, f *domain.Foundation) error {
	if f.Name == "" {
		return domain.ErrInvalidInput
	}
	return s.foundations.Create(ctx, f)
}

func (s *FoundationService) GetByID(ctx context.Context, id int64) (*domain.Foundation, error) {
	f, err := s.foundations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.ErrNotFound
	}
	return f, nil
}

func (s *FoundationService) List(ctx context.Context) ([]*domain.Foundation, error) {
	return s.foundations.List(ctx)
}
