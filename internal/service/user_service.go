package service

import (
	"context"

	"foundation_backend/internal/domain"
)

// UserService provides user-related operations.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) ListByFoundation(ctx context.Context, foundationID int64) ([]*domain.User, error) {
	return s.users.ListByFoundation(ctx, foundationID)
}

// Search finds active users of the caller's foundation whose name or
// email matches the term. The caller is excluded from the results, and
// an unknown or foreign caller gets an empty slice.
func (s *UserService) Search(
	ctx context.Context,
	callerID int64,
	foundationID int64,
	term string,
) ([]*domain.User, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller == nil || !caller.IsActive || caller.FoundationID != foundationID {
		return []*domain.User{}, nil
	}
	users, err := s.users.Search(ctx, foundationID, term, callerID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, nil
}

func (s *UserService) Update(ctx context.Context, user *domain.User) error {
	return s.users.Update(ctx, user)
}

func (s *UserService) SoftDelete(ctx context.Context, id int64) error {
	return s.users.SoftDelete(ctx, id)
}
