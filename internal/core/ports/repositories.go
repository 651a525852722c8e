package ports

import (
	"context"

	"github.com/identikit/identity-api/internal/core/domain"
)

// UserRepository defines the persistence interface for user accounts.
// Create relies on the store's unique email constraint: a duplicate email
// must surface as domain.ErrUserExists, never as a silent overwrite.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	AddRole(ctx context.Context, userID, role string) error
	ClearRoles(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID string) error
}

// RoleRepository manages the role catalog.
type RoleRepository interface {
	// Ensure creates the named role if it does not exist yet.
	Ensure(ctx context.Context, name string) error
}
