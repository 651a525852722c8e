package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/identikit/identity-api/internal/core/domain"
	"github.com/identikit/identity-api/internal/core/ports"
)

// IdentityService implements registration, login, and account management
// on top of the user/role repositories.
type IdentityService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	issuer ports.TokenIssuer
}

func NewIdentityService(users ports.UserRepository, roles ports.RoleRepository, issuer ports.TokenIssuer) *IdentityService {
	return &IdentityService{users: users, roles: roles, issuer: issuer}
}

// Register creates a user and assigns the requested role, creating the role
// first if it does not exist. Email uniqueness is enforced solely by the
// store's unique index: a duplicate surfaces as domain.ErrUserExists from
// Create, with no lookup beforehand, so two racing registrations cannot
// both succeed. A role created here is not rolled back if assignment fails.
func (s *IdentityService) Register(ctx context.Context, email, password, fullName, role string) (*domain.User, error) {
	if email == "" || password == "" || fullName == "" || role == "" {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.roles.Ensure(ctx, role); err != nil {
		return nil, err
	}
	if err := s.users.AddRole(ctx, created.ID, role); err != nil {
		return nil, err
	}

	created.Roles = append(created.Roles, role)
	return created, nil
}

// Login verifies credentials and returns a signed token. An unknown email
// and a wrong password both collapse into domain.ErrInvalidCredentials so
// responses cannot be used to enumerate accounts.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	return s.issuer.Issue(user, user.Roles)
}

// Profile resolves the authenticated principal to its stored account.
func (s *IdentityService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *IdentityService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Delete removes a user's role associations and then the user record.
func (s *IdentityService) Delete(ctx context.Context, userID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}
	if err := s.users.ClearRoles(ctx, userID); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID)
}
