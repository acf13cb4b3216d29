package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-bi/meridian/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   UserRepository
	tokens *TokenStore
}

// UserRepository defines data access needed by the service.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u User) (int64, error)
	ListByCompany(ctx context.Context, companyID int64) ([]User, error)
}

// NewService constructs a new Service.
func NewService(repo UserRepository, tokens *TokenStore) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Authenticate validates email/password credentials and issues a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(ctx, shared.Identity{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Email:     user.Email,
		Role:      user.Role,
	})
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// CurrentUser loads the full user record for an identity.
func (s *Service) CurrentUser(ctx context.Context, id *shared.Identity) (*User, error) {
	if id == nil {
		return nil, shared.ErrNotFound
	}
	return s.repo.FindByID(ctx, id.UserID)
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
