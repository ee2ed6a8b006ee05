package ports

import (
	"context"

	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
)

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput carries credentials and the role the caller wants in the token.
// An empty RequestedRole means the user's stored role.
type LoginInput struct {
	Email         string
	Password      string
	RequestedRole string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string
	Role        domain.Role
	User        *domain.User
}

// AuthService authenticates callers and issues access tokens.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
}

// ChangePasswordInput carries a password change for the calling user.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// UserService manages user accounts.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	List(ctx context.Context, p *authz.Principal) ([]*domain.User, error)
	Get(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error)
	GrantAdmin(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error)
	RevokeAdmin(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error)
	ChangePassword(ctx context.Context, p *authz.Principal, in ChangePasswordInput) error
}
