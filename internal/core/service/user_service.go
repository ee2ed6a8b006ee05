package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

const minPasswordLength = 8

var _ ports.UserService = (*UserService)(nil)

// UserService implements registration and account administration.
type UserService struct {
	users  ports.UserRepository
	engine *authz.Engine
	log    zerolog.Logger
}

func NewUserService(users ports.UserRepository, engine *authz.Engine, log zerolog.Logger) *UserService {
	return &UserService{users: users, engine: engine, log: log}
}

// Register creates a USER account. Email and username must be unused.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" {
		return nil, fmt.Errorf("%w: email and username are required", domain.ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	if err := s.ensureFree(ctx, email, username); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Uint64("user_id", user.ID).Str("username", username).Msg("user registered")
	return user, nil
}

func (s *UserService) ensureFree(ctx context.Context, email, username string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("register: %w", err)
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

func (s *UserService) List(ctx context.Context, p *authz.Principal) ([]*domain.User, error) {
	if err := s.engine.RequireAdmin(p, authz.ActionListUsers); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error) {
	if err := s.engine.RequireAdmin(p, authz.ActionGetUser); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

// GrantAdmin promotes a user to ADMIN.
func (s *UserService) GrantAdmin(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error) {
	return s.setRole(ctx, p, id, domain.RoleAdmin)
}

// RevokeAdmin demotes a user to USER.
func (s *UserService) RevokeAdmin(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error) {
	return s.setRole(ctx, p, id, domain.RoleUser)
}

func (s *UserService) setRole(ctx context.Context, p *authz.Principal, id uint64, role domain.Role) (*domain.User, error) {
	if err := s.engine.RequireAdmin(p, authz.ActionManageRoles); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	user.Role = role

	s.log.Info().
		Uint64("user_id", id).
		Str("role", string(role)).
		Str("by", p.Subject).
		Msg("user role changed")
	return user, nil
}

// ChangePassword replaces the caller's own password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, p *authz.Principal, in ports.ChangePasswordInput) error {
	id, err := s.engine.ResolveUserID(ctx, p)
	if err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	if len(in.NewPassword) < minPasswordLength {
		return domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, string(hash)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.log.Info().Uint64("user_id", id).Msg("password changed")
	return nil
}
