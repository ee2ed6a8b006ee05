package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow/tms/internal/api/metrics"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(subject string, role domain.Role) (string, error)
}

var _ ports.AuthService = (*AuthService)(nil)

// AuthService implements login.
type AuthService struct {
	users  ports.UserRepository
	tokens TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(users ports.UserRepository, tokens TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Login verifies the credentials and issues a token for the requested role.
// The requested role must be one the user holds; an ADMIN may ask for a USER
// token. Every credential failure is reported as domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.log.Info().Str("subject", email).Msg("login rejected: bad password")
		return nil, domain.ErrInvalidCredentials
	}

	role := user.Role
	if in.RequestedRole != "" {
		role, err = domain.ParseRole(in.RequestedRole)
		if err != nil {
			return nil, err
		}
		if !user.Role.Grants(role) {
			s.log.Info().Str("subject", email).Str("requested_role", in.RequestedRole).Msg("login rejected: role not held")
			return nil, fmt.Errorf("%w: role %s not held", domain.ErrInvalidCredentials, role)
		}
	}

	token, err := s.tokens.Issue(user.Email, role)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(role)).Inc()
	s.log.Info().Uint64("user_id", user.ID).Str("role", string(role)).Msg("token issued")

	return &ports.LoginResult{AccessToken: token, Role: role, User: user}, nil
}
