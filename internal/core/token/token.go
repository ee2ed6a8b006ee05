// Package token issues and verifies the signed access tokens that carry a
// caller's identity and role between requests.
//
// Tokens are HS512 JWTs with issuer, subject (the login identifier), a "role"
// claim and an expiry. The Service is stateless after construction and safe
// for concurrent use.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taskflow/tms/internal/core/domain"
)

// DefaultIssuer is stamped into every token and required on verification.
const DefaultIssuer = "tms"

// MinSecretLength is the shortest accepted signing secret, in bytes.
const MinSecretLength = 32

var (
	ErrMissingSecret = errors.New("token: signing secret is not configured")
	ErrWeakSecret    = fmt.Errorf("token: signing secret must be at least %d bytes", MinSecretLength)
	ErrInvalidTTL    = errors.New("token: ttl must be positive")

	// ErrUnknownRole is returned when a correctly signed token carries a role
	// outside the known set.
	ErrUnknownRole = errors.New("token: unknown role claim")
	ErrNoSubject   = errors.New("token: missing subject")
)

var signingMethod = jwt.SigningMethodHS512

// Config holds the settings a Service is built from.
type Config struct {
	Secret string
	Issuer string // defaults to DefaultIssuer
	TTL    time.Duration
}

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies access tokens.
type Service struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewService validates cfg and returns a ready Service. A missing or short
// secret is reported here so the process fails at startup.
func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if len(cfg.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTTL
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Service{
		secret: []byte(cfg.Secret),
		issuer: issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime given to issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for subject holding role.
func (s *Service) Issue(subject string, role domain.Role) (string, error) {
	if subject == "" {
		return "", ErrNoSubject
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	now := s.now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its claims. Verification covers the
// signature, the algorithm, the issuer, the expiry and the role claim.
func (s *Service) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, s.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	if !domain.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, claims.Role)
	}
	return claims, nil
}

// Validate reports whether raw is a token this Service would accept. It never
// panics and never returns an error, so an invalid token can be treated as
// "no credential".
func (s *Service) Validate(raw string) bool {
	_, err := s.Parse(raw)
	return err == nil
}

// SubjectOf returns the subject of a token. Callers must Validate first; an
// invalid token yields an error.
func (s *Service) SubjectOf(raw string) (string, error) {
	claims, err := s.Parse(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RoleOf returns the role of a token. Callers must Validate first; an invalid
// token yields an error.
func (s *Service) RoleOf(raw string) (domain.Role, error) {
	claims, err := s.Parse(raw)
	if err != nil {
		return "", err
	}
	return domain.Role(claims.Role), nil
}

// FailureReason classifies a Parse error into a short label for metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrUnknownRole):
		return "role"
	default:
		return "invalid"
	}
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return s.secret, nil
}
