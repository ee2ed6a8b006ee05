package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/tms/internal/core/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef-test"

func newTestService(t *testing.T, issuer string, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(Config{Secret: testSecret, Issuer: issuer, TTL: time.Hour})
	require.NoError(t, err)
	svc.now = func() time.Time { return now }
	return svc
}

func TestNewService_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"missing secret", Config{TTL: time.Hour}, ErrMissingSecret},
		{"short secret", Config{Secret: "short", TTL: time.Hour}, ErrWeakSecret},
		{"zero ttl", Config{Secret: testSecret}, ErrInvalidTTL},
		{"negative ttl", Config{Secret: testSecret, TTL: -time.Second}, ErrInvalidTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg)
			assert.Nil(t, svc)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssueValidate_WithinAndAfterTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, "", now)

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleUser} {
		raw, err := svc.Issue("alice@x.com", role)
		require.NoError(t, err)
		assert.True(t, svc.Validate(raw), "fresh %s token should validate", role)

		svc.now = func() time.Time { return now.Add(time.Hour + time.Second) }
		assert.False(t, svc.Validate(raw), "%s token should expire after ttl", role)
		svc.now = func() time.Time { return now }
	}
}

func TestIssue_ClaimsRoundTrip(t *testing.T) {
	svc := newTestService(t, "", time.Now())

	for _, subject := range []string{"alice@x.com", "bob", "x"} {
		raw, err := svc.Issue(subject, domain.RoleAdmin)
		require.NoError(t, err)

		role, err := svc.RoleOf(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, role)

		sub, err := svc.SubjectOf(raw)
		require.NoError(t, err)
		assert.Equal(t, subject, sub)
	}

	claims, err := svc.Parse(mustIssue(t, svc, "carol@x.com", domain.RoleUser))
	require.NoError(t, err)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.Equal(t, "USER", claims.Role)
}

func TestIssue_RejectsUnknownRoleAndEmptySubject(t *testing.T) {
	svc := newTestService(t, "", time.Now())

	_, err := svc.Issue("alice@x.com", domain.Role("admin"))
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = svc.Issue("", domain.RoleUser)
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestValidate_TamperedToken(t *testing.T) {
	svc := newTestService(t, "", time.Now())
	raw := mustIssue(t, svc, "alice@x.com", domain.RoleUser)

	for i := 0; i < len(raw); i++ {
		replacement := byte('A')
		if raw[i] == 'A' {
			replacement = 'B'
		}
		tampered := raw[:i] + string(replacement) + raw[i+1:]
		assert.False(t, svc.Validate(tampered), "tampered byte %d should invalidate token", i)
	}
}

func TestValidate_WrongIssuer(t *testing.T) {
	now := time.Now()
	issuer := newTestService(t, "tms", now)
	verifier := newTestService(t, "other", now)

	raw := mustIssue(t, issuer, "alice@x.com", domain.RoleUser)
	assert.True(t, issuer.Validate(raw))
	assert.False(t, verifier.Validate(raw))
}

func TestValidate_UnknownRoleFailsClosed(t *testing.T) {
	svc := newTestService(t, "", time.Now())

	for _, role := range []string{"admin", "Admin", "ROLE_ADMIN", "SUPERUSER", ""} {
		raw := signClaims(t, jwt.SigningMethodHS512, Claims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    DefaultIssuer,
				Subject:   "mallory@x.com",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		assert.False(t, svc.Validate(raw), "role %q must not validate", role)

		_, err := svc.Parse(raw)
		assert.Equal(t, "role", FailureReason(err))
	}
}

func TestValidate_RejectsOtherAlgorithmsAndGarbage(t *testing.T) {
	svc := newTestService(t, "", time.Now())
	claims := Claims{
		Role: "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "alice@x.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	assert.False(t, svc.Validate(signClaims(t, jwt.SigningMethodHS256, claims)), "HS256 must be rejected")

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, svc.Validate(none), "alg none must be rejected")

	for _, raw := range []string{"", "abc", "a.b.c", strings.Repeat(".", 5)} {
		assert.False(t, svc.Validate(raw), "garbage %q must be rejected", raw)
	}
}

func TestValidate_MissingExpiryRejected(t *testing.T) {
	svc := newTestService(t, "", time.Now())
	raw := signClaims(t, jwt.SigningMethodHS512, Claims{
		Role:             "USER",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: DefaultIssuer, Subject: "alice@x.com"},
	})
	assert.False(t, svc.Validate(raw))
}

func TestFailureReason(t *testing.T) {
	now := time.Now()
	svc := newTestService(t, "", now)
	raw := mustIssue(t, svc, "alice@x.com", domain.RoleUser)

	svc.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err := svc.Parse(raw)
	assert.Equal(t, "expired", FailureReason(err))

	svc.now = func() time.Time { return now }
	_, err = svc.Parse("not-a-token")
	assert.Equal(t, "malformed", FailureReason(err))

	_, err = newTestService(t, "other", now).Parse(raw)
	assert.Equal(t, "issuer", FailureReason(err))

	assert.Equal(t, "", FailureReason(nil))
}

func mustIssue(t *testing.T, svc *Service, subject string, role domain.Role) string {
	t.Helper()
	raw, err := svc.Issue(subject, role)
	require.NoError(t, err)
	return raw
}

func signClaims(t *testing.T, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}
