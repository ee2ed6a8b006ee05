package middleware

import (
	"fmt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/taskflow/tms/internal/api/metrics"
	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/token"
)

const (
	// CookieName is the cookie the access token is issued in and read from.
	CookieName = "accessToken"

	// PrincipalKey is the echo context key holding the *authz.Principal.
	PrincipalKey = "principal"

	claimsKey   = "claims"
	tokenLookup = "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + CookieName
)

// TokenParser verifies a raw token and returns its claims.
type TokenParser interface {
	Parse(raw string) (*token.Claims, error)
}

// Authenticate verifies the access token carried in the Authorization header
// or the accessToken cookie and attaches the caller's Principal to both the
// echo context and the request context. Requests without a valid token are
// rejected with domain.ErrUnauthenticated.
func Authenticate(tokens TokenParser) echo.MiddlewareFunc {
	extract := echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: tokenLookup,
		ParseTokenFunc: func(_ echo.Context, raw string) (any, error) {
			claims, err := tokens.Parse(raw)
			if err != nil {
				metrics.TokenValidationFailuresTotal.WithLabelValues(token.FailureReason(err)).Inc()
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return extract(attachPrincipal(next))
	}
}

func attachPrincipal(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get(claimsKey).(*token.Claims)
		if !ok || claims.Subject == "" {
			return domain.ErrUnauthenticated
		}

		p := authz.NewPrincipal(claims.Subject, domain.Role(claims.Role))
		c.Set(PrincipalKey, p)
		c.SetRequest(c.Request().WithContext(authz.WithPrincipal(c.Request().Context(), p)))

		return next(c)
	}
}
