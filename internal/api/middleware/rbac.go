package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/taskflow/tms/internal/core/authz"
)

// Authorizer applies the route-level policy.
type Authorizer interface {
	Authorize(p *authz.Principal, action authz.Action) error
}

// RBAC enforces the coarse policy for action before the handler runs. It must
// be mounted after Authenticate; a missing principal is anonymous.
func RBAC(engine Authorizer, action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(PrincipalKey).(*authz.Principal)
			if err := engine.Authorize(p, action); err != nil {
				return err
			}
			return next(c)
		}
	}
}
