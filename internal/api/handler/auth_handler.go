package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskflow/tms/internal/api/middleware"
	"github.com/taskflow/tms/internal/core/ports"
)

// AuthHandler issues access tokens.
type AuthHandler struct {
	authService  ports.AuthService
	ttl          time.Duration
	secureCookie bool
}

// NewAuthHandler creates an AuthHandler. ttl is the token lifetime and sets
// the cookie max-age.
func NewAuthHandler(authService ports.AuthService, ttl time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, ttl: ttl, secureCookie: secureCookie}
}

// Token authenticates the caller and returns an access token for the
// requested role. The token is also set as an HttpOnly cookie.
//
// @Summary      Issue an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      tokenRequest   true  "Credentials and requested role"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:         req.Email,
		Password:      req.Password,
		RequestedRole: req.Role,
	})
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    result.AccessToken,
		Path:     "/",
		MaxAge:   int(h.ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: result.AccessToken})
}
