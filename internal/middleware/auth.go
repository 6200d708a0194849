// Package middleware holds the echo middleware guarding protected and
// throttled routes.
package middleware

import (
	"context"
	"errors"
	"fmt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"authservice/internal/auth"
	apperrors "authservice/internal/errors"
	"authservice/internal/model"
	"authservice/internal/service"
)

const userContextKey = "user"

// UserHandlerFunc is a handler that runs with the caller's resolved account.
type UserHandlerFunc func(c echo.Context, user *model.User) error

// Gate resolves bearer tokens to live accounts and enforces roles.
type Gate struct {
	jwtService *auth.JWTService
	users      service.UserService
	bearer     echo.MiddlewareFunc
}

// NewGate creates a Gate that verifies access tokens with jwtService and
// loads their subjects through users.
func NewGate(jwtService *auth.JWTService, users service.UserService) *Gate {
	g := &Gate{jwtService: jwtService, users: users}
	g.bearer = echojwt.WithConfig(echojwt.Config{
		ContextKey:  userContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return g.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: gateError,
	})
	return g
}

// Authenticate verifies an access token and returns the account it names.
// A valid token whose account no longer exists is rejected.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := g.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, apperrors.ErrInvalidAccessToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, apperrors.ErrInvalidAccessToken
	}

	user, err := g.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserGone
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

// Protected wraps h so it only runs for an authenticated caller, who is
// passed to it explicitly.
func (g *Gate) Protected(h UserHandlerFunc) echo.HandlerFunc {
	return g.bearer(func(c echo.Context) error {
		user, ok := c.Get(userContextKey).(*model.User)
		if !ok {
			return apperrors.ErrInvalidAccessToken
		}
		return h(c, user)
	})
}

// RequireRole is Protected plus an exact role match.
func (g *Gate) RequireRole(role model.Role, h UserHandlerFunc) echo.HandlerFunc {
	return g.Protected(func(c echo.Context, user *model.User) error {
		if user.Role != role {
			return apperrors.ErrForbidden
		}
		return h(c, user)
	})
}

// gateError maps echo-jwt failures onto the client-facing taxonomy.
func gateError(c echo.Context, err error) error {
	if errors.Is(err, echojwt.ErrJWTMissing) {
		return apperrors.ErrNotLoggedIn
	}

	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var parseErr *echojwt.TokenParsingError
	if errors.As(err, &parseErr) && parseErr.Err != nil {
		return parseErr.Err
	}
	return apperrors.ErrInvalidAccessToken
}
