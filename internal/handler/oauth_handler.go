package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authservice/internal/auth"
	"authservice/internal/service"
)

// OAuthHandler starts and completes identity-provider sign-in.
type OAuthHandler struct {
	authService service.AuthService
	providers   *auth.Providers
}

// NewOAuthHandler creates a new provider sign-in handler.
func NewOAuthHandler(authService service.AuthService, providers *auth.Providers) *OAuthHandler {
	return &OAuthHandler{authService: authService, providers: providers}
}

// Begin godoc
// @Summary Redirect to an identity provider
// @Tags oauth
// @Param provider path string true "google or github"
// @Success 302
// @Failure 404 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Router /auth/{provider} [get]
func (h *OAuthHandler) Begin(c echo.Context) error {
	provider, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, provider.AuthURL())
}

// Callback godoc
// @Summary Complete identity provider sign-in
// @Description Accepts the already-resolved profile as query parameters.
// @Tags oauth
// @Produce json
// @Param provider path string true "google or github"
// @Param id query string false "provider subject id (google also accepts sub, github also accepts login)"
// @Param email query string false "email"
// @Param name query string false "display name"
// @Param code query string false "authorization code (exchange unsupported)"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Failure 501 {object} errors.ErrorResponse
// @Router /auth/{provider}/callback [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	provider, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		return err
	}

	profile, err := provider.Profile(c.QueryParams())
	if err != nil {
		return err
	}

	pair, err := h.authService.ProviderCallback(c.Request().Context(), profile)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}
