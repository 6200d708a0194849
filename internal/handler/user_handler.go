package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"authservice/internal/model"
	"authservice/internal/service"
)

// UserHandler bundles the account endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateMeRequest carries the mutable profile fields.
type UpdateMeRequest struct {
	Name string `json:"name" validate:"max=255"`
}

// GetMe godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) GetMe(c echo.Context, user *model.User) error {
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateMe godoc
// @Summary Rename the current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateMeRequest true "New name"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context, user *model.User) error {
	var req UpdateMeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.svc.UpdateName(c.Request().Context(), user.ID, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUserResponse(updated))
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context, _ *model.User) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
