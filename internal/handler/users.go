package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sessionauth/internal/model"
)

// UserStore is the user persistence used by the HTTP surface.  Writes
// return after cached copies of the user were evicted.
type UserStore interface {
	Create(ctx context.Context, username, password string, roles []string, cost int) (model.User, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	SetRoles(ctx context.Context, id uint64, roles []string) error
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves the admin user endpoints.
type UserHandler struct {
	Users UserStore
}

func NewUserHandler(users UserStore) *UserHandler { return &UserHandler{Users: users} }

type statusReq struct {
	IsActive *bool `json:"is_active"`
}

type rolesReq struct {
	Roles []string `json:"roles"`
}

// SetStatus: PATCH /users/:id/status.
func (h *UserHandler) SetStatus(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req statusReq
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return badRequest("is_active is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, *req.IsActive); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetRoles: PUT /users/:id/roles.
func (h *UserHandler) SetRoles(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req rolesReq
	if err := c.Bind(&req); err != nil || req.Roles == nil {
		return badRequest("roles is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Users.SetRoles(ctx, id, req.Roles); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete: DELETE /users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := userID(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func userID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid user id")
	}
	return id, nil
}
