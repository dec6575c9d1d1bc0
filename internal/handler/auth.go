package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sessionauth/internal/middleware"
	"github.com/iliyamo/sessionauth/internal/model"
	"github.com/iliyamo/sessionauth/internal/token"
)

const requestTimeout = 5 * time.Second

// TokenService is the token lifecycle used by the auth endpoints.
type TokenService interface {
	Authenticate(ctx context.Context, username, password string) (model.User, error)
	Login(ctx context.Context, subject string, opts ...token.IssueOption) (model.TokenPair, error)
	Refresh(ctx context.Context, raw string) (model.RefreshResult, error)
	Logout(ctx context.Context, subject string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Tokens     TokenService
	Users      UserStore
	BcryptCost int
}

func NewAuthHandler(tokens TokenService, users UserStore, bcryptCost int) *AuthHandler {
	return &AuthHandler{Tokens: tokens, Users: users, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *credentialsReq) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return badRequest("username and password are required")
	}
	if len(r.Username) > 64 {
		return badRequest("username is too long")
	}
	return nil
}

// Token: exchange username and password for a token pair.
func (h *AuthHandler) Token(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Tokens.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	pair, err := h.Tokens.Login(ctx, subjectOf(&u), token.WithClaims(map[string]any{"username": u.Username}))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh: exchange a refresh token for a new access token.  The token is
// only read from the JSON body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return badRequest("invalid body")
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return model.NewAuthError(model.RefreshInvalid, nil)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Tokens.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Register: create an active member account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Username, req.Password, []string{model.RoleMember}, h.BcryptCost)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

// Logout: revoke every token issued to the caller so far.
func (h *AuthHandler) Logout(c echo.Context) error {
	p := middleware.Principal(c)
	if p == nil {
		return model.NewAuthError(model.NoCredentials, nil)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Tokens.Logout(ctx, subjectOf(p)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me: the authenticated principal.
func (h *AuthHandler) Me(c echo.Context) error {
	p := middleware.Principal(c)
	if p == nil {
		return model.NewAuthError(model.NoCredentials, nil)
	}
	return c.JSON(http.StatusOK, p)
}

func subjectOf(u *model.User) string { return strconv.FormatUint(u.ID, 10) }
