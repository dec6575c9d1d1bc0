package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sessionauth/internal/model"
	"github.com/iliyamo/sessionauth/internal/repository"
	"github.com/iliyamo/sessionauth/internal/utils"
)

// ErrorBody is the JSON shape of every error response.  Clients branch on
// ErrorCode only.
type ErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// ErrorHandler renders errors returned by handlers and middleware.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := describe(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "status", status, "error", err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Error("write error response", "error", werr)
		}
	}
}

func describe(err error) (int, ErrorBody) {
	var ae *model.AuthError
	if errors.As(err, &ae) {
		return ae.Status(), ErrorBody{ErrorCode: ae.Code(), Message: ae.Message()}
	}

	switch {
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrorBody{model.CodeServiceUnavailable, "service temporarily unavailable"}
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorBody{model.CodeNotFound, "user not found"}
	case errors.Is(err, repository.ErrUsernameExists):
		return http.StatusConflict, ErrorBody{model.CodeConflict, "username already exists"}
	case errors.Is(err, utils.ErrPasswordTooShort):
		return http.StatusBadRequest, ErrorBody{model.CodeBadRequest,
			fmt.Sprintf("password must be at least %d characters", utils.MinPasswordLength)}
	case errors.Is(err, utils.ErrPasswordTooLong):
		return http.StatusBadRequest, ErrorBody{model.CodeBadRequest,
			fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordLength)}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, ErrorBody{ErrorCode: statusCode(he.Code), Message: msg}
	}
	return http.StatusInternalServerError, ErrorBody{model.CodeInternal, "internal server error"}
}

// statusCode derives an error code from an HTTP status, e.g. 405 becomes
// METHOD_NOT_ALLOWED.
func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return model.CodeBadRequest
	case http.StatusNotFound:
		return model.CodeNotFound
	}
	text := http.StatusText(status)
	if text == "" {
		return model.CodeInternal
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
