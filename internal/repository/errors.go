// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.
package repository

import (
	"errors"

	"github.com/iliyamo/sessionauth/internal/model"
)

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = model.ErrNotFound

// ErrUsernameExists is returned when a username is already taken.
// Handlers should translate this into an HTTP 409 response.
var ErrUsernameExists = errors.New("username already exists")
