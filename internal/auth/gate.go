package auth

import (
	"fmt"
	"strings"

	"github.com/iliyamo/sessionauth/internal/model"
)

// RequireRole returns p when it holds role.
func RequireRole(p *model.User, role string) (*model.User, error) {
	return RequireAnyRole(p, role)
}

// RequireAnyRole returns p when it holds at least one of roles.
func RequireAnyRole(p *model.User, roles ...string) (*model.User, error) {
	if p == nil {
		return nil, model.NewAuthError(model.NoCredentials, nil)
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return p, nil
		}
	}
	return nil, model.NewAuthError(model.Forbidden,
		fmt.Errorf("user %d lacks any of [%s]", p.ID, strings.Join(roles, ",")))
}
