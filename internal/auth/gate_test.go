package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sessionauth/internal/model"
)

func TestRequireRole(t *testing.T) {
	admin := &model.User{ID: 1, Roles: []string{model.RoleAdmin, model.RoleMember}}
	member := &model.User{ID: 2, Roles: []string{model.RoleMember}}

	p, err := RequireRole(admin, model.RoleAdmin)
	require.NoError(t, err)
	assert.Same(t, admin, p)

	p, err = RequireRole(member, model.RoleAdmin)
	assert.Nil(t, p)
	require.True(t, model.IsAuthKind(err, model.Forbidden))
	var ae *model.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 403, ae.Status())
	assert.Equal(t, model.CodeForbidden, ae.Code())

	_, err = RequireRole(nil, model.RoleAdmin)
	assert.True(t, model.IsAuthKind(err, model.NoCredentials))
}

func TestRequireAnyRole(t *testing.T) {
	member := &model.User{ID: 2, Roles: []string{model.RoleMember}}

	p, err := RequireAnyRole(member, model.RoleAdmin, model.RoleMember)
	require.NoError(t, err)
	assert.Same(t, member, p)

	_, err = RequireAnyRole(member, "auditor", model.RoleAdmin)
	assert.True(t, model.IsAuthKind(err, model.Forbidden))

	_, err = RequireAnyRole(member)
	assert.True(t, model.IsAuthKind(err, model.Forbidden), "an empty role set admits nobody")
}
