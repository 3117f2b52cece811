package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("ADMIN").Valid())
	assert.False(t, Role("").Valid())
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{"admin", "user", "admin"})
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleUser}, roles)

	_, err = ParseRoles(nil)
	assert.Error(t, err)

	_, err = ParseRoles([]string{"user", "root"})
	assert.ErrorContains(t, err, `"root"`)
}

func TestAccount_HasRole(t *testing.T) {
	a := &Account{Roles: DefaultRoles()}
	assert.True(t, a.HasRole(RoleUser))
	assert.False(t, a.HasRole(RoleAdmin))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.com "))
}

func TestAccount_JSONHidesPasswordHash(t *testing.T) {
	b, err := json.Marshal(Account{ID: "u1", Email: "a@b.com", PasswordHash: "$2a$..."})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "$2a$")
	assert.NotContains(t, string(b), "password")
}
