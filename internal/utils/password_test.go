package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))
	assert.False(t, VerifyPassword("not-a-hash", "correct horse"))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordLength+1), bcrypt.MinCost)
	require.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = HashPassword(strings.Repeat("a", MaxPasswordLength), bcrypt.MinCost)
	require.NoError(t, err)
}

func TestBurnPasswordCheck_UsesConfiguredCost(t *testing.T) {
	BurnPasswordCheck("anything", bcrypt.MinCost)
	BurnPasswordCheck("", 0)

	cost, err := bcrypt.Cost(dummyHash(bcrypt.MinCost + 1))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}
