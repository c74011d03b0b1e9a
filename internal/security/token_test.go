package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"foundation_backend/internal/security"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := security.NewTokenService("test-secret", time.Hour)

	token, err := svc.CreateForUser(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Parse(token)
	require.NoError(t, err)

	id, err := security.Subject(claims)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenWrongSecret(t *testing.T) {
	svc := security.NewTokenService("test-secret", time.Hour)
	other := security.NewTokenService("other-secret", time.Hour)

	token, err := svc.CreateForUser(42)
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	svc := security.NewTokenService("test-secret", -time.Minute)

	token, err := svc.CreateForUser(42)
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	hasher := security.NewPasswordHasher(4)

	hashed, err := hasher.Hash("Password1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password1!", hashed)

	assert.NoError(t, hasher.Verify("Password1!", hashed))
	assert.Error(t, hasher.Verify("wrong", hashed))
}

func TestPasswordHasherCostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, security.NewPasswordHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, security.NewPasswordHasher(99).Cost())
	assert.Equal(t, bcrypt.MinCost, security.NewPasswordHasher(bcrypt.MinCost).Cost())
}
