package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour, "qnet-scheduler")

	token, err := svc.GenerateToken("operator-1", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "operator-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := NewService("secret-a", time.Hour, "qnet-scheduler")
	other := NewService("secret-b", time.Hour, "qnet-scheduler")

	token, err := svc.GenerateToken("operator-1", "viewer")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewService("test-secret", time.Millisecond, "qnet-scheduler")

	token, err := svc.GenerateToken("operator-1", "viewer")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour, "")
	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	minter := NewService("test-secret", time.Hour, "someone-else")
	validator := NewService("test-secret", time.Hour, "qnet-scheduler")

	token, err := minter.GenerateToken("operator-1", "viewer")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
