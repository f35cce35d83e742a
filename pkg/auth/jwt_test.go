package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/tagcatalog/config"
	"github.com/shashiranjanraj/tagcatalog/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")

	tok, exp, err := auth.GenerateToken(7, auth.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(config.JWTTTL()), exp, 5*time.Second)

	claims, err := auth.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	config.Set("JWT_SECRET", "one")
	tok, _, err := auth.GenerateToken(1, auth.RoleAdmin)
	require.NoError(t, err)

	config.Set("JWT_SECRET", "two")
	_, err = auth.ValidateToken(tok)
	assert.Error(t, err)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	config.Set("JWT_SECRET", "test-secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, auth.Claims{UserID: 1, Role: auth.RoleAdmin}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = auth.ValidateToken(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "hunter22"))
	assert.False(t, auth.CheckPassword(hash, "hunter23"))
}

func TestClaimsContext(t *testing.T) {
	assert.Nil(t, auth.FromCtx(context.Background()))

	ctx := auth.WithClaims(context.Background(), &auth.Claims{UserID: 3})
	require.NotNil(t, auth.FromCtx(ctx))
	assert.Equal(t, uint(3), auth.FromCtx(ctx).UserID)
}
