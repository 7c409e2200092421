package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	Init("test-secret", time.Hour)

	token, err := GenerateToken(4, 2, RoleClient, "anna@example.com", 9)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(4), claims.UserID)
	assert.Equal(t, uint(2), claims.TenantID)
	assert.Equal(t, RoleClient, claims.Role)
	assert.Equal(t, uint(9), claims.ClientID)
	assert.False(t, claims.IsAdmin())
}

func TestRejectsForeignSignature(t *testing.T) {
	Init("test-secret", time.Hour)

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1, Role: RoleAdmin})
	signed, err := other.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.Error(t, err)
}

func TestRejectsExpired(t *testing.T) {
	Init("test-secret", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ValidateToken(signed)
	assert.Error(t, err)
}
