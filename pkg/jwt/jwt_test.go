package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestGenerateAndValidate(t *testing.T) {
	util := NewJWTUtil(testSecret, time.Hour)

	token, err := util.GenerateToken("64b7f0c2e4b0a1a2b3c4d5e6", "alice", "admin")
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2e4b0a1a2b3c4d5e6", claims.UserID)
	assert.Equal(t, "64b7f0c2e4b0a1a2b3c4d5e6", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateToken_Rejects(t *testing.T) {
	util := NewJWTUtil(testSecret, time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTUtil("another-secret-value-xx", time.Hour)
		token, err := other.GenerateToken("id", "bob", "viewer")
		require.NoError(t, err)

		_, err = util.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := &Claims{
			UserID: "id",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
				Issuer:    issuer,
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = util.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "id"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = util.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := util.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestNewJWTUtil_DefaultExpiry(t *testing.T) {
	assert.Equal(t, 24*time.Hour, NewJWTUtil(testSecret, 0).Expiry())
}
