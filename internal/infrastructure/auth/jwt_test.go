package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Asha",
		Role:  "salesman",
		HubID: "hub-7",
	}

	a, err := svc.ValidateToken(signToken(t, "test-secret", claims))
	require.NoError(t, err)
	assert.Equal(t, "user-1", a.ID)
	assert.Equal(t, "Asha", a.Name)
	assert.Equal(t, "salesman", a.Role)
	assert.Equal(t, "hub-7", a.HubID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	_, err := svc.ValidateToken(signToken(t, "other-secret", claims))
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}

	_, err := svc.ValidateToken(signToken(t, "test-secret", claims))
	assert.Error(t, err)
}

func TestValidateToken_MissingSubject(t *testing.T) {
	svc := NewJWTService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	_, err := svc.ValidateToken(signToken(t, "test-secret", claims))
	assert.Error(t, err)
}
