package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestJWTVerifier(t *testing.T) {
	v := NewJWTVerifier(testSecret)

	t.Run("valid token", func(t *testing.T) {
		raw := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		userID, err := v.Verify(raw)
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("surrounding whitespace tolerated", func(t *testing.T) {
		raw := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		userID, err := v.Verify("  " + raw + "\n")
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	tests := []struct {
		name string
		raw  func(t *testing.T) string
	}{
		{
			name: "empty token",
			raw:  func(t *testing.T) string { return "" },
		},
		{
			name: "garbage token",
			raw:  func(t *testing.T) string { return "not.a.jwt" },
		},
		{
			name: "wrong secret",
			raw: func(t *testing.T) string {
				return signToken(t, "other-secret", jwt.MapClaims{
					"sub": "user-1",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
		},
		{
			name: "expired",
			raw: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.MapClaims{
					"sub": "user-1",
					"exp": time.Now().Add(-time.Hour).Unix(),
				})
			},
		},
		{
			name: "no expiration claim",
			raw: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.MapClaims{"sub": "user-1"})
			},
		},
		{
			name: "missing subject",
			raw: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.MapClaims{
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
		},
		{
			name: "unsigned algorithm rejected",
			raw: func(t *testing.T) string {
				token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
					"sub": "user-1",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return raw
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.raw(t))
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
