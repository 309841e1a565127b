package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestValidateReturnsSubject(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	tok := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	sub, err := v.Validate(tok)
	require.NoError(t, err)
	require.Equal(t, "42", sub)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	v, err := NewJWTValidator("another-secret")
	require.NoError(t, err)

	tok := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"})

	_, err = v.Validate(tok)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	tok := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	_, err = v.Validate(tok)
	require.Error(t, err)
}

func TestValidateRejectsMissingSubject(t *testing.T) {
	v, err := NewJWTValidator(testSecret)
	require.NoError(t, err)

	tok := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err = v.Validate(tok)
	require.Error(t, err)
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator("")
	require.Error(t, err)
}
