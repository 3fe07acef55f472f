package auth

import (
	"testing"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/stretchr/testify/assert"
)

func TestCheckCredentials(t *testing.T) {
	ok, err := CheckCredentials("alice", "alice@example.com", "Passw0rd1")
	assert.True(t, ok)
	assert.NoError(t, err)

	_, err = CheckCredentials("a", "alice@example.com", "Passw0rd1")
	assert.Error(t, err)

	_, err = CheckCredentials("alice", "not-an-email", "Passw0rd1")
	assert.Error(t, err)

	_, err = CheckCredentials("alice", "alice@example.com", "short")
	assert.Error(t, err)

	_, err = CheckCredentials("alice", "alice@example.com", "lettersonly")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	jwtSigningKey = "test-signing-key"

	token, err := CreateAuthToken("user-123")
	assert.NoError(t, err)

	claims, err := DecodeToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["id"])

	exp, ok := claims["exp"].(float64)
	assert.True(t, ok)
	assert.Greater(t, int64(exp), time.Now().Unix())
}

func TestDecodeTokenRejectsWrongKey(t *testing.T) {
	jwtSigningKey = "test-signing-key"
	token, err := CreateAuthToken("user-123")
	assert.NoError(t, err)

	jwtSigningKey = "another-key"
	_, err = DecodeToken(token)
	assert.Error(t, err)
}

func TestDecodeTokenRejectsWrongAlgorithm(t *testing.T) {
	jwtSigningKey = "test-signing-key"

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": "user-123"})
	tokenStr, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	assert.NoError(t, err)

	_, err = DecodeToken(tokenStr)
	assert.Error(t, err)
}
