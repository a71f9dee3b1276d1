package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{
		StandardClaims: gojwt.StandardClaims{Subject: "user-123"},
		Email:          "user@example.com",
		Nickname:       "tester",
	}

	token, err := GenerateToken(payload, testSecret, UserIdentityExpiration)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", parsed.UserID())
	assert.Equal(t, "user@example.com", parsed.Email)
	assert.Equal(t, "tester", parsed.Nickname)
	assert.Equal(t, TokenIssuer, parsed.Issuer)
}

func TestParseTokenWrongSecret(t *testing.T) {
	payload := &Payload{StandardClaims: gojwt.StandardClaims{Subject: "user-123"}}

	token, err := GenerateToken(payload, testSecret, UserIdentityExpiration)
	require.NoError(t, err)

	_, err = ParseToken(token, "a-different-secret")
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	payload := &Payload{StandardClaims: gojwt.StandardClaims{Subject: "user-123"}}

	token, err := GenerateToken(payload, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseTokenMissingSubject(t *testing.T) {
	token, err := GenerateToken(&Payload{}, testSecret, UserIdentityExpiration)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseTokenRejectsNonHMAC(t *testing.T) {
	// An unsigned token must never pass, even with an attacker-controlled alg.
	unsigned := gojwt.NewWithClaims(gojwt.SigningMethodNone, &Payload{
		StandardClaims: gojwt.StandardClaims{Subject: "user-123"},
	})
	token, err := unsigned.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	assert.Error(t, err)

	_, err = ParseToken("", testSecret)
	assert.Error(t, err)
}
