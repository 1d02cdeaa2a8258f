package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := GenerateAccessToken(42, "0712345678", "TREASURER", "secret", 15)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.MemberID)
	assert.Equal(t, "0712345678", claims.Phone)
	assert.Equal(t, "TREASURER", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	tok, err := GenerateAccessToken(1, "07", "MEMBER", "secret", 15)
	require.NoError(t, err)

	_, err = ValidateAccessToken(tok, "other")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessToken_Expired(t *testing.T) {
	tok, err := GenerateAccessToken(1, "07", "MEMBER", "secret", -1)
	require.NoError(t, err)

	_, err = ValidateAccessToken(tok, "secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	tok, err := GenerateRefreshToken(7, "abc-123", "refresh", 7)
	require.NoError(t, err)

	claims, err := ValidateRefreshToken(tok, "refresh")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.MemberID)
	assert.Equal(t, "abc-123", claims.TokenID)

	_, err = ValidateRefreshToken("garbage", "refresh")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
