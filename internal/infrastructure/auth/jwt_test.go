package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := NewVerifier("s3cret", "chatsync")
	require.NoError(t, err)

	tok, err := v.Issue(Identity{UserID: "u-1", Username: "alice"}, time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-1", Username: "alice"}, id)
}

func TestVerifier_Rejects(t *testing.T) {
	v, err := NewVerifier("s3cret", "chatsync")
	require.NoError(t, err)
	other, err := NewVerifier("other", "chatsync")
	require.NoError(t, err)
	foreignIssuer, err := NewVerifier("s3cret", "someone-else")
	require.NoError(t, err)

	expired, err := v.Issue(Identity{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := other.Issue(Identity{UserID: "u-1"}, time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := foreignIssuer.Issue(Identity{UserID: "u-1"}, time.Minute)
	require.NoError(t, err)
	noSubject, err := v.Issue(Identity{}, time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1", "iss": "chatsync"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u-1", "iss": "chatsync", "exp": time.Now().Add(time.Minute).Unix()}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not.a.token",
		"expired":      expired,
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"hs512":        hs512,
	} {
		_, err := v.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.Error(t, err)
}
