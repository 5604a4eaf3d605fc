package session

import (
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToken(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	tok := signTestToken(t, jwt.MapClaims{
		"email":    "a@example.com",
		"userName": "Alice",
		"nameid":   "7",
		"id":       "legacy-7",
		"roleId":   1,
		"exp":      exp.Unix(),
	})

	c, err := DecodeToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", c.Email)
	assert.Equal(t, "Alice", c.UserName)
	require.NotNil(t, c.RoleID)
	assert.Equal(t, 1, *c.RoleID)
	require.NotNil(t, c.ExpiresAt)
	assert.True(t, exp.Equal(*c.ExpiresAt))

	id, ok := c.UserID()
	assert.True(t, ok)
	assert.Equal(t, "7", id, "nameid wins over the legacy id claim")
}

func TestDecodeToken_LegacyIDFallback(t *testing.T) {
	tok := signTestToken(t, jwt.MapClaims{"id": "99", "exp": time.Now().Add(time.Hour).Unix()})

	c, err := DecodeToken(tok)
	require.NoError(t, err)
	id, ok := c.UserID()
	assert.True(t, ok)
	assert.Equal(t, "99", id)
}

func TestDecodeToken_UnknownAlgorithm(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"http://www.w3.org/2001/04/xmldsig-more#hmac-sha512","typ":"JWT"}`))
	exp := time.Now().Add(time.Hour).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"nameid":"5","email":"b@example.com","exp":%d}`, exp)))
	tok := header + "." + payload + ".c2lnbmF0dXJl"

	c, err := DecodeToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", c.Email)
	id, ok := c.UserID()
	assert.True(t, ok)
	assert.Equal(t, "5", id)
	assert.False(t, c.ExpiredAt(time.Now()))
}

func TestDecodeToken_Malformed(t *testing.T) {
	for _, tok := range []string{"", "not-a-jwt", "a.b.c", "a.bm90IGpzb24.c", "a.b.c.d"} {
		_, err := DecodeToken(tok)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", tok)
	}
}

func TestTokenClaims_ExpiredAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	tests := []struct {
		name string
		exp  *time.Time
		want bool
	}{
		{name: "missing exp", exp: nil, want: true},
		{name: "in the past", exp: &past, want: true},
		{name: "exactly now", exp: &now, want: true},
		{name: "in the future", exp: &future, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &TokenClaims{ExpiresAt: tt.exp}
			assert.Equal(t, tt.want, c.ExpiredAt(now))
		})
	}
}
