package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the display view of a bearer token's payload.
// The signature is NOT checked: the backend re-validates the token on every
// protected request, and nothing here is used for authorization.
type TokenClaims struct {
	Email     string
	UserName  string
	NameID    string
	LegacyID  string
	RoleID    *int
	ExpiresAt *time.Time
}

var tokenParser = jwt.NewParser()

// ErrMalformedToken is returned when a token cannot be decoded.
var ErrMalformedToken = errors.New("session: malformed token")

// DecodeToken reads the payload of a JWT without verifying it. The header is
// not interpreted, so tokens signed with algorithms this package does not know
// still decode.
func DecodeToken(token string) (*TokenClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: token contains an invalid number of segments", ErrMalformedToken)
	}
	payload, err := tokenParser.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	mc := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	tc := &TokenClaims{}
	tc.Email = firstString(mc, "email", "Email")
	tc.UserName = firstString(mc, "userName", "UserName")
	tc.NameID = firstString(mc, "nameid")
	tc.LegacyID = firstString(mc, "id", "Id")
	if role, ok := firstInt(mc, "roleId", "role"); ok {
		tc.RoleID = &role
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp != nil {
		t := exp.Time
		tc.ExpiresAt = &t
	}
	return tc, nil
}

// UserID returns the current-user identifier. nameid is the claim of record;
// id is read only for tokens issued before the backend standardized on nameid.
func (c *TokenClaims) UserID() (string, bool) {
	if c.NameID != "" {
		return c.NameID, true
	}
	if c.LegacyID != "" {
		return c.LegacyID, true
	}
	return "", false
}

// ExpiredAt reports whether the token is expired at now. A token without an
// exp claim is treated as expired.
func (c *TokenClaims) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.After(now)
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		switch v := mc[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func firstInt(mc jwt.MapClaims, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := mc[k].(type) {
		case float64:
			return int(v), true
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return int(n), true
			}
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
