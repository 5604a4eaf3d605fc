package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"guestreport_client/internal/config"
	"guestreport_client/internal/shared"

	"go.uber.org/zap"
	josejwt "gopkg.in/square/go-jose.v2/jwt"
)

// Google signs ID tokens with either issuer spelling.
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleIDTokenClaims is the payload of a Google ID token.
type GoogleIDTokenClaims struct {
	josejwt.Claims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// GoogleVerifier checks Google ID tokens against Google's published keys.
type GoogleVerifier struct {
	clientID string
	jwksURL  string
	keys     *JWKSCache
	logger   *zap.Logger
	now      func() time.Time
}

var _ IDTokenVerifier = (*GoogleVerifier)(nil)

// NewGoogleVerifier creates a verifier for tokens issued to GOOGLE_CLIENT_ID.
func NewGoogleVerifier(cfg *config.Config, keys *JWKSCache, logger *zap.Logger) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: cfg.GoogleClientID,
		jwksURL:  cfg.GoogleJWKSURL,
		keys:     keys,
		logger:   logger.Named("google_verifier"),
		now:      time.Now,
	}
}

// Verify validates the signature, audience, issuer and expiry of idToken.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*shared.GoogleIdentity, error) {
	if v.clientID == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID is not configured")
	}
	parsedToken, err := josejwt.ParseSigned(idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google id_token: %w", err)
	}

	var kid string
	for _, header := range parsedToken.Headers {
		if header.KeyID != "" {
			kid = header.KeyID
			break
		}
	}
	if kid == "" {
		return nil, errors.New("google id_token 'kid' header missing")
	}

	verificationKey, err := v.lookupKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := &GoogleIDTokenClaims{}
	if err := parsedToken.Claims(verificationKey, claims); err != nil {
		return nil, fmt.Errorf("failed to verify google id_token signature: %w", err)
	}

	expected := josejwt.Expected{
		Audience: josejwt.Audience{v.clientID},
		Time:     v.now(),
	}
	if err := claims.ValidateWithLeeway(expected, time.Minute); err != nil {
		return nil, fmt.Errorf("google id_token claims validation failed: %w", err)
	}
	if claims.Expiry == nil {
		return nil, errors.New("google id_token has no exp claim")
	}
	if !googleIssuers[claims.Issuer] {
		return nil, fmt.Errorf("google id_token has unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("google id_token has no subject")
	}

	return &shared.GoogleIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

// lookupKey finds kid in the cached key set, refetching once for rotated keys.
func (v *GoogleVerifier) lookupKey(ctx context.Context, kid string) (interface{}, error) {
	for _, refresh := range []bool{false, true} {
		jwks, err := v.keys.Get(ctx, v.jwksURL, refresh)
		if err != nil {
			return nil, fmt.Errorf("could not get google public keys: %w", err)
		}
		if keys := jwks.Key(kid); len(keys) > 0 {
			switch k := keys[0].Key.(type) {
			case *rsa.PublicKey, *ecdsa.PublicKey:
				return k, nil
			default:
				return nil, fmt.Errorf("unexpected key type in JWKS for kid %s: %T", kid, k)
			}
		}
		if !refresh {
			v.logger.Debug("Signing key not cached, refreshing key set", zap.String("kid", kid))
		}
	}
	return nil, fmt.Errorf("google id_token signing key with kid '%s' not found in JWKS", kid)
}
