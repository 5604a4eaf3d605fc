package auth

import (
	"context"

	"guestreport_client/internal/shared"
)

// IDTokenVerifier turns a third-party ID token into a verified identity.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*shared.GoogleIdentity, error)
}
