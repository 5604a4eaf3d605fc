// Package apptest starts a dev backend on an in-memory database for tests.
package apptest

import (
	"net/http/httptest"
	"testing"
	"time"

	"guestreport_client/internal/app"
	"guestreport_client/internal/auth"
	"guestreport_client/internal/config"
	"guestreport_client/internal/geography"
	"guestreport_client/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Config returns a test configuration signing tokens with secret.
func Config(secret string) *config.Config {
	return &config.Config{
		GinMode:                     gin.TestMode,
		JWTSecretKey:                secret,
		JWTAccessTokenExpiryMinutes: 30 * time.Minute,
		GoogleClientID:              "test-client-id.apps.googleusercontent.com",
		GoogleJWKSURL:               "http://127.0.0.1:1/certs",
		DBDriver:                    "sqlite",
		DBSQLitePath:                ":memory:",
		LogLevel:                    "silent",
		SeedDemoData:                true,
	}
}

// NewBackend serves the dev backend for cfg until the test ends.
func NewBackend(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	db, cleanup, err := app.ProvideDatabase(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	userSvc := user.NewService(user.NewGORMRepository(db), logger)
	tokens, err := auth.NewJWTService(cfg, logger)
	require.NoError(t, err)
	geoSvc, err := app.ProvideGeographyService(cfg, geography.NewGORMRepository(db), logger)
	require.NoError(t, err)

	server := app.NewServer(cfg, logger,
		user.NewHandler(userSvc, logger),
		auth.NewHandler(userSvc, tokens, auth.NewGoogleVerifier(cfg, app.ProvideJWKSCache(), logger), logger),
		geography.NewHandler(geoSvc, logger),
		tokens,
		nil,
	)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv
}
