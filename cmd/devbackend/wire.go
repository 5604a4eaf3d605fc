//go:build wireinject
// +build wireinject

package main

import (
	"guestreport_client/internal/app"
	"guestreport_client/internal/auth"
	"guestreport_client/internal/config"
	"guestreport_client/internal/geography"
	"guestreport_client/internal/jobs"
	"guestreport_client/internal/shared"
	"guestreport_client/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		provideLogger,
		app.ProvideDatabase,

		// Users
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(shared.Service), new(*user.ServiceImplementation)),
		user.NewHandler,

		// Auth
		auth.NewJWTService,
		app.ProvideJWKSCache,
		auth.NewGoogleVerifier,
		wire.Bind(new(auth.IDTokenVerifier), new(*auth.GoogleVerifier)),
		auth.NewHandler,

		// Locations
		geography.NewGORMRepository,
		app.ProvideGeographyService,
		geography.NewHandler,

		// Jobs
		jobs.NewKeyRefreshJob,
		wire.Bind(new(jobs.KeyFetcher), new(*auth.JWKSCache)),

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
