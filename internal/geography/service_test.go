package geography

import (
	"context"
	"testing"

	"guestreport_client/internal/common"
	"guestreport_client/internal/config"
	"guestreport_client/internal/platform/database"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GeographyServiceTestSuite struct {
	suite.Suite
	db  *gorm.DB
	svc Service
}

func TestGeographyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GeographyServiceTestSuite))
}

func (s *GeographyServiceTestSuite) SetupTest() {
	db, err := database.NewGORM(&config.Config{
		DBDriver:     database.DriverSQLite,
		DBSQLitePath: ":memory:",
		LogLevel:     "silent",
	})
	s.Require().NoError(err)
	s.Require().NoError(AutoMigrate(db))
	s.db = db
	s.svc = NewService(NewGORMRepository(db), zap.NewNop())
}

func (s *GeographyServiceTestSuite) TearDownTest() {
	database.CloseGORMDB(s.db, zap.NewNop())
}

func (s *GeographyServiceTestSuite) TestSeedIfEmpty_OnlyOnce() {
	ctx := context.Background()

	seeded, err := s.svc.SeedIfEmpty(ctx, DemoData())
	s.Require().NoError(err)
	s.True(seeded)

	seeded, err = s.svc.SeedIfEmpty(ctx, DemoData())
	s.Require().NoError(err)
	s.False(seeded, "a populated database is left alone")

	countries, err := s.svc.GetAllCountries(ctx)
	s.Require().NoError(err)
	s.Len(countries, 2)
}

func (s *GeographyServiceTestSuite) TestListsAreOrderedByName() {
	ctx := context.Background()
	_, err := s.svc.SeedIfEmpty(ctx, DemoData())
	s.Require().NoError(err)

	countries, err := s.svc.GetAllCountries(ctx)
	s.Require().NoError(err)
	s.Equal("Canada", countries[0].CountryName)
	s.Equal("USA", countries[1].CountryName)

	states, err := s.svc.GetStatesByCountry(ctx, countries[0].ID)
	s.Require().NoError(err)
	s.Require().Len(states, 2)
	s.Equal("British Columbia", states[0].StateName)
	s.Equal("Ontario", states[1].StateName)

	cities, err := s.svc.GetCitiesByState(ctx, states[1].ID)
	s.Require().NoError(err)
	s.Require().Len(cities, 2)
	s.Equal("Ottawa", cities[0].CityName)
	s.Equal("Toronto", cities[1].CityName)
}

func (s *GeographyServiceTestSuite) TestUnknownParentsHaveNoChildren() {
	ctx := context.Background()
	states, err := s.svc.GetStatesByCountry(ctx, 404)
	s.Require().NoError(err)
	s.Empty(states)

	cities, err := s.svc.GetCitiesByState(ctx, 404)
	s.Require().NoError(err)
	s.Empty(cities)
}

func (s *GeographyServiceTestSuite) TestAdminCreate() {
	ctx := context.Background()

	country, err := s.svc.AdminCreateCountry(ctx, CreateCountryRequest{CountryName: "  Mexico "})
	s.Require().NoError(err)
	s.Equal("Mexico", country.CountryName)

	_, err = s.svc.AdminCreateCountry(ctx, CreateCountryRequest{CountryName: "Mexico"})
	s.ErrorIs(err, common.ErrConflict)

	state, err := s.svc.AdminCreateState(ctx, CreateStateRequest{CountryID: country.ID, StateName: "Jalisco"})
	s.Require().NoError(err)
	_, err = s.svc.AdminCreateState(ctx, CreateStateRequest{CountryID: 999, StateName: "Nowhere"})
	s.ErrorIs(err, common.ErrNotFound)

	city, err := s.svc.AdminCreateCity(ctx, CreateCityRequest{StateID: state.ID, CityName: "Guadalajara"})
	s.Require().NoError(err)
	s.Equal(state.ID, city.StateID)
	_, err = s.svc.AdminCreateCity(ctx, CreateCityRequest{StateID: 999, CityName: "Nowhere"})
	s.ErrorIs(err, common.ErrNotFound)

	// The same state name may exist under another country.
	other, err := s.svc.AdminCreateCountry(ctx, CreateCountryRequest{CountryName: "Other"})
	s.Require().NoError(err)
	_, err = s.svc.AdminCreateState(ctx, CreateStateRequest{CountryID: other.ID, StateName: "Jalisco"})
	s.NoError(err)
}
