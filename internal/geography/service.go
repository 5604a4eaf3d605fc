package geography

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Service defines the interface for location lookups and admin maintenance.
type Service interface {
	GetAllCountries(ctx context.Context) ([]Country, error)
	GetStatesByCountry(ctx context.Context, countryID uint) ([]State, error)
	GetCitiesByState(ctx context.Context, stateID uint) ([]City, error)

	AdminCreateCountry(ctx context.Context, req CreateCountryRequest) (*Country, error)
	AdminCreateState(ctx context.Context, req CreateStateRequest) (*State, error)
	AdminCreateCity(ctx context.Context, req CreateCityRequest) (*City, error)

	SeedIfEmpty(ctx context.Context, data []SeedCountry) (bool, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new geography service.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.Named("geography"),
	}
}

func (s *service) GetAllCountries(ctx context.Context) ([]Country, error) {
	return s.repo.FindAllCountries(ctx)
}

// GetStatesByCountry lists the states of a country. An unknown country has no states.
func (s *service) GetStatesByCountry(ctx context.Context, countryID uint) ([]State, error) {
	return s.repo.FindStatesByCountryID(ctx, countryID)
}

// GetCitiesByState lists the cities of a state. An unknown state has no cities.
func (s *service) GetCitiesByState(ctx context.Context, stateID uint) ([]City, error) {
	return s.repo.FindCitiesByStateID(ctx, stateID)
}

func (s *service) AdminCreateCountry(ctx context.Context, req CreateCountryRequest) (*Country, error) {
	country := &Country{CountryName: req.CountryName}
	if err := s.repo.CreateCountry(ctx, country); err != nil {
		return nil, err
	}
	s.logger.Info("Country created", zap.Uint("id", country.ID), zap.String("name", country.CountryName))
	return country, nil
}

func (s *service) AdminCreateState(ctx context.Context, req CreateStateRequest) (*State, error) {
	if _, err := s.repo.FindCountryByID(ctx, req.CountryID); err != nil {
		return nil, err
	}
	state := &State{CountryID: req.CountryID, StateName: req.StateName}
	if err := s.repo.CreateState(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Info("State created", zap.Uint("id", state.ID), zap.Uint("countryID", state.CountryID))
	return state, nil
}

func (s *service) AdminCreateCity(ctx context.Context, req CreateCityRequest) (*City, error) {
	if _, err := s.repo.FindStateByID(ctx, req.StateID); err != nil {
		return nil, err
	}
	city := &City{StateID: req.StateID, CityName: req.CityName}
	if err := s.repo.CreateCity(ctx, city); err != nil {
		return nil, err
	}
	s.logger.Info("City created", zap.Uint("id", city.ID), zap.Uint("stateID", city.StateID))
	return city, nil
}

// SeedIfEmpty loads data when the countries table is empty. It reports
// whether anything was written.
func (s *service) SeedIfEmpty(ctx context.Context, data []SeedCountry) (bool, error) {
	n, err := s.repo.CountCountries(ctx)
	if err != nil {
		return false, fmt.Errorf("count countries: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	for _, sc := range data {
		country := &Country{CountryName: sc.Name}
		if err := s.repo.CreateCountry(ctx, country); err != nil {
			return false, fmt.Errorf("seed country %q: %w", sc.Name, err)
		}
		for _, ss := range sc.States {
			state := &State{CountryID: country.ID, StateName: ss.Name}
			if err := s.repo.CreateState(ctx, state); err != nil {
				return false, fmt.Errorf("seed state %q: %w", ss.Name, err)
			}
			for _, city := range ss.Cities {
				if err := s.repo.CreateCity(ctx, &City{StateID: state.ID, CityName: city}); err != nil {
					return false, fmt.Errorf("seed city %q: %w", city, err)
				}
			}
		}
	}
	s.logger.Info("Seeded location data", zap.Int("countries", len(data)))
	return true, nil
}
