package geography

import (
	"context"
	"errors"
	"strings"

	"guestreport_client/internal/common"

	"gorm.io/gorm"
)

// Repository defines the interface for country, state and city data operations.
type Repository interface {
	CreateCountry(ctx context.Context, country *Country) error
	FindCountryByID(ctx context.Context, id uint) (*Country, error)
	FindAllCountries(ctx context.Context) ([]Country, error)

	CreateState(ctx context.Context, state *State) error
	FindStateByID(ctx context.Context, id uint) (*State, error)
	FindStatesByCountryID(ctx context.Context, countryID uint) ([]State, error)

	CreateCity(ctx context.Context, city *City) error
	FindCitiesByStateID(ctx context.Context, stateID uint) ([]City, error)

	CountCountries(ctx context.Context) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM geography repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates or updates the geography tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Country{}, &State{}, &City{})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "UNIQUE constraint failed")
}

// --- Country Methods ---

func (r *gormRepository) CreateCountry(ctx context.Context, country *Country) error {
	country.CountryName = strings.TrimSpace(country.CountryName)
	if err := r.db.WithContext(ctx).Create(country).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithMessage("Country already exists.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindCountryByID(ctx context.Context, id uint) (*Country, error) {
	var country Country
	if err := r.db.WithContext(ctx).First(&country, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("Country not found.")
		}
		return nil, err
	}
	return &country, nil
}

func (r *gormRepository) FindAllCountries(ctx context.Context) ([]Country, error) {
	var countries []Country
	err := r.db.WithContext(ctx).Order("country_name ASC").Find(&countries).Error
	return countries, err
}

func (r *gormRepository) CountCountries(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Country{}).Count(&n).Error
	return n, err
}

// --- State Methods ---

func (r *gormRepository) CreateState(ctx context.Context, state *State) error {
	state.StateName = strings.TrimSpace(state.StateName)
	if err := r.db.WithContext(ctx).Create(state).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithMessage("State already exists in this country.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindStateByID(ctx context.Context, id uint) (*State, error) {
	var state State
	if err := r.db.WithContext(ctx).First(&state, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithMessage("State not found.")
		}
		return nil, err
	}
	return &state, nil
}

func (r *gormRepository) FindStatesByCountryID(ctx context.Context, countryID uint) ([]State, error) {
	var states []State
	err := r.db.WithContext(ctx).Where("country_id = ?", countryID).Order("state_name ASC").Find(&states).Error
	return states, err
}

// --- City Methods ---

func (r *gormRepository) CreateCity(ctx context.Context, city *City) error {
	city.CityName = strings.TrimSpace(city.CityName)
	if err := r.db.WithContext(ctx).Create(city).Error; err != nil {
		if isUniqueViolation(err) {
			return common.ErrConflict.WithMessage("City already exists in this state.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindCitiesByStateID(ctx context.Context, stateID uint) ([]City, error) {
	var cities []City
	err := r.db.WithContext(ctx).Where("state_id = ?", stateID).Order("city_name ASC").Find(&cities).Error
	return cities, err
}
