package geography

import "guestreport_client/internal/common"

// Country represents the country model in the database.
type Country struct {
	common.BaseModel
	CountryName string  `gorm:"type:varchar(100);not null;uniqueIndex"`
	States      []State `gorm:"foreignKey:CountryID;constraint:OnDelete:CASCADE;"`
}

// TableName specifies the table name for the Country model.
func (Country) TableName() string {
	return "countries"
}

// State represents a state or province within a country.
type State struct {
	common.BaseModel
	CountryID uint   `gorm:"not null;uniqueIndex:idx_states_country_name"`
	StateName string `gorm:"type:varchar(100);not null;uniqueIndex:idx_states_country_name"`
	Cities    []City `gorm:"foreignKey:StateID;constraint:OnDelete:CASCADE;"`
}

// TableName specifies the table name for the State model.
func (State) TableName() string {
	return "states"
}

// City represents a city within a state.
type City struct {
	common.BaseModel
	StateID  uint   `gorm:"not null;uniqueIndex:idx_cities_state_name"`
	CityName string `gorm:"type:varchar(100);not null;uniqueIndex:idx_cities_state_name"`
}

// TableName specifies the table name for the City model.
func (City) TableName() string {
	return "cities"
}

// --- DTOs ---

type CountryResponse struct {
	ID          uint   `json:"id"`
	CountryName string `json:"countryName"`
}

type StateResponse struct {
	ID        uint   `json:"id"`
	StateName string `json:"stateName"`
}

type CityResponse struct {
	ID       uint   `json:"id"`
	CityName string `json:"cityName"`
}

// CreateCountryRequest is the admin body of POST /api/Country.
type CreateCountryRequest struct {
	CountryName string `json:"countryName" binding:"required,max=100"`
}

// CreateStateRequest is the admin body of POST /api/State.
type CreateStateRequest struct {
	CountryID uint   `json:"countryId" binding:"required"`
	StateName string `json:"stateName" binding:"required,max=100"`
}

// CreateCityRequest is the admin body of POST /api/City.
type CreateCityRequest struct {
	StateID  uint   `json:"stateId" binding:"required"`
	CityName string `json:"cityName" binding:"required,max=100"`
}

func ToCountryResponse(c *Country) CountryResponse {
	return CountryResponse{ID: c.ID, CountryName: c.CountryName}
}

func ToStateResponse(s *State) StateResponse {
	return StateResponse{ID: s.ID, StateName: s.StateName}
}

func ToCityResponse(c *City) CityResponse {
	return CityResponse{ID: c.ID, CityName: c.CityName}
}
