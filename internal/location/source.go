package location

import (
	"context"
	"strconv"

	"guestreport_client/internal/apiclient"
)

// Source fetches the three levels of the hierarchy.
type Source interface {
	Countries(ctx context.Context) ([]Item, error)
	States(ctx context.Context, countryID int) ([]Item, error)
	Cities(ctx context.Context, stateID int) ([]Item, error)
}

type countryDTO struct {
	ID          int    `json:"id"`
	CountryName string `json:"countryName"`
}

type stateDTO struct {
	ID        int    `json:"id"`
	StateName string `json:"stateName"`
}

type cityDTO struct {
	ID       int    `json:"id"`
	CityName string `json:"cityName"`
}

// APISource reads the lists from the backend's Country, State and City endpoints.
type APISource struct {
	client *apiclient.Client
}

func NewAPISource(client *apiclient.Client) *APISource {
	return &APISource{client: client}
}

func (s *APISource) Countries(ctx context.Context) ([]Item, error) {
	var rows []countryDTO
	if err := s.client.Get(ctx, apiclient.PathCountries, &rows); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{ID: r.ID, Name: r.CountryName})
	}
	return items, nil
}

func (s *APISource) States(ctx context.Context, countryID int) ([]Item, error) {
	var rows []stateDTO
	if err := s.client.Get(ctx, apiclient.PathStatesByCountry+"/"+strconv.Itoa(countryID), &rows); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{ID: r.ID, Name: r.StateName})
	}
	return items, nil
}

func (s *APISource) Cities(ctx context.Context, stateID int) ([]Item, error) {
	var rows []cityDTO
	if err := s.client.Get(ctx, apiclient.PathCitiesByState+"/"+strconv.Itoa(stateID), &rows); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, Item{ID: r.ID, Name: r.CityName})
	}
	return items, nil
}
