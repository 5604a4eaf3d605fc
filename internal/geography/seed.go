package geography

// SeedCountry is one country of seed data with its states and cities.
type SeedCountry struct {
	Name   string
	States []SeedState
}

type SeedState struct {
	Name   string
	Cities []string
}

// DemoData is a small hierarchy for local development.
func DemoData() []SeedCountry {
	return []SeedCountry{
		{
			Name: "USA",
			States: []SeedState{
				{Name: "California", Cities: []string{"Los Angeles", "San Diego", "San Francisco"}},
				{Name: "New York", Cities: []string{"Buffalo", "New York City", "Rochester"}},
				{Name: "Washington", Cities: []string{"Seattle", "Spokane", "Tacoma"}},
			},
		},
		{
			Name: "Canada",
			States: []SeedState{
				{Name: "British Columbia", Cities: []string{"Vancouver", "Victoria"}},
				{Name: "Ontario", Cities: []string{"Ottawa", "Toronto"}},
			},
		},
	}
}
