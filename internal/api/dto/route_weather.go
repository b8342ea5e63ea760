package dto

type PreferencesRequest struct {
	AvoidHighways bool `json:"avoid_highways"`
	AvoidTolls    bool `json:"avoid_tolls"`
	Reverse       bool `json:"reverse"`
	// Accepted for compatibility with the planner UI; stops are always visited in the given order.
	OptimizeRoute bool `json:"optimize_route"`
}

type RouteWeatherRequest struct {
	Addresses        []string            `json:"addresses"`
	IntervalDistance *float64            `json:"interval_distance"`
	Preferences      *PreferencesRequest `json:"preferences"`
}

type WeatherResponse struct {
	TemperatureC *float64 `json:"temperatureC"`
	Summary      *string  `json:"summary"`
	Country      *string  `json:"country"`
}

type RoutePointResponse struct {
	SequenceIndex int             `json:"sequence_index"`
	Lat           float64         `json:"lat"`
	Lon           float64         `json:"lon"`
	IsStop        bool            `json:"is_stop"`
	Address       *string         `json:"address"`
	ZipCode       *string         `json:"zip_code"`
	Distance      float64         `json:"distance"`
	Weather       WeatherResponse `json:"weather"`
}

type RouteWeatherResponse struct {
	Route          []RoutePointResponse `json:"route"`
	DegradedPoints int                  `json:"degraded_points"`
	TotalDistance  float64              `json:"total_distance"`
	Unit           string               `json:"unit"`
}
