package dto

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadinessCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ReadinessResponse struct {
	Status string           `json:"status"`
	Checks []ReadinessCheck `json:"checks"`
}

type WeatherConnectionResponse struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	WeatherData *WeatherResponse `json:"weather_data,omitempty"`
	APIURL      string           `json:"api_url"`
}
