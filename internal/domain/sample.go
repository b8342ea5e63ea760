package domain

// SamplePoint is a position along a route at which weather is resolved.
// Address is set only for stops. PostalCode is filled in by the aggregator.
type SamplePoint struct {
	SequenceIndex int
	Location      Coordinates
	IsStop        bool
	Address       *string
	PostalCode    *string
	// Cumulative distance from the origin, in the sampler's unit.
	Distance float64
}

// WeatherRecord holds the conditions observed at one sample point.
// Nil fields mean the lookup for that field was unavailable.
type WeatherRecord struct {
	TemperatureCelsius *float64
	ConditionSummary   *string
	CountryCode        *string
}

// Empty reports whether no weather field was resolved.
func (w WeatherRecord) Empty() bool {
	return w.TemperatureCelsius == nil && w.ConditionSummary == nil && w.CountryCode == nil
}

// PointWeather pairs a sample point with its resolved weather.
type PointWeather struct {
	Point   SamplePoint
	Weather WeatherRecord
}

// RouteWeatherResult is the weather-annotated route, ordered by SequenceIndex.
type RouteWeatherResult struct {
	Points         []PointWeather
	DegradedPoints int
	TotalDistance  float64
	Unit           DistanceUnit
}
