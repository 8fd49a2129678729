package weather

// Location is a geocoded place as returned by the geocoding upstream.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DailyForecast is one day of the multi-day forecast.
type DailyForecast struct {
	Date           string  `json:"date"`
	TemperatureMax float64 `json:"temperature_max"`
	TemperatureMin float64 `json:"temperature_min"`
	WeatherCode    int     `json:"weather_code"`
}

// Forecast is the normalized forecast view for a resolved location.
type Forecast struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	City      string          `json:"city"`
	Country   string          `json:"country"`
	Daily     []DailyForecast `json:"daily"`
}
