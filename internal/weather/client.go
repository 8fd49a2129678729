// Package weather talks to the Open-Meteo geocoding and forecast upstreams.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrLocationNotFound means the geocoder returned no result for the city.
	ErrLocationNotFound = errors.New("weather: location not found")

	errUpstreamStatus = errors.New("weather: unexpected upstream status")
	errCircuitOpen    = errors.New("weather: circuit breaker open")
)

// BackoffConfig controls retry behaviour for upstream calls.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client resolves city names and fetches multi-day forecasts.
type Client struct {
	httpClient   *http.Client
	circuit      *gobreaker.CircuitBreaker
	apiURL       string
	geocodingURL string
	backoff      BackoffConfig
}

// NewClient creates a Client. apiURL and geocodingURL are the Open-Meteo
// base URLs without trailing slash.
func NewClient(httpClient *http.Client, apiURL, geocodingURL string) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		httpClient:   httpClient,
		circuit:      cb,
		apiURL:       apiURL,
		geocodingURL: geocodingURL,
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

// ResolveLocation geocodes a city name, taking the provider's first result.
func (c *Client) ResolveLocation(ctx context.Context, city string) (*Location, error) {
	values := url.Values{}
	values.Set("name", city)
	values.Set("count", "1")
	values.Set("language", "en")
	values.Set("format", "json")

	var payload struct {
		Results []Location `json:"results"`
	}
	if err := c.getJSON(ctx, c.geocodingURL+"/search?"+values.Encode(), &payload); err != nil {
		return nil, err
	}

	if len(payload.Results) == 0 {
		return nil, ErrLocationNotFound
	}
	return &payload.Results[0], nil
}

// FetchForecast returns the daily forecast for a resolved location, one
// entry per day as returned by the upstream.
func (c *Client) FetchForecast(ctx context.Context, loc *Location) (*Forecast, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	values.Set("daily", "temperature_2m_max,temperature_2m_min,weathercode")
	values.Set("timezone", "auto")

	var payload struct {
		Daily struct {
			Time             []string  `json:"time"`
			Temperature2mMax []float64 `json:"temperature_2m_max"`
			Temperature2mMin []float64 `json:"temperature_2m_min"`
			WeatherCode      []int     `json:"weathercode"`
		} `json:"daily"`
	}
	if err := c.getJSON(ctx, c.apiURL+"/forecast?"+values.Encode(), &payload); err != nil {
		return nil, err
	}

	daily := make([]DailyForecast, 0, len(payload.Daily.Time))
	for i, date := range payload.Daily.Time {
		if i >= len(payload.Daily.Temperature2mMax) ||
			i >= len(payload.Daily.Temperature2mMin) ||
			i >= len(payload.Daily.WeatherCode) {
			break
		}
		daily = append(daily, DailyForecast{
			Date:           date,
			TemperatureMax: payload.Daily.Temperature2mMax[i],
			TemperatureMin: payload.Daily.Temperature2mMin[i],
			WeatherCode:    payload.Daily.WeatherCode[i],
		})
	}

	return &Forecast{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		City:      loc.Name,
		Country:   loc.Country,
		Daily:     daily,
	}, nil
}

// getJSON executes a GET with retries, exponential backoff and the circuit
// breaker, decoding a 2xx JSON body into out.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.httpClient.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUpstreamStatus, resp.StatusCode)
			}
			return resp, nil
		})

		if err == nil {
			resp := result.(*http.Response)
			defer resp.Body.Close()
			return json.NewDecoder(resp.Body).Decode(out)
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return lastErr
		}

		delay := c.backoff.InitialInterval << attempt
		if c.backoff.MaxInterval > 0 && delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
