package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aria-voice/aria/pkg/core/types"
)

const (
	openWeatherGeocodeURL = "https://api.openweathermap.org/geo/1.0/direct"
	openWeatherOneCallURL = "https://api.openweathermap.org/data/3.0/onecall"
)

// WeatherService answers weather queries through the OpenWeatherMap
// geocoding and One Call APIs.
type WeatherService struct {
	apiKey     string
	httpClient *http.Client

	geocodeURL string
	oneCallURL string
}

// NewWeatherService creates a weather service. A nil client uses a default
// with a request timeout.
func NewWeatherService(apiKey string, client *http.Client) *WeatherService {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WeatherService{
		apiKey:     apiKey,
		httpClient: client,
		geocodeURL: openWeatherGeocodeURL,
		oneCallURL: openWeatherOneCallURL,
	}
}

// Descriptor declares the get_weather tool.
func (s *WeatherService) Descriptor() types.ToolDescriptor {
	return types.ToolDescriptor{
		Name:        "get_weather",
		Description: "Get weather information for a specified city.",
		Parameters: types.ObjectSchema(map[string]*types.Schema{
			"city":          types.StringSchema("The name of the city to get weather information for."),
			"forecast_type": types.EnumSchema("Type of forecast. Default is current.", "current", "hourly", "daily"),
			"time_range":    types.IntSchema("Number of hours ahead for hourly forecast or days ahead for daily forecast. Default is 3."),
		}, "city"),
	}
}

// Handle implements the get_weather tool.
func (s *WeatherService) Handle(ctx context.Context, args map[string]any) any {
	if s.apiKey == "" {
		return Errorf("OpenWeather API key not found")
	}

	city := stringArg(args, "city", "")
	if city == "" {
		return Errorf("city is required")
	}
	forecastType := strings.ToLower(stringArg(args, "forecast_type", "current"))
	timeRange := intArg(args, "time_range", 3)

	if forecastType != "current" && forecastType != "hourly" && forecastType != "daily" {
		return Errorf("invalid forecast type %q, choose current, hourly, or daily", forecastType)
	}

	lat, lon, err := s.geocode(ctx, city)
	if err != nil {
		return Errorf("geocoding failed: %v", err)
	}

	data, err := s.oneCall(ctx, lat, lon, forecastType)
	if err != nil {
		return Errorf("weather request failed: %v", err)
	}

	switch forecastType {
	case "hourly":
		return s.hourlyReport(city, data, timeRange)
	case "daily":
		return s.dailyReport(city, data, timeRange)
	default:
		return s.currentReport(city, data)
	}
}

func (s *WeatherService) geocode(ctx context.Context, city string) (float64, float64, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("limit", "1")
	q.Set("appid", s.apiKey)

	var results []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := s.getJSON(ctx, s.geocodeURL+"?"+q.Encode(), &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("city not found")
	}
	return results[0].Lat, results[0].Lon, nil
}

type oneCallResponse struct {
	Current oneCallPoint   `json:"current"`
	Hourly  []oneCallPoint `json:"hourly"`
	Daily   []oneCallDay   `json:"daily"`
}

type oneCallPoint struct {
	Dt        int64              `json:"dt"`
	Temp      float64            `json:"temp"`
	FeelsLike float64            `json:"feels_like"`
	Humidity  int                `json:"humidity"`
	WindSpeed float64            `json:"wind_speed"`
	Pressure  int                `json:"pressure"`
	Weather   []oneCallCondition `json:"weather"`
}

type oneCallDay struct {
	Dt        int64              `json:"dt"`
	Humidity  int                `json:"humidity"`
	WindSpeed float64            `json:"wind_speed"`
	Pressure  int                `json:"pressure"`
	Weather   []oneCallCondition `json:"weather"`
	Temp      struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"temp"`
}

type oneCallCondition struct {
	Description string `json:"description"`
}

func (s *WeatherService) oneCall(ctx context.Context, lat, lon float64, forecastType string) (*oneCallResponse, error) {
	exclude := "minutely,alerts"
	switch forecastType {
	case "current":
		exclude += ",hourly,daily"
	case "hourly":
		exclude += ",daily"
	case "daily":
		exclude += ",hourly"
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("exclude", exclude)
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")

	var data oneCallResponse
	if err := s.getJSON(ctx, s.oneCallURL+"?"+q.Encode(), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *WeatherService) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func description(conditions []oneCallCondition) string {
	if len(conditions) == 0 {
		return ""
	}
	return conditions[0].Description
}

func (s *WeatherService) currentReport(city string, data *oneCallResponse) map[string]any {
	c := data.Current
	return map[string]any{
		"city":        city,
		"temperature": c.Temp,
		"feels_like":  c.FeelsLike,
		"humidity":    c.Humidity,
		"description": description(c.Weather),
		"wind_speed":  c.WindSpeed,
		"pressure":    c.Pressure,
	}
}

func (s *WeatherService) hourlyReport(city string, data *oneCallResponse, hours int) map[string]any {
	points := data.Hourly
	if hours > 0 && hours < len(points) {
		points = points[:hours]
	}

	forecast := make([]map[string]any, 0, len(points))
	for _, h := range points {
		forecast = append(forecast, map[string]any{
			"time":        time.Unix(h.Dt, 0).Format("2006-01-02 15:04:05"),
			"temperature": h.Temp,
			"feels_like":  h.FeelsLike,
			"humidity":    h.Humidity,
			"description": description(h.Weather),
			"wind_speed":  h.WindSpeed,
			"pressure":    h.Pressure,
		})
	}
	return map[string]any{"city": city, "hourly_forecast": forecast}
}

func (s *WeatherService) dailyReport(city string, data *oneCallResponse, days int) map[string]any {
	points := data.Daily
	if days > 0 && days < len(points) {
		points = points[:days]
	}

	forecast := make([]map[string]any, 0, len(points))
	for _, d := range points {
		forecast = append(forecast, map[string]any{
			"date":        time.Unix(d.Dt, 0).Format("2006-01-02"),
			"temperature": map[string]any{"min": d.Temp.Min, "max": d.Temp.Max},
			"humidity":    d.Humidity,
			"description": description(d.Weather),
			"wind_speed":  d.WindSpeed,
			"pressure":    d.Pressure,
		})
	}
	return map[string]any{"city": city, "daily_forecast": forecast}
}
