package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
)

const (
	OpenWeatherBaseURL = "https://api.openweathermap.org"

	// wind at or above this speed makes the day windy regardless of temperature
	WindyThresholdKmh = 40
)

type WeatherServiceProvider interface {
	GetTodayForecast(ctx context.Context, lat, lon float64) (*models.WeatherData, error)
}

type openWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// OpenWeatherService reads the current weather from OpenWeatherMap. Without an
// API key, or when the API fails, it answers with a simulated forecast so
// callers always get a climate.
type OpenWeatherService struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Cache      *WeatherCache
	Random     outfitgen.RandomSource
}

func NewOpenWeatherService(apiKey string, weatherCache *WeatherCache) *OpenWeatherService {
	return &OpenWeatherService{
		APIKey:     apiKey,
		BaseURL:    OpenWeatherBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Cache:      weatherCache,
		Random:     outfitgen.DefaultRandom(),
	}
}

func (s *OpenWeatherService) GetTodayForecast(ctx context.Context, lat, lon float64) (*models.WeatherData, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}

	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, lat, lon); ok {
			log.Printf("[Weather] Using cached forecast for %.2f,%.2f\n", lat, lon)
			return cached, nil
		}
	}

	if s.APIKey == "" {
		log.Println("[Weather] No API key configured, using simulated forecast")
		return s.simulate(lat, lon), nil
	}

	forecast, err := s.fetch(ctx, lat, lon)
	if err != nil {
		log.Printf("[Weather] Falling back to simulated forecast: %v\n", err)
		return s.simulate(lat, lon), nil
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, lat, lon, *forecast)
	}
	return forecast, nil
}

func (s *OpenWeatherService) fetch(ctx context.Context, lat, lon float64) (*models.WeatherData, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", s.APIKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/data/2.5/weather?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("weather API key is invalid or not activated")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if len(payload.Weather) == 0 {
		return nil, fmt.Errorf("weather response has no conditions")
	}
	log.Printf("[Weather] %s: %.1f°C %s\n", payload.Name, payload.Main.Temp, payload.Weather[0].Main)
	return forecastFromOpenWeather(payload), nil
}

func forecastFromOpenWeather(payload openWeatherResponse) *models.WeatherData {
	main := payload.Weather[0].Main
	temperature := int(math.Round(payload.Main.Temp))
	windKmh := int(math.Round(payload.Wind.Speed * 3.6))

	location := payload.Name
	if payload.Sys.Country != "" {
		location = fmt.Sprintf("%s, %s", payload.Name, payload.Sys.Country)
	}
	return &models.WeatherData{
		Temperature: temperature,
		Condition:   describeCondition(main, payload.Weather[0].Description),
		Humidity:    payload.Main.Humidity,
		WindSpeed:   windKmh,
		Location:    location,
		Climate:     ClimateFromWeather(main, temperature, windKmh),
	}
}

var conditionNames = map[string]string{
	"Clear":        "Clear",
	"Clouds":       "Cloudy",
	"Rain":         "Rainy",
	"Drizzle":      "Drizzle",
	"Thunderstorm": "Storm",
	"Snow":         "Snowing",
	"Mist":         "Mist",
	"Fog":          "Fog",
	"Haze":         "Haze",
}

func describeCondition(main, description string) string {
	if name, ok := conditionNames[main]; ok {
		return name
	}
	if description != "" {
		return description
	}
	return "Unknown"
}

// ClimateFromWeather maps an OpenWeatherMap condition group, a temperature in
// Celsius and a wind speed in km/h to the climate garments are tagged with.
func ClimateFromWeather(main string, temperature int, windKmh int) models.Climate {
	switch main {
	case "Snow":
		return models.ClimateSnow
	case "Rain", "Drizzle", "Thunderstorm":
		return models.ClimateRain
	}
	if windKmh >= WindyThresholdKmh {
		return models.ClimateWind
	}
	return ClimateFromTemperature(temperature)
}

func ClimateFromTemperature(temperature int) models.Climate {
	switch {
	case temperature < 0:
		return models.ClimateExtremeCold
	case temperature < 15:
		return models.ClimateCold
	case temperature < 25:
		return models.ClimateMild
	default:
		return models.ClimateHot
	}
}

type simulatedCondition struct {
	condition string
	climate   models.Climate
	minTemp   int
	maxTemp   int
}

var simulatedConditions = []simulatedCondition{
	{"Sunny", models.ClimateHot, 20, 35},
	{"Cloudy", models.ClimateMild, 15, 25},
	{"Rainy", models.ClimateRain, 10, 20},
	{"Cold", models.ClimateCold, 0, 15},
	{"Snowing", models.ClimateSnow, -5, 5},
}

var simulatedCities = []string{
	"Madrid", "Barcelona", "Valencia", "Seville", "Bilbao",
	"Malaga", "Zaragoza", "Murcia", "Palma", "Las Palmas",
}

func (s *OpenWeatherService) simulate(lat, lon float64) *models.WeatherData {
	random := s.Random
	if random == nil {
		random = outfitgen.DefaultRandom()
	}
	picked := simulatedConditions[random.IntN(len(simulatedConditions))]
	return &models.WeatherData{
		Temperature: picked.minTemp + random.IntN(picked.maxTemp-picked.minTemp),
		Condition:   picked.condition,
		Humidity:    30 + random.IntN(40),
		WindSpeed:   5 + random.IntN(20),
		Location:    SimulatedLocationName(lat, lon),
		Climate:     picked.climate,
		Simulated:   true,
	}
}

// SimulatedLocationName picks a stable city name for a coordinate pair.
func SimulatedLocationName(lat, lon float64) string {
	index := int(math.Floor(math.Abs(lat+lon)*10)) % len(simulatedCities)
	return simulatedCities[index]
}
