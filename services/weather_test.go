package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
)

func TestClimateFromWeather(t *testing.T) {
	cases := []struct {
		main        string
		temperature int
		wind        int
		expected    models.Climate
	}{
		{"Snow", 10, 0, models.ClimateSnow},
		{"Rain", 30, 0, models.ClimateRain},
		{"Drizzle", 12, 50, models.ClimateRain},
		{"Thunderstorm", 20, 0, models.ClimateRain},
		{"Clear", 20, 40, models.ClimateWind},
		{"Clouds", 20, 39, models.ClimateMild},
		{"Clear", -1, 0, models.ClimateExtremeCold},
		{"Clear", 0, 0, models.ClimateCold},
		{"Clear", 14, 0, models.ClimateCold},
		{"Clear", 15, 0, models.ClimateMild},
		{"Clear", 24, 0, models.ClimateMild},
		{"Clear", 25, 0, models.ClimateHot},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s %d %d", tc.main, tc.temperature, tc.wind), func(t *testing.T) {
			assert.Equal(t, tc.expected, ClimateFromWeather(tc.main, tc.temperature, tc.wind))
		})
	}
}

func TestDescribeCondition(t *testing.T) {
	assert.Equal(t, "Cloudy", describeCondition("Clouds", "broken clouds"))
	assert.Equal(t, "Storm", describeCondition("Thunderstorm", ""))
	assert.Equal(t, "volcanic ash", describeCondition("Ash", "volcanic ash"))
	assert.Equal(t, "Unknown", describeCondition("Ash", ""))
}

func TestSimulatedLocationName(t *testing.T) {
	assert.Equal(t, "Madrid", SimulatedLocationName(0, 0))
	assert.Equal(t, "Murcia", SimulatedLocationName(1.5, 0.25))
	assert.Equal(t, "Malaga", SimulatedLocationName(-2, 0.5))
	assert.Equal(t, SimulatedLocationName(1.5, 0.25), SimulatedLocationName(1.5, 0.25))
}

func TestSimulatedForecastWithoutAPIKey(t *testing.T) {
	service := NewOpenWeatherService("", nil)
	service.Random = outfitgen.NewSeededRandom(7)

	ranges := map[string][2]int{}
	for _, condition := range simulatedConditions {
		ranges[condition.condition] = [2]int{condition.minTemp, condition.maxTemp}
	}

	for i := 0; i < 50; i++ {
		forecast, err := service.GetTodayForecast(context.Background(), 1.5, 0.25)
		require.NoError(t, err)
		assert.True(t, forecast.Simulated)
		assert.Equal(t, "Murcia", forecast.Location)
		assert.True(t, forecast.Climate.Valid())

		bounds, ok := ranges[forecast.Condition]
		require.True(t, ok, forecast.Condition)
		assert.GreaterOrEqual(t, forecast.Temperature, bounds[0])
		assert.Less(t, forecast.Temperature, bounds[1])
		assert.GreaterOrEqual(t, forecast.Humidity, 30)
		assert.Less(t, forecast.Humidity, 70)
		assert.GreaterOrEqual(t, forecast.WindSpeed, 5)
		assert.Less(t, forecast.WindSpeed, 25)
	}
}

func openWeatherServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

const madridResponse = `{
	"main": {"temp": 12.6, "humidity": 80},
	"weather": [{"main": "Clouds", "description": "broken clouds"}],
	"wind": {"speed": 5},
	"name": "Madrid",
	"sys": {"country": "ES"}
}`

func TestOpenWeatherForecastIsCached(t *testing.T) {
	server, hits := openWeatherServer(t, http.StatusOK, madridResponse)
	weatherCache, err := NewDefaultWeatherCache()
	require.NoError(t, err)
	service := NewOpenWeatherService("secret", weatherCache)
	service.BaseURL = server.URL

	forecast, err := service.GetTodayForecast(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	assert.Equal(t, 13, forecast.Temperature)
	assert.Equal(t, "Cloudy", forecast.Condition)
	assert.Equal(t, 80, forecast.Humidity)
	assert.Equal(t, 18, forecast.WindSpeed)
	assert.Equal(t, "Madrid, ES", forecast.Location)
	assert.Equal(t, models.ClimateCold, forecast.Climate)
	assert.False(t, forecast.Simulated)

	again, err := service.GetTodayForecast(context.Background(), 40.4170, -3.7040)
	require.NoError(t, err)
	assert.Equal(t, *forecast, *again)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestOpenWeatherFailureFallsBackToSimulation(t *testing.T) {
	server, hits := openWeatherServer(t, http.StatusUnauthorized, `{"cod": 401}`)
	weatherCache, err := NewDefaultWeatherCache()
	require.NoError(t, err)
	service := NewOpenWeatherService("secret", weatherCache)
	service.BaseURL = server.URL
	service.Random = outfitgen.NewSeededRandom(1)

	forecast, err := service.GetTodayForecast(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	assert.True(t, forecast.Simulated)

	// simulated forecasts are not cached
	_, err = service.GetTodayForecast(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestOpenWeatherEmptyConditions(t *testing.T) {
	server, _ := openWeatherServer(t, http.StatusOK, `{"main": {"temp": 3}, "weather": []}`)
	service := NewOpenWeatherService("secret", nil)
	service.BaseURL = server.URL

	_, err := service.fetch(context.Background(), 10, 10)
	assert.Error(t, err)

	forecast, err := service.GetTodayForecast(context.Background(), 10, 10)
	require.NoError(t, err)
	assert.True(t, forecast.Simulated)
}

func TestOpenWeatherRejectsInvalidCoordinates(t *testing.T) {
	service := NewOpenWeatherService("", nil)

	_, err := service.GetTodayForecast(context.Background(), 91, 0)
	assert.Error(t, err)
	_, err = service.GetTodayForecast(context.Background(), 0, -181)
	assert.Error(t, err)
}
