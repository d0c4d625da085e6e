package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
)

type TodayWeatherResponse struct {
	models.WeatherData
	IncludeOuterwear bool `json:"include_outerwear"`
}

type WeatherController struct {
	Weather services.WeatherServiceProvider
}

func (controller *WeatherController) WeatherRoutes(g *echo.Group) {
	g.GET("/today", controller.Today)
}

func parseCoordinate(raw string, limit float64) (float64, bool) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < -limit || value > limit {
		return 0, false
	}
	return value, true
}

// Today answers with the forecast for the query coordinates, or for the
// caller's saved location when none are given.
func (controller *WeatherController) Today(c echo.Context) error {
	user, _, ok := requestScope(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	if controller.Weather == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Weather is not available"})
	}

	var lat, lon float64
	rawLat, rawLon := c.QueryParam("lat"), c.QueryParam("lon")
	switch {
	case rawLat != "" || rawLon != "":
		var latOk, lonOk bool
		lat, latOk = parseCoordinate(rawLat, 90)
		lon, lonOk = parseCoordinate(rawLon, 180)
		if !latOk || !lonOk {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid coordinates"})
		}
	case user.HasLocation():
		lat, lon = *user.Latitude, *user.Longitude
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Provide lat and lon or save your location first"})
	}

	forecast, err := controller.Weather.GetTodayForecast(c.Request().Context(), lat, lon)
	if err != nil {
		fmt.Printf("[Weather] [User: %v] Forecast failed: %v\n", user.ID, err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Weather is not available"})
	}
	return c.JSON(http.StatusOK, TodayWeatherResponse{
		WeatherData:      *forecast,
		IncludeOuterwear: outfitgen.ShouldIncludeOuterwear(forecast.Climate),
	})
}
