package models

type WeatherData struct {
	Temperature int     `json:"temperature"`
	Condition   string  `json:"condition"`
	Humidity    int     `json:"humidity"`
	WindSpeed   int     `json:"wind_speed"` // km/h
	Location    string  `json:"location"`
	Climate     Climate `json:"climate"`
	Simulated   bool    `json:"simulated"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
