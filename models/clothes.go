package models

import (
	"slices"

	"github.com/go-playground/validator"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryTop       Category = "top"
	CategoryBottom    Category = "bottom"
	CategoryFootwear  Category = "footwear"
	CategoryAccessory Category = "accessory"
	CategoryOuterwear Category = "outerwear"
)

var Categories = []Category{CategoryTop, CategoryBottom, CategoryFootwear, CategoryAccessory, CategoryOuterwear}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

type Climate string

const (
	ClimateHot         Climate = "hot"
	ClimateCold        Climate = "cold"
	ClimateExtremeCold Climate = "extreme-cold"
	ClimateRain        Climate = "rain"
	ClimateMild        Climate = "mild"
	ClimateWind        Climate = "wind"
	ClimateSnow        Climate = "snow"
	ClimateIndoor      Climate = "indoor"
	ClimateSunny       Climate = "sunny"
)

var Climates = []Climate{
	ClimateHot, ClimateCold, ClimateExtremeCold, ClimateRain, ClimateMild,
	ClimateWind, ClimateSnow, ClimateIndoor, ClimateSunny,
}

func (c Climate) Valid() bool {
	return slices.Contains(Climates, c)
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

func ValidateClimate(fl validator.FieldLevel) bool {
	return Climate(fl.Field().String()).Valid()
}

const (
	ProcessingIdle      = "idle"
	ProcessingPending   = "pending"
	ProcessingCompleted = "completed"
	ProcessingFailed    = "failed"
)

// ColorInfo is one dominant colour of a garment image. Frequency is the share
// of the garment's pixels in [0,1].
type ColorInfo struct {
	RGB       [3]int  `json:"rgb"`
	Hex       string  `json:"hex"`
	Frequency float64 `json:"frequency"`
}

type Clothing struct {
	JsonModel
	Name                string                         `json:"name"`
	Description         *string                        `gorm:"type:text" json:"description"`
	Category            Category                       `gorm:"index" json:"category"`
	Climates            datatypes.JSONSlice[Climate]   `json:"climates"`
	Colors              datatypes.JSONSlice[ColorInfo] `json:"colors"`
	Owner               UserAccount                    `json:"-"`
	OwnerID             uint                           `gorm:"index" json:"-"`
	ImageURL            *string                        `json:"image_url"`
	ProcessingStatus    string                         `json:"processing_status"`
	ProcessRetryTimes   int                            `json:"process_retry_times"`
	ProcessErrorMessage *string                        `json:"process_error_message"`
	AlertWhenProcessed  bool                           `json:"alert_when_processed"`
}

func (c Clothing) HasClimate(climate Climate) bool {
	return slices.Contains(c.Climates, climate)
}

func (c Clothing) HasColors() bool {
	return len(c.Colors) > 0
}
