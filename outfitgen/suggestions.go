package outfitgen

import (
	"slices"

	"wardrobeapi/models"
)

var outerwearClimates = []models.Climate{
	models.ClimateCold,
	models.ClimateExtremeCold,
	models.ClimateRain,
	models.ClimateSnow,
	models.ClimateWind,
}

func ShouldIncludeOuterwear(climate models.Climate) bool {
	return slices.Contains(outerwearClimates, climate)
}

const (
	SuggestionClimate   = "Consider garments better suited to the current weather"
	SuggestionColors    = "The colors could match better"
	SuggestionAccessory = "You could add an accessory to complete the look"
)

func GetOutfitSuggestions(outfit GeneratedOutfit) []string {
	suggestions := []string{}
	if outfit.Score.Climate < 0.7 {
		suggestions = append(suggestions, SuggestionClimate)
	}
	if outfit.Score.Color < 0.6 {
		suggestions = append(suggestions, SuggestionColors)
	}
	if len(outfit.Items) < 4 {
		suggestions = append(suggestions, SuggestionAccessory)
	}
	return suggestions
}
