package colorharmony

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"wardrobeapi/models"
)

type HarmonyType string

const (
	HarmonyAnalogous     HarmonyType = "analogous"
	HarmonyComplementary HarmonyType = "complementary"
	HarmonyTriadic       HarmonyType = "triadic"
	HarmonySquare        HarmonyType = "square"
	HarmonySemiAnalogous HarmonyType = "semi-analogous"
	HarmonyDissonant     HarmonyType = "dissonant"
)

const (
	// score used when there is nothing to compare
	NeutralScore = 0.5
	// outfit score when no garment pair had colours on both sides
	NoColorPairsScore = 0.0

	MaxPaletteSize = 6

	// saturation below this is treated as a neutral colour
	neutralSaturation = 20
)

type Harmony struct {
	Type        HarmonyType `json:"type"`
	Score       float64     `json:"score"`
	Description string      `json:"description"`
}

type ColorPair struct {
	Color1        models.ColorInfo `json:"color1"`
	Color2        models.ColorInfo `json:"color2"`
	Harmony       Harmony          `json:"harmony"`
	Weight        float64          `json:"weight"`
	WeightedScore float64          `json:"weighted_score"`
}

type Compatibility struct {
	Score           float64     `json:"score"`
	BestHarmony     *Harmony    `json:"best_harmony"`
	AllCombinations []ColorPair `json:"all_combinations"`
}

type PairScore struct {
	Item1Index int      `json:"item1_index"`
	Item2Index int      `json:"item2_index"`
	Score      float64  `json:"score"`
	Harmony    *Harmony `json:"harmony"`
}

type OutfitCompatibility struct {
	OverallScore float64            `json:"overall_score"`
	PairScores   []PairScore        `json:"pair_scores"`
	ColorPalette []models.ColorInfo `json:"color_palette"`
}

// EvaluateHarmony classifies two hues. The buckets are checked in order and
// the first match wins.
func EvaluateHarmony(h1, h2 float64) Harmony {
	distance := AngularDistance(h1, h2)
	switch {
	case distance < 30:
		return Harmony{Type: HarmonyAnalogous, Score: 1.0, Description: "Analogous colors"}
	case math.Abs(distance-180) < 20:
		return Harmony{Type: HarmonyComplementary, Score: 1.0, Description: "Complementary colors"}
	case math.Abs(distance-120) < 20:
		return Harmony{Type: HarmonyTriadic, Score: 0.9, Description: "Triadic colors"}
	case math.Abs(distance-90) < 15:
		return Harmony{Type: HarmonySquare, Score: 0.8, Description: "Square colors"}
	case distance < 60:
		return Harmony{Type: HarmonySemiAnalogous, Score: 0.7, Description: "Semi-analogous colors"}
	default:
		return Harmony{Type: HarmonyDissonant, Score: 0.2, Description: "Dissonant colors"}
	}
}

// EvaluateClothingCompatibility scores every colour of one garment against
// every colour of the other, weighting each pair by the product of both
// frequencies.
func EvaluateClothingCompatibility(colors1, colors2 []models.ColorInfo) (Compatibility, error) {
	if len(colors1) == 0 || len(colors2) == 0 {
		return Compatibility{Score: NeutralScore, AllCombinations: []ColorPair{}}, nil
	}

	if err := ValidColors(colors1); err != nil {
		return Compatibility{}, err
	}
	if err := ValidColors(colors2); err != nil {
		return Compatibility{}, err
	}

	hues2 := make([]float64, len(colors2))
	for i, c := range colors2 {
		hsl, err := HexToHSL(c.Hex)
		if err != nil {
			return Compatibility{}, err
		}
		hues2[i] = hsl.H
	}

	combinations := make([]ColorPair, 0, len(colors1)*len(colors2))
	var totalWeightedScore, totalWeight float64
	best := 0
	for _, c1 := range colors1 {
		hsl1, err := HexToHSL(c1.Hex)
		if err != nil {
			return Compatibility{}, err
		}
		for j, c2 := range colors2 {
			harmony := EvaluateHarmony(hsl1.H, hues2[j])
			weight := c1.Frequency * c2.Frequency
			weighted := harmony.Score * weight
			combinations = append(combinations, ColorPair{
				Color1:        c1,
				Color2:        c2,
				Harmony:       harmony,
				Weight:        weight,
				WeightedScore: weighted,
			})
			if weighted > combinations[best].WeightedScore {
				best = len(combinations) - 1
			}
			totalWeightedScore += weighted
			totalWeight += weight
		}
	}

	score := NeutralScore
	if totalWeight > 0 {
		score = totalWeightedScore / totalWeight
	}
	bestHarmony := combinations[best].Harmony
	return Compatibility{
		Score:           score,
		BestHarmony:     &bestHarmony,
		AllCombinations: combinations,
	}, nil
}

// EvaluateOutfitCompatibility averages the compatibility of every garment
// pair that has colours on both sides and builds the merged palette.
func EvaluateOutfitCompatibility(items []models.Clothing) (OutfitCompatibility, error) {
	pairScores := []PairScore{}
	var total float64

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if !items[i].HasColors() || !items[j].HasColors() {
				continue
			}
			compatibility, err := EvaluateClothingCompatibility(items[i].Colors, items[j].Colors)
			if err != nil {
				return OutfitCompatibility{}, err
			}
			pairScores = append(pairScores, PairScore{
				Item1Index: i,
				Item2Index: j,
				Score:      compatibility.Score,
				Harmony:    compatibility.BestHarmony,
			})
			total += compatibility.Score
		}
	}

	overall := NoColorPairsScore
	if len(pairScores) > 0 {
		overall = total / float64(len(pairScores))
	}

	return OutfitCompatibility{
		OverallScore: overall,
		PairScores:   pairScores,
		ColorPalette: BuildPalette(items),
	}, nil
}

// BuildPalette merges the colours of all garments by hex, summing their
// frequencies, and keeps the most frequent ones.
func BuildPalette(items []models.Clothing) []models.ColorInfo {
	palette := []models.ColorInfo{}
	index := map[string]int{}
	for _, item := range items {
		for _, color := range item.Colors {
			key := strings.ToLower(strings.TrimPrefix(color.Hex, "#"))
			if i, ok := index[key]; ok {
				palette[i].Frequency += color.Frequency
				continue
			}
			index[key] = len(palette)
			palette = append(palette, color)
		}
	}
	sort.SliceStable(palette, func(a, b int) bool {
		return palette[a].Frequency > palette[b].Frequency
	})
	if len(palette) > MaxPaletteSize {
		palette = palette[:MaxPaletteSize]
	}
	return palette
}

func IsNeutralColor(color models.ColorInfo) (bool, error) {
	hsl, err := HexToHSL(color.Hex)
	if err != nil {
		return false, err
	}
	return hsl.S < neutralSaturation, nil
}

// GetDominantColor returns the most frequent colour, the first one on ties.
func GetDominantColor(colors []models.ColorInfo) *models.ColorInfo {
	if len(colors) == 0 {
		return nil
	}
	dominant := colors[0]
	for _, color := range colors[1:] {
		if color.Frequency > dominant.Frequency {
			dominant = color
		}
	}
	return &dominant
}

// ValidColors reports the first colour whose hex cannot be parsed or whose
// frequency lies outside [0,1].
func ValidColors(colors []models.ColorInfo) error {
	for _, color := range colors {
		if _, err := HexToHSL(color.Hex); err != nil {
			return err
		}
		if math.IsNaN(color.Frequency) || color.Frequency < 0 || color.Frequency > 1 {
			return fmt.Errorf("%w: %s has %v", ErrInvalidColorFrequency, color.Hex, color.Frequency)
		}
	}
	return nil
}
