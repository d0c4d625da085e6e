package outfitgen

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"wardrobeapi/colorharmony"
	"wardrobeapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRandom struct {
	ints   []int
	floats []float64
	ii, fi int
}

func (s *scriptedRandom) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii%len(s.ints)] % n
	s.ii++
	return v
}

func (s *scriptedRandom) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	return v
}

var nextId uint = 1

func newGarment(category models.Category, hex string, climates ...models.Climate) models.Clothing {
	nextId++
	item := models.Clothing{
		Name:     fmt.Sprintf("%s-%d", category, nextId),
		Category: category,
		Climates: climates,
	}
	item.ID = nextId
	if hex != "" {
		item.Colors = []models.ColorInfo{{Hex: hex, Frequency: 1}}
	}
	return item
}

func bools(b bool) *bool {
	return &b
}

func floats(f float64) *float64 {
	return &f
}

func countCategory(items []models.Clothing, category models.Category) int {
	n := 0
	for _, item := range items {
		if item.Category == category {
			n++
		}
	}
	return n
}

func TestGenerateOutfitMissingCategory(t *testing.T) {
	wardrobe := []models.Clothing{
		newGarment(models.CategoryTop, "#ff0000", models.ClimateHot),
		newGarment(models.CategoryBottom, "#0000ff", models.ClimateHot),
	}
	g := NewGenerator(NewSeededRandom(1))
	assert.Nil(t, g.GenerateOutfit(Requirements{Climate: models.ClimateHot, AvailableItems: wardrobe}))
	assert.Nil(t, g.GenerateOutfit(Requirements{Climate: models.ClimateHot}))
}

func TestGenerateOutfitClimateFilter(t *testing.T) {
	wardrobe := []models.Clothing{
		newGarment(models.CategoryTop, "#ff0000", models.ClimateHot),
		newGarment(models.CategoryBottom, "#0000ff", models.ClimateHot),
		newGarment(models.CategoryFootwear, "#000000", models.ClimateHot),
	}
	g := NewGenerator(NewSeededRandom(2))
	assert.Nil(t, g.GenerateOutfit(Requirements{Climate: models.ClimateSnow, AvailableItems: wardrobe}))
	assert.NotNil(t, g.GenerateOutfit(Requirements{Climate: models.ClimateHot, AvailableItems: wardrobe}))
}

func TestGenerateOutfitMildIsUniversal(t *testing.T) {
	wardrobe := []models.Clothing{
		newGarment(models.CategoryTop, "", models.ClimateMild),
		newGarment(models.CategoryBottom, "", models.ClimateMild),
		newGarment(models.CategoryFootwear, "", models.ClimateSnow),
	}
	outfit := NewGenerator(NewSeededRandom(3)).GenerateOutfit(Requirements{
		Climate:          models.ClimateSnow,
		AvailableItems:   wardrobe,
		IncludeOuterwear: bools(false),
	})
	require.NotNil(t, outfit)
	assert.Len(t, outfit.Items, 3)
	assert.InDelta(t, (0.8+0.8+1.0)/3, outfit.Score.Climate, 1e-9)
	// no colours anywhere
	assert.Equal(t, 0.0, outfit.Score.Color)
}

func TestGenerateOutfitColdScenario(t *testing.T) {
	wardrobe := []models.Clothing{
		newGarment(models.CategoryTop, "#b22222", models.ClimateCold),
		newGarment(models.CategoryTop, "#f5f5dc", models.ClimateCold, models.ClimateMild),
		newGarment(models.CategoryBottom, "#000080", models.ClimateCold),
		newGarment(models.CategoryFootwear, "#000000", models.ClimateCold),
		newGarment(models.CategoryOuterwear, "#808080", models.ClimateCold),
		newGarment(models.CategoryAccessory, "#8b4513", models.ClimateMild),
		newGarment(models.CategoryTop, "#ffff00", models.ClimateHot),
	}
	for seed := uint64(0); seed < 20; seed++ {
		outfit := NewGenerator(NewSeededRandom(seed)).GenerateOutfit(Requirements{
			Climate:        models.ClimateCold,
			AvailableItems: wardrobe,
		})
		require.NotNil(t, outfit)
		assert.Equal(t, 1, countCategory(outfit.Items, models.CategoryTop))
		assert.Equal(t, 1, countCategory(outfit.Items, models.CategoryBottom))
		assert.Equal(t, 1, countCategory(outfit.Items, models.CategoryFootwear))
		assert.Equal(t, 1, countCategory(outfit.Items, models.CategoryOuterwear))
		assert.LessOrEqual(t, countCategory(outfit.Items, models.CategoryAccessory), 1)
		for _, item := range outfit.Items {
			assert.True(t, item.HasClimate(models.ClimateCold) || item.HasClimate(models.ClimateMild))
		}
		assert.GreaterOrEqual(t, outfit.Score.Climate, 0.96)
		assert.GreaterOrEqual(t, outfit.Score.Overall, 0.0)
		assert.LessOrEqual(t, outfit.Score.Overall, 1.0)
		assert.LessOrEqual(t, len(outfit.ColorPalette), colorharmony.MaxPaletteSize)
		assert.Contains(t, outfit.Explanation, "with outerwear")
	}
}

func TestGenerateOutfitColdWithMildBottom(t *testing.T) {
	tops := []models.Clothing{
		newGarment(models.CategoryTop, "#b22222", models.ClimateCold),
		newGarment(models.CategoryTop, "#f5f5dc", models.ClimateCold),
	}
	bottom := newGarment(models.CategoryBottom, "#000080", models.ClimateMild)
	shoes := newGarment(models.CategoryFootwear, "#000000", models.ClimateCold)
	coat := newGarment(models.CategoryOuterwear, "#808080", models.ClimateCold)
	wardrobe := append(slices.Clone(tops), bottom, shoes, coat)

	for seed := uint64(0); seed < 50; seed++ {
		outfit := NewGenerator(NewSeededRandom(seed)).GenerateOutfit(Requirements{
			Climate:          models.ClimateCold,
			AvailableItems:   wardrobe,
			IncludeOuterwear: bools(true),
			ColorWeight:      floats(0.5),
		})
		require.NotNil(t, outfit)
		require.Len(t, outfit.Items, 4)

		ids := []uint{}
		for _, item := range outfit.Items {
			ids = append(ids, item.ID)
		}
		assert.Contains(t, ids, bottom.ID)
		assert.Contains(t, ids, shoes.ID)
		assert.Contains(t, ids, coat.ID)
		assert.Equal(t, 1, countCategory(outfit.Items, models.CategoryTop))
		assert.True(t, slices.Contains(ids, tops[0].ID) != slices.Contains(ids, tops[1].ID))

		assert.GreaterOrEqual(t, outfit.Score.Climate, 0.8)
		assert.InDelta(t, (1+0.8+1+1)/4.0, outfit.Score.Climate, 1e-9)
		assert.InDelta(t, (outfit.Score.Climate+outfit.Score.Color)/2, outfit.Score.Overall, 1e-9)
	}
}

func TestGenerateOutfitOutOfRangeFrequencies(t *testing.T) {
	for _, frequency := range []float64{-0.5, 1.5, math.NaN()} {
		top := newGarment(models.CategoryTop, "#ff0000", models.ClimateHot)
		top.Colors = append(top.Colors, models.ColorInfo{Hex: "#00ff00", Frequency: frequency})
		wardrobe := []models.Clothing{
			top,
			newGarment(models.CategoryBottom, "#ff0000", models.ClimateHot),
			newGarment(models.CategoryFootwear, "#ff0000", models.ClimateHot),
		}

		outfit := NewGenerator(NewSeededRandom(3)).GenerateOutfit(Requirements{
			Climate:        models.ClimateHot,
			AvailableItems: wardrobe,
			ColorWeight:    floats(1),
		})
		require.NotNil(t, outfit)
		for _, score := range []float64{outfit.Score.Climate, outfit.Score.Color, outfit.Score.Overall} {
			assert.False(t, math.IsNaN(score), "frequency %v", frequency)
			assert.GreaterOrEqual(t, score, 0.0, "frequency %v", frequency)
			assert.LessOrEqual(t, score, 1.0, "frequency %v", frequency)
		}
		// the top is scored as colourless, so only bottom and footwear pair up
		require.Len(t, outfit.PairScores, 1, "frequency %v", frequency)
		assert.Equal(t, 1.0, outfit.Score.Color)
	}
}

func TestGenerateOutfitSameSeedSameResult(t *testing.T) {
	wardrobe := []models.Clothing{}
	for i := 0; i < 5; i++ {
		wardrobe = append(wardrobe,
			newGarment(models.CategoryTop, fmt.Sprintf("#%02x0000", 40*i+10), models.ClimateMild),
			newGarment(models.CategoryBottom, fmt.Sprintf("#0000%02x", 40*i+10), models.ClimateMild),
			newGarment(models.CategoryFootwear, fmt.Sprintf("#00%02x00", 40*i+10), models.ClimateMild),
			newGarment(models.CategoryAccessory, "#333333", models.ClimateMild),
		)
	}
	req := Requirements{Climate: models.ClimateMild, AvailableItems: wardrobe}
	first := NewGenerator(NewSeededRandom(42)).GenerateOutfit(req)
	second := NewGenerator(NewSeededRandom(42)).GenerateOutfit(req)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Score, second.Score)
}

func TestGenerateOutfitInvalidColorsDegrade(t *testing.T) {
	wardrobe := []models.Clothing{
		newGarment(models.CategoryTop, "#zz0000", models.ClimateHot),
		newGarment(models.CategoryBottom, "#0000ff", models.ClimateHot),
		newGarment(models.CategoryFootwear, "#ffffff", models.ClimateHot),
	}
	outfit := NewGenerator(NewSeededRandom(5)).GenerateOutfit(Requirements{Climate: models.ClimateHot, AvailableItems: wardrobe})
	require.NotNil(t, outfit)
	// only bottom and footwear are compared
	require.Len(t, outfit.PairScores, 1)
	for _, item := range outfit.Items {
		if item.Category == models.CategoryTop {
			assert.Empty(t, item.Colors)
		}
	}
	// caller's garments are left untouched
	assert.Equal(t, "#zz0000", wardrobe[0].Colors[0].Hex)
}

func TestBuildCandidatesCapsRequiredCategories(t *testing.T) {
	byCategory := map[models.Category][]models.Clothing{}
	for i := 0; i < 5; i++ {
		for _, category := range RequiredCategories {
			byCategory[category] = append(byCategory[category], newGarment(category, "", models.ClimateMild))
		}
	}
	g := NewGenerator(NewSeededRandom(7))
	candidates := g.buildCandidates(byCategory, false)
	assert.Len(t, candidates, 27)

	seen := map[models.Category]map[uint]bool{}
	for _, candidate := range candidates {
		require.Len(t, candidate, 3)
		for _, item := range candidate {
			if seen[item.Category] == nil {
				seen[item.Category] = map[uint]bool{}
			}
			seen[item.Category][item.ID] = true
		}
	}
	for _, category := range RequiredCategories {
		assert.Len(t, seen[category], MaxCandidatesPerCategory)
	}
}

func TestBuildCandidatesOptionalVariants(t *testing.T) {
	byCategory := map[models.Category][]models.Clothing{
		models.CategoryTop:       {newGarment(models.CategoryTop, "", models.ClimateCold)},
		models.CategoryBottom:    {newGarment(models.CategoryBottom, "", models.ClimateCold)},
		models.CategoryFootwear:  {newGarment(models.CategoryFootwear, "", models.ClimateCold)},
		models.CategoryOuterwear: {newGarment(models.CategoryOuterwear, "", models.ClimateCold)},
		models.CategoryAccessory: {newGarment(models.CategoryAccessory, "", models.ClimateCold)},
	}

	// coin flips always succeed: both the accessory variant and the plain one
	g := NewGenerator(&scriptedRandom{floats: []float64{0.99}})
	candidates := g.buildCandidates(byCategory, true)
	require.Len(t, candidates, 2)
	sizes := []int{len(candidates[0]), len(candidates[1])}
	assert.ElementsMatch(t, []int{4, 5}, sizes)
	for _, candidate := range candidates {
		assert.Equal(t, 1, countCategory(candidate, models.CategoryOuterwear))
	}

	// coin flips always fail
	g = NewGenerator(&scriptedRandom{floats: []float64{0.0}})
	candidates = g.buildCandidates(byCategory, true)
	require.Len(t, candidates, 1)
	assert.Len(t, candidates[0], 4)

	// without outerwear the accessory chance is lower: 0.6 is not enough
	g = NewGenerator(&scriptedRandom{floats: []float64{0.6}})
	candidates = g.buildCandidates(byCategory, false)
	require.Len(t, candidates, 1)
	assert.Len(t, candidates[0], 3)

	g = NewGenerator(&scriptedRandom{floats: []float64{0.8}})
	candidates = g.buildCandidates(byCategory, false)
	require.Len(t, candidates, 2)
	for _, candidate := range candidates {
		assert.Equal(t, 0, countCategory(candidate, models.CategoryOuterwear))
	}
}

func TestSelectOutfitFromTopThree(t *testing.T) {
	evaluated := []GeneratedOutfit{
		{Explanation: "a", Score: Score{Overall: 0.9}},
		{Explanation: "b", Score: Score{Overall: 0.5}},
		{Explanation: "c", Score: Score{Overall: 0.8}},
		{Explanation: "d", Score: Score{Overall: 0.7}},
		{Explanation: "e", Score: Score{Overall: 0.65}},
	}
	expected := []string{"a", "c", "d"}
	for i := 0; i < 3; i++ {
		g := NewGenerator(&scriptedRandom{ints: []int{i}})
		assert.Equal(t, expected[i], g.selectOutfit(evaluated).Explanation)
	}
	for seed := uint64(0); seed < 30; seed++ {
		selected := NewGenerator(NewSeededRandom(seed)).selectOutfit(evaluated)
		assert.Contains(t, expected, selected.Explanation)
	}
}

func TestSelectOutfitFallsBackToBest(t *testing.T) {
	evaluated := []GeneratedOutfit{
		{Explanation: "a", Score: Score{Overall: 0.3}},
		{Explanation: "b", Score: Score{Overall: 0.55}},
		{Explanation: "c", Score: Score{Overall: 0.55}},
	}
	for seed := uint64(0); seed < 10; seed++ {
		assert.Equal(t, "b", NewGenerator(NewSeededRandom(seed)).selectOutfit(evaluated).Explanation)
	}
}

func TestEvaluateOutfitWeightExtremes(t *testing.T) {
	items := []models.Clothing{
		newGarment(models.CategoryTop, "#ff0000", models.ClimateCold),
		newGarment(models.CategoryBottom, "#00ff00", models.ClimateHot),
		newGarment(models.CategoryFootwear, "#0000ff", models.ClimateMild),
	}
	climateOnly := EvaluateOutfit(items, models.ClimateCold, 0)
	assert.Equal(t, climateOnly.Score.Climate, climateOnly.Score.Overall)
	assert.InDelta(t, (1.0+0.3+0.8)/3, climateOnly.Score.Climate, 1e-9)

	colorOnly := EvaluateOutfit(items, models.ClimateCold, 1)
	assert.Equal(t, colorOnly.Score.Color, colorOnly.Score.Overall)
	assert.InDelta(t, 0.9, colorOnly.Score.Color, 1e-9)

	clamped := EvaluateOutfit(items, models.ClimateCold, 7)
	assert.Equal(t, clamped.Score.Color, clamped.Score.Overall)
}

func TestGenerateOutfitWeightExtremes(t *testing.T) {
	wardrobe := []models.Clothing{
		newGarment(models.CategoryTop, "#ff0000", models.ClimateHot),
		newGarment(models.CategoryBottom, "#00ffff", models.ClimateMild),
		newGarment(models.CategoryFootwear, "#ff0000", models.ClimateHot),
	}
	outfit := NewGenerator(NewSeededRandom(9)).GenerateOutfit(Requirements{
		Climate: models.ClimateHot, AvailableItems: wardrobe, ColorWeight: floats(0),
	})
	require.NotNil(t, outfit)
	assert.Equal(t, outfit.Score.Climate, outfit.Score.Overall)

	outfit = NewGenerator(NewSeededRandom(9)).GenerateOutfit(Requirements{
		Climate: models.ClimateHot, AvailableItems: wardrobe, ColorWeight: floats(1),
	})
	require.NotNil(t, outfit)
	assert.Equal(t, outfit.Score.Color, outfit.Score.Overall)
}

func TestExplanation(t *testing.T) {
	items := []models.Clothing{
		newGarment(models.CategoryTop, "#ff0000", models.ClimateCold),
		newGarment(models.CategoryBottom, "#00ffff", models.ClimateCold),
		newGarment(models.CategoryFootwear, "#ff1100", models.ClimateCold),
		newGarment(models.CategoryOuterwear, "", models.ClimateCold),
		newGarment(models.CategoryAccessory, "", models.ClimateCold),
	}
	outfit := EvaluateOutfit(items, models.ClimateCold, 0.5)
	assert.Equal(t, "Outfit of 5 garments with outerwear and accessory. Complementary colors", outfit.Explanation)

	plain := EvaluateOutfit(items[:3:3], models.ClimateCold, 0.5)
	assert.Equal(t, "Outfit of 3 garments. Complementary colors", plain.Explanation)

	colorless := EvaluateOutfit(items[3:], models.ClimateCold, 0.5)
	assert.Equal(t, "Outfit of 2 garments with outerwear and accessory", colorless.Explanation)
}

func TestShouldIncludeOuterwear(t *testing.T) {
	for _, climate := range models.Climates {
		expected := climate == models.ClimateCold || climate == models.ClimateExtremeCold ||
			climate == models.ClimateRain || climate == models.ClimateSnow || climate == models.ClimateWind
		assert.Equal(t, expected, ShouldIncludeOuterwear(climate), string(climate))
	}
}

func TestGetOutfitSuggestions(t *testing.T) {
	weak := GeneratedOutfit{
		Items: make([]models.Clothing, 3),
		Score: Score{Climate: 0.5, Color: 0.4},
	}
	assert.Equal(t, []string{SuggestionClimate, SuggestionColors, SuggestionAccessory}, GetOutfitSuggestions(weak))

	strong := GeneratedOutfit{
		Items: make([]models.Clothing, 4),
		Score: Score{Climate: 0.7, Color: 0.6},
	}
	assert.Empty(t, GetOutfitSuggestions(strong))
}
