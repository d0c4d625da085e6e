package outfitgen

import (
	"fmt"
	"log"
	"math"
	"slices"
	"sort"
	"strings"

	"wardrobeapi/colorharmony"
	"wardrobeapi/models"
)

const (
	MaxCandidatesPerCategory = 3
	GoodOutfitThreshold      = 0.6
	TopSelectionSize         = 3
	DefaultColorWeight       = 0.5

	// probability of adding an accessory variant next to an outfit with outerwear
	OuterwearAccessoryChance = 0.5
	// probability of adding an accessory variant next to a base outfit
	AccessoryChance = 0.3

	exactClimateScore = 1.0
	mildClimateScore  = 0.8
	otherClimateScore = 0.3
)

var (
	RequiredCategories = []models.Category{models.CategoryTop, models.CategoryBottom, models.CategoryFootwear}
	OptionalCategories = []models.Category{models.CategoryOuterwear, models.CategoryAccessory}
)

type Requirements struct {
	Climate        models.Climate
	AvailableItems []models.Clothing
	// nil means ShouldIncludeOuterwear(Climate)
	IncludeOuterwear *bool
	// 0 scores only the weather, 1 only the colours; nil means 0.5
	ColorWeight *float64
}

type Score struct {
	Climate float64 `json:"climate"`
	Color   float64 `json:"color"`
	Overall float64 `json:"overall"`
}

type GeneratedOutfit struct {
	Items        []models.Clothing        `json:"items"`
	Score        Score                    `json:"score"`
	ColorPalette []models.ColorInfo       `json:"color_palette"`
	PairScores   []colorharmony.PairScore `json:"pair_scores"`
	Explanation  string                   `json:"explanation"`
}

// Generator holds no state besides its random source, so one instance can
// serve many requests when the source is safe for concurrent use.
type Generator struct {
	Random RandomSource
}

func NewGenerator(random RandomSource) *Generator {
	if random == nil {
		random = DefaultRandom()
	}
	return &Generator{Random: random}
}

// GenerateOutfit uses the package default random source.
func GenerateOutfit(req Requirements) *GeneratedOutfit {
	return NewGenerator(nil).GenerateOutfit(req)
}

// GenerateOutfit picks one outfit for the climate, or returns nil when the
// wardrobe cannot cover every required category.
func (g *Generator) GenerateOutfit(req Requirements) *GeneratedOutfit {
	colorWeight := resolveColorWeight(req.ColorWeight)
	includeOuterwear := ShouldIncludeOuterwear(req.Climate)
	if req.IncludeOuterwear != nil {
		includeOuterwear = *req.IncludeOuterwear
	}

	compatible := filterByClimate(sanitizeColors(req.AvailableItems), req.Climate)
	if len(compatible) == 0 {
		log.Printf("[Outfit] No garments for climate %s among %d\n", req.Climate, len(req.AvailableItems))
		return nil
	}

	byCategory := groupByCategory(compatible)
	for _, category := range RequiredCategories {
		if len(byCategory[category]) == 0 {
			log.Printf("[Outfit] Missing required category %s for climate %s\n", category, req.Climate)
			return nil
		}
	}

	candidates := g.buildCandidates(byCategory, includeOuterwear)
	if len(candidates) == 0 {
		return nil
	}
	log.Printf("[Outfit] %d candidate combinations for climate %s\n", len(candidates), req.Climate)

	evaluated := make([]GeneratedOutfit, 0, len(candidates))
	for _, items := range candidates {
		evaluated = append(evaluated, EvaluateOutfit(items, req.Climate, colorWeight))
	}

	selected := g.selectOutfit(evaluated)
	log.Printf("[Outfit] Selected %d garments with score %.2f (climate %.2f, color %.2f)\n",
		len(selected.Items), selected.Score.Overall, selected.Score.Climate, selected.Score.Color)
	return &selected
}

func (g *Generator) selectOutfit(evaluated []GeneratedOutfit) GeneratedOutfit {
	good := make([]GeneratedOutfit, 0, len(evaluated))
	for _, outfit := range evaluated {
		if outfit.Score.Overall >= GoodOutfitThreshold {
			good = append(good, outfit)
		}
	}

	if len(good) > 0 {
		sort.SliceStable(good, func(i, j int) bool {
			return good[i].Score.Overall > good[j].Score.Overall
		})
		top := good[:min(TopSelectionSize, len(good))]
		return pick(g.Random, top)
	}

	best := evaluated[0]
	for _, outfit := range evaluated[1:] {
		if outfit.Score.Overall > best.Score.Overall {
			best = outfit
		}
	}
	return best
}

func (g *Generator) buildCandidates(byCategory map[models.Category][]models.Clothing, includeOuterwear bool) [][]models.Clothing {
	limited := func(category models.Category) []models.Clothing {
		items := slices.Clone(byCategory[category])
		shuffle(g.Random, items)
		return items[:min(MaxCandidatesPerCategory, len(items))]
	}
	tops := limited(models.CategoryTop)
	bottoms := limited(models.CategoryBottom)
	footwear := limited(models.CategoryFootwear)

	outerwear := slices.Clone(byCategory[models.CategoryOuterwear])
	shuffle(g.Random, outerwear)
	accessories := slices.Clone(byCategory[models.CategoryAccessory])
	shuffle(g.Random, accessories)

	candidates := [][]models.Clothing{}
	for _, top := range tops {
		for _, bottom := range bottoms {
			for _, shoes := range footwear {
				base := []models.Clothing{top, bottom, shoes}

				if includeOuterwear && len(outerwear) > 0 {
					withOuterwear := append(slices.Clone(base), pick(g.Random, outerwear))
					if len(accessories) > 0 && g.Random.Float64() > 1-OuterwearAccessoryChance {
						candidates = append(candidates, append(slices.Clone(withOuterwear), pick(g.Random, accessories)))
					}
					candidates = append(candidates, withOuterwear)
					continue
				}

				if len(accessories) > 0 && g.Random.Float64() > 1-AccessoryChance {
					candidates = append(candidates, append(slices.Clone(base), pick(g.Random, accessories)))
				}
				candidates = append(candidates, base)
			}
		}
	}

	shuffle(g.Random, candidates)
	return candidates
}

// EvaluateOutfit scores a fixed set of garments for a climate.
func EvaluateOutfit(items []models.Clothing, climate models.Climate, colorWeight float64) GeneratedOutfit {
	colorWeight = clampWeight(colorWeight)
	climateScore := climateCompatibility(items, climate)

	colors, err := colorharmony.EvaluateOutfitCompatibility(items)
	if err != nil {
		// only reachable for garments that skipped sanitizeColors
		log.Printf("[Outfit] Color evaluation failed, scoring without colors: %v\n", err)
		colors, _ = colorharmony.EvaluateOutfitCompatibility(sanitizeColors(items))
	}

	overall := climateScore*(1-colorWeight) + colors.OverallScore*colorWeight
	return GeneratedOutfit{
		Items: items,
		Score: Score{
			Climate: climateScore,
			Color:   colors.OverallScore,
			Overall: overall,
		},
		ColorPalette: colors.ColorPalette,
		PairScores:   colors.PairScores,
		Explanation:  explain(items, colors),
	}
}

func climateCompatibility(items []models.Clothing, climate models.Climate) float64 {
	if len(items) == 0 {
		return 0
	}
	var total float64
	for _, item := range items {
		switch {
		case item.HasClimate(climate):
			total += exactClimateScore
		case item.HasClimate(models.ClimateMild):
			total += mildClimateScore
		default:
			total += otherClimateScore
		}
	}
	return total / float64(len(items))
}

func explain(items []models.Clothing, colors colorharmony.OutfitCompatibility) string {
	var hasOuterwear, hasAccessory bool
	for _, item := range items {
		hasOuterwear = hasOuterwear || item.Category == models.CategoryOuterwear
		hasAccessory = hasAccessory || item.Category == models.CategoryAccessory
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Outfit of %d garments", len(items))
	if hasOuterwear {
		b.WriteString(" with outerwear")
	}
	if hasAccessory {
		b.WriteString(" and accessory")
	}

	if colors.OverallScore > 0.7 {
		var best *colorharmony.PairScore
		for i, pair := range colors.PairScores {
			if pair.Harmony == nil || pair.Score <= 0.7 {
				continue
			}
			if best == nil || pair.Score > best.Score {
				best = &colors.PairScores[i]
			}
		}
		if best != nil {
			b.WriteString(". ")
			b.WriteString(best.Harmony.Description)
		}
	}
	return b.String()
}

func filterByClimate(items []models.Clothing, climate models.Climate) []models.Clothing {
	compatible := []models.Clothing{}
	for _, item := range items {
		if item.HasClimate(climate) || item.HasClimate(models.ClimateMild) {
			compatible = append(compatible, item)
		}
	}
	return compatible
}

func groupByCategory(items []models.Clothing) map[models.Category][]models.Clothing {
	groups := map[models.Category][]models.Clothing{}
	for _, item := range items {
		groups[item.Category] = append(groups[item.Category], item)
	}
	return groups
}

// sanitizeColors drops the colour list of garments holding an unparsable hex,
// so they are scored as colourless instead of failing the whole generation.
func sanitizeColors(items []models.Clothing) []models.Clothing {
	sanitized := make([]models.Clothing, len(items))
	for i, item := range items {
		if err := colorharmony.ValidColors(item.Colors); err != nil {
			log.Printf("[Outfit] [Clothing: %v] Ignoring colors: %v\n", item.ID, err)
			item.Colors = nil
		}
		sanitized[i] = item
	}
	return sanitized
}

func resolveColorWeight(weight *float64) float64 {
	if weight == nil {
		return DefaultColorWeight
	}
	return clampWeight(*weight)
}

func clampWeight(weight float64) float64 {
	if math.IsNaN(weight) {
		return DefaultColorWeight
	}
	return max(0, min(1, weight))
}
