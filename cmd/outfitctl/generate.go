package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
)

type generateOutput struct {
	Climate     models.Climate             `json:"climate"`
	Outfit      *outfitgen.GeneratedOutfit `json:"outfit"`
	Suggestions []string                   `json:"suggestions"`
	Message     string                     `json:"message,omitempty"`
}

func loadWardrobe(path string) ([]models.Clothing, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wardrobe: %w", err)
	}
	var clothes []models.Clothing
	if err := json.Unmarshal(raw, &clothes); err != nil {
		return nil, fmt.Errorf("failed to parse wardrobe %s: %w", path, err)
	}
	for i, item := range clothes {
		if !item.Category.Valid() {
			return nil, fmt.Errorf("garment %d (%s): unknown category %q", i, item.Name, item.Category)
		}
		for _, climate := range item.Climates {
			if !climate.Valid() {
				return nil, fmt.Errorf("garment %d (%s): unknown climate %q", i, item.Name, climate)
			}
		}
	}
	return clothes, nil
}

func generateCmd() *cobra.Command {
	var (
		wardrobePath string
		climate      string
		outerwear    bool
		colorWeight  float64
		seed         uint64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an outfit from a wardrobe file",
		Long: `Generate an outfit for a climate from a JSON array of garments.

Each garment needs a name, a category, its climates and optionally its colours:
  [{"id": 1, "name": "Tee", "category": "top", "climates": ["mild"],
    "colors": [{"hex": "#ffffff", "frequency": 1}]}]

Without --outerwear the weather decides whether outerwear is worn.
A fixed --seed makes the selection repeatable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := models.Climate(climate)
			if !target.Valid() {
				return fmt.Errorf("unknown climate %q", climate)
			}
			if colorWeight < 0 || colorWeight > 1 {
				return fmt.Errorf("color weight must be between 0 and 1, got %v", colorWeight)
			}
			clothes, err := loadWardrobe(wardrobePath)
			if err != nil {
				return err
			}

			random := outfitgen.DefaultRandom()
			if cmd.Flags().Changed("seed") {
				random = outfitgen.NewSeededRandom(seed)
			}
			req := outfitgen.Requirements{
				Climate:        target,
				AvailableItems: clothes,
				ColorWeight:    &colorWeight,
			}
			if cmd.Flags().Changed("outerwear") {
				req.IncludeOuterwear = &outerwear
			}

			output := generateOutput{Climate: target, Suggestions: []string{}}
			output.Outfit = outfitgen.NewGenerator(random).GenerateOutfit(req)
			if output.Outfit == nil {
				output.Message = "Not enough compatible garments for this weather"
			} else {
				output.Suggestions = outfitgen.GetOutfitSuggestions(*output.Outfit)
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(output)
		},
	}

	cmd.Flags().StringVar(&wardrobePath, "wardrobe", "", "path to the wardrobe JSON file")
	cmd.Flags().StringVar(&climate, "climate", "", "target climate (hot, mild, cold, extreme-cold, rain, snow, wind)")
	cmd.Flags().BoolVar(&outerwear, "outerwear", false, "force outerwear on or off")
	cmd.Flags().Float64Var(&colorWeight, "color-weight", outfitgen.DefaultColorWeight, "weight of colour harmony in the score, 0 to 1")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for a repeatable selection")
	_ = cmd.MarkFlagRequired("wardrobe")
	_ = cmd.MarkFlagRequired("climate")

	return cmd
}
