package services

import (
	"fmt"
	"image"
	"log"

	"github.com/EdlinOrg/prominentcolor"

	"wardrobeapi/colorharmony"
	"wardrobeapi/models"
)

const DefaultColorCount = 3

type ColorExtractor interface {
	ExtractColors(img image.Image) ([]models.ColorInfo, error)
}

// ProminentColorExtractor clusters pixels with k-means and reports each
// cluster centre with its share of the counted pixels.
type ProminentColorExtractor struct {
	K int
}

func NewColorExtractor() *ProminentColorExtractor {
	return &ProminentColorExtractor{K: DefaultColorCount}
}

func (e *ProminentColorExtractor) ExtractColors(img image.Image) ([]models.ColorInfo, error) {
	k := e.K
	if k <= 0 {
		k = DefaultColorCount
	}

	// whitened backgrounds are masked out so they are not reported as a colour
	masks := []prominentcolor.ColorBackgroundMask{prominentcolor.MaskWhite}
	items, err := prominentcolor.KmeansWithAll(k, img, prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, masks)
	if err != nil {
		log.Printf("[Colors] Masked extraction failed, retrying with every pixel: %v\n", err)
		items, err = prominentcolor.KmeansWithAll(k, img, prominentcolor.ArgumentNoCropping, prominentcolor.DefaultSize, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract colors: %w", err)
		}
	}

	return colorInfosFromClusters(items), nil
}

func colorInfosFromClusters(items []prominentcolor.ColorItem) []models.ColorInfo {
	total := 0
	for _, item := range items {
		total += item.Cnt
	}

	colors := make([]models.ColorInfo, 0, len(items))
	for _, item := range items {
		if item.Cnt == 0 {
			continue
		}
		r, g, b := uint8(item.Color.R), uint8(item.Color.G), uint8(item.Color.B)
		colors = append(colors, models.ColorInfo{
			RGB:       [3]int{int(r), int(g), int(b)},
			Hex:       colorharmony.HexFromRGB(r, g, b),
			Frequency: float64(item.Cnt) / float64(total),
		})
	}
	return colors
}
