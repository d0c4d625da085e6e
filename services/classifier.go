package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/genai"

	"wardrobeapi/models"
)

const DefaultClassifierModel = "gemini-2.5-flash"

// ClothingDetection is what the classifier says about a garment photo, after
// normalisation to the categories and climates garments can carry.
type ClothingDetection struct {
	Name       string           `json:"name"`
	Category   models.Category  `json:"category"`
	Climates   []models.Climate `json:"climates"`
	Confidence float64          `json:"confidence"`
}

// ClothingClassifier is treated as an opaque labeller of garment images.
type ClothingClassifier interface {
	Classify(ctx context.Context, image []byte, mimeType string) (*ClothingDetection, error)
}

type rawDetection struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Climates   []string `json:"climates"`
	Confidence float64  `json:"confidence"`
}

type GoogleClothingClassifier struct {
	APIKey    string
	ModelName string
}

func NewGoogleClothingClassifier(apiKey string) *GoogleClothingClassifier {
	return &GoogleClothingClassifier{APIKey: apiKey, ModelName: DefaultClassifierModel}
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func (g *GoogleClothingClassifier) Classify(ctx context.Context, image []byte, mimeType string) (*ClothingDetection, error) {
	if g.APIKey == "" {
		return nil, fmt.Errorf("classifier API key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		{Text: "Identify the single garment in the photo. Give it a short name, one category and every climate it is suitable for."},
	}

	result, err := client.Models.GenerateContent(ctx, g.ModelName, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name": {Type: genai.TypeString},
				"category": {
					Type: genai.TypeString,
					Enum: stringsOf(models.Categories),
				},
				"climates": {
					Type:  genai.TypeArray,
					Items: &genai.Schema{Type: genai.TypeString, Enum: stringsOf(models.Climates)},
				},
				"confidence": {Type: genai.TypeNumber},
			},
			Required: []string{"name", "category", "climates"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("classification blocked: %s %s", result.PromptFeedback.BlockReason, result.PromptFeedback.BlockReasonMessage)
	}

	var raw rawDetection
	if err := json.Unmarshal([]byte(result.Text()), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}
	detection := NormalizeDetection(raw.Name, raw.Category, raw.Climates, raw.Confidence)
	log.Printf("[Classifier] %q -> %s %v\n", raw.Name, detection.Category, detection.Climates)
	return &detection, nil
}

var categoryKeywords = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryOuterwear, []string{"coat", "jacket", "anorak", "parka", "raincoat", "outerwear"}},
	{models.CategoryTop, []string{"shirt", "blouse", "sweater", "hoodie", "sweatshirt", "blazer", "top"}},
	{models.CategoryBottom, []string{"pants", "trousers", "jeans", "skirt", "shorts", "bottom"}},
	{models.CategoryFootwear, []string{"shoe", "boot", "sandal", "sneaker", "footwear"}},
}

var climateKeywords = []struct {
	climate  models.Climate
	keywords []string
}{
	{models.ClimateExtremeCold, []string{"extreme", "freezing", "arctic"}},
	{models.ClimateHot, []string{"summer", "warm", "heat"}},
	{models.ClimateCold, []string{"winter", "chilly"}},
	{models.ClimateRain, []string{"rainy", "wet"}},
	{models.ClimateWind, []string{"windy"}},
	{models.ClimateSnow, []string{"snowy"}},
}

// NormalizeCategory maps free-form labels onto a garment category. Anything
// unrecognised is an accessory.
func NormalizeCategory(label string) models.Category {
	label = strings.ToLower(strings.TrimSpace(label))
	if models.Category(label).Valid() {
		return models.Category(label)
	}
	for _, entry := range categoryKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(label, keyword) {
				return entry.category
			}
		}
	}
	return models.CategoryAccessory
}

// NormalizeClimates maps labels onto climates, unknown ones becoming mild,
// and drops duplicates keeping first-seen order.
func NormalizeClimates(labels []string) []models.Climate {
	climates := []models.Climate{}
	for _, label := range labels {
		climate := normalizeClimate(label)
		if !slices.Contains(climates, climate) {
			climates = append(climates, climate)
		}
	}
	return climates
}

func normalizeClimate(label string) models.Climate {
	label = strings.ToLower(strings.TrimSpace(label))
	if models.Climate(label).Valid() {
		return models.Climate(label)
	}
	for _, entry := range climateKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(label, keyword) {
				return entry.climate
			}
		}
	}
	return models.ClimateMild
}

func NormalizeDetection(name, category string, climates []string, confidence float64) ClothingDetection {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Garment"
	}
	normalized := NormalizeClimates(climates)
	if len(normalized) == 0 {
		normalized = []models.Climate{models.ClimateMild}
	}
	return ClothingDetection{
		Name:       cases.Title(language.English).String(name),
		Category:   NormalizeCategory(category),
		Climates:   normalized,
		Confidence: max(0, min(1, confidence)),
	}
}
