package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
)

const (
	TypeClothingProcess = "clothing:process"
	TypeDailyOutfit     = "outfit:daily_suggestion"

	ProcessingQueue = "processing"
	DefaultQueue    = "default"

	MaxProcessRetries = 3
)

// Enqueuer is the part of *asynq.Client the API needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type ClothingProcessingPayload struct {
	ClothingId uint `json:"clothing_id"`
}

func NewClothingProcessingTask(clothingId uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ClothingProcessingPayload{ClothingId: clothingId})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeClothingProcess, payload), nil
}

func NewDailyOutfitTask() *asynq.Task {
	return asynq.NewTask(TypeDailyOutfit, []byte{})
}

func getImageForClothing(ctx context.Context, awsService services.AWSServiceProvider, clothing models.Clothing) ([]byte, error) {
	if clothing.ImageURL == nil {
		return nil, fmt.Errorf("[Clothing: %v] image URL is nil", clothing.ID)
	}
	bucketName := os.Getenv("R2_BUCKET_NAME")
	fileUrl, err := awsService.GetPresignedR2FileReadURL(ctx, bucketName, *clothing.ImageURL)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("[Clothing: %v] Error on getting presigned URL for file %s", clothing.ID, *clothing.ImageURL))
		return nil, err
	}
	fmt.Printf("[Clothing: %v] Downloading... %s\n", clothing.ID, *clothing.ImageURL)
	return services.ReadFileFromUrl(fileUrl)
}

// HandleClothingProcessingTask extracts the dominant colours of an uploaded
// garment photo and, for garments without climates, asks the classifier for
// them.
func HandleClothingProcessingTask(
	ctx context.Context,
	t *asynq.Task,
	db *gorm.DB,
	awsService services.AWSServiceProvider,
	extractor services.ColorExtractor,
	classifier services.ClothingClassifier,
	fbApp *firebase.App,
) error {
	var payload ClothingProcessingPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	fmt.Printf("[Clothing: %v] Processing\n", payload.ClothingId)

	var clothing models.Clothing
	if res := db.First(&clothing, payload.ClothingId); res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			fmt.Printf("[Clothing: %v] Deleted before processing\n", payload.ClothingId)
			return nil
		}
		sentry.CaptureException(fmt.Errorf("[Queue] Error on retrieving clothing for processing %v", payload.ClothingId))
		return res.Error
	}
	if clothing.ProcessingStatus == models.ProcessingCompleted {
		fmt.Printf("[Clothing: %v] Already processed\n", clothing.ID)
		return nil
	}
	if clothing.ImageURL == nil {
		return saveClothingProcessingFail(db, clothing, "This garment has no photo to analyze", false)
	}

	imageBytes, err := getImageForClothing(ctx, awsService, clothing)
	if err != nil {
		fmt.Printf("[Clothing: %v] Error on downloading image: %v\n", clothing.ID, err)
		return saveClothingProcessingFail(db, clothing, "Failed to read the garment photo, retrying", true, err)
	}

	img, _, err := services.DecodeImage(imageBytes)
	if err != nil {
		fmt.Printf("[Clothing: %v] %v\n", clothing.ID, err)
		return saveClothingProcessingFail(db, clothing, "The uploaded file is not a supported image", false)
	}
	whitened, err := services.WhitenBackground(img, services.DefaultWhitening)
	if err != nil {
		sentry.CaptureException(err)
		return saveClothingProcessingFail(db, clothing, "Failed to prepare the garment photo", false)
	}
	colors, err := extractor.ExtractColors(whitened)
	if err != nil {
		fmt.Printf("[Clothing: %v] Error on extracting colors: %v\n", clothing.ID, err)
		sentry.CaptureException(err)
		return saveClothingProcessingFail(db, clothing, "Failed to detect the garment colors", true, err)
	}
	clothing.Colors = colors
	fmt.Printf("[Clothing: %v] Extracted %d colors\n", clothing.ID, len(colors))

	if len(clothing.Climates) == 0 && classifier != nil {
		detection, err := classifier.Classify(ctx, imageBytes, http.DetectContentType(imageBytes))
		if err != nil {
			fmt.Printf("[Clothing: %v] Error on classifying: %v\n", clothing.ID, err)
			sentry.CaptureException(err)
			return saveClothingProcessingFail(db, clothing, "Failed to recognize the garment, retrying", true, err)
		}
		applyDetection(&clothing, *detection)
	}

	clothing.ProcessingStatus = models.ProcessingCompleted
	clothing.ProcessErrorMessage = nil
	if tx := db.Save(&clothing); tx.Error != nil {
		sentry.CaptureException(tx.Error)
		return tx.Error
	}
	fmt.Printf("[Clothing: %v] Processing finished successfully\n", clothing.ID)

	if clothing.AlertWhenProcessed {
		services.SendNotification(fbApp, db, clothing.OwnerID,
			"Garment ready",
			fmt.Sprintf("%s is now part of your wardrobe", clothing.Name),
			map[string]string{"type": "clothing_processed", "clothing_id": fmt.Sprintf("%d", clothing.ID)},
		)
	}
	return nil
}

// applyDetection only fills what the owner left empty.
func applyDetection(clothing *models.Clothing, detection services.ClothingDetection) {
	clothing.Climates = detection.Climates
	if strings.TrimSpace(clothing.Name) == "" {
		clothing.Name = detection.Name
	}
	if !clothing.Category.Valid() {
		clothing.Category = detection.Category
	}
}

// saveClothingProcessingFail records the attempt. The returned error makes
// asynq retry, and is nil once the garment is marked failed.
func saveClothingProcessingFail(db *gorm.DB, clothing models.Clothing, msg string, shouldRetry bool, cause ...error) error {
	clothing.ProcessRetryTimes = clothing.ProcessRetryTimes + 1
	clothing.ProcessErrorMessage = &msg
	if !shouldRetry || clothing.ProcessRetryTimes >= MaxProcessRetries {
		clothing.ProcessingStatus = models.ProcessingFailed
	}
	if tx := db.Save(&clothing); tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Clothing %v] Error on saving clothing for failed status", clothing.ID))
		return tx.Error
	}
	if clothing.ProcessingStatus == models.ProcessingFailed {
		return nil
	}
	if len(cause) > 0 && cause[0] != nil {
		return fmt.Errorf("[Clothing: %v] %s: %w", clothing.ID, msg, cause[0])
	}
	return fmt.Errorf("[Clothing: %v] %s", clothing.ID, msg)
}

// HandleDailyOutfitTask suggests an outfit for today's weather to every user
// with notifications enabled and a saved location.
func HandleDailyOutfitTask(
	ctx context.Context,
	t *asynq.Task,
	db *gorm.DB,
	weather services.WeatherServiceProvider,
	generator *outfitgen.Generator,
	fbApp *firebase.App,
) error {
	var users []models.UserAccount
	result := db.Where(
		"banned = ? AND receive_notifications = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", false, true,
	).Find(&users)
	if result.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Daily Outfit] Error fetching users: %v", result.Error))
		return result.Error
	}
	fmt.Printf("[Daily Outfit] Found %d users to suggest outfits\n", len(users))

	for _, user := range users {
		sent, err := suggestOutfitToUser(ctx, db, weather, generator, fbApp, user)
		if err != nil {
			fmt.Printf("[Daily Outfit] Failed for user %d: %v\n", user.ID, err)
			sentry.CaptureException(fmt.Errorf("[Daily Outfit] Failed for user %d: %v", user.ID, err))
			continue
		}
		if sent {
			fmt.Printf("[Daily Outfit] Suggestion sent to user %d\n", user.ID)
		}
	}
	return nil
}

func suggestOutfitToUser(
	ctx context.Context,
	db *gorm.DB,
	weather services.WeatherServiceProvider,
	generator *outfitgen.Generator,
	fbApp *firebase.App,
	user models.UserAccount,
) (bool, error) {
	forecast, err := weather.GetTodayForecast(ctx, *user.Latitude, *user.Longitude)
	if err != nil {
		return false, fmt.Errorf("error getting forecast: %w", err)
	}

	var clothes []models.Clothing
	if err := db.Where("owner_id = ?", user.ID).Find(&clothes).Error; err != nil {
		return false, fmt.Errorf("error fetching clothes: %w", err)
	}

	outfit := generator.GenerateOutfit(outfitgen.Requirements{
		Climate:        forecast.Climate,
		AvailableItems: clothes,
	})
	if outfit == nil {
		fmt.Printf("[Daily Outfit] Not enough garments for user %d in %s weather\n", user.ID, forecast.Climate)
		return false, nil
	}

	services.SendNotification(fbApp, db, user.ID,
		"Today's outfit",
		DailySuggestionMessage(*forecast, *outfit),
		map[string]string{"type": "daily_outfit", "climate": string(forecast.Climate)},
	)
	return true, nil
}

func DailySuggestionMessage(forecast models.WeatherData, outfit outfitgen.GeneratedOutfit) string {
	names := make([]string, 0, len(outfit.Items))
	for _, item := range outfit.Items {
		names = append(names, item.Name)
	}
	message := fmt.Sprintf("%d°C, %s: %s", forecast.Temperature, forecast.Condition, strings.Join(names, ", "))
	if runes := []rune(message); len(runes) > 120 {
		message = string(runes[:117]) + "..."
	}
	return message
}
