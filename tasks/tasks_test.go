package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wardrobeapi/dbhelper"
	"wardrobeapi/models"
	"wardrobeapi/outfitgen"
	"wardrobeapi/services"
	"wardrobeapi/test"
)

// garmentPNG draws a striped red and blue garment on a white background.
func garmentPNG(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 20 && x < 60 && y >= 15 && y < 65 {
				if (y/5)%2 == 0 {
					c = color.RGBA{uint8(170 + x%20), 25, 30, 255}
				} else {
					c = color.RGBA{20, 40, uint8(150 + y%30), 255}
				}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageServer(t *testing.T, body []byte, status int) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func setupDB(t *testing.T) *gorm.DB {
	db := dbhelper.SetupTestDB()
	t.Cleanup(dbhelper.SetupCleaner(db))
	return db
}

func pendingClothing(db *gorm.DB, owner *models.UserAccount, name string, climates ...models.Climate) *models.Clothing {
	clothing := &models.Clothing{
		Name:               name,
		Category:           models.CategoryTop,
		Climates:           climates,
		OwnerID:            owner.ID,
		ImageURL:           services.StrPointer("clothes/1/shirt.png"),
		ProcessingStatus:   models.ProcessingPending,
		AlertWhenProcessed: true,
	}
	db.Create(clothing)
	return clothing
}

func processingTask(t *testing.T, clothingId uint) *asynq.Task {
	task, err := NewClothingProcessingTask(clothingId)
	require.NoError(t, err)
	return task
}

func TestNewClothingProcessingTask(t *testing.T) {
	task := processingTask(t, 42)
	assert.Equal(t, TypeClothingProcess, task.Type())
	var payload ClothingProcessingPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, uint(42), payload.ClothingId)
	assert.Equal(t, TypeDailyOutfit, NewDailyOutfitTask().Type())
}

func TestClothingProcessingClassifiesGarment(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)
	clothing := pendingClothing(db, user, "")
	server := imageServer(t, garmentPNG(t), http.StatusOK)

	extractor := test.ColorExtractorMock{Colors: []models.ColorInfo{
		{RGB: [3]int{180, 25, 30}, Hex: "#b4191e", Frequency: 0.6},
		{RGB: [3]int{20, 40, 165}, Hex: "#1428a5", Frequency: 0.4},
	}}
	classifier := &test.ClassifierMock{Detection: services.ClothingDetection{
		Name:       "Striped Shirt",
		Category:   models.CategoryAccessory,
		Climates:   []models.Climate{models.ClimateMild, models.ClimateCold},
		Confidence: 0.9,
	}}

	err := HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db,
		test.AWSProviderMock{MockUrl: server.URL + "/shirt.png"}, extractor, classifier, nil)
	require.NoError(t, err)

	var stored models.Clothing
	db.First(&stored, clothing.ID)
	assert.Equal(t, models.ProcessingCompleted, stored.ProcessingStatus)
	assert.Equal(t, "Striped Shirt", stored.Name)
	// the owner picked a valid category already
	assert.Equal(t, models.CategoryTop, stored.Category)
	assert.Equal(t, []models.Climate{models.ClimateMild, models.ClimateCold}, []models.Climate(stored.Climates))
	require.Len(t, stored.Colors, 2)
	assert.Equal(t, "#b4191e", stored.Colors[0].Hex)
	assert.Nil(t, stored.ProcessErrorMessage)
	assert.Equal(t, 1, classifier.Calls)

	// a second delivery of the same task is a no-op
	err = HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db,
		test.AWSProviderMock{MockUrl: server.URL + "/shirt.png"}, extractor, classifier, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, classifier.Calls)
}

func TestClothingProcessingKeepsOwnerClimates(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)
	clothing := pendingClothing(db, user, "Linen Shirt", models.ClimateHot)
	server := imageServer(t, garmentPNG(t), http.StatusOK)
	classifier := &test.ClassifierMock{}

	err := HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db,
		test.AWSProviderMock{MockUrl: server.URL}, test.ColorExtractorMock{}, classifier, nil)
	require.NoError(t, err)

	var stored models.Clothing
	db.First(&stored, clothing.ID)
	assert.Equal(t, models.ProcessingCompleted, stored.ProcessingStatus)
	assert.Equal(t, []models.Climate{models.ClimateHot}, []models.Climate(stored.Climates))
	assert.Equal(t, "Linen Shirt", stored.Name)
	assert.Equal(t, 0, classifier.Calls)
}

func TestClothingProcessingExtractsRealColors(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)
	clothing := pendingClothing(db, user, "Striped Shirt", models.ClimateMild)
	server := imageServer(t, garmentPNG(t), http.StatusOK)

	err := HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db,
		test.AWSProviderMock{MockUrl: server.URL}, services.NewColorExtractor(), nil, nil)
	require.NoError(t, err)

	var stored models.Clothing
	db.First(&stored, clothing.ID)
	assert.Equal(t, models.ProcessingCompleted, stored.ProcessingStatus)
	require.NotEmpty(t, stored.Colors)
	assert.LessOrEqual(t, len(stored.Colors), services.DefaultColorCount)
	var total float64
	for _, c := range stored.Colors {
		assert.True(t, strings.HasPrefix(c.Hex, "#"), c.Hex)
		total += c.Frequency
	}
	assert.InDelta(t, 1.0, total, 1e-6)
}

func TestClothingProcessingRetriesThenFails(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)
	clothing := pendingClothing(db, user, "Shirt")
	server := imageServer(t, []byte("gone"), http.StatusNotFound)
	aws := test.AWSProviderMock{MockUrl: server.URL}

	for attempt := 1; attempt < MaxProcessRetries; attempt++ {
		err := HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db, aws, test.ColorExtractorMock{}, nil, nil)
		require.Error(t, err, "attempt %d", attempt)

		var stored models.Clothing
		db.First(&stored, clothing.ID)
		assert.Equal(t, models.ProcessingPending, stored.ProcessingStatus)
		assert.Equal(t, attempt, stored.ProcessRetryTimes)
	}

	err := HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db, aws, test.ColorExtractorMock{}, nil, nil)
	require.NoError(t, err)
	var stored models.Clothing
	db.First(&stored, clothing.ID)
	assert.Equal(t, models.ProcessingFailed, stored.ProcessingStatus)
	require.NotNil(t, stored.ProcessErrorMessage)
}

func TestClothingProcessingPermanentFailures(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)

	notImage := pendingClothing(db, user, "Broken")
	server := imageServer(t, []byte("definitely not an image"), http.StatusOK)
	err := HandleClothingProcessingTask(context.Background(), processingTask(t, notImage.ID), db,
		test.AWSProviderMock{MockUrl: server.URL}, test.ColorExtractorMock{}, nil, nil)
	require.NoError(t, err)
	var stored models.Clothing
	db.First(&stored, notImage.ID)
	assert.Equal(t, models.ProcessingFailed, stored.ProcessingStatus)
	assert.Equal(t, 1, stored.ProcessRetryTimes)

	noPhoto := &models.Clothing{Name: "No photo", Category: models.CategoryTop, OwnerID: user.ID, ProcessingStatus: models.ProcessingPending}
	db.Create(noPhoto)
	err = HandleClothingProcessingTask(context.Background(), processingTask(t, noPhoto.ID), db,
		test.AWSProviderMock{}, test.ColorExtractorMock{}, nil, nil)
	require.NoError(t, err)
	db.First(&stored, noPhoto.ID)
	assert.Equal(t, models.ProcessingFailed, stored.ProcessingStatus)

	// deleted garments are skipped quietly
	require.NoError(t, HandleClothingProcessingTask(context.Background(), processingTask(t, 9999), db,
		test.AWSProviderMock{}, test.ColorExtractorMock{}, nil, nil))

	err = HandleClothingProcessingTask(context.Background(), asynq.NewTask(TypeClothingProcess, []byte("{")), db,
		test.AWSProviderMock{}, test.ColorExtractorMock{}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestClothingProcessingClassifierError(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)
	clothing := pendingClothing(db, user, "Shirt")
	server := imageServer(t, garmentPNG(t), http.StatusOK)
	classifier := &test.ClassifierMock{Err: errors.New("quota exceeded")}

	err := HandleClothingProcessingTask(context.Background(), processingTask(t, clothing.ID), db,
		test.AWSProviderMock{MockUrl: server.URL}, test.ColorExtractorMock{}, classifier, nil)
	require.Error(t, err)

	var stored models.Clothing
	db.First(&stored, clothing.ID)
	assert.Equal(t, models.ProcessingPending, stored.ProcessingStatus)
	assert.Equal(t, 1, stored.ProcessRetryTimes)
}

func seedDailyWardrobe(db *gorm.DB, user *models.UserAccount) {
	test.FakeClothing(db, user, "Wool Sweater", models.CategoryTop, "#8b0000", models.ClimateCold)
	test.FakeClothing(db, user, "Chinos", models.CategoryBottom, "#c3b091", models.ClimateMild)
	test.FakeClothing(db, user, "Boots", models.CategoryFootwear, "#4b3621", models.ClimateCold)
}

func TestDailyOutfitTaskSelectsUsers(t *testing.T) {
	db := setupDB(t)
	located := test.FakeUserV2(db, "Located", "located@example.com")
	db.Model(located).Updates(map[string]interface{}{"latitude": 40.4, "longitude": -3.7})
	seedDailyWardrobe(db, located)

	silent := test.FakeUserV2(db, "Silent", "silent@example.com")
	db.Model(silent).Updates(map[string]interface{}{"latitude": 41.4, "longitude": 2.1, "receive_notifications": false})

	banned := test.FakeUserV2(db, "Banned", "banned@example.com")
	db.Model(banned).Updates(map[string]interface{}{"latitude": 37.4, "longitude": -6.0, "banned": true})

	test.FakeUserV2(db, "Nowhere", "nowhere@example.com")

	weather := &test.WeatherMock{Forecast: models.WeatherData{Temperature: 5, Condition: "Cloudy", Climate: models.ClimateCold}}
	err := HandleDailyOutfitTask(context.Background(), NewDailyOutfitTask(), db, weather, outfitgen.NewGenerator(outfitgen.NewSeededRandom(7)), nil)
	require.NoError(t, err)

	require.Len(t, weather.Calls, 1)
	assert.InDelta(t, 40.4, weather.Calls[0].Latitude, 1e-9)
}

func TestSuggestOutfitToUser(t *testing.T) {
	db := setupDB(t)
	user := test.FakeUser(db)
	db.Model(user).Updates(map[string]interface{}{"latitude": 40.4, "longitude": -3.7})
	db.First(user, user.ID)
	generator := outfitgen.NewGenerator(outfitgen.NewSeededRandom(1))

	weather := &test.WeatherMock{Forecast: models.WeatherData{Temperature: 5, Condition: "Cloudy", Climate: models.ClimateCold}}
	sent, err := suggestOutfitToUser(context.Background(), db, weather, generator, nil, *user)
	require.NoError(t, err)
	assert.False(t, sent, "empty wardrobe")

	seedDailyWardrobe(db, user)
	sent, err = suggestOutfitToUser(context.Background(), db, weather, generator, nil, *user)
	require.NoError(t, err)
	assert.True(t, sent)

	weather.Err = errors.New("down")
	_, err = suggestOutfitToUser(context.Background(), db, weather, generator, nil, *user)
	assert.Error(t, err)
}

func TestDailySuggestionMessage(t *testing.T) {
	outfit := outfitgen.GeneratedOutfit{Items: []models.Clothing{{Name: "Wool Sweater"}, {Name: "Chinos"}, {Name: "Boots"}}}
	forecast := models.WeatherData{Temperature: -2, Condition: "Snowing"}

	assert.Equal(t, "-2°C, Snowing: Wool Sweater, Chinos, Boots", DailySuggestionMessage(forecast, outfit))

	long := outfitgen.GeneratedOutfit{}
	for i := 0; i < 20; i++ {
		long.Items = append(long.Items, models.Clothing{Name: "Very Long Garment Name"})
	}
	message := DailySuggestionMessage(forecast, long)
	assert.Equal(t, 120, len([]rune(message)))
	assert.True(t, strings.HasSuffix(message, "..."))
}
